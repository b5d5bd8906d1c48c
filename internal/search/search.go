// Package search turns an advanced search form into a search_posts call.
package search

import (
	"context"
	"log/slog"
	"strings"

	"backend-umaklink/internal/netprobe"
	"backend-umaklink/internal/post"
)

const (
	TotalSteps   = 5
	DefaultLimit = 50
)

const (
	msgOffline        = "You are offline. Check your connection and try again."
	msgClassifyFailed = "We couldn't analyze the image. Try again or describe the item instead."
	msgBadDate        = "The last seen date or time is invalid."
	msgSearchFailed   = "Search failed. Please try again."
)

// Classifier derives search phrases from an image.
type Classifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Searcher runs the server-side full-text search.
type Searcher interface {
	Search(ctx context.Context, params post.SearchParams) ([]post.SearchRow, error)
}

// Params is one submitted search. It is not modified by the composer.
type Params struct {
	Query      string   `json:"query"`
	Date       string   `json:"date,omitempty"`     // MM/DD/YYYY
	Time       string   `json:"time,omitempty"`     // h:mm
	Meridian   string   `json:"meridian,omitempty"` // AM or PM
	Locations  []string `json:"locations,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// ItemStatuses is applied by the server.
	ItemStatuses []string `json:"item_statuses,omitempty"`
	// SubmissionStatuses is applied to the returned rows.
	SubmissionStatuses []string `json:"submission_statuses,omitempty"`
	ClaimFrom          string   `json:"claim_from,omitempty"` // YYYY-MM-DD
	ClaimTo            string   `json:"claim_to,omitempty"`   // YYYY-MM-DD
	Image              []byte   `json:"image,omitempty"`      // base64 in JSON
	ImageMIME          string   `json:"image_mime,omitempty"`
	Limit              int      `json:"limit,omitempty"`
}

type Result struct {
	Success bool     `json:"success"`
	IDs     []string `json:"ids"`
	Message string   `json:"message,omitempty"`
}

// ProgressFunc is called as each step starts.
type ProgressFunc func(step, total int)

type Options struct {
	Classifier Classifier
	Probe      netprobe.Probe
	Logger     *slog.Logger
}

type Composer struct {
	searcher   Searcher
	classifier Classifier
	probe      netprobe.Probe
	logger     *slog.Logger
}

func NewComposer(searcher Searcher, opts Options) *Composer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		searcher:   searcher,
		classifier: opts.Classifier,
		probe:      opts.Probe,
		logger:     logger,
	}
}

// HandleAdvancedSearch runs the five search steps and returns the matching
// post ids.
func (c *Composer) HandleAdvancedSearch(ctx context.Context, p Params, progress ProgressFunc) Result {
	report := func(step int) {
		if progress != nil {
			progress(step, TotalSteps)
		}
	}

	if c.probe != nil && !c.probe.Connected(ctx) {
		return Result{Message: msgOffline}
	}

	report(1)
	location := AggregateLocation(p.Locations)

	report(2)
	query := strings.TrimSpace(p.Query)
	if c.needsClassifier(p) {
		if c.classifier == nil {
			return Result{Message: msgClassifyFailed}
		}
		raw, err := c.classifier.Classify(ctx, p.Image, p.ImageMIME)
		keywords := ParseClassifierOutput(raw)
		if err != nil || keywords == "" {
			c.logger.Error("classify image", "err", err, "raw", raw)
			return Result{Message: msgClassifyFailed}
		}
		query = ComposeQuery(query, keywords)
	}

	report(3)
	req := post.SearchParams{
		SearchTerm:   query,
		Limit:        p.Limit,
		Categories:   p.Categories,
		Location:     location,
		ClaimFrom:    p.ClaimFrom,
		ClaimTo:      p.ClaimTo,
		ItemStatuses: p.ItemStatuses,
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if strings.TrimSpace(p.Date) != "" {
		at, err := parseCampusTime(p.Date, p.Time, p.Meridian)
		if err != nil {
			c.logger.Warn("parse last seen date", "err", err)
			return Result{Message: msgBadDate}
		}
		req.Date = at.Format("2006-01-02")
	}

	report(4)
	rows, err := c.searcher.Search(ctx, req)
	if err != nil {
		c.logger.Error("search posts", "err", err)
		return Result{Message: msgSearchFailed}
	}
	if ctx.Err() != nil {
		return Result{Message: msgSearchFailed}
	}
	rows = filterSubmission(rows, p.SubmissionStatuses)

	report(5)
	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}
	return Result{Success: true, IDs: ids}
}

// needsClassifier is true when an image is present and text plus date do not
// already pin the search down.
func (c *Composer) needsClassifier(p Params) bool {
	if len(p.Image) == 0 {
		return false
	}
	return strings.TrimSpace(p.Query) == "" || strings.TrimSpace(p.Date) == ""
}

func filterSubmission(rows []post.SearchRow, statuses []string) []post.SearchRow {
	if len(statuses) == 0 {
		return rows
	}
	allowed := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}
	out := rows[:0:0]
	for _, r := range rows {
		if _, ok := allowed[r.SubmissionStatus]; ok {
			out = append(out, r)
		}
	}
	return out
}
