// Package vision asks a generative model to describe a lost item photo as
// search phrases.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"backend-umaklink/internal/shared/imgproc"
)

const (
	maxImageSide = 1024

	Prompt = `You are helping a campus lost-and-found search. Look at the item in this photo ` +
		`and describe it with short objective phrases: the item type and its main colour. ` +
		`Combine words of one phrase with AND and separate alternative phrases with OR, ` +
		`for example: black AND bottle OR blue AND flask. Reply with the phrases only.`
)

var ErrEmptyAnswer = errors.New("vision: model returned no text")

type Options struct {
	Endpoint      string
	APIKey        string
	Model         string
	RatePerMinute float64
	Timeout       time.Duration
	Logger        *slog.Logger
}

type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(opts.RatePerMinute / 60)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Classify returns the raw model answer for image. Callers parse it.
func (c *Client) Classify(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("vision: empty image")
	}
	if data, ct, err := imgproc.Normalize(image, maxImageSide, maxImageSide); err == nil {
		image, mimeType = data, ct
	} else {
		c.logger.Warn("normalize image, sending original", "err", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("vision rate limit: %w", err)
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{
		{Text: Prompt},
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
	}}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("vision api error (status %d): %s", resp.StatusCode, msg)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyAnswer
	}
	return sb.String(), nil
}
