// Package client assembles the app-side components from configuration: the
// local store, post cache, API client, connectivity probe and search
// composer. Screens ask it for one feed.Synchronizer per logical list.
package client

import (
	"context"
	"log/slog"

	"backend-umaklink/internal/config"
	"backend-umaklink/internal/feed"
	"backend-umaklink/internal/kvstore"
	"backend-umaklink/internal/netprobe"
	"backend-umaklink/internal/post"
	"backend-umaklink/internal/postcache"
	"backend-umaklink/internal/postsource"
	"backend-umaklink/internal/search"
	"backend-umaklink/internal/vision"

	"github.com/redis/go-redis/v9"
)

const remoteRetries = 1

type App struct {
	Store    kvstore.Store
	Cache    *postcache.Cache
	Source   *postsource.Client
	Probe    netprobe.Probe
	Search   *search.Composer
	pageSize int
	logger   *slog.Logger
}

// New opens the local store for cfg.StorePlatform. rdb is only used by the
// shared platform and may be nil otherwise.
func New(cfg config.Config, rdb *redis.Client, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := kvstore.Open(kvstore.Options{
		Platform: cfg.StorePlatform,
		Path:     cfg.StorePath,
		Redis:    rdb,
	})
	if err != nil {
		return nil, err
	}

	source := postsource.NewClient(cfg.APIBaseURL)
	probe := netprobe.Probe(netprobe.Static(true))
	if cfg.ProbeURL != "" {
		probe = netprobe.NewHTTPProbe(cfg.ProbeURL, cfg.ProbeTimeout)
	}

	opts := search.Options{Probe: probe, Logger: logger.With("component", "search")}
	if cfg.VisionAPIKey != "" {
		opts.Classifier = vision.NewClient(vision.Options{
			Endpoint:      cfg.VisionEndpoint,
			APIKey:        cfg.VisionAPIKey,
			Model:         cfg.VisionModel,
			RatePerMinute: cfg.VisionRatePerMinute,
			Logger:        logger.With("component", "vision"),
		})
	}

	return &App{
		Store:    store,
		Cache:    postcache.New(store),
		Source:   source,
		Probe:    probe,
		Search:   search.NewComposer(source, opts),
		pageSize: cfg.PageSize,
		logger:   logger,
	}, nil
}

// ListSpec describes one logical list, e.g. the public found-items board.
type ListSpec struct {
	Key       string
	Query     post.ListParams
	Filter    func(post.Post) bool
	Less      func(a, b post.Post) bool
	OnOffline func()
}

func (a *App) Feed(list ListSpec) *feed.Synchronizer {
	return feed.New(a.Source.PageFetcher(list.Query), a.Source.Refresher(list.Query), feed.Options{
		LoadedKey: list.Key,
		CacheKey:  list.Key,
		PageSize:  a.pageSize,
		Filter:    list.Filter,
		Less:      list.Less,
		OnOffline: list.OnOffline,
		Probe:     a.Probe,
		Cache:     a.Cache,
		Retries:   remoteRetries,
		Logger:    a.logger.With("component", "feed"),
	})
}

// ClearLists drops the cached state of the given lists, e.g. on sign-out.
func (a *App) ClearLists(ctx context.Context, keys ...string) error {
	cacheKeys := make([]postcache.Keys, 0, len(keys))
	for _, k := range keys {
		cacheKeys = append(cacheKeys, postcache.Keys{LoadedKey: k, CacheKey: k})
	}
	return a.Cache.Clear(ctx, cacheKeys...)
}

// AcceptedFound keeps posts that are publicly visible found items.
func AcceptedFound(p post.Post) bool {
	return p.SubmissionStatus == post.SubmissionAccepted && p.PostType == post.TypeFound
}

// NewestAccepted orders by acceptance time, newest first, posts never
// accepted last.
func NewestAccepted(a, b post.Post) bool {
	switch {
	case a.AcceptedOn == nil:
		return false
	case b.AcceptedOn == nil:
		return true
	default:
		return a.AcceptedOn.After(*b.AcceptedOn)
	}
}
