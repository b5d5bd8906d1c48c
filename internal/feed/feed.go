// Package feed keeps one paginated post list in sync with the remote source.
//
// Every incoming batch is filtered and deduplicated against the loaded ids
// before it is merged, so the list never holds the same post twice. Remote
// failures are logged and treated as an empty batch. When the context is done
// by the time a remote call returns, the result is dropped and state is left
// as it was.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"backend-umaklink/internal/netprobe"
	"backend-umaklink/internal/post"
	"backend-umaklink/internal/postcache"
)

const DefaultPageSize = 10

// FetchPageFunc loads up to limit posts whose ids are not in excludeIDs.
type FetchPageFunc func(ctx context.Context, excludeIDs []string, limit int) ([]post.Post, error)

// RefreshFunc re-reads the given ids. Ids missing from the result are gone.
type RefreshFunc func(ctx context.Context, ids []string) ([]post.Post, error)

type Options struct {
	LoadedKey string
	CacheKey  string
	PageSize  int
	Filter    func(post.Post) bool
	Less      func(a, b post.Post) bool
	OnOffline func()
	Probe     netprobe.Probe
	Cache     *postcache.Cache
	Retries   int
	Logger    *slog.Logger
}

type Synchronizer struct {
	fetch   FetchPageFunc
	refresh RefreshFunc
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	posts []post.Post
	// pending marks restored entries in posts that still wait for their
	// payload. They hold list positions but are not rendered.
	pending map[string]postcache.Preview
	hasMore bool
	offline bool
}

func New(fetch FetchPageFunc, refresh RefreshFunc, opts Options) *Synchronizer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		fetch:   fetch,
		refresh: refresh,
		opts:    opts,
		logger:  logger.With("list", opts.LoadedKey),
		hasMore: true,
	}
}

// Posts returns a copy of the rendered list. Restored entries appear once
// RefreshPosts has fetched their payload.
func (s *Synchronizer) Posts() []post.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydratedLocked()
}

func (s *Synchronizer) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Offline reports whether the last operation was short-circuited by the probe.
func (s *Synchronizer) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Restore loads the persisted list state. The returned previews are enough to
// draw skeleton cards. Restored ids keep their list positions and count as
// loaded for every operation; the next RefreshPosts fetches their payloads.
func (s *Synchronizer) Restore(ctx context.Context) []postcache.Preview {
	if s.opts.Cache == nil {
		return nil
	}
	entry, err := s.opts.Cache.ReadEntry(ctx, s.opts.LoadedKey)
	if err != nil {
		s.logger.Warn("read cached list state", "err", err)
		return nil
	}
	previews, err := s.opts.Cache.ReadCachedPage(ctx, s.opts.CacheKey)
	if err != nil {
		s.logger.Warn("read cached previews", "err", err)
	}

	byID := make(map[string]postcache.Preview, len(previews))
	for _, p := range previews {
		byID[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.posts) == 0 && len(entry.IDs) > 0 {
		s.pending = map[string]postcache.Preview{}
		for _, id := range dedupeIDs(entry.IDs) {
			preview, ok := byID[id]
			if !ok {
				preview = postcache.Preview{ID: id}
			}
			s.pending[id] = preview
			s.posts = append(s.posts, post.Post{ID: id})
		}
		s.hasMore = entry.HasMore
	}
	return previews
}

// FetchPosts loads the first page and replaces the list with it.
func (s *Synchronizer) FetchPosts(ctx context.Context) []post.Post {
	if !s.online(ctx) {
		return nil
	}
	raw, ok := s.fetchPage(ctx, nil)
	if !ok {
		return nil
	}

	s.mu.Lock()
	seen := map[string]struct{}{}
	s.posts = s.admit(raw, seen)
	s.pending = nil
	s.hasMore = len(raw) >= s.opts.PageSize
	s.sortLocked()
	batch := s.hydratedLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return batch
}

// LoadMorePosts appends the next page. It is a no-op once the source has
// reported its last page.
func (s *Synchronizer) LoadMorePosts(ctx context.Context) []post.Post {
	s.mu.Lock()
	more := s.hasMore
	exclude := s.loadedIDsLocked()
	s.mu.Unlock()
	if !more {
		return []post.Post{}
	}
	if !s.online(ctx) {
		return nil
	}

	raw, ok := s.fetchPage(ctx, exclude)
	if !ok {
		return []post.Post{}
	}

	s.mu.Lock()
	batch := s.admit(raw, s.indexLocked())
	s.posts = append(s.posts, batch...)
	s.hasMore = len(raw) >= s.opts.PageSize
	s.sortLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return batch
}

// RefreshPosts re-reads every loaded id. Posts the source no longer returns
// are pruned, the rest get fresh payloads, and the order is unchanged.
func (s *Synchronizer) RefreshPosts(ctx context.Context) []post.Post {
	s.mu.Lock()
	ids := s.loadedIDsLocked()
	s.mu.Unlock()
	if len(ids) == 0 {
		return []post.Post{}
	}
	if !s.online(ctx) {
		return nil
	}

	var fresh []post.Post
	err := s.withRetry(ctx, "refresh posts", func() error {
		var err error
		fresh, err = s.refresh(ctx, ids)
		return err
	})
	if err != nil || ctx.Err() != nil {
		return []post.Post{}
	}

	byID := make(map[string]post.Post, len(fresh))
	for _, p := range fresh {
		if s.opts.Filter != nil && !s.opts.Filter(p) {
			continue
		}
		byID[p.ID] = p
	}

	asked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		asked[id] = struct{}{}
	}

	s.mu.Lock()
	next := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if fresh, ok := byID[p.ID]; ok {
			delete(s.pending, p.ID)
			next = append(next, fresh)
			continue
		}
		// Loaded by an overlapping call after this refresh started.
		if _, ok := asked[p.ID]; !ok {
			next = append(next, p)
			continue
		}
		delete(s.pending, p.ID)
	}
	s.posts = next
	batch := s.hydratedLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return batch
}

// FetchNewPosts fetches a fresh first page and prepends posts not yet loaded.
// Pagination state is left alone.
func (s *Synchronizer) FetchNewPosts(ctx context.Context) []post.Post {
	if !s.online(ctx) {
		return nil
	}
	raw, ok := s.fetchPage(ctx, nil)
	if !ok {
		return []post.Post{}
	}

	s.mu.Lock()
	batch := s.admit(raw, s.indexLocked())
	if len(batch) == 0 {
		s.mu.Unlock()
		return batch
	}
	s.posts = append(clonePosts(batch), s.posts...)
	s.sortLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return batch
}

// Reset drops the in-memory list and its cache records.
func (s *Synchronizer) Reset(ctx context.Context) {
	s.mu.Lock()
	s.posts = nil
	s.pending = nil
	s.hasMore = true
	s.offline = false
	s.mu.Unlock()

	if s.opts.Cache == nil {
		return
	}
	keys := postcache.Keys{LoadedKey: s.opts.LoadedKey, CacheKey: s.opts.CacheKey}
	if err := s.opts.Cache.Clear(ctx, keys); err != nil {
		s.logger.Warn("clear post cache", "err", err)
	}
}

func (s *Synchronizer) online(ctx context.Context) bool {
	if s.opts.Probe == nil || s.opts.Probe.Connected(ctx) {
		s.mu.Lock()
		s.offline = false
		s.mu.Unlock()
		return true
	}
	s.mu.Lock()
	s.offline = true
	s.mu.Unlock()
	s.logger.Info("offline, skipping remote call")
	if s.opts.OnOffline != nil {
		s.opts.OnOffline()
	}
	return false
}

func (s *Synchronizer) fetchPage(ctx context.Context, exclude []string) ([]post.Post, bool) {
	var raw []post.Post
	err := s.withRetry(ctx, "fetch page", func() error {
		var err error
		raw, err = s.fetch(ctx, exclude, s.opts.PageSize)
		return err
	})
	if err != nil || ctx.Err() != nil {
		return nil, false
	}
	return raw, true
}

func (s *Synchronizer) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		s.logger.Error(op, "attempt", attempt+1, "err", err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// admit filters raw and drops ids already in seen, recording the survivors.
func (s *Synchronizer) admit(raw []post.Post, seen map[string]struct{}) []post.Post {
	out := make([]post.Post, 0, len(raw))
	for _, p := range raw {
		if p.ID == "" {
			continue
		}
		if s.opts.Filter != nil && !s.opts.Filter(p) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *Synchronizer) indexLocked() map[string]struct{} {
	seen := make(map[string]struct{}, len(s.posts))
	for _, p := range s.posts {
		seen[p.ID] = struct{}{}
	}
	return seen
}

// loadedIDsLocked lists every id in list order, restored entries included.
func (s *Synchronizer) loadedIDsLocked() []string {
	ids := make([]string, len(s.posts))
	for i, p := range s.posts {
		ids[i] = p.ID
	}
	return ids
}

func (s *Synchronizer) isPendingLocked(id string) bool {
	_, ok := s.pending[id]
	return ok
}

func (s *Synchronizer) hydratedLocked() []post.Post {
	out := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !s.isPendingLocked(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// sortLocked orders hydrated posts with Less. Restored entries have no
// payload to compare and keep their positions.
func (s *Synchronizer) sortLocked() {
	if s.opts.Less == nil {
		return
	}
	var slots []int
	var hydrated []post.Post
	for i, p := range s.posts {
		if !s.isPendingLocked(p.ID) {
			slots = append(slots, i)
			hydrated = append(hydrated, p)
		}
	}
	sort.SliceStable(hydrated, func(i, j int) bool {
		return s.opts.Less(hydrated[i], hydrated[j])
	})
	for k, i := range slots {
		s.posts[i] = hydrated[k]
	}
}

type snapshot struct {
	entry    postcache.Entry
	previews []postcache.Preview
}

func (s *Synchronizer) snapshotLocked() snapshot {
	snap := snapshot{entry: postcache.Entry{IDs: s.loadedIDsLocked(), HasMore: s.hasMore}}
	snap.previews = make([]postcache.Preview, len(s.posts))
	for i, p := range s.posts {
		if preview, ok := s.pending[p.ID]; ok {
			snap.previews[i] = preview
			continue
		}
		snap.previews[i] = postcache.PreviewOf(p)
	}
	return snap
}

func (s *Synchronizer) persist(ctx context.Context, snap snapshot) {
	if s.opts.Cache == nil {
		return
	}
	if s.opts.LoadedKey != "" {
		if err := s.opts.Cache.WriteEntry(ctx, s.opts.LoadedKey, snap.entry); err != nil {
			s.logger.Warn("persist list state", "err", err)
		}
	}
	if s.opts.CacheKey != "" {
		if err := s.opts.Cache.WriteCachedPage(ctx, s.opts.CacheKey, snap.previews); err != nil {
			s.logger.Warn("persist previews", "err", err)
		}
	}
}

func clonePosts(in []post.Post) []post.Post {
	out := make([]post.Post, len(in))
	copy(out, in)
	return out
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
