// Package postcache persists which posts a logical list has loaded. Entries
// hold ids and render previews only; full payloads are always refetched so
// mutable fields such as status never go stale.
package postcache

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-umaklink/internal/kvstore"
	"backend-umaklink/internal/post"
)

const (
	loadedPrefix = "posts:loaded:"
	pagePrefix   = "posts:page:"
)

// Entry mirrors a list's state.
type Entry struct {
	IDs     []string `json:"ids"`
	HasMore bool     `json:"has_more"`
}

// Preview is the minimum needed to draw a skeleton card.
type Preview struct {
	ID           string `json:"post_id"`
	ItemName     string `json:"item_name"`
	ItemCategory string `json:"item_category,omitempty"`
	ItemStatus   string `json:"item_status,omitempty"`
	ItemImageURL string `json:"item_image_url,omitempty"`
}

func PreviewOf(p post.Post) Preview {
	return Preview{
		ID:           p.ID,
		ItemName:     p.ItemName,
		ItemCategory: p.ItemCategory,
		ItemStatus:   p.ItemStatus,
		ItemImageURL: p.ItemImageURL,
	}
}

// Keys names the two records owned by one logical list.
type Keys struct {
	LoadedKey string
	CacheKey  string
}

type Cache struct {
	store kvstore.Store
}

func New(store kvstore.Store) *Cache {
	return &Cache{store: store}
}

func (c *Cache) ReadEntry(ctx context.Context, loadedKey string) (Entry, error) {
	var e Entry
	ok, err := c.read(ctx, loadedPrefix+loadedKey, &e)
	if err != nil || !ok {
		return Entry{}, err
	}
	return e, nil
}

func (c *Cache) WriteEntry(ctx context.Context, loadedKey string, e Entry) error {
	if e.IDs == nil {
		e.IDs = []string{}
	}
	return c.write(ctx, loadedPrefix+loadedKey, e)
}

func (c *Cache) ReadLoadedIDs(ctx context.Context, loadedKey string) ([]string, error) {
	e, err := c.ReadEntry(ctx, loadedKey)
	if err != nil {
		return nil, err
	}
	return e.IDs, nil
}

// WriteLoadedIDs replaces the id list and keeps the stored has-more flag.
func (c *Cache) WriteLoadedIDs(ctx context.Context, loadedKey string, ids []string) error {
	e, err := c.ReadEntry(ctx, loadedKey)
	if err != nil {
		e = Entry{}
	}
	e.IDs = ids
	return c.WriteEntry(ctx, loadedKey, e)
}

func (c *Cache) ReadCachedPage(ctx context.Context, cacheKey string) ([]Preview, error) {
	var page []Preview
	if _, err := c.read(ctx, pagePrefix+cacheKey, &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Cache) WriteCachedPage(ctx context.Context, cacheKey string, page []Preview) error {
	if page == nil {
		page = []Preview{}
	}
	return c.write(ctx, pagePrefix+cacheKey, page)
}

// Clear drops every record owned by the given lists.
func (c *Cache) Clear(ctx context.Context, keys ...Keys) error {
	var raw []string
	for _, k := range keys {
		if k.LoadedKey != "" {
			raw = append(raw, loadedPrefix+k.LoadedKey)
		}
		if k.CacheKey != "" {
			raw = append(raw, pagePrefix+k.CacheKey)
		}
	}
	return c.store.Delete(ctx, raw...)
}

func (c *Cache) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, string(data))
}
