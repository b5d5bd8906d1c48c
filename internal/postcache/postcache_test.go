package postcache

import (
	"context"
	"testing"

	"backend-umaklink/internal/kvstore"
	"backend-umaklink/internal/post"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadedIDsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(kvstore.NewMemory())

	ids, err := c.ReadLoadedIDs(ctx, "matches")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, c.WriteEntry(ctx, "matches", Entry{IDs: []string{"1"}, HasMore: true}))
	require.NoError(t, c.WriteLoadedIDs(ctx, "matches", []string{"1", "2"}))

	e, err := c.ReadEntry(ctx, "matches")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, e.IDs)
	assert.True(t, e.HasMore, "has-more must survive an id rewrite")
}

func TestWritesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := New(store)

	require.NoError(t, c.WriteLoadedIDs(ctx, "search", []string{"a", "b"}))
	first, _, _ := store.Get(ctx, loadedPrefix+"search")
	require.NoError(t, c.WriteLoadedIDs(ctx, "search", []string{"a", "b"}))
	second, _, _ := store.Get(ctx, loadedPrefix+"search")
	assert.Equal(t, first, second)
}

func TestCachedPageHoldsPreviewsOnly(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := New(store)

	p := post.Post{ID: "7", ItemName: "Umbrella", ItemCategory: "Accessories", ItemStatus: post.ItemFound,
		ClaimedByContact: "09171234567", ItemDescription: "blue"}
	require.NoError(t, c.WriteCachedPage(ctx, "search-page", []Preview{PreviewOf(p)}))

	raw, _, _ := store.Get(ctx, pagePrefix+"search-page")
	assert.NotContains(t, raw, "09171234567")
	assert.NotContains(t, raw, "blue")

	page, err := c.ReadCachedPage(ctx, "search-page")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Umbrella", page[0].ItemName)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c := New(kvstore.NewMemory())

	require.NoError(t, c.WriteLoadedIDs(ctx, "a", []string{"1"}))
	require.NoError(t, c.WriteCachedPage(ctx, "a-page", []Preview{{ID: "1"}}))
	require.NoError(t, c.WriteLoadedIDs(ctx, "b", []string{"2"}))

	require.NoError(t, c.Clear(ctx, Keys{LoadedKey: "a", CacheKey: "a-page"}))

	ids, _ := c.ReadLoadedIDs(ctx, "a")
	assert.Empty(t, ids)
	page, _ := c.ReadCachedPage(ctx, "a-page")
	assert.Empty(t, page)
	ids, _ = c.ReadLoadedIDs(ctx, "b")
	assert.Equal(t, []string{"2"}, ids, "other lists are untouched")
}

func TestCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, loadedPrefix+"bad", "{not json"))

	_, err := New(store).ReadEntry(ctx, "bad")
	assert.Error(t, err)

	require.NoError(t, New(store).WriteLoadedIDs(ctx, "bad", []string{"1"}))
	ids, err := New(store).ReadLoadedIDs(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}
