package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-umaklink/internal/config"
	"backend-umaklink/internal/kvstore"
	"backend-umaklink/internal/post"
	"backend-umaklink/internal/search"
)

func TestFeedAgainstAPI(t *testing.T) {
	older := time.Date(2025, 1, 5, 8, 0, 0, 0, post.CampusZone)
	newer := older.Add(time.Hour)
	posts := []post.Post{
		{ID: "1", PostType: post.TypeFound, SubmissionStatus: post.SubmissionAccepted, AcceptedOn: &older},
		{ID: "2", PostType: post.TypeLost, SubmissionStatus: post.SubmissionAccepted, AcceptedOn: &newer},
		{ID: "3", PostType: post.TypeFound, SubmissionStatus: post.SubmissionAccepted, AcceptedOn: &newer},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		assert.Equal(t, "public", r.URL.Query().Get("type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"posts": posts})
	}))
	defer srv.Close()

	app, err := New(config.Config{
		APIBaseURL:    srv.URL,
		ProbeURL:      srv.URL,
		ProbeTimeout:  time.Second,
		StorePlatform: kvstore.PlatformNative,
		StorePath:     filepath.Join(t.TempDir(), "client.db"),
		PageSize:      10,
	}, nil, nil)
	require.NoError(t, err)

	list := app.Feed(ListSpec{
		Key:    "found-board",
		Query:  post.ListParams{Type: "public"},
		Filter: AcceptedFound,
		Less:   NewestAccepted,
	})
	got := list.FetchPosts(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
	assert.False(t, list.HasMore())

	entry, err := app.Cache.ReadEntry(context.Background(), "found-board")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, entry.IDs)

	require.NoError(t, app.ClearLists(context.Background(), "found-board"))
	entry, err = app.Cache.ReadEntry(context.Background(), "found-board")
	require.NoError(t, err)
	assert.Empty(t, entry.IDs)
}

func TestNewSharedPlatformNeedsRedis(t *testing.T) {
	_, err := New(config.Config{StorePlatform: kvstore.PlatformShared}, nil, nil)
	assert.Error(t, err)
}

func TestSearchWithoutClassifierFailsOnImage(t *testing.T) {
	app, err := New(config.Config{APIBaseURL: "http://127.0.0.1:1"}, nil, nil)
	require.NoError(t, err)

	res := app.Search.HandleAdvancedSearch(context.Background(), searchImageOnly(), nil)
	assert.False(t, res.Success)
}

func TestNewestAccepted(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)
	assert.True(t, NewestAccepted(post.Post{AcceptedOn: &now}, post.Post{AcceptedOn: &earlier}))
	assert.True(t, NewestAccepted(post.Post{AcceptedOn: &now}, post.Post{}))
	assert.False(t, NewestAccepted(post.Post{}, post.Post{AcceptedOn: &now}))
}

func searchImageOnly() search.Params {
	return search.Params{Image: []byte{0xff, 0xd8}, ImageMIME: "image/jpeg"}
}
