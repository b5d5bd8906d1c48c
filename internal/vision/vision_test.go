package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassifySendsPromptAndImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, Prompt, parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/png", parts[1].InlineData.MimeType)

		raw, err := base64.StdEncoding.DecodeString(parts[1].InlineData.Data)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.LessOrEqual(t, cfg.Width, maxImageSide)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"black AND bottle"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, APIKey: "secret", Model: "test-model"})
	out, err := c.Classify(context.Background(), pngBytes(t, 2048, 100), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "black AND bottle", out)
}

func TestClassifyErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "quota", status)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), pngBytes(t, 10, 10), "")
	assert.ErrorContains(t, err, "429")

	status = http.StatusOK
	_, err = c.Classify(context.Background(), pngBytes(t, 10, 10), "")
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	_, err = c.Classify(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestClassifyRespectsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"keys"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, RatePerMinute: 1})
	_, err := c.Classify(context.Background(), pngBytes(t, 4, 4), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Classify(ctx, pngBytes(t, 4, 4), "")
	assert.ErrorContains(t, err, "rate limit")
}
