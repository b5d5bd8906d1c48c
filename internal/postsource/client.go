// Package postsource is the client side of the posts API.
package postsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backend-umaklink/internal/post"
)

// Client talks to the UMak LINK API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken attaches a bearer token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// List runs GET /posts.
func (c *Client) List(ctx context.Context, params post.ListParams) ([]post.Post, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("type", params.Type)
	set("item_type", params.ItemType)
	set("poster_id", params.PosterID)
	set("post_ids", strings.Join(params.PostIDs, ","))
	set("exclude_ids", strings.Join(params.ExcludeIDs, ","))
	set("order_by", params.OrderBy)
	set("order_direction", params.OrderDirection)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp struct {
		Posts []post.Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return resp.Posts, nil
}

// Get returns nil without error when the post does not exist.
func (c *Client) Get(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, &p)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// Search runs the search_posts RPC.
func (c *Client) Search(ctx context.Context, params post.SearchParams) ([]post.SearchRow, error) {
	var raw []map[string]any
	if err := c.do(ctx, http.MethodPost, "/rpc/search_posts", params, &raw); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	rows := make([]post.SearchRow, 0, len(raw))
	for _, r := range raw {
		row, ok := normalizeRow(r)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PageFetcher binds a list query to the synchronizer's page loader.
func (c *Client) PageFetcher(base post.ListParams) func(ctx context.Context, excludeIDs []string, limit int) ([]post.Post, error) {
	return func(ctx context.Context, excludeIDs []string, limit int) ([]post.Post, error) {
		params := base
		params.ExcludeIDs = excludeIDs
		params.Limit = limit
		return c.List(ctx, params)
	}
}

// Refresher re-reads known ids under the same list predicates, so ids that
// left the list are simply absent from the result.
func (c *Client) Refresher(base post.ListParams) func(ctx context.Context, ids []string) ([]post.Post, error) {
	return func(ctx context.Context, ids []string) ([]post.Post, error) {
		if len(ids) == 0 {
			return []post.Post{}, nil
		}
		params := base
		params.PostIDs = ids
		params.ExcludeIDs = nil
		params.Limit = len(ids)
		return c.List(ctx, params)
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	// Untyped ids stay json.Number so bigint keys keep every digit.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
