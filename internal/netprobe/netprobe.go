// Package netprobe reports whether the remote API is reachable.
package netprobe

import (
	"context"
	"net/http"
	"time"
)

// Probe answers a single connectivity question.
type Probe interface {
	Connected(ctx context.Context) bool
}

// HTTPProbe issues a HEAD request against URL. Any response, whatever its
// status, counts as connected; only transport failures mean offline.
type HTTPProbe struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{URL: url, Timeout: timeout, Client: &http.Client{}}
}

func (p *HTTPProbe) Connected(ctx context.Context) bool {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Static always gives the same answer.
type Static bool

func (s Static) Connected(context.Context) bool { return bool(s) }

// Func adapts a plain function to Probe.
type Func func(ctx context.Context) bool

func (f Func) Connected(ctx context.Context) bool { return f(ctx) }

// ConnectedWithin bounds an arbitrary probe by timeout. A probe that has not
// answered in time is treated as offline.
func ConnectedWithin(ctx context.Context, p Probe, timeout time.Duration) bool {
	if timeout <= 0 {
		return p.Connected(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() { result <- p.Connected(ctx) }()
	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}
