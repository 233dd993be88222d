// Package backend talks to the hedge fund analysis backend.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	drepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	pkghttp "github.com/bournewang/ai-hedge-fund/pkg/http"
)

const runPath = "/hedge-fund/run"

// Client implements AnalysisStream over the backend's streaming run endpoint.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *pkghttp.Client
}

// Option configures the client.
type Option func(*Client)

// WithStreamTimeout bounds one whole run, body included. Zero disables the
// bound; runs routinely take minutes, so keep this generous.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a backend client for the given base URL.
func New(baseURL string, opts ...Option) drepo.AnalysisStream {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = pkghttp.NewClient(pkghttp.WithTimeout(c.timeout))
	return c
}

// Open POSTs the run request and hands back the streaming response body. The
// caller owns the body; cancelling ctx aborts the stream.
func (c *Client) Open(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error) {
	resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    c.baseURL + runPath,
		Headers: map[string]string{
			"Accept":       "text/event-stream",
			"Content-Type": "application/json",
		},
		Body: req,
	})
	if err != nil {
		return nil, fmt.Errorf("open analysis stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}
