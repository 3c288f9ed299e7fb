// Package noteapi holds the note.com API collaborators: the embed-key
// exchange and the article CRUD interface. Only the exchange is implemented
// here; article persistence stays behind the Articles interface.
package noteapi

import (
	"context"
	"net/http"
	"time"

	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/metrics"
	"git.home.luguber.info/inful/notedown/internal/retry"
)

const defaultBaseURL = "https://note.com/api"

// Client talks to the note.com API.
type Client struct {
	base  string
	http  *http.Client
	retry retry.Policy
	rec   metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy replaces the backoff policy used for transient failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.rec = r }
}

// NewClient creates a Client. An empty baseURL selects the production API.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		base:  baseURL,
		http:  &http.Client{Timeout: 30 * time.Second},
		retry: retry.DefaultPolicy(),
		rec:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Articles is the document persistence collaborator. Session handling and
// the CRUD mechanics live outside this module.
type Articles interface {
	// CreateDraft persists a new draft and returns its server key.
	CreateDraft(ctx context.Context, doc *document.Document) (string, error)
	// UpdateBody replaces the body markup of an existing draft.
	UpdateBody(ctx context.Context, key, markup string) error
	// Publish publishes a draft.
	Publish(ctx context.Context, key string) error
}
