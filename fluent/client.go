package fluent

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wesleyorama2/fluenthttp/cache"
	"github.com/wesleyorama2/fluenthttp/transport"
)

// Client is the entry point of every fluent chain. It holds the transport
// and the defaults copied into each Request.
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	doer    transport.Doer
	baseURL string
	headers http.Header
	timeout time.Duration
	logger  *zap.Logger
	store   cache.Store
	metrics *transport.Metrics
	onError func(*ResponseError)
	flight  singleflight.Group
}

// Option is a function that configures a Client.
type Option func(*Client)

// New creates a Client. Without WithDoer or WithHTTPClient requests go
// through a timing-aware net/http client.
//
// Example:
//
//	client := fluent.New(
//	    fluent.WithBaseURL("https://api.example.com"),
//	    fluent.WithTimeout(10*time.Second),
//	)
//	user, err := fluent.JSON[User](client.Request().Endpoint("users", 42).Get()).Send(ctx)
func New(options ...Option) *Client {
	c := &Client{
		headers: make(http.Header),
		logger:  zap.NewNop(),
	}

	for _, option := range options {
		option(c)
	}

	if c.doer == nil {
		c.doer = transport.NewClient()
	}
	if c.store == nil {
		c.store = cache.NewMemory(0)
	}
	c.doer = transport.Chain(c.doer, c.metrics.Middleware())

	return c
}

// WithDoer sets the transport used to send requests.
func WithDoer(doer transport.Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithHTTPClient sends requests through httpClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.doer = httpClient
		}
	}
}

// WithBaseURL sets the URL relative endpoints are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHeader adds a default header to every request.
// Headers set on individual requests override these defaults.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithTimeout sets the default per-request timeout. Request.Timeout
// overrides it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used for cache and error events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCache sets the store backing SafeMethod.WithCache.
func WithCache(store cache.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithMetrics records transport and cache metrics.
func WithMetrics(metrics *transport.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithErrorHandler registers a hook invoked with every ResponseError before
// it is returned to the caller.
func WithErrorHandler(handler func(*ResponseError)) Option {
	return func(c *Client) {
		c.onError = handler
	}
}

// Request starts a new chain.
func (c *Client) Request() *Request {
	return newRequest(c)
}

// InvalidateCache drops every cached response.
func (c *Client) InvalidateCache() {
	c.store.Clear()
}
