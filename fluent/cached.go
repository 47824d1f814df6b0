package fluent

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wesleyorama2/fluenthttp/cache"
)

// CachedMethod is a SafeMethod whose buffered results are served from the
// client cache. Streams are not cacheable, so there is no ToStream.
type CachedMethod struct {
	m       *method
	ttl     time.Duration
	refresh bool
	err     error
}

// Endpoint returns the endpoint the method was chosen on.
func (c *CachedMethod) Endpoint() *Endpoint {
	return c.m.endpoint
}

// HTTPMethod returns the verb.
func (c *CachedMethod) HTTPMethod() string {
	return c.m.verb
}

// TTL returns how long responses are kept.
func (c *CachedMethod) TTL() time.Duration {
	return c.ttl
}

// Refresh skips the cache lookup and overwrites the entry with a fresh
// response when enabled.
func (c *CachedMethod) Refresh(enabled bool) *CachedMethod {
	c.refresh = enabled
	return c
}

// Send returns the cached or freshly fetched response. The body is fully
// buffered; closing it is still expected.
func (c *CachedMethod) Send(ctx context.Context) (*http.Response, error) {
	p, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return p.response(), nil
}

// ToBytes shapes the result as the raw body.
func (c *CachedMethod) ToBytes() *Result[[]byte] {
	return bytesResult(c)
}

// ToString shapes the result as the body decoded to UTF-8.
func (c *CachedMethod) ToString() *Result[string] {
	return stringResult(c)
}

func (c *CachedMethod) source() source {
	return c
}

func (c *CachedMethod) fetch(ctx context.Context) (*payload, error) {
	if c.err != nil {
		return nil, c.err
	}

	req, cancel, err := c.m.build(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	client := c.m.client()
	key := cacheKey(req)
	host := req.URL.Host

	if !c.refresh {
		if entry, ok := client.store.Get(key); ok {
			client.metrics.ObserveCache(req.Method, host, true)
			client.logger.Debug("cache hit", zap.String("key", key))
			return entryPayload(req, entry), nil
		}
	}
	client.metrics.ObserveCache(req.Method, host, false)

	// Callers with different timeouts must not wait on each other's deadline
	flightKey := key + "\x00" + c.m.endpoint.request.timeout.String()
	ch := client.flight.DoChan(flightKey, func() (any, error) {
		// A flight that finished since the lookup above may have stored it
		if !c.refresh {
			if entry, ok := client.store.Get(key); ok {
				return entryPayload(req, entry), nil
			}
		}

		resp, err := c.m.do(req)
		if err != nil {
			return nil, err
		}
		p, err := readPayload(req, resp)
		if err != nil {
			return nil, err
		}
		if isSuccess(p.statusCode) {
			client.store.Set(key, &cache.Entry{
				StatusCode: p.statusCode,
				Header:     p.header.Clone(),
				Body:       p.body,
			}, c.ttl)
		}
		return p, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-req.Context().Done():
		return nil, fmt.Errorf("fluent: %s %s: %w", req.Method, req.URL.Redacted(), req.Context().Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		client.logger.Debug("shared in-flight response", zap.String("key", key))
	}

	// The flight carries the raw response; every caller applies its own
	// status policy.
	p := res.Val.(*payload)
	if err := c.m.check(req, p); err != nil {
		return nil, err
	}
	return p, nil
}

func entryPayload(req *http.Request, entry *cache.Entry) *payload {
	return &payload{
		method:     req.Method,
		url:        req.URL.Redacted(),
		statusCode: entry.StatusCode,
		status:     statusLine(entry.StatusCode),
		header:     entry.Header,
		body:       entry.Body,
	}
}

// cacheKey identifies a request by verb, full URL and headers.
func cacheKey(req *http.Request) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte(' ')
	b.WriteString(req.URL.String())

	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteByte('\n')
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(strings.Join(req.Header[key], ", "))
	}
	return b.String()
}

func statusLine(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}
