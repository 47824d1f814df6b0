package fluent

import (
	"context"
	"net/http"
	"time"
)

// SafeMethod is a GET, HEAD or OPTIONS step. It cannot carry a body and is
// the only step from which responses can be cached.
type SafeMethod struct {
	m *method
}

func newSafeMethod(e *Endpoint, verb string) *SafeMethod {
	return &SafeMethod{m: &method{endpoint: e, verb: verb}}
}

// Endpoint returns the endpoint the method was chosen on.
func (s *SafeMethod) Endpoint() *Endpoint {
	return s.m.endpoint
}

// HTTPMethod returns the verb.
func (s *SafeMethod) HTTPMethod() string {
	return s.m.verb
}

// Send performs the exchange and returns the raw response. The caller
// must close the body.
func (s *SafeMethod) Send(ctx context.Context) (*http.Response, error) {
	return s.m.Send(ctx)
}

// ToBytes shapes the result as the raw body.
func (s *SafeMethod) ToBytes() *Result[[]byte] {
	return bytesResult(s.m)
}

// ToString shapes the result as the body decoded to UTF-8.
func (s *SafeMethod) ToString() *Result[string] {
	return stringResult(s.m)
}

// ToStream shapes the result as the unread body.
func (s *SafeMethod) ToStream() *StreamResult {
	return &StreamResult{m: s.m}
}

// WithCache serves the response from the client cache for ttl. Only
// successful responses are stored.
func (s *SafeMethod) WithCache(ttl time.Duration) *CachedMethod {
	c := &CachedMethod{m: s.m, ttl: ttl}
	if ttl <= 0 {
		c.err = ErrInvalidTTL
	}
	return c
}

func (s *SafeMethod) source() source {
	return s.m
}
