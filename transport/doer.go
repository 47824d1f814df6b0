package transport

import "net/http"

// Doer sends a single HTTP request and returns its response.
// *http.Client satisfies Doer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a plain function to the Doer interface.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a Doer with extra behavior.
type Middleware func(Doer) Doer

// Chain wraps d with the given middlewares. The first middleware is the
// outermost one, so it sees the request first and the response last.
func Chain(d Doer, middlewares ...Middleware) Doer {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		d = middlewares[i](d)
	}
	return d
}
