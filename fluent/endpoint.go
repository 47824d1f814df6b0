package fluent

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is a Request bound to a resource. Choosing a verb moves the
// chain on to a SafeMethod or an UnsafeMethod.
type Endpoint struct {
	request *Request
	path    string
}

func newEndpoint(r *Request, path string) *Endpoint {
	return &Endpoint{request: r, path: path}
}

// Request returns the request the endpoint was created from.
func (e *Endpoint) Request() *Request {
	return e.request
}

// Path returns the endpoint as given, before resolution.
func (e *Endpoint) Path() string {
	return e.path
}

// URL returns the resolved URL with the request query parameters, or ""
// when the endpoint cannot be resolved.
func (e *Endpoint) URL() string {
	u, err := e.resolve()
	if err != nil {
		return ""
	}
	return u.String()
}

// Get selects GET.
func (e *Endpoint) Get() *SafeMethod {
	return newSafeMethod(e, http.MethodGet)
}

// Head selects HEAD.
func (e *Endpoint) Head() *SafeMethod {
	return newSafeMethod(e, http.MethodHead)
}

// Options selects OPTIONS.
func (e *Endpoint) Options() *SafeMethod {
	return newSafeMethod(e, http.MethodOptions)
}

// Post selects POST.
func (e *Endpoint) Post() *UnsafeMethod {
	return newUnsafeMethod(e, http.MethodPost)
}

// Put selects PUT.
func (e *Endpoint) Put() *UnsafeMethod {
	return newUnsafeMethod(e, http.MethodPut)
}

// Patch selects PATCH.
func (e *Endpoint) Patch() *UnsafeMethod {
	return newUnsafeMethod(e, http.MethodPatch)
}

// Delete selects DELETE.
func (e *Endpoint) Delete() *UnsafeMethod {
	return newUnsafeMethod(e, http.MethodDelete)
}

// resolve joins the endpoint with the client base URL and merges the
// request query parameters into any query already present.
func (e *Endpoint) resolve() (*url.URL, error) {
	if e.path == "" {
		return nil, ErrEmptyEndpoint
	}

	target, err := url.Parse(e.path)
	if err != nil {
		return nil, fmt.Errorf("fluent: parse endpoint %q: %w", e.path, err)
	}

	if !target.IsAbs() {
		baseURL := e.request.client.baseURL
		if baseURL == "" {
			return nil, fmt.Errorf("%w: %q", ErrRelativeEndpoint, e.path)
		}
		base, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("fluent: parse base url %q: %w", baseURL, err)
		}

		// Join the base URL path with the endpoint path
		joined := *base
		joined.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(target.Path, "/")
		joined.RawPath = ""
		joined.RawQuery = mergeQuery(base.Query(), target.Query()).Encode()
		joined.Fragment = target.Fragment
		target = &joined
	}

	query := target.Query()
	for key, values := range e.request.query {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	target.RawQuery = query.Encode()

	return target, nil
}

func mergeQuery(dst, src url.Values) url.Values {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	return dst
}
