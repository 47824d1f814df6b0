package fluent

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/wesleyorama2/fluenthttp/codec"
)

// Request collects headers, query parameters and send options. Every
// setter returns the same Request so calls can be chained.
type Request struct {
	client       *Client
	header       http.Header
	query        url.Values
	timeout      time.Duration
	throwOnError bool
	err          error
}

func newRequest(c *Client) *Request {
	return &Request{
		client:       c,
		header:       c.headers.Clone(),
		query:        make(url.Values),
		timeout:      c.timeout,
		throwOnError: true,
	}
}

// Header sets a header, replacing any previous value for key.
func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// Headers sets several headers.
func (r *Request) Headers(headers map[string]string) *Request {
	for key, value := range headers {
		r.header.Set(key, value)
	}
	return r
}

// Accept sets the Accept header.
func (r *Request) Accept(mediaType string) *Request {
	return r.Header("Accept", mediaType)
}

// AcceptJSON asks for a JSON response.
func (r *Request) AcceptJSON() *Request {
	return r.Accept(codec.MediaTypeJSON)
}

// AcceptXML asks for an XML response.
func (r *Request) AcceptXML() *Request {
	return r.Accept(codec.MediaTypeXML)
}

// Bearer sets a bearer token Authorization header.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Basic sets a basic auth Authorization header.
func (r *Request) Basic(username, password string) *Request {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return r.Header("Authorization", "Basic "+creds)
}

// Query adds a query parameter. Nil values are skipped.
func (r *Request) Query(key string, value any) *Request {
	if value == nil {
		return r
	}
	r.query.Add(key, formatValue(value))
	return r
}

// Queries adds several query parameters.
func (r *Request) Queries(params map[string]any) *Request {
	for key, value := range params {
		r.Query(key, value)
	}
	return r
}

// QueryStruct adds the fields of a struct tagged with `url:"name"`.
func (r *Request) QueryStruct(v any) *Request {
	values, err := query.Values(v)
	if err != nil {
		r.fail(fmt.Errorf("fluent: encode query struct: %w", err))
		return r
	}
	for key, vals := range values {
		for _, val := range vals {
			r.query.Add(key, val)
		}
	}
	return r
}

// Timeout bounds the whole exchange, body reading included. Zero disables
// the per-request deadline.
func (r *Request) Timeout(timeout time.Duration) *Request {
	r.timeout = timeout
	return r
}

// ThrowOnError controls whether non-2xx responses fail with a
// *ResponseError. It is enabled by default.
func (r *Request) ThrowOnError(enabled bool) *Request {
	r.throwOnError = enabled
	return r
}

// IgnoreError treats every status code as success.
func (r *Request) IgnoreError() *Request {
	return r.ThrowOnError(false)
}

// Endpoint selects the resource. Parts are joined with "/", so
// Endpoint("users", 42) addresses users/42 and Endpoint("/") the base URL
// itself. An absolute URL is used as is; anything else is resolved against
// the client base URL.
func (r *Request) Endpoint(parts ...any) *Endpoint {
	return newEndpoint(r, joinParts(parts))
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func joinParts(parts []any) string {
	segments := make([]string, 0, len(parts))
	root := false
	for i, part := range parts {
		if part == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(part))
		if s != "" && strings.Trim(s, "/") == "" {
			root = true
		}
		if i == 0 {
			s = strings.TrimRight(s, "/")
		} else {
			s = strings.Trim(s, "/")
		}
		if s != "" {
			segments = append(segments, s)
		}
	}
	// Only slashes means the root of the base URL
	if len(segments) == 0 && root {
		return "/"
	}
	return strings.Join(segments, "/")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
