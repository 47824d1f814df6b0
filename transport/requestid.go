package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader is used by RequestID when no header is given.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID stamps every request lacking the header with a random UUID.
func RequestID(header string) Middleware {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(header) == "" {
				req = req.Clone(req.Context())
				req.Header.Set(header, uuid.NewString())
			}
			return next.Do(req)
		})
	}
}
