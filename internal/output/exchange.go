package output

import (
	"net/http"
	"time"

	"github.com/wesleyorama2/fluenthttp/transport"
)

// Exchange is one finished request as shown to the user.
type Exchange struct {
	// Name is the collection request name, empty for ad hoc requests
	Name string

	Method        string
	URL           string
	RequestHeader http.Header
	RequestBody   []byte

	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// Duration covers the whole exchange, body included
	Duration time.Duration

	// Timing is nil when the response came from the cache
	Timing *transport.Timing
	// Cached is set for every response served without its own network
	// exchange, including one shared with a concurrent identical request.
	Cached bool

	// Decoded is the body converted by the request's decode format
	Decoded   any
	Extracted map[string]string
}

// IsSuccess reports a 2xx status.
func (e *Exchange) IsSuccess() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// IsRedirect reports a 3xx status.
func (e *Exchange) IsRedirect() bool {
	return e.StatusCode >= 300 && e.StatusCode < 400
}
