package fluent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors returned by Send. Argument errors recorded while building
// a chain are reported by the final Send so chains stay fluent.
var (
	// ErrStatus matches every *ResponseError via errors.Is.
	ErrStatus = errors.New("fluent: unexpected status")

	// ErrEmptyEndpoint is returned when Endpoint was given no usable parts.
	ErrEmptyEndpoint = errors.New("fluent: empty endpoint")

	// ErrRelativeEndpoint is returned for a relative endpoint on a client
	// without a base URL.
	ErrRelativeEndpoint = errors.New("fluent: relative endpoint without base url")

	// ErrNilDecoder is returned when a nil decode function was supplied.
	ErrNilDecoder = errors.New("fluent: nil decoder")

	// ErrNilMethod is returned when a deserializer was given a nil method.
	ErrNilMethod = errors.New("fluent: nil method")

	// ErrInvalidTTL is returned when WithCache was given a non-positive ttl.
	ErrInvalidTTL = errors.New("fluent: cache ttl must be positive")

	// ErrNoResponse is returned when the transport produced neither a
	// response nor an error.
	ErrNoResponse = errors.New("fluent: transport returned no response")
)

// maxErrorBody caps how much of a failed response is kept in a ResponseError.
const maxErrorBody = 1 << 20

// ResponseError reports a non-2xx response while ThrowOnError is enabled.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, e.statusText())
	if snippet := e.snippet(); snippet != "" {
		msg += ": " + snippet
	}
	return msg
}

// Is makes errors.Is(err, ErrStatus) hold for every ResponseError.
func (e *ResponseError) Is(target error) bool {
	return target == ErrStatus
}

// Text returns the response body as a string.
func (e *ResponseError) Text() string {
	return string(e.Body)
}

func (e *ResponseError) statusText() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *ResponseError) snippet() string {
	const limit = 200
	text := strings.TrimSpace(string(e.Body))
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}

// SchemaError reports a response body rejected by ValidateSchema.
type SchemaError struct {
	URL    string
	Errors []error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("fluent: response from %s does not match schema: %s", e.URL, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual validation errors.
func (e *SchemaError) Unwrap() []error {
	return e.Errors
}
