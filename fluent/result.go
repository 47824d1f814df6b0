package fluent

import (
	"context"
	"fmt"
	"io"

	"github.com/wesleyorama2/fluenthttp/codec"
	"github.com/wesleyorama2/fluenthttp/pkg/jsonschema"
)

// Result is the final step of a buffered chain. Send performs the exchange
// and converts the body to T.
type Result[T any] struct {
	src    source
	decode func(p *payload) (T, error)
	schema *jsonschema.Schema
	err    error
}

func newResult[T any](src source, decode func(p *payload) (T, error)) *Result[T] {
	return &Result[T]{src: src, decode: decode}
}

// ValidateSchema checks the body against a JSON schema before it is
// converted. A mismatch fails Send with a *SchemaError.
func (r *Result[T]) ValidateSchema(schema string) *Result[T] {
	compiled, err := jsonschema.Compile(schema)
	if err != nil {
		r.fail(fmt.Errorf("fluent: %w", err))
		return r
	}
	r.schema = compiled
	return r
}

// Send performs the exchange and returns the converted body.
func (r *Result[T]) Send(ctx context.Context) (T, error) {
	var zero T
	if r.err != nil {
		return zero, r.err
	}

	p, err := r.src.fetch(ctx)
	if err != nil {
		return zero, err
	}

	if r.schema != nil {
		if errs := r.schema.Validate(p.body); len(errs) > 0 {
			return zero, &SchemaError{URL: p.url, Errors: errs}
		}
	}

	return r.decode(p)
}

func (r *Result[T]) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// StreamResult is the final step of an unbuffered chain.
type StreamResult struct {
	m *method
}

// Send performs the exchange and returns the unread body. The caller must
// close it; closing also releases the request timeout.
func (s *StreamResult) Send(ctx context.Context) (io.ReadCloser, error) {
	return s.m.open(ctx)
}

func bytesResult(src source) *Result[[]byte] {
	return newResult(src, func(p *payload) ([]byte, error) {
		// payloads may be shared through the cache
		out := make([]byte, len(p.body))
		copy(out, p.body)
		return out, nil
	})
}

func stringResult(src source) *Result[string] {
	return newResult(src, func(p *payload) (string, error) {
		return codec.DecodeText(p.body, p.contentType()), nil
	})
}
