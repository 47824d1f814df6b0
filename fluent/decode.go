package fluent

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wesleyorama2/fluenthttp/codec"
	"github.com/wesleyorama2/fluenthttp/pkg/jsonpath"
)

// Deserializers are package functions because Go methods cannot declare
// type parameters. Each accepts any Method, so they are only reachable
// once a verb has been chosen:
//
//	user, err := fluent.JSON[User](client.Request().Endpoint("users", 1).Get()).Send(ctx)

// JSON decodes the body as JSON into T.
func JSON[T any](m Method, opts ...codec.JSONOption) *Result[T] {
	return unmarshalResult[T](m, func(data []byte, v any) error {
		return codec.UnmarshalJSON(data, v, opts...)
	})
}

// XML decodes the body as XML into T.
func XML[T any](m Method) *Result[T] {
	return unmarshalResult[T](m, codec.UnmarshalXML)
}

// YAML decodes the body as YAML into T.
func YAML[T any](m Method) *Result[T] {
	return unmarshalResult[T](m, codec.UnmarshalYAML)
}

// TOML decodes the body as TOML into T.
func TOML[T any](m Method) *Result[T] {
	return unmarshalResult[T](m, codec.UnmarshalTOML)
}

// Auto picks the decoder from the response Content-Type, sniffing the body
// when the header is missing.
func Auto[T any](m Method) *Result[T] {
	return newResult(sourceOf(m), func(p *payload) (T, error) {
		var out T
		if len(bytes.TrimSpace(p.body)) == 0 {
			return out, nil
		}

		contentType := p.contentType()
		if contentType == "" {
			contentType = codec.Sniff(p.body)
		}
		decode, ok := codec.ForContentType(contentType)
		if !ok {
			return out, fmt.Errorf("fluent: no decoder for content type %q", contentType)
		}
		if err := decode(p.body, &out); err != nil {
			return out, fmt.Errorf("fluent: %w", err)
		}
		return out, nil
	})
}

// DecodeString converts the UTF-8 decoded body with fn.
func DecodeString[T any](m Method, fn func(string) (T, error)) *Result[T] {
	if fn == nil {
		return &Result[T]{err: ErrNilDecoder}
	}
	return newResult(sourceOf(m), func(p *payload) (T, error) {
		return fn(codec.DecodeText(p.body, p.contentType()))
	})
}

// DecodeStream converts the body with fn. The reader is backed by the
// buffered body, so cached responses can be decoded repeatedly.
func DecodeStream[T any](m Method, fn func(io.Reader) (T, error)) *Result[T] {
	if fn == nil {
		return &Result[T]{err: ErrNilDecoder}
	}
	return newResult(sourceOf(m), func(p *payload) (T, error) {
		return fn(bytes.NewReader(p.body))
	})
}

// JSONPath extracts a single value from a JSON body, e.g. "$.data[0].id".
// Strings are returned unquoted; objects and arrays as raw JSON.
func JSONPath(m Method, path string) *Result[string] {
	return newResult(sourceOf(m), func(p *payload) (string, error) {
		value, err := jsonpath.Extract(p.body, path)
		if err != nil {
			return "", fmt.Errorf("fluent: %w", err)
		}
		return value, nil
	})
}

func unmarshalResult[T any](m Method, unmarshal codec.Unmarshaler) *Result[T] {
	return newResult(sourceOf(m), func(p *payload) (T, error) {
		var out T
		if len(bytes.TrimSpace(p.body)) == 0 {
			return out, nil
		}
		if err := unmarshal(p.body, &out); err != nil {
			return out, fmt.Errorf("fluent: %w", err)
		}
		return out, nil
	})
}
