package fluent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wesleyorama2/fluenthttp/codec"
)

// UnsafeMethod is a POST, PUT, PATCH or DELETE step. It may carry a body.
// Body setters replace any previous body and return the same step.
type UnsafeMethod struct {
	m *method
}

func newUnsafeMethod(e *Endpoint, verb string) *UnsafeMethod {
	return &UnsafeMethod{m: &method{endpoint: e, verb: verb}}
}

// Endpoint returns the endpoint the method was chosen on.
func (u *UnsafeMethod) Endpoint() *Endpoint {
	return u.m.endpoint
}

// HTTPMethod returns the verb.
func (u *UnsafeMethod) HTTPMethod() string {
	return u.m.verb
}

// Send performs the exchange and returns the raw response. The caller
// must close the body.
func (u *UnsafeMethod) Send(ctx context.Context) (*http.Response, error) {
	return u.m.Send(ctx)
}

// JSONBody sends v encoded as JSON. Encoding errors surface from Send.
func (u *UnsafeMethod) JSONBody(v any, opts ...codec.JSONOption) *UnsafeMethod {
	return u.setBody(codec.MediaTypeJSON, func() (io.Reader, error) {
		data, err := codec.MarshalJSON(v, opts...)
		if err != nil {
			return nil, fmt.Errorf("fluent: %w", err)
		}
		return bytes.NewReader(data), nil
	})
}

// XMLBody sends v encoded as XML. Encoding errors surface from Send.
func (u *UnsafeMethod) XMLBody(v any) *UnsafeMethod {
	return u.setBody(codec.MediaTypeXML, func() (io.Reader, error) {
		data, err := codec.MarshalXML(v)
		if err != nil {
			return nil, fmt.Errorf("fluent: %w", err)
		}
		return bytes.NewReader(data), nil
	})
}

// FormBody sends values URL-encoded.
func (u *UnsafeMethod) FormBody(values url.Values) *UnsafeMethod {
	encoded := values.Encode()
	return u.setBody(codec.MediaTypeForm, func() (io.Reader, error) {
		return strings.NewReader(encoded), nil
	})
}

// StringBody sends s with the given content type.
func (u *UnsafeMethod) StringBody(s, contentType string) *UnsafeMethod {
	if contentType == "" {
		contentType = codec.MediaTypeText
	}
	return u.setBody(contentType, func() (io.Reader, error) {
		return strings.NewReader(s), nil
	})
}

// Body streams r as the request body. A reader can only be consumed once,
// so a second Send of the same chain goes out without a body.
func (u *UnsafeMethod) Body(r io.Reader, contentType string) *UnsafeMethod {
	if r == nil {
		u.m.fail(fmt.Errorf("fluent: nil body reader"))
		return u
	}
	return u.setBody(contentType, func() (io.Reader, error) {
		return r, nil
	})
}

// ToBytes shapes the result as the raw body.
func (u *UnsafeMethod) ToBytes() *Result[[]byte] {
	return bytesResult(u.m)
}

// ToString shapes the result as the body decoded to UTF-8.
func (u *UnsafeMethod) ToString() *Result[string] {
	return stringResult(u.m)
}

// ToStream shapes the result as the unread body.
func (u *UnsafeMethod) ToStream() *StreamResult {
	return &StreamResult{m: u.m}
}

func (u *UnsafeMethod) setBody(contentType string, body func() (io.Reader, error)) *UnsafeMethod {
	u.m.body = body
	u.m.contentType = contentType
	return u
}

func (u *UnsafeMethod) source() source {
	return u.m
}
