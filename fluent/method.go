package fluent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Method is a chain step with a chosen HTTP verb. It is implemented by
// *SafeMethod, *CachedMethod and *UnsafeMethod only, which is what makes
// deserializers unreachable before a verb has been picked.
type Method interface {
	// Endpoint returns the endpoint the method was chosen on.
	Endpoint() *Endpoint
	// HTTPMethod returns the verb, e.g. "GET".
	HTTPMethod() string
	// Send performs the exchange and returns the raw response. The caller
	// must close the body.
	Send(ctx context.Context) (*http.Response, error)

	source() source
}

// source produces a fully read response.
type source interface {
	fetch(ctx context.Context) (*payload, error)
}

// payload is a response whose body has been read.
type payload struct {
	method     string
	url        string
	statusCode int
	status     string
	header     http.Header
	body       []byte
}

func (p *payload) contentType() string {
	return p.header.Get("Content-Type")
}

func (p *payload) response() *http.Response {
	return &http.Response{
		Status:        p.status,
		StatusCode:    p.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        p.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(p.body)),
		ContentLength: int64(len(p.body)),
	}
}

// method holds what every verb shares: the endpoint, the verb and an
// optional body.
type method struct {
	endpoint    *Endpoint
	verb        string
	body        func() (io.Reader, error)
	contentType string
	err         error
}

func (m *method) client() *Client {
	return m.endpoint.request.client
}

func (m *method) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

// build creates the *http.Request. The returned cancel func releases the
// request timeout and must be called once the response body is done.
func (m *method) build(ctx context.Context) (*http.Request, context.CancelFunc, error) {
	r := m.endpoint.request
	if r.err != nil {
		return nil, nil, r.err
	}
	if m.err != nil {
		return nil, nil, m.err
	}

	target, err := m.endpoint.resolve()
	if err != nil {
		return nil, nil, err
	}

	var body io.Reader
	if m.body != nil {
		body, err = m.body()
		if err != nil {
			return nil, nil, err
		}
	}

	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, m.verb, target.String(), body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("fluent: build request: %w", err)
	}

	req.Header = r.header.Clone()
	if m.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", m.contentType)
	}

	return req, cancel, nil
}

// do sends req without looking at the status.
func (m *method) do(req *http.Request) (*http.Response, error) {
	resp, err := m.client().doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fluent: %s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	return resp, nil
}

// roundTrip sends req and applies the ThrowOnError policy. On success the
// caller owns the response body.
func (m *method) roundTrip(req *http.Request) (*http.Response, error) {
	resp, err := m.do(req)
	if err != nil {
		return nil, err
	}
	if !m.rejects(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, m.statusError(req, resp.StatusCode, resp.Status, resp.Header, body)
}

// check applies the ThrowOnError policy to an already read response.
func (m *method) check(req *http.Request, p *payload) error {
	if !m.rejects(p.statusCode) {
		return nil
	}
	body := p.body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return m.statusError(req, p.statusCode, p.status, p.header.Clone(), body)
}

func (m *method) rejects(statusCode int) bool {
	return m.endpoint.request.throwOnError && !isSuccess(statusCode)
}

func (m *method) statusError(req *http.Request, statusCode int, status string, header http.Header, body []byte) error {
	c := m.client()
	respErr := &ResponseError{
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		StatusCode: statusCode,
		Status:     status,
		Header:     header,
		Body:       body,
	}
	c.logger.Debug("unexpected response status",
		zap.String("method", respErr.Method),
		zap.String("url", respErr.URL),
		zap.Int("status", respErr.StatusCode),
	)
	if c.onError != nil {
		c.onError(respErr)
	}
	return respErr
}

// Send performs the exchange and returns the raw response. Closing the
// body releases the request timeout.
func (m *method) Send(ctx context.Context) (*http.Response, error) {
	req, cancel, err := m.build(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.roundTrip(req)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// fetch performs the exchange and reads the whole body.
func (m *method) fetch(ctx context.Context) (*payload, error) {
	req, cancel, err := m.build(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	return m.exchange(req)
}

func (m *method) exchange(req *http.Request) (*payload, error) {
	resp, err := m.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return readPayload(req, resp)
}

// readPayload reads and closes the response body.
func readPayload(req *http.Request, resp *http.Response) (*payload, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fluent: read response body: %w", err)
	}

	return &payload{
		method:     req.Method,
		url:        req.URL.Redacted(),
		statusCode: resp.StatusCode,
		status:     resp.Status,
		header:     resp.Header,
		body:       body,
	}, nil
}

// open performs the exchange and hands the unread body to the caller.
func (m *method) open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := m.Send(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// errorSource reports a chain error from fetch.
type errorSource struct {
	err error
}

func (s errorSource) fetch(context.Context) (*payload, error) {
	return nil, s.err
}

func sourceOf(m Method) source {
	if m == nil {
		return errorSource{err: ErrNilMethod}
	}
	return m.source()
}
