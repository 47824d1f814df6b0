package transport

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const acceptEncoding = "gzip, zstd"

// Decompress advertises gzip and zstd support and transparently decodes
// compressed response bodies. Requests that already set Accept-Encoding are
// passed through untouched.
func Decompress() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Accept-Encoding") != "" {
				return next.Do(req)
			}

			req = req.Clone(req.Context())
			req.Header.Set("Accept-Encoding", acceptEncoding)

			resp, err := next.Do(req)
			if err != nil || resp == nil {
				return resp, err
			}

			if err := decodeBody(resp); err != nil {
				resp.Body.Close()
				return nil, err
			}
			return resp, nil
		})
	}
}

func decodeBody(resp *http.Response) error {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	var body io.ReadCloser
	switch encoding {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if err == io.EOF {
				// empty body with a gzip header, e.g. HEAD
				return nil
			}
			return fmt.Errorf("gzip response: %w", err)
		}
		body = &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("zstd response: %w", err)
		}
		body = &decodedBody{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), resp.Body}}
	default:
		return nil
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (b *decodedBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
