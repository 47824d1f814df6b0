package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okDoer(body string) Doer {
	return DoerFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Doer) Doer {
			return DoerFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.Do(req)
			})
		}
	}

	d := Chain(okDoer(""), mark("outer"), nil, mark("inner"))
	req := httptest.NewRequest("GET", "http://example.com", nil)
	_, err := d.Do(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestDecompress(t *testing.T) {
	payload := `{"message":"compressed"}`

	tests := []struct {
		name     string
		encoding string
		encode   func(t *testing.T, s string) []byte
	}{
		{
			name:     "gzip",
			encoding: "gzip",
			encode: func(t *testing.T, s string) []byte {
				var buf bytes.Buffer
				zw := gzip.NewWriter(&buf)
				_, err := zw.Write([]byte(s))
				require.NoError(t, err)
				require.NoError(t, zw.Close())
				return buf.Bytes()
			},
		},
		{
			name:     "zstd",
			encoding: "zstd",
			encode: func(t *testing.T, s string) []byte {
				enc, err := zstd.NewWriter(nil)
				require.NoError(t, err)
				defer enc.Close()
				return enc.EncodeAll([]byte(s), nil)
			},
		},
		{
			name:     "identity",
			encoding: "",
			encode: func(t *testing.T, s string) []byte {
				return []byte(s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.encode(t, payload)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, acceptEncoding, r.Header.Get("Accept-Encoding"))
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(encoded)
			}))
			defer server.Close()

			d := Chain(NewClient(), Decompress())
			req, err := http.NewRequest("GET", server.URL, nil)
			require.NoError(t, err)

			resp, err := d.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, string(body))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
		})
	}
}

func TestDecompress_RespectsCallerEncoding(t *testing.T) {
	var seen string
	d := Decompress()(DoerFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("Accept-Encoding")
		return okDoer("raw").Do(req)
	}))

	req := httptest.NewRequest("GET", "http://example.com", nil)
	req.Header.Set("Accept-Encoding", "br")
	_, err := d.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "br", seen)
}

func TestRateLimit(t *testing.T) {
	t.Run("disabled for non-positive rate", func(t *testing.T) {
		assert.Nil(t, RateLimit(0, 1))
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		d := Chain(okDoer(""), RateLimit(0.001, 1))

		// first request consumes the burst
		req := httptest.NewRequest("GET", "http://example.com", nil)
		_, err := d.Do(req)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = d.Do(req.WithContext(ctx))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
	})
}

func TestRequestID(t *testing.T) {
	var got string
	d := RequestID("")(DoerFunc(func(req *http.Request) (*http.Response, error) {
		got = req.Header.Get(DefaultRequestIDHeader)
		return okDoer("").Do(req)
	}))

	req := httptest.NewRequest("GET", "http://example.com", nil)
	_, err := d.Do(req)
	require.NoError(t, err)
	assert.Len(t, got, 36)
	assert.Empty(t, req.Header.Get(DefaultRequestIDHeader), "caller request must not be mutated")

	req.Header.Set(DefaultRequestIDHeader, "fixed")
	_, err = d.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got)
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := Chain(okDoer("ok"), Logging(zap.New(core)))

	req := httptest.NewRequest("GET", "http://example.com/users", nil)
	_, err := d.Do(req)
	require.NoError(t, err)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Nil(t, Logging(nil))
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	d := Chain(okDoer(""), m.Middleware())
	req := httptest.NewRequest("GET", "http://example.com", nil)
	for i := 0; i < 3; i++ {
		_, err := d.Do(req)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "200", "example.com")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.requestsInFlight.WithLabelValues("GET", "example.com")))

	m.ObserveCache("GET", "example.com", true)
	m.ObserveCache("GET", "example.com", false)
	m.ObserveCache("GET", "example.com", false)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHits.WithLabelValues("GET", "example.com")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheMisses.WithLabelValues("GET", "example.com")))

	var nilMetrics *Metrics
	assert.Nil(t, nilMetrics.Middleware())
	nilMetrics.ObserveCache("GET", "example.com", true)
}

func TestNewRetryable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewRetryable(RetryConfig{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond})
	req, err := http.NewRequest("POST", server.URL, strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := d.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewRetryable_PassesThroughFinalResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewRetryable(RetryConfig{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond})
	req, err := http.NewRequest("GET", server.URL, nil)
	require.NoError(t, err)

	resp, err := d.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestNewResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo", r.Header.Get("X-Trace"))
		w.Write(body)
	}))
	defer server.Close()

	d := NewResty(resty.New())
	req, err := http.NewRequest("PUT", server.URL+"/items/1", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace", "abc")

	resp, err := d.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
	assert.Equal(t, "abc", resp.Header.Get("X-Echo"))
}
