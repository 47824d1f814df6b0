package output

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/fluenthttp/internal/stats"
	"github.com/wesleyorama2/fluenthttp/transport"
)

func sampleExchange() *Exchange {
	return &Exchange{
		Name:          "getUser",
		Method:        "POST",
		URL:           "https://api.example.com/users",
		RequestHeader: http.Header{"Content-Type": {"application/json"}},
		RequestBody:   []byte(`{"name":"Ada"}`),
		StatusCode:    201,
		Status:        "201 Created",
		Header:        http.Header{"Content-Type": {"application/json"}, "X-Request-Id": {"abc"}},
		Body:          []byte(`{"id":1,"name":"Ada"}`),
		Duration:      150 * time.Millisecond,
		Timing: &transport.Timing{
			DNSLookupTime:    10 * time.Millisecond,
			TCPConnectTime:   20 * time.Millisecond,
			TLSHandshakeTime: 30 * time.Millisecond,
			TimeToFirstByte:  40 * time.Millisecond,
			TotalTime:        100 * time.Millisecond,
		},
		Extracted: map[string]string{"userId": "1"},
	}
}

func TestFormatterFormatExchange(t *testing.T) {
	f := NewFormatter(false, true)
	out := f.FormatExchange(sampleExchange())

	assert.Contains(t, out, "▶ getUser REQUEST: POST https://api.example.com/users")
	assert.Contains(t, out, "◀ RESPONSE: 201 Created (150ms)")
	assert.Contains(t, out, `"name": "Ada"`)
	assert.Contains(t, out, "userId = 1")
	assert.NotContains(t, out, "Timing:")
	assert.NotContains(t, out, "X-Request-Id")
}

func TestFormatterVerbose(t *testing.T) {
	f := NewFormatter(true, true)
	out := f.FormatExchange(sampleExchange())

	assert.Contains(t, out, "Timing:")
	assert.Contains(t, out, "DNS Lookup:         10ms")
	assert.Contains(t, out, "Content Transfer:   50ms")
	assert.Contains(t, out, "X-Request-Id: abc")
	assert.Contains(t, out, `Body: {`)
}

func TestFormatterCachedAndPlainBody(t *testing.T) {
	e := &Exchange{
		Method:     "GET",
		URL:        "https://api.example.com/",
		StatusCode: 404,
		Status:     "404 Not Found",
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte("missing"),
		Cached:     true,
	}

	out := NewFormatter(true, true).FormatExchange(e)
	assert.Contains(t, out, "▶ REQUEST: GET")
	assert.Contains(t, out, "(0ms, cached)")
	assert.Contains(t, out, "missing")
	assert.NotContains(t, out, "Timing:")
}

func TestFormatterFormatSummary(t *testing.T) {
	r := stats.NewRecorder()
	r.Record("list", 10*time.Millisecond, true, 100)
	r.Record("list", 20*time.Millisecond, false, 100)

	out := NewFormatter(false, true).FormatSummary(r.Summary())
	assert.Contains(t, out, "Requests:   2 (1 failed, 50.00% errors)")
	assert.Contains(t, out, "Received:   200 bytes")
	assert.Contains(t, out, "list (2 requests, 1 failed):")
	assert.Contains(t, out, "p50 ")
}

func TestJSONFormatter(t *testing.T) {
	f := GetFormatter(FormatJSON, false, true)
	out := f.FormatExchange(sampleExchange())

	var data ExchangeData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "getUser", data.Name)
	assert.Equal(t, "POST", data.Request.Method)
	assert.Equal(t, map[string]any{"name": "Ada"}, data.Request.Body)
	assert.Equal(t, 201, data.Response.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Ada"}, data.Response.Body)
	assert.Equal(t, int64(150), data.Response.ResponseTime)
	require.NotNil(t, data.Response.Timing)
	assert.Equal(t, int64(50), data.Response.Timing.ContentTransfer)
	assert.Equal(t, "1", data.Extracted["userId"])

	summary := f.FormatSummary(stats.Summary{Latency: stats.Latency{Count: 3}})
	assert.True(t, strings.HasPrefix(summary, "{"))
	assert.Contains(t, summary, `"count": 3`)
}

func TestYAMLFormatter(t *testing.T) {
	f := GetFormatter(FormatYAML, false, true)
	e := sampleExchange()
	e.Body = []byte("plain text")
	e.Header = http.Header{"Content-Type": {"text/plain"}}
	e.Timing = nil

	out := f.FormatExchange(e)
	require.True(t, strings.HasPrefix(out, "---\n"))

	var data map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &data))
	response := data["response"].(map[string]any)
	assert.Equal(t, "plain text", response["body"])
	assert.NotContains(t, response, "timing")

	summary := f.FormatSummary(stats.Summary{Latency: stats.Latency{Count: 3}})
	assert.Contains(t, summary, "count: 3")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFormatterDefaultsToText(t *testing.T) {
	_, ok := GetFormatter(FormatText, false, false).(*Formatter)
	assert.True(t, ok)
	_, ok = GetFormatter("other", false, false).(*Formatter)
	assert.True(t, ok)
}

func TestColorSchemes(t *testing.T) {
	scheme := NoColorScheme()
	assert.Equal(t, "GET", scheme.Method.Sprint("GET"))
	assert.NotNil(t, DefaultColorScheme().Highlight)
	assert.Equal(t, "✓", SuccessIcon(true))
	assert.Equal(t, "✗", ErrorIcon(true))
}

func TestColorEnabled(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(nil))
}
