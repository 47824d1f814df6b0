package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wesleyorama2/fluenthttp/codec"
	"github.com/wesleyorama2/fluenthttp/internal/stats"
)

// Formatter is responsible for formatting exchanges in text format
type Formatter struct {
	Verbose bool
	NoColor bool
	colors  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		colors:  colors,
	}
}

// FormatExchange formats a request and its response for display
func (f *Formatter) FormatExchange(e *Exchange) string {
	var buf strings.Builder

	title := ""
	if e.Name != "" {
		title = f.colors.Highlight.Sprint(e.Name) + " "
	}
	buf.WriteString(fmt.Sprintf("▶ %sREQUEST: %s %s\n", title, f.colors.Method.Sprint(e.Method), f.colors.URL.Sprint(e.URL)))

	if f.Verbose && len(e.RequestHeader) > 0 {
		buf.WriteString("  Headers:\n")
		f.writeHeaders(&buf, e.RequestHeader)
	}
	if f.Verbose && len(e.RequestBody) > 0 {
		buf.WriteString("  Body: ")
		buf.WriteString(formatJSONString(string(e.RequestBody)))
		buf.WriteString("\n")
	}

	statusColor := f.colors.StatusError
	if e.IsSuccess() {
		statusColor = f.colors.StatusOK
	} else if e.IsRedirect() {
		statusColor = f.colors.StatusWarn
	}

	cached := ""
	if e.Cached {
		cached = ", cached"
	}
	buf.WriteString(fmt.Sprintf("◀ RESPONSE: %s (%dms%s)\n",
		statusColor.Sprint(e.Status),
		e.Duration.Milliseconds(),
		cached))

	// Format detailed timing information if verbose
	if f.Verbose && e.Timing != nil {
		buf.WriteString("  Timing:\n")
		buf.WriteString(fmt.Sprintf("    DNS Lookup:         %dms\n", e.Timing.DNSLookupTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    TCP Connection:     %dms\n", e.Timing.TCPConnectTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    TLS Handshake:      %dms\n", e.Timing.TLSHandshakeTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Time to First Byte: %dms\n", e.Timing.TimeToFirstByte.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Content Transfer:   %dms\n", contentTransfer(e).Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Total:              %dms\n", e.Duration.Milliseconds()))
	}

	if f.Verbose && len(e.Header) > 0 {
		buf.WriteString("  Headers:\n")
		f.writeHeaders(&buf, e.Header)
	}

	if body := codec.DecodeText(e.Body, e.Header.Get("Content-Type")); body != "" {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(body))
		buf.WriteString("\n")
	}

	if len(e.Extracted) > 0 {
		buf.WriteString("  Extracted:\n")
		for _, name := range sortedKeys(e.Extracted) {
			buf.WriteString(fmt.Sprintf("    %s = %s\n", f.colors.HeaderKey.Sprint(name), e.Extracted[name]))
		}
	}

	return buf.String()
}

// FormatSummary formats the latency statistics of a repeated run
func (f *Formatter) FormatSummary(s stats.Summary) string {
	var buf strings.Builder

	buf.WriteString(f.colors.Highlight.Sprint("Summary") + "\n")
	buf.WriteString(fmt.Sprintf("  Requests:   %d (%d failed, %.2f%% errors)\n", s.Count, s.Errors, s.ErrorRate*100))
	buf.WriteString(fmt.Sprintf("  Elapsed:    %s\n", s.Elapsed.Round(time.Millisecond)))
	buf.WriteString(fmt.Sprintf("  Throughput: %.2f req/s\n", s.Throughput))
	buf.WriteString(fmt.Sprintf("  Received:   %d bytes\n", s.Bytes))
	buf.WriteString("  Latency:\n")
	writeLatency(&buf, "    ", s.Latency)

	for _, r := range s.Requests {
		buf.WriteString(fmt.Sprintf("  %s (%d requests, %d failed):\n", f.colors.Highlight.Sprint(r.Name), r.Count, r.Errors))
		writeLatency(&buf, "    ", r.Latency)
	}

	return buf.String()
}

func writeLatency(buf *strings.Builder, indent string, l stats.Latency) {
	buf.WriteString(fmt.Sprintf("%smin %s  mean %s  max %s  stddev %s\n", indent,
		formatDuration(l.Min), formatDuration(l.Mean), formatDuration(l.Max), formatDuration(l.StdDev)))
	buf.WriteString(fmt.Sprintf("%sp50 %s  p90 %s  p95 %s  p99 %s\n", indent,
		formatDuration(l.P50), formatDuration(l.P90), formatDuration(l.P95), formatDuration(l.P99)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.String()
	}
}

func (f *Formatter) writeHeaders(buf *strings.Builder, header map[string][]string) {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range header[key] {
			buf.WriteString(fmt.Sprintf("    %s: %s\n", f.colors.HeaderKey.Sprint(key), f.colors.HeaderValue.Sprint(value)))
		}
	}
}

func contentTransfer(e *Exchange) time.Duration {
	if e.Timing == nil || e.Timing.TotalTime > e.Duration {
		return 0
	}
	return e.Duration - e.Timing.TotalTime
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
