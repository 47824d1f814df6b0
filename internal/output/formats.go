package output

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/fluenthttp/codec"
	"github.com/wesleyorama2/fluenthttp/internal/stats"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a format name given on the command line.
func ParseFormat(name string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(name)); format {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format %q, must be one of: text, json, yaml", name)
	}
}

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatExchange(e *Exchange) string
	FormatSummary(s stats.Summary) string
}

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// TimingData represents detailed timing information for an HTTP request
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs" yaml:"dnsLookupMs"`
	TCPConnection   int64 `json:"tcpConnectionMs" yaml:"tcpConnectionMs"`
	TLSHandshake    int64 `json:"tlsHandshakeMs" yaml:"tlsHandshakeMs"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs" yaml:"timeToFirstByteMs"`
	ContentTransfer int64 `json:"contentTransferMs" yaml:"contentTransferMs"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of an HTTP response
type ResponseData struct {
	StatusCode   int               `json:"statusCode" yaml:"statusCode"`
	Status       string            `json:"status" yaml:"status"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         any               `json:"body,omitempty" yaml:"body,omitempty"`
	ResponseTime int64             `json:"responseTimeMs" yaml:"responseTimeMs"`
	Timing       *TimingData       `json:"timing,omitempty" yaml:"timing,omitempty"`
	Cached       bool              `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// ExchangeData is the structured form of an Exchange
type ExchangeData struct {
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Request   RequestData       `json:"request" yaml:"request"`
	Response  ResponseData      `json:"response" yaml:"response"`
	Decoded   any               `json:"decoded,omitempty" yaml:"decoded,omitempty"`
	Extracted map[string]string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// NewExchangeData converts an exchange for structured output. Bodies that
// hold JSON are embedded as values, anything else as text.
func NewExchangeData(e *Exchange) ExchangeData {
	data := ExchangeData{
		Name: e.Name,
		Request: RequestData{
			Method:  e.Method,
			URL:     e.URL,
			Headers: flattenHeader(e.RequestHeader),
			Body:    bodyValue(e.RequestBody, e.RequestHeader.Get("Content-Type")),
		},
		Response: ResponseData{
			StatusCode:   e.StatusCode,
			Status:       e.Status,
			Headers:      flattenHeader(e.Header),
			Body:         bodyValue(e.Body, e.Header.Get("Content-Type")),
			ResponseTime: e.Duration.Milliseconds(),
			Cached:       e.Cached,
		},
		Decoded:   e.Decoded,
		Extracted: e.Extracted,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if e.Timing != nil {
		data.Response.Timing = &TimingData{
			DNSLookup:       e.Timing.DNSLookupTime.Milliseconds(),
			TCPConnection:   e.Timing.TCPConnectTime.Milliseconds(),
			TLSHandshake:    e.Timing.TLSHandshakeTime.Milliseconds(),
			TimeToFirstByte: e.Timing.TimeToFirstByte.Milliseconds(),
			ContentTransfer: contentTransfer(e).Milliseconds(),
			Total:           e.Duration.Milliseconds(),
		}
	}

	return data
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Verbose bool
	Pretty  bool
}

// FormatExchange formats an exchange as JSON
func (f *JSONFormatter) FormatExchange(e *Exchange) string {
	return f.marshal(NewExchangeData(e), "exchange")
}

// FormatSummary formats run statistics as JSON
func (f *JSONFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal(s, "summary")
}

func (f *JSONFormatter) marshal(v any, what string) string {
	var output []byte
	var err error
	if f.Pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Sprintf(`{"error":"Failed to marshal %s: %s"}`, what, err)
	}

	return string(output)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	Verbose bool
}

// FormatExchange formats an exchange as a YAML document
func (f *YAMLFormatter) FormatExchange(e *Exchange) string {
	return f.marshal(NewExchangeData(e), "exchange")
}

// FormatSummary formats run statistics as a YAML document
func (f *YAMLFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal(s, "summary")
}

func (f *YAMLFormatter) marshal(v any, what string) string {
	output, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: Failed to marshal %s: %s", what, err)
	}
	return "---\n" + string(output)
}

// GetFormatter returns the formatter for format, defaulting to text
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Verbose: verbose, Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{Verbose: verbose}
	default:
		return NewFormatter(verbose, noColor)
	}
}

func flattenHeader(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	result := make(map[string]string, len(header))
	for key, values := range header {
		result[key] = strings.Join(values, ", ")
	}
	return result
}

func bodyValue(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	text := codec.DecodeText(body, contentType)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return value
	}
	return text
}
