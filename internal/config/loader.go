package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Collection is a file of named requests that can be replayed against
// one of several environments.
type Collection struct {
	Environments map[string]Environment `json:"environments,omitempty" yaml:"environments,omitempty" toml:"environments,omitempty"`
	Requests     map[string]Request     `json:"requests" yaml:"requests" toml:"requests"`
	Order        []string               `json:"order,omitempty" yaml:"order,omitempty" toml:"order,omitempty"`
}

// Environment represents an environment configuration
type Environment struct {
	BaseURL string            `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"`
	Vars    map[string]string `json:"variables,omitempty" yaml:"variables,omitempty" toml:"variables,omitempty"`
}

// Request represents a request configuration
type Request struct {
	URL      string            `json:"url" yaml:"url" toml:"url"`
	Method   string            `json:"method" yaml:"method" toml:"method"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"`
	Query    map[string]string `json:"query,omitempty" yaml:"query,omitempty" toml:"query,omitempty"`
	Body     any               `json:"body,omitempty" yaml:"body,omitempty" toml:"body,omitempty"`
	Decode   string            `json:"decode,omitempty" yaml:"decode,omitempty" toml:"decode,omitempty"`
	Extract  map[string]string `json:"extract,omitempty" yaml:"extract,omitempty" toml:"extract,omitempty"`
	Schema   any               `json:"schema,omitempty" yaml:"schema,omitempty" toml:"schema,omitempty"`
	CacheTTL string            `json:"cacheTtl,omitempty" yaml:"cacheTtl,omitempty" toml:"cacheTtl,omitempty"`
	Timeout  string            `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Decode formats accepted by Request.Decode.
const (
	DecodeText = "text"
	DecodeJSON = "json"
	DecodeXML  = "xml"
	DecodeYAML = "yaml"
	DecodeTOML = "toml"
	DecodeAuto = "auto"
)

// LoadCollection loads a collection file. The format follows the file
// extension: .json, .yaml, .yml or .toml.
func LoadCollection(path string) (*Collection, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("collection file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading collection file: %w", err)
	}

	collection, err := ParseCollection(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("error parsing collection file %s: %w", path, err)
	}
	return collection, nil
}

// ParseCollection decodes a collection in the format named by ext.
func ParseCollection(data []byte, ext string) (*Collection, error) {
	var c Collection

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported collection format %q", ext)
	}

	return &c, nil
}

// Names returns the requests to run: Order when set, otherwise every
// request sorted by name.
func (c *Collection) Names() []string {
	if len(c.Order) > 0 {
		return c.Order
	}
	names := make([]string, 0, len(c.Requests))
	for name := range c.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSafeMethod reports whether method is GET, HEAD or OPTIONS.
func IsSafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}

// SchemaJSON returns the request schema as a JSON document, or "" when
// none is set. A string schema is returned unchanged.
func (r Request) SchemaJSON() (string, error) {
	switch s := r.Schema.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("error encoding schema: %w", err)
		}
		return string(data), nil
	}
}

// CacheDuration parses CacheTTL. Zero means not cached.
func (r Request) CacheDuration() (time.Duration, error) {
	if r.CacheTTL == "" {
		return 0, nil
	}
	return parseDurationString(r.CacheTTL)
}

// TimeoutDuration parses Timeout. Zero means the client default.
func (r Request) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	return parseDurationString(r.Timeout)
}

// Expand substitutes ${name} references in every string of the request.
func (r Request) Expand(vars map[string]string) Request {
	out := r
	out.URL = Substitute(r.URL, vars)
	out.Headers = substituteMap(r.Headers, vars)
	out.Query = substituteMap(r.Query, vars)
	out.Body = substituteValue(r.Body, vars)
	return out
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.\-]+)\}`)

// Substitute replaces ${name} with vars[name]. Unknown names are left as is.
func Substitute(input string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(input, "${") {
		return input
	}
	return varPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

func substituteMap(input map[string]string, vars map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	result := make(map[string]string, len(input))
	for key, value := range input {
		result[key] = Substitute(value, vars)
	}
	return result
}

func substituteValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		return Substitute(val, vars)
	case map[string]any:
		result := make(map[string]any, len(val))
		for key, item := range val {
			result[key] = substituteValue(item, vars)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = substituteValue(item, vars)
		}
		return result
	default:
		return v
	}
}

// MergeVars merges variable sets, later sets taking precedence.
func MergeVars(sets ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, set := range sets {
		for key, value := range set {
			result[key] = value
		}
	}
	return result
}

// parseDurationString parses duration strings like "30s", "5m", "1h"
func parseDurationString(duration string) (time.Duration, error) {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}

	// Try parsing as Go duration
	if d, err := time.ParseDuration(duration); err == nil {
		return d, nil
	}

	// Handle additional formats like "1 minute", "30 seconds"
	duration = strings.ToLower(duration)
	duration = strings.ReplaceAll(duration, " ", "")

	// Longer words first so "seconds" is not left as "s" + "s"
	replacements := []struct{ word, abbrev string }{
		{"seconds", "s"},
		{"second", "s"},
		{"minutes", "m"},
		{"minute", "m"},
		{"hours", "h"},
		{"hour", "h"},
	}
	for _, r := range replacements {
		duration = strings.ReplaceAll(duration, r.word, r.abbrev)
	}

	return time.ParseDuration(duration)
}
