// Package jsonpath extracts values from JSON documents using a practical
// subset of JSONPath: $, .field, ['field'], ["field"] and [index].
package jsonpath

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyDocument is returned for an empty JSON input.
	ErrEmptyDocument = errors.New("jsonpath: empty JSON document")

	// ErrEmptyPath is returned for an empty expression.
	ErrEmptyPath = errors.New("jsonpath: empty expression")
)

// Extract returns the value at path. Strings come back unquoted, null as
// "null", objects and arrays as raw JSON.
func Extract(data []byte, path string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if path == "" {
		return "", ErrEmptyPath
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("jsonpath: invalid JSON document")
	}

	result := gjson.GetBytes(data, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("jsonpath: path not found: %s", path)
	}

	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractMultiple evaluates every named path. Values that could be
// extracted are returned even when others fail; the error lists the
// failures in name order.
func ExtractMultiple(data []byte, paths map[string]string) (map[string]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("jsonpath: no expressions provided")
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(paths))
	var failures []string
	for _, name := range names {
		value, err := Extract(data, paths[name])
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = value
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("jsonpath: extraction errors: %s", strings.Join(failures, "; "))
	}
	return results, nil
}

// toGjsonPath converts a JSONPath expression to gjson syntax:
// $.users[0]['first name'] becomes users.0.first name.
func toGjsonPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}

	var segments []string
	for i := 0; i < len(path); {
		switch path[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				segments = append(segments, escape(path[i+1:]))
				i = len(path)
				continue
			}
			key := path[i+1 : i+end]
			key = strings.Trim(key, `'"`)
			segments = append(segments, escape(key))
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, escape(path[i:i+end]))
			i += end
		}
	}
	return strings.Join(segments, ".")
}

// escape protects gjson metacharacters inside a single key.
func escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
