package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wesleyorama2/fluenthttp/pkg/jsonschema"
)

// ValidationError represents a collection validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var validMethods = []string{"GET", "HEAD", "OPTIONS", "POST", "PUT", "PATCH", "DELETE"}

var validDecoders = []string{"", DecodeText, DecodeJSON, DecodeXML, DecodeYAML, DecodeTOML, DecodeAuto}

// ValidateCollection validates the collection. Errors are sorted by path.
func ValidateCollection(c *Collection) []ValidationError {
	var errors []ValidationError

	for name, env := range c.Environments {
		if env.BaseURL == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("environments.%s.baseUrl", name),
				Message: "baseUrl is required",
			})
		}
	}

	if len(c.Requests) == 0 {
		errors = append(errors, ValidationError{
			Path:    "requests",
			Message: "at least one request is required",
		})
	}

	for name, req := range c.Requests {
		errors = append(errors, validateRequest(name, req)...)
	}

	for i, name := range c.Order {
		if _, ok := c.Requests[name]; !ok {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("order[%d]", i),
				Message: fmt.Sprintf("request not found: %s", name),
			})
		}
	}

	sort.SliceStable(errors, func(i, j int) bool {
		return errors[i].Path < errors[j].Path
	})
	return errors
}

func validateRequest(name string, req Request) []ValidationError {
	var errors []ValidationError
	at := func(field string) string {
		return fmt.Sprintf("requests.%s.%s", name, field)
	}

	if req.URL == "" {
		errors = append(errors, ValidationError{Path: at("url"), Message: "url is required"})
	}

	method := strings.ToUpper(req.Method)
	switch {
	case method == "":
		errors = append(errors, ValidationError{Path: at("method"), Message: "method is required"})
	case !stringInSlice(method, validMethods):
		errors = append(errors, ValidationError{
			Path:    at("method"),
			Message: fmt.Sprintf("invalid method: %s", req.Method),
		})
	case IsSafeMethod(method) && req.Body != nil:
		errors = append(errors, ValidationError{
			Path:    at("body"),
			Message: fmt.Sprintf("%s requests cannot have a body", method),
		})
	case !IsSafeMethod(method) && req.CacheTTL != "":
		errors = append(errors, ValidationError{
			Path:    at("cacheTtl"),
			Message: fmt.Sprintf("%s responses cannot be cached", method),
		})
	}

	if !stringInSlice(strings.ToLower(req.Decode), validDecoders) {
		errors = append(errors, ValidationError{
			Path:    at("decode"),
			Message: fmt.Sprintf("invalid decode format '%s', must be one of: %s", req.Decode, strings.Join(validDecoders[1:], ", ")),
		})
	}

	if ttl, err := req.CacheDuration(); err != nil {
		errors = append(errors, ValidationError{Path: at("cacheTtl"), Message: err.Error()})
	} else if req.CacheTTL != "" && ttl <= 0 {
		errors = append(errors, ValidationError{Path: at("cacheTtl"), Message: "cacheTtl must be positive"})
	}

	if timeout, err := req.TimeoutDuration(); err != nil {
		errors = append(errors, ValidationError{Path: at("timeout"), Message: err.Error()})
	} else if timeout < 0 {
		errors = append(errors, ValidationError{Path: at("timeout"), Message: "timeout cannot be negative"})
	}

	for varName, path := range req.Extract {
		if path == "" {
			errors = append(errors, ValidationError{
				Path:    at("extract." + varName),
				Message: "extract path cannot be empty",
			})
		}
	}

	if schema, err := req.SchemaJSON(); err != nil {
		errors = append(errors, ValidationError{Path: at("schema"), Message: err.Error()})
	} else if schema != "" {
		if _, err := jsonschema.Compile(schema); err != nil {
			errors = append(errors, ValidationError{Path: at("schema"), Message: err.Error()})
		}
	}

	return errors
}

// ValidateEnvironment validates that an environment exists
func ValidateEnvironment(c *Collection, envName string) error {
	if _, ok := c.Environments[envName]; !ok {
		return fmt.Errorf("environment not found: %s", envName)
	}
	return nil
}

// ValidateRequest validates that a request exists
func ValidateRequest(c *Collection, reqName string) error {
	if _, ok := c.Requests[reqName]; !ok {
		return fmt.Errorf("request not found: %s", reqName)
	}
	return nil
}

// stringInSlice checks if a string is in a slice
func stringInSlice(str string, slice []string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
