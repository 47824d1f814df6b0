package config

import (
	"strings"
	"testing"
)

func TestValidateCollection(t *testing.T) {
	tests := []struct {
		name       string
		collection Collection
		wantPaths  []string
	}{
		{
			name: "Valid collection",
			collection: Collection{
				Environments: map[string]Environment{"dev": {BaseURL: "https://example.com"}},
				Requests: map[string]Request{
					"list":   {URL: "/items", Method: "get", CacheTTL: "30s", Decode: "JSON"},
					"create": {URL: "/items", Method: "POST", Body: map[string]any{"a": 1}},
				},
			},
		},
		{
			name:       "No requests",
			collection: Collection{},
			wantPaths:  []string{"requests"},
		},
		{
			name: "Missing fields",
			collection: Collection{
				Environments: map[string]Environment{"dev": {}},
				Requests:     map[string]Request{"r": {}},
			},
			wantPaths: []string{"environments.dev.baseUrl", "requests.r.method", "requests.r.url"},
		},
		{
			name: "Invalid method",
			collection: Collection{
				Requests: map[string]Request{"r": {URL: "/", Method: "FETCH"}},
			},
			wantPaths: []string{"requests.r.method"},
		},
		{
			name: "Body on safe method",
			collection: Collection{
				Requests: map[string]Request{"r": {URL: "/", Method: "GET", Body: "x"}},
			},
			wantPaths: []string{"requests.r.body"},
		},
		{
			name: "Cache on unsafe method",
			collection: Collection{
				Requests: map[string]Request{"r": {URL: "/", Method: "DELETE", CacheTTL: "1m"}},
			},
			wantPaths: []string{"requests.r.cacheTtl"},
		},
		{
			name: "Bad durations and decoder",
			collection: Collection{
				Requests: map[string]Request{"r": {URL: "/", Method: "GET", CacheTTL: "later", Timeout: "-1s", Decode: "csv"}},
			},
			wantPaths: []string{"requests.r.cacheTtl", "requests.r.decode", "requests.r.timeout"},
		},
		{
			name: "Empty extract and bad schema",
			collection: Collection{
				Requests: map[string]Request{"r": {
					URL:     "/",
					Method:  "GET",
					Extract: map[string]string{"id": ""},
					Schema:  map[string]any{"type": "invalid-type"},
				}},
			},
			wantPaths: []string{"requests.r.extract.id", "requests.r.schema"},
		},
		{
			name: "Unknown request in order",
			collection: Collection{
				Requests: map[string]Request{"r": {URL: "/", Method: "GET"}},
				Order:    []string{"r", "missing"},
			},
			wantPaths: []string{"order[1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCollection(&tt.collection)

			var paths []string
			for _, err := range errs {
				paths = append(paths, err.Path)
			}
			if strings.Join(paths, ",") != strings.Join(tt.wantPaths, ",") {
				t.Errorf("ValidateCollection() paths = %v, want %v (%v)", paths, tt.wantPaths, errs)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Path: "requests.r.url", Message: "url is required"}
	if err.Error() != "requests.r.url: url is required" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestValidateLookups(t *testing.T) {
	c := &Collection{
		Environments: map[string]Environment{"dev": {BaseURL: "https://example.com"}},
		Requests:     map[string]Request{"r": {URL: "/", Method: "GET"}},
	}

	if err := ValidateEnvironment(c, "dev"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateEnvironment(c, "prod"); err == nil {
		t.Error("Expected error for unknown environment")
	}
	if err := ValidateRequest(c, "r"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateRequest(c, "x"); err == nil {
		t.Error("Expected error for unknown request")
	}
}
