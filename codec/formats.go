package codec

import (
	"encoding/xml"
	"fmt"
	"mime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Media types used for request bodies and Accept headers.
const (
	MediaTypeJSON = "application/json"
	MediaTypeXML  = "application/xml"
	MediaTypeYAML = "application/yaml"
	MediaTypeTOML = "application/toml"
	MediaTypeForm = "application/x-www-form-urlencoded"
	MediaTypeText = "text/plain"
)

// Unmarshaler decodes data into v.
type Unmarshaler func(data []byte, v any) error

// UnmarshalXML decodes XML data into v.
func UnmarshalXML(data []byte, v any) error {
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}
	return nil
}

// MarshalXML encodes v as XML.
func MarshalXML(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return data, nil
}

// UnmarshalYAML decodes YAML data into v.
func UnmarshalYAML(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// UnmarshalTOML decodes TOML data into v.
func UnmarshalTOML(data []byte, v any) error {
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode toml: %w", err)
	}
	return nil
}

// ForContentType picks an Unmarshaler for a Content-Type header value.
// Structured syntax suffixes such as +json and +xml are recognized.
func ForContentType(contentType string) (Unmarshaler, bool) {
	mediaType := MediaType(contentType)
	if mediaType == "" {
		return nil, false
	}

	switch {
	case mediaType == MediaTypeJSON || strings.HasSuffix(mediaType, "+json"):
		return func(data []byte, v any) error { return UnmarshalJSON(data, v) }, true
	case mediaType == MediaTypeXML || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		return UnmarshalXML, true
	case mediaType == MediaTypeYAML || mediaType == "application/x-yaml" ||
		mediaType == "text/yaml" || mediaType == "text/x-yaml" || strings.HasSuffix(mediaType, "+yaml"):
		return UnmarshalYAML, true
	case mediaType == MediaTypeTOML || mediaType == "text/toml" || mediaType == "text/x-toml":
		return UnmarshalTOML, true
	}
	return nil, false
}

// MediaType returns the lower-cased media type of a Content-Type value
// without parameters.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
