// Package codec holds the serializers used by the fluent chain.
//
// Each format is a pair of plain functions so callers can treat them as
// opaque serialize/deserialize steps:
//   - JSON: encoding/json by default, bytedance/sonic via the Sonic option
//   - XML: encoding/xml
//   - YAML: gopkg.in/yaml.v3
//   - TOML: github.com/pelletier/go-toml/v2
//
// Text helpers decode response bodies to UTF-8 using the Content-Type
// charset or, when absent, charset detection.
package codec
