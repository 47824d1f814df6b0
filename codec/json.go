package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// JSONOption configures JSON encoding and decoding.
type JSONOption func(*jsonConfig)

type jsonConfig struct {
	sonic  bool
	strict bool
}

// Sonic selects the bytedance/sonic backend.
func Sonic() JSONOption {
	return func(c *jsonConfig) {
		c.sonic = true
	}
}

// Strict rejects objects containing fields unknown to the target type.
func Strict() JSONOption {
	return func(c *jsonConfig) {
		c.strict = true
	}
}

func newJSONConfig(opts []JSONOption) jsonConfig {
	var cfg jsonConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c jsonConfig) sonicAPI() sonic.API {
	if c.strict {
		return sonic.Config{DisallowUnknownFields: true}.Froze()
	}
	return sonic.ConfigStd
}

// UnmarshalJSON decodes data into v.
func UnmarshalJSON(data []byte, v any, opts ...JSONOption) error {
	cfg := newJSONConfig(opts)

	if cfg.sonic {
		if err := cfg.sonicAPI().Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if cfg.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode json: trailing data after value")
	}
	return nil
}

// MarshalJSON encodes v.
func MarshalJSON(v any, opts ...JSONOption) ([]byte, error) {
	cfg := newJSONConfig(opts)

	var (
		data []byte
		err  error
	)
	if cfg.sonic {
		data, err = cfg.sonicAPI().Marshal(v)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}
