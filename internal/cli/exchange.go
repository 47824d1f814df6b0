package cli

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wesleyorama2/fluenthttp/codec"
	"github.com/wesleyorama2/fluenthttp/fluent"
	"github.com/wesleyorama2/fluenthttp/internal/config"
	"github.com/wesleyorama2/fluenthttp/internal/output"
	"github.com/wesleyorama2/fluenthttp/pkg/jsonpath"
	"github.com/wesleyorama2/fluenthttp/pkg/jsonschema"
)

// call is one request as assembled from flags or a collection entry.
type call struct {
	name     string
	verb     string
	target   string
	headers  map[string]string
	query    url.Values
	timeout  time.Duration
	cacheTTL time.Duration
	body     *callBody
	decode   string
	extract  map[string]string
	schema   string
}

// callBody is the payload of an unsafe call. Exactly one of value, raw
// and form is used.
type callBody struct {
	value       any
	raw         string
	form        url.Values
	contentType string
}

// bytes renders the body for display.
func (b *callBody) bytes() []byte {
	switch {
	case b == nil:
		return nil
	case b.form != nil:
		return []byte(b.form.Encode())
	case b.value != nil:
		data, err := codec.MarshalJSON(b.value)
		if err != nil {
			return nil
		}
		return data
	default:
		return []byte(b.raw)
	}
}

// method turns the call into a fluent chain. Error statuses are kept as
// responses so they can be displayed.
func (c *call) method(client *fluent.Client) (fluent.Method, error) {
	req := client.Request().IgnoreError().Headers(c.headers)
	for key, values := range c.query {
		for _, value := range values {
			req.Query(key, value)
		}
	}
	if c.timeout > 0 {
		req.Timeout(c.timeout)
	}
	endpoint := req.Endpoint(c.target)

	switch strings.ToUpper(c.verb) {
	case http.MethodGet:
		return c.safe(endpoint.Get()), nil
	case http.MethodHead:
		return c.safe(endpoint.Head()), nil
	case http.MethodOptions:
		return c.safe(endpoint.Options()), nil
	case http.MethodPost:
		return c.unsafe(endpoint.Post()), nil
	case http.MethodPut:
		return c.unsafe(endpoint.Put()), nil
	case http.MethodPatch:
		return c.unsafe(endpoint.Patch()), nil
	case http.MethodDelete:
		return c.unsafe(endpoint.Delete()), nil
	}
	return nil, fmt.Errorf("unsupported method %q", c.verb)
}

func (c *call) safe(m *fluent.SafeMethod) fluent.Method {
	if c.cacheTTL > 0 {
		return m.WithCache(c.cacheTTL)
	}
	return m
}

func (c *call) unsafe(m *fluent.UnsafeMethod) fluent.Method {
	b := c.body
	switch {
	case b == nil:
		return m
	case b.form != nil:
		return m.FormBody(b.form)
	case b.value != nil:
		if b.contentType != "" {
			data := b.bytes()
			return m.StringBody(string(data), b.contentType)
		}
		return m.JSONBody(b.value)
	default:
		contentType := b.contentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		return m.StringBody(b.raw, contentType)
	}
}

// execute sends the call and converts the response for display. Decode,
// extract and schema failures are returned alongside the exchange.
func (rt *runtime) execute(ctx context.Context, client *fluent.Client, c *call) (*output.Exchange, error) {
	m, err := c.method(client)
	if err != nil {
		return nil, err
	}

	ctx, slot := withTimingSlot(ctx)

	start := time.Now()
	resp, err := m.Send(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	timing := slot.get()

	requestHeader := http.Header{}
	if resp.Request != nil {
		requestHeader = resp.Request.Header.Clone()
	} else {
		for key, value := range c.headers {
			requestHeader.Set(key, value)
		}
	}

	ex := &output.Exchange{
		Name:          c.name,
		Method:        m.HTTPMethod(),
		URL:           m.Endpoint().URL(),
		RequestHeader: requestHeader,
		RequestBody:   c.body.bytes(),
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        resp.Header,
		Body:          body,
		Duration:      time.Since(start),
		Timing:        timing,
		Cached:        timing == nil,
	}

	if err := c.inspect(ex); err != nil {
		return ex, err
	}
	return ex, nil
}

// inspect decodes, extracts and validates the response body.
func (c *call) inspect(ex *output.Exchange) error {
	if c.decode != "" && c.decode != config.DecodeText {
		decoded, err := decodeBody(c.decode, ex.Body, ex.Header.Get("Content-Type"))
		if err != nil {
			return fmt.Errorf("decode %s response: %w", c.decode, err)
		}
		ex.Decoded = decoded
	}

	if len(c.extract) > 0 {
		extracted, err := jsonpath.ExtractMultiple(ex.Body, c.extract)
		if err != nil {
			return fmt.Errorf("extract values: %w", err)
		}
		ex.Extracted = extracted
	}

	if c.schema != "" {
		schema, err := jsonschema.Compile(c.schema)
		if err != nil {
			return err
		}
		if violations := schema.Validate(ex.Body); len(violations) > 0 {
			return fmt.Errorf("schema validation failed: %w", violations)
		}
	}

	return nil
}

// decodeBody converts body into a generic value in the named format.
func decodeBody(format string, body []byte, contentType string) (any, error) {
	var unmarshal codec.Unmarshaler
	switch format {
	case config.DecodeJSON:
		unmarshal = func(data []byte, v any) error { return codec.UnmarshalJSON(data, v) }
	case config.DecodeXML:
		return decodeXML(body)
	case config.DecodeYAML:
		unmarshal = codec.UnmarshalYAML
	case config.DecodeTOML:
		unmarshal = codec.UnmarshalTOML
	case config.DecodeAuto:
		mediaType := codec.MediaType(contentType)
		if _, ok := codec.ForContentType(mediaType); !ok {
			mediaType = codec.MediaType(codec.Sniff(body))
		}
		if mediaType == codec.MediaTypeXML || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml") {
			return decodeXML(body)
		}
		var ok bool
		if unmarshal, ok = codec.ForContentType(mediaType); !ok {
			return codec.DecodeText(body, contentType), nil
		}
	default:
		return nil, fmt.Errorf("unknown decode format %q", format)
	}

	var v any
	if err := unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// xmlNode is a generic XML element.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func decodeXML(body []byte) (any, error) {
	var root xmlNode
	if err := codec.UnmarshalXML(body, &root); err != nil {
		return nil, err
	}
	return root.value(), nil
}

// value renders the element as a map keyed by its name. Leaf elements
// without attributes collapse to their text.
func (n xmlNode) value() map[string]any {
	return map[string]any{n.XMLName.Local: n.content()}
}

func (n xmlNode) content() any {
	text := strings.TrimSpace(n.Text)
	if len(n.Attrs) == 0 && len(n.Children) == 0 {
		return text
	}

	fields := make(map[string]any, len(n.Attrs)+len(n.Children)+1)
	for _, attr := range n.Attrs {
		fields["@"+attr.Name.Local] = attr.Value
	}
	for _, child := range n.Children {
		name := child.XMLName.Local
		value := child.content()
		switch existing := fields[name].(type) {
		case nil:
			fields[name] = value
		case []any:
			fields[name] = append(existing, value)
		default:
			fields[name] = []any{existing, value}
		}
	}
	if text != "" {
		fields["#text"] = text
	}
	return fields
}
