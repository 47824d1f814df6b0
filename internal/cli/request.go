package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/fluenthttp/internal/config"
)

// errRequestsFailed is returned when at least one exchange failed. The
// failures themselves have already been printed.
var errRequestsFailed = errors.New("one or more requests failed")

// newVerbCmd builds the command sending a single request with verb.
func newVerbCmd(verb string) *cobra.Command {
	safe := config.IsSafeMethod(verb)

	cmd := &cobra.Command{
		Use:   strings.ToLower(verb) + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			c, err := callFromFlags(cmd, verb)
			if err != nil {
				return err
			}
			if safe && !cmd.Flags().Changed("cache-ttl") {
				c.cacheTTL = rt.settings.CacheTTL
			}

			baseURL, path := parseURL(args[0])
			c.target = baseURL + path

			repeat, _ := cmd.Flags().GetInt("repeat")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			failOnStatus, _ := cmd.Flags().GetBool("fail")

			client := rt.newClient(baseURL, nil)
			runErr := rt.newRunner(client, plan{
				names:        []string{callName(c)},
				build:        func(string, map[string]string) (*call, error) { return c, nil },
				iterations:   repeat,
				concurrency:  concurrency,
				failOnStatus: failOnStatus,
			}).Run(cmd.Context())
			if err := rt.finish(); err != nil {
				return err
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringArrayP("header", "H", []string{}, "HTTP headers to include (can be used multiple times)")
	flags.StringArrayP("query", "q", []string{}, "Query parameters as key=value (can be used multiple times)")
	flags.String("decode", "", "Decode the response as text, json, xml, yaml, toml or auto")
	flags.StringArray("extract", []string{}, "Extract values as name=$.json.path (can be used multiple times)")
	flags.String("schema", "", "JSON Schema file or inline schema the response must match")
	flags.Int("repeat", 1, "Send the request this many times and print latency statistics")
	flags.Int("concurrency", 1, "Number of virtual users sharing the repeated requests")
	flags.Bool("fail", false, "Treat non-2xx responses as failures")

	if safe {
		flags.Duration("cache-ttl", 0, "Cache successful responses for this long across repeats")
	} else {
		flags.StringP("data", "d", "", "Request body, or @file to read it from a file")
		flags.StringP("json", "j", "", "JSON request body")
		flags.StringArray("form", []string{}, "Form fields as key=value (can be used multiple times)")
		flags.String("content-type", "", "Content-Type of the request body")
	}

	return cmd
}

// callFromFlags reads the request options shared by every verb command.
func callFromFlags(cmd *cobra.Command, verb string) (*call, error) {
	flags := cmd.Flags()

	headerValues, _ := flags.GetStringArray("header")
	queryValues, _ := flags.GetStringArray("query")
	extractValues, _ := flags.GetStringArray("extract")
	decode, _ := flags.GetString("decode")
	schemaArg, _ := flags.GetString("schema")

	query, err := parseKeyValues(queryValues)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	extract, err := parseKeyValues(extractValues)
	if err != nil {
		return nil, fmt.Errorf("invalid --extract: %w", err)
	}
	schema, err := readSchema(schemaArg)
	if err != nil {
		return nil, err
	}

	switch decode {
	case "", config.DecodeText, config.DecodeJSON, config.DecodeXML, config.DecodeYAML, config.DecodeTOML, config.DecodeAuto:
	default:
		return nil, fmt.Errorf("invalid --decode %q, must be text, json, xml, yaml, toml or auto", decode)
	}

	c := &call{
		verb:    verb,
		headers: parseHeaders(headerValues),
		query:   query,
		decode:  decode,
		extract: singleValues(extract),
		schema:  schema,
	}

	if config.IsSafeMethod(verb) {
		c.cacheTTL, _ = flags.GetDuration("cache-ttl")
		if c.cacheTTL < 0 {
			return nil, fmt.Errorf("invalid --cache-ttl %s, must not be negative", c.cacheTTL)
		}
		return c, nil
	}

	c.body, err = bodyFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func bodyFromFlags(cmd *cobra.Command) (*callBody, error) {
	flags := cmd.Flags()
	data, _ := flags.GetString("data")
	jsonData, _ := flags.GetString("json")
	formValues, _ := flags.GetStringArray("form")
	contentType, _ := flags.GetString("content-type")

	set := 0
	for _, present := range []bool{data != "", jsonData != "", len(formValues) > 0} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("only one of --data, --json and --form may be used")
	}

	switch {
	case len(formValues) > 0:
		form, err := parseKeyValues(formValues)
		if err != nil {
			return nil, fmt.Errorf("invalid --form: %w", err)
		}
		return &callBody{form: form}, nil
	case jsonData != "":
		if contentType == "" {
			contentType = "application/json"
		}
		return &callBody{raw: jsonData, contentType: contentType}, nil
	case data != "":
		if strings.HasPrefix(data, "@") {
			content, err := os.ReadFile(strings.TrimPrefix(data, "@"))
			if err != nil {
				return nil, fmt.Errorf("error reading request body: %w", err)
			}
			data = string(content)
		}
		return &callBody{raw: data, contentType: contentType}, nil
	}
	return nil, nil
}

func callName(c *call) string {
	if c.name != "" {
		return c.name
	}
	return c.verb + " " + c.target
}

// parseURL splits a URL into base URL and path
func parseURL(fullURL string) (string, string) {
	// Add scheme if missing
	if !strings.HasPrefix(fullURL, "http://") && !strings.HasPrefix(fullURL, "https://") {
		fullURL = "http://" + fullURL
	}

	parsedURL, err := url.Parse(fullURL)
	if err != nil {
		return fullURL, "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	// Include user info in the base URL if present
	if parsedURL.User != nil {
		baseURL = fmt.Sprintf("%s://%s@%s", parsedURL.Scheme, parsedURL.User.String(), parsedURL.Host)
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}

	if parsedURL.RawQuery != "" {
		path = path + "?" + parsedURL.RawQuery
	}
	if parsedURL.Fragment != "" {
		path = path + "#" + parsedURL.Fragment
	}

	return baseURL, path
}

// parseHeaders reads "Key: Value" pairs. Entries without a colon are
// ignored.
func parseHeaders(values []string) map[string]string {
	headers := make(map[string]string, len(values))
	for _, header := range values {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}

// parseKeyValues reads key=value pairs. Repeated keys keep every value.
func parseKeyValues(values []string) (url.Values, error) {
	result := make(url.Values, len(values))
	for _, pair := range values {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		result.Add(key, value)
	}
	return result, nil
}

// singleValues keeps the last value of each key.
func singleValues(values url.Values) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, vs := range values {
		result[key] = vs[len(vs)-1]
	}
	return result
}

// readSchema accepts an inline JSON schema or a path to one.
func readSchema(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.HasPrefix(arg, "{") {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("error reading schema file: %w", err)
	}
	return string(data), nil
}
