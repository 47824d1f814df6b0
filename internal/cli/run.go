package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/fluenthttp/internal/config"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run requests from a collection file",
		Long: `Run sends the requests of a collection file in order. Values extracted
from one response are available as ${name} in every later request.`,
		Example: `  fluenthttp run -c api.yaml -e staging
  fluenthttp run -c api.json -e dev -r login -r profile --var user=alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionFile, _ := cmd.Flags().GetString("collection")
			envName, _ := cmd.Flags().GetString("environment")
			names, _ := cmd.Flags().GetStringArray("request")
			varValues, _ := cmd.Flags().GetStringArray("var")
			repeat, _ := cmd.Flags().GetInt("repeat")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			failOnStatus, _ := cmd.Flags().GetBool("fail")

			if collectionFile == "" {
				return errors.New("collection file is required")
			}

			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			collection, err := config.LoadCollection(collectionFile)
			if err != nil {
				return err
			}

			if problems := config.ValidateCollection(collection); len(problems) > 0 {
				fmt.Fprintln(rt.errOut, "Collection validation errors:")
				for _, problem := range problems {
					fmt.Fprintf(rt.errOut, "  - %s\n", problem.Error())
				}
				return fmt.Errorf("invalid collection %s", collectionFile)
			}

			env, err := selectEnvironment(collection, envName)
			if err != nil {
				return err
			}

			if len(names) == 0 {
				names = collection.Names()
			}
			for _, name := range names {
				if err := config.ValidateRequest(collection, name); err != nil {
					return err
				}
			}

			cliVars, err := parseKeyValues(varValues)
			if err != nil {
				return fmt.Errorf("invalid --var: %w", err)
			}
			vars := config.MergeVars(env.Vars, singleValues(cliVars))

			headers := make(map[string]string, len(env.Headers))
			for key, value := range env.Headers {
				headers[key] = config.Substitute(value, vars)
			}
			baseURL := config.Substitute(env.BaseURL, vars)
			client := rt.newClient(baseURL, headers)

			runErr := rt.newRunner(client, plan{
				names: names,
				vars:  vars,
				build: func(name string, vars map[string]string) (*call, error) {
					return callFromRequest(name, collection.Requests[name].Expand(vars))
				},
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
	flags.StringP("collection", "c", "", "Collection file (.json, .yaml, .yml or .toml)")
	flags.StringP("environment", "e", "", "Environment to use from the collection")
	flags.StringArrayP("request", "r", []string{}, "Request to run (can be used multiple times, defaults to all)")
	flags.StringArray("var", []string{}, "Variables as key=value, overriding environment variables")
	flags.Int("repeat", 1, "Run the requests this many times and print latency statistics")
	flags.Int("concurrency", 1, "Number of virtual users, each running the requests with its own variables")
	flags.Bool("fail", true, "Treat non-2xx responses as failures")

	return cmd
}

// selectEnvironment returns the named environment. Without a name the only
// environment is used, or none when there are several.
func selectEnvironment(c *config.Collection, name string) (config.Environment, error) {
	if name != "" {
		if err := config.ValidateEnvironment(c, name); err != nil {
			return config.Environment{}, err
		}
		return c.Environments[name], nil
	}
	if len(c.Environments) == 1 {
		for _, env := range c.Environments {
			return env, nil
		}
	}
	if len(c.Environments) > 1 {
		return config.Environment{}, errors.New("environment is required when the collection defines several")
	}
	return config.Environment{}, nil
}

// callFromRequest converts an expanded collection request.
func callFromRequest(name string, req config.Request) (*call, error) {
	schema, err := req.SchemaJSON()
	if err != nil {
		return nil, err
	}
	cacheTTL, err := req.CacheDuration()
	if err != nil {
		return nil, err
	}
	timeout, err := req.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	query := make(url.Values, len(req.Query))
	for key, value := range req.Query {
		query.Set(key, value)
	}

	c := &call{
		name:     name,
		verb:     strings.ToUpper(req.Method),
		target:   req.URL,
		headers:  req.Headers,
		query:    query,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		decode:   strings.ToLower(req.Decode),
		extract:  req.Extract,
		schema:   schema,
	}

	switch body := req.Body.(type) {
	case nil:
	case string:
		c.body = &callBody{raw: body}
	default:
		c.body = &callBody{value: body}
	}

	return c, nil
}
