package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/fluenthttp/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// apiServer issues a token on POST /login and requires it on GET /profile.
func apiServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			var body struct {
				User string `json:"user"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
				http.Error(w, `{"error":"bad login"}`, http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"token":"tok-` + body.User + `"}`))
		case "/profile":
			if r.Header.Get("Authorization") != "Bearer tok-alice" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"user":"alice","env":"` + r.Header.Get("X-Env") + `"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
}

const collectionYAML = `
environments:
  dev:
    baseUrl: ${base}
    headers:
      X-Env: dev
    variables:
      user: bob
requests:
  login:
    url: /login
    method: POST
    body:
      user: ${user}
    extract:
      token: $.token
  profile:
    url: /profile?verbose=${verbose}
    method: GET
    headers:
      Authorization: Bearer ${token}
    schema:
      type: object
      required: [user]
order: [login, profile]
`

func TestRunCollection(t *testing.T) {
	server, calls := apiServer(t)
	path := writeFile(t, "api.yaml", collectionYAML)

	out, _, err := executeCmd(t, "run", "-c", path, "-e", "dev",
		"--var", "base="+server.URL, "--var", "user=alice", "--var", "verbose=1")
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /login", "GET /profile?verbose=1"}, calls())
	assert.Contains(t, out, "login REQUEST: POST "+server.URL+"/login")
	assert.Contains(t, out, "token = tok-alice")
	assert.Contains(t, out, `"env": "dev"`)
}

func TestRunRootRequestUsesBasePath(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Path
		w.Write([]byte("home"))
	}))
	defer server.Close()

	path := writeFile(t, "root.yaml", `
environments:
  dev: {baseUrl: "`+server.URL+`/api"}
requests:
  home: {url: /, method: GET}
`)

	out, _, err := executeCmd(t, "run", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "/api/", got)
	assert.Contains(t, out, "home REQUEST: GET "+server.URL+"/api/")
}

func TestRunSelectedRequests(t *testing.T) {
	server, calls := apiServer(t)
	path := writeFile(t, "api.yaml", collectionYAML)

	out, stderr, err := executeCmd(t, "run", "-c", path, "-e", "dev", "-r", "profile", "--var", "base="+server.URL)
	require.ErrorIs(t, err, errRequestsFailed)

	assert.Len(t, calls(), 1)
	assert.Contains(t, out, "401 Unauthorized")
	assert.Contains(t, stderr, "profile: ")
}

func TestRunWithoutFailingOnStatus(t *testing.T) {
	server, _ := apiServer(t)
	path := writeFile(t, "api.yaml", collectionYAML)

	_, _, err := executeCmd(t, "run", "-c", path, "-e", "dev", "-r", "profile",
		"--var", "base="+server.URL, "--fail=false")
	require.Error(t, err, "schema validation still fails")
}

func TestRunRepeatPrintsSummary(t *testing.T) {
	server, calls := apiServer(t)
	path := writeFile(t, "api.yaml", collectionYAML)

	out, _, err := executeCmd(t, "run", "-c", path, "-e", "dev", "--repeat", "2",
		"--var", "base="+server.URL, "--var", "user=alice", "-o", "json")
	require.NoError(t, err)

	assert.Len(t, calls(), 4)
	assert.Contains(t, out, `"name": "login"`)
	assert.Contains(t, out, `"requests"`)
}

func TestRunJSONAndTOMLCollections(t *testing.T) {
	server, _ := apiServer(t)

	jsonCollection := `{
  "environments": {"local": {"baseUrl": "` + server.URL + `"}},
  "requests": {
    "login": {"url": "/login", "method": "POST", "body": {"user": "alice"}, "decode": "json"}
  }
}`
	tomlCollection := `
[environments.local]
baseUrl = "` + server.URL + `"

[requests.login]
url = "/login"
method = "POST"
decode = "auto"

[requests.login.body]
user = "alice"
`

	for name, content := range map[string]string{"api.json": jsonCollection, "api.toml": tomlCollection} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, content)
			out, _, err := executeCmd(t, "run", "-c", path)
			require.NoError(t, err)
			assert.Contains(t, out, "200 OK")
		})
	}
}

func TestRunErrors(t *testing.T) {
	valid := writeFile(t, "api.yaml", collectionYAML)
	invalid := writeFile(t, "bad.yaml", `
requests:
  broken:
    url: /x
    method: GET
    body: nope
`)
	multi := writeFile(t, "multi.yaml", `
environments:
  a: {baseUrl: "http://a"}
  b: {baseUrl: "http://b"}
requests:
  ping: {url: /ping, method: GET}
`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no collection", []string{"run"}, "collection file is required"},
		{"missing file", []string{"run", "-c", "/does/not/exist.yaml"}, "collection file not found"},
		{"invalid collection", []string{"run", "-c", invalid}, "invalid collection"},
		{"unknown environment", []string{"run", "-c", valid, "-e", "prod"}, "environment not found: prod"},
		{"ambiguous environment", []string{"run", "-c", multi}, "environment is required"},
		{"unknown request", []string{"run", "-c", valid, "-e", "dev", "-r", "logout"}, "request not found: logout"},
		{"bad var", []string{"run", "-c", valid, "-e", "dev", "--var", "oops"}, "invalid --var"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunPrintsValidationErrors(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
requests:
  broken:
    url: /x
    method: GET
    body: nope
`)

	_, stderr, err := executeCmd(t, "run", "-c", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "Collection validation errors:")
	assert.Contains(t, stderr, "requests.broken.body")
}

func TestCallFromRequest(t *testing.T) {
	req := config.Request{
		URL:      "/",
		Method:   "get",
		Query:    map[string]string{"page": "2"},
		CacheTTL: "5m",
		Timeout:  "2s",
		Schema:   map[string]any{"type": "object"},
	}

	c, err := callFromRequest("home", req)
	require.NoError(t, err)

	assert.Equal(t, "GET", c.verb)
	assert.Equal(t, "/", c.target)
	assert.Equal(t, "2", c.query.Get("page"))
	assert.Equal(t, "5m0s", c.cacheTTL.String())
	assert.Equal(t, "2s", c.timeout.String())
	assert.JSONEq(t, `{"type":"object"}`, c.schema)
	assert.Nil(t, c.body)

	c, err = callFromRequest("raw", config.Request{URL: "/x", Method: "POST", Body: "text"})
	require.NoError(t, err)
	assert.Equal(t, "text", c.body.raw)

	_, err = callFromRequest("bad", config.Request{URL: "/x", Method: "GET", Timeout: "soon"})
	assert.Error(t, err)
}

func TestSelectEnvironment(t *testing.T) {
	single := &config.Collection{Environments: map[string]config.Environment{"only": {BaseURL: "http://only"}}}
	env, err := selectEnvironment(single, "")
	require.NoError(t, err)
	assert.Equal(t, "http://only", env.BaseURL)

	env, err = selectEnvironment(&config.Collection{}, "")
	require.NoError(t, err)
	assert.Empty(t, env.BaseURL)
}

func TestRunConcurrentUsersKeepOwnVariables(t *testing.T) {
	server, calls := apiServer(t)
	path := writeFile(t, "api.yaml", collectionYAML)

	out, _, err := executeCmd(t, "run", "-c", path, "-e", "dev", "--repeat", "4", "--concurrency", "2",
		"--var", "base="+server.URL, "--var", "user=alice", "--var", "verbose=1")
	require.NoError(t, err)

	assert.Len(t, calls(), 8)
	assert.Contains(t, out, "Requests:   8 (0 failed")
	assert.Contains(t, out, "login (4 requests, 0 failed)")
}
