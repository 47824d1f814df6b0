package transport

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Timing stores detailed timing information for one HTTP exchange.
// All durations represent the time spent in each phase of the request.
type Timing struct {
	// StartTime is when the request started
	StartTime time.Time

	// DNSLookupTime is the time spent looking up the DNS address
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent performing the TLS handshake (for HTTPS)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte is measured from the end of the last completed phase
	TimeToFirstByte time.Duration

	// TotalTime is the time until response headers were received
	TotalTime time.Duration
}

// TimingHook receives the timing of every request sent through a Client.
type TimingHook func(req *http.Request, timing Timing)

// Client is a timing-aware Doer backed by net/http.
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	httpClient *http.Client
	next       Doer
	hooks      []TimingHook
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client with the given options.
// The default timeout is 30 seconds.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithTimeout sets the overall timeout of the underlying *http.Client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom *http.Client.
// Use this for advanced configuration like custom transports or TLS settings.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithDoer sends requests through d instead of the *http.Client. Phase
// timings are still reported when d honors the request context, as
// NewResty does.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) {
		c.next = d
	}
}

// WithTimingHook registers a hook called after response headers arrive.
func WithTimingHook(hook TimingHook) ClientOption {
	return func(c *Client) {
		if hook != nil {
			c.hooks = append(c.hooks, hook)
		}
	}
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Do sends req and reports phase timings to the registered hooks.
// The response body is left unread.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var next Doer = c.httpClient
	if c.next != nil {
		next = c.next
	}

	if len(c.hooks) == 0 {
		return next.Do(req)
	}

	timing := Timing{
		StartTime: time.Now(),
	}

	var dnsStart, connectStart, tlsHandshakeStart time.Time
	var dnsDone, connectDone bool

	// Tracks the end time of the last completed phase
	lastPhaseEnd := timing.StartTime

	trace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			dnsEnd := time.Now()
			timing.DNSLookupTime = dnsEnd.Sub(dnsStart)
			dnsDone = true
			lastPhaseEnd = dnsEnd
		},
		ConnectStart: func(network, addr string) {
			// IP literals skip DNS entirely
			if dnsDone || dnsStart.IsZero() {
				connectStart = time.Now()
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil && !connectStart.IsZero() {
				connectEnd := time.Now()
				timing.TCPConnectTime = connectEnd.Sub(connectStart)
				connectDone = true
				lastPhaseEnd = connectEnd
			}
		},
		TLSHandshakeStart: func() {
			if connectDone {
				tlsHandshakeStart = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil && !tlsHandshakeStart.IsZero() {
				tlsHandshakeEnd := time.Now()
				timing.TLSHandshakeTime = tlsHandshakeEnd.Sub(tlsHandshakeStart)
				lastPhaseEnd = tlsHandshakeEnd
			}
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	traced := req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := next.Do(traced)
	if err != nil {
		return nil, err
	}

	timing.TotalTime = time.Since(timing.StartTime)
	for _, hook := range c.hooks {
		hook(req, timing)
	}

	return resp, nil
}
