package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/fluenthttp/fluent"
	"github.com/wesleyorama2/fluenthttp/internal/config"
	"github.com/wesleyorama2/fluenthttp/internal/logging"
	"github.com/wesleyorama2/fluenthttp/internal/output"
	"github.com/wesleyorama2/fluenthttp/transport"
)

// HTTP engines selectable with --engine.
const (
	engineNet   = "net"
	engineResty = "resty"
)

func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.Bool("no-color", false, "Disable colored output")
	flags.StringP("output", "o", "text", "Output format: text, json or yaml")
	flags.DurationP("timeout", "t", 30*time.Second, "Request timeout")
	flags.Int("retries", 0, "Retry connection errors and 5xx responses this many times")
	flags.Float64("rate", 0, "Maximum requests per second, 0 disables the limit")
	flags.String("engine", engineNet, "HTTP engine: net or resty")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error or off")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("user-agent", "fluenthttp", "User-Agent header")
	flags.Bool("metrics", false, "Print Prometheus metrics to stderr when done")
}

// runtime holds what every command needs to send requests: settings,
// logger, formatter and the transport stack.
type runtime struct {
	settings  *config.Settings
	engine    string
	verbose   bool
	noColor   bool
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *transport.Metrics
	formatter output.FormatProvider
	out       io.Writer
	errOut    io.Writer
}

// newRuntime resolves settings from the environment, then applies the
// flags the user set explicitly.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		settings.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("retries") {
		settings.RetryMax, _ = flags.GetInt("retries")
	}
	if flags.Changed("rate") {
		settings.RateLimit, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("user-agent") {
		settings.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("log-level") {
		settings.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		settings.LogFormat, _ = flags.GetString("log-format")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	engine, _ := flags.GetString("engine")
	if engine != engineNet && engine != engineResty {
		return nil, fmt.Errorf("invalid engine %q, must be net or resty", engine)
	}

	formatName, _ := flags.GetString("output")
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	verbose, _ := flags.GetBool("verbose")
	noColor, _ := flags.GetBool("no-color")
	noColor = noColor || !output.ColorEnabled(os.Stdout)

	rt := &runtime{
		settings:  settings,
		engine:    engine,
		verbose:   verbose,
		noColor:   noColor,
		logger:    logger,
		formatter: output.GetFormatter(format, verbose, noColor),
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
	}

	if withMetrics, _ := flags.GetBool("metrics"); withMetrics {
		rt.registry = prometheus.NewRegistry()
		rt.metrics = transport.NewMetrics(rt.registry)
	}

	return rt, nil
}

// newClient assembles the transport stack and returns a fluent client
// resolving relative endpoints against baseURL.
func (rt *runtime) newClient(baseURL string, headers map[string]string) *fluent.Client {
	s := rt.settings

	httpClient := &http.Client{Timeout: s.Timeout}
	if s.RetryMax > 0 {
		httpClient = transport.NewRetryable(transport.RetryConfig{
			MaxRetries: s.RetryMax,
			MinWait:    s.RetryWaitMin,
			MaxWait:    s.RetryWaitMax,
			Timeout:    s.Timeout,
			Logger:     rt.logger,
		})
	}

	var engine transport.Doer = httpClient
	if rt.engine == engineResty {
		engine = transport.NewResty(resty.NewWithClient(httpClient))
	}

	var decompress transport.Middleware
	if s.Decompress {
		decompress = transport.Decompress()
	}

	doer := transport.Chain(
		transport.NewClient(
			transport.WithDoer(engine),
			transport.WithTimingHook(rt.observeTiming),
		),
		transport.Logging(rt.logger),
		transport.RequestID(""),
		transport.RateLimit(s.RateLimit, s.RateBurst),
		decompress,
	)

	options := []fluent.Option{
		fluent.WithDoer(doer),
		fluent.WithBaseURL(baseURL),
		fluent.WithTimeout(s.Timeout),
		fluent.WithLogger(rt.logger),
		fluent.WithMetrics(rt.metrics),
		fluent.WithHeader("User-Agent", s.UserAgent),
	}
	for key, value := range headers {
		options = append(options, fluent.WithHeader(key, value))
	}

	return fluent.New(options...)
}

// timingKey carries the *timingSlot of one exchange in the request context.
type timingKey struct{}

type timingSlot struct {
	mu     sync.Mutex
	timing *transport.Timing
}

func (s *timingSlot) set(timing transport.Timing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timing = &timing
}

// get returns nil when no request of the exchange reached the network.
func (s *timingSlot) get() *transport.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

func withTimingSlot(ctx context.Context) (context.Context, *timingSlot) {
	slot := &timingSlot{}
	return context.WithValue(ctx, timingKey{}, slot), slot
}

func (rt *runtime) observeTiming(req *http.Request, timing transport.Timing) {
	if slot, ok := req.Context().Value(timingKey{}).(*timingSlot); ok {
		slot.set(timing)
	}
}

// print writes formatted output, ending it with a newline.
func (rt *runtime) print(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	fmt.Fprint(rt.out, s)
}

// finish flushes the logger and prints metrics when requested.
func (rt *runtime) finish() error {
	_ = rt.logger.Sync()

	if rt.registry == nil {
		return nil
	}
	families, err := rt.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(rt.errOut, family); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
