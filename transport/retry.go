package transport

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// RetryConfig defines retry behavior for NewRetryable.
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	Timeout    time.Duration
	Logger     *zap.Logger
}

// DefaultRetryConfig returns the retry settings used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		MinWait:    1 * time.Second,
		MaxWait:    30 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// NewRetryable returns an *http.Client that retries connection errors and
// 5xx responses with exponential backoff. Request bodies are buffered so
// they can be replayed. Pass it to WithHTTPClient to keep phase timings.
func NewRetryable(cfg RetryConfig) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	if cfg.MinWait > 0 {
		client.RetryWaitMin = cfg.MinWait
	}
	if cfg.MaxWait > 0 {
		client.RetryWaitMax = cfg.MaxWait
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.Logger != nil {
		client.Logger = &leveledZap{sugar: cfg.Logger.Sugar()}
	} else {
		client.Logger = nil
	}
	// Hand the final response back untouched instead of an error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client.StandardClient()
}

// leveledZap adapts zap to retryablehttp.LeveledLogger.
type leveledZap struct {
	sugar *zap.SugaredLogger
}

func (l *leveledZap) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *leveledZap) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *leveledZap) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *leveledZap) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}
