package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logging writes one structured line per exchange. Failed exchanges are
// logged at warn level.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		return nil
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.Redacted()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("http request failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			if resp != nil {
				fields = append(fields, zap.Int("status", resp.StatusCode))
			}
			logger.Debug("http request", fields...)
			return resp, nil
		})
	}
}
