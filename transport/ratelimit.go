package transport

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit limits outgoing requests to rps per second with the given burst.
// Waiting honors the request context. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next.Do(req)
		})
	}
}
