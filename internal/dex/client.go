package dex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"alpha-sniper/internal/errors"
)

// httpVenue carries the shared plumbing of the HTTP venue clients:
// per-venue rate limiting, a circuit breaker, and request timeouts.
type httpVenue struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newHTTPVenue(name string, timeout time.Duration, rps float64, burst int) httpVenue {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return httpVenue{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// do runs one venue request behind the limiter and breaker, classifying
// failures into the endpoint error taxonomy.
func (v *httpVenue) do(ctx context.Context, step string, req *http.Request) (*http.Response, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, errors.NewEndpointError(v.name, step, false, err)
	}

	result, err := v.breaker.Execute(func() (interface{}, error) {
		resp, err := v.client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, errors.NewEndpointError(v.name, step, true, errors.ErrRateLimited)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("http status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		var ep *errors.EndpointError
		if errors.As(err, &ep) {
			return nil, err
		}
		return nil, errors.NewEndpointError(v.name, step, false, err)
	}
	return result.(*http.Response), nil
}
