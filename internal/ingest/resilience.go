package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/powdercast/powdercast/internal/metrics"
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// fetchJSON issues a GET with exponential-backoff retry for transient
// network faults, guarded by the provider's circuit breaker. Rate limiting
// (429) and other client errors are permanent: they are ordinary adapter
// failures that hand off to fallback routing, never a retry loop.
func fetchJSON(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, provider, url string, header http.Header) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(malformedErr(provider, err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		start := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			resp, doErr := client.Do(req)
			if doErr != nil {
				metrics.ProviderCallsTotal.WithLabelValues(provider, "error").Inc()
				return nil, transientErr(provider, doErr)
			}
			defer resp.Body.Close()

			metrics.ProviderCallsTotal.WithLabelValues(provider, strconv.Itoa(resp.StatusCode)).Inc()

			switch {
			case resp.StatusCode == http.StatusOK:
				b, readErr := io.ReadAll(resp.Body)
				if readErr != nil {
					return nil, transientErr(provider, fmt.Errorf("read body: %w", readErr))
				}
				return b, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, backoff.Permanent(transientErr(provider, fmt.Errorf("rate limited: status %d", resp.StatusCode)))
			case resp.StatusCode >= 500:
				return nil, transientErr(provider, fmt.Errorf("server error: status %d", resp.StatusCode))
			default:
				return nil, backoff.Permanent(transientErr(provider, fmt.Errorf("unexpected status %d", resp.StatusCode)))
			}
		})
		metrics.ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(transientErr(provider, err))
			}
			return err
		}

		b, ok := result.([]byte)
		if !ok {
			return backoff.Permanent(malformedErr(provider, fmt.Errorf("unexpected breaker result type %T", result)))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = transientErr(provider, err)
		}
		return nil, err
	}
	return body, nil
}
