package httpclient

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go-recruitment-intake/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

type Options struct {
	Timeout              time.Duration
	RetryCount           int
	RetryWait            time.Duration
	RetryableStatusCodes []int
}

// DefaultBreakerInterval is the closed-state window after which failure
// counts are cleared when BreakerSettings.Interval is unset.
const DefaultBreakerInterval = time.Minute

type BreakerSettings struct {
	MinimumRequests          int
	FailureRateThreshold     int // percent
	PermittedCallsInHalfOpen int
	OpenStateTimeout         time.Duration
	Interval                 time.Duration // closed-state counting window
}

// NewCircuitBreaker builds a breaker that trips once at least MinimumRequests
// were seen and the failure ratio reaches FailureRateThreshold.
func NewCircuitBreaker(name string, s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if s.Interval <= 0 {
		s.Interval = DefaultBreakerInterval
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(max(s.PermittedCallsInHalfOpen, 1)),
		Interval:    s.Interval,
		Timeout:     s.OpenStateTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(max(s.MinimumRequests, 1)) &&
				failureRatio >= float64(s.FailureRateThreshold)/100.0
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			if logger != nil {
				logger.Warn("Circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// New returns a resty client whose transport runs through cb. Several
// clients may share one breaker so that reads and uploads trip together.
func New(opts Options, cb *gobreaker.CircuitBreaker, logger *slog.Logger) *resty.Client {
	client := resty.New()

	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	client.SetRetryCount(opts.RetryCount)
	if opts.RetryCount > 0 {
		client.SetRetryWaitTime(opts.RetryWait)
		client.SetRetryMaxWaitTime(opts.RetryWait * 5)
		client.AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
			}
			for _, status := range opts.RetryableStatusCodes {
				if r.StatusCode() == status {
					return true
				}
			}
			return false
		})
	}

	client.SetTransport(&CircuitBreakerTransport{
		breaker: cb,
		next:    http.DefaultTransport,
		logger:  logger,
	})

	if logger != nil {
		client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			if resp.Request.Attempt > 1 {
				logger.Info("HTTP client retry attempt",
					"url", resp.Request.URL,
					"attempt", resp.Request.Attempt,
					"status", resp.StatusCode(),
				)
			}
			return nil
		})
	}

	return client
}

// serverError marks a 5xx response as a breaker failure while still handing
// the response, and its error body, back to the caller.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return "upstream returned " + e.resp.Status
}

type CircuitBreakerTransport struct {
	breaker *gobreaker.CircuitBreaker
	next    http.RoundTripper
	logger  *slog.Logger
}

func (t *CircuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})

	var srvErr *serverError
	if errors.As(err, &srvErr) {
		return srvErr.resp, nil
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) && t.logger != nil {
			t.logger.Warn("Circuit breaker is open",
				"breaker", t.breaker.Name(),
				"url", req.URL.String(),
			)
		}
		return nil, err
	}

	return result.(*http.Response), nil
}
