package httpclient_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-recruitment-intake/pkg/httpclient"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tightBreaker() httpclient.BreakerSettings {
	return httpclient.BreakerSettings{
		MinimumRequests:          1,
		FailureRateThreshold:     100,
		PermittedCallsInHalfOpen: 1,
		OpenStateTimeout:         2 * time.Second,
		Interval:                 time.Second,
	}
}

func TestCircuitBreakerFastFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cb := httpclient.NewCircuitBreaker("test_fast_failure", tightBreaker(), nil)
	client := httpclient.New(httpclient.Options{Timeout: time.Second}, cb, nil)

	resp, err := client.R().Get(server.URL + "/test")
	require.NoError(t, err, "5xx responses are handed back to the caller")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

	start := time.Now()
	_, err = client.R().Get(server.URL + "/test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, int32(1), requests.Load())
}

func TestRetryOnRetryableStatus(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	cb := httpclient.NewCircuitBreaker("test_retry", httpclient.BreakerSettings{
		MinimumRequests:      10,
		FailureRateThreshold: 100,
		OpenStateTimeout:     time.Second,
	}, nil)
	client := httpclient.New(httpclient.Options{
		Timeout:              time.Second,
		RetryCount:           3,
		RetryWait:            10 * time.Millisecond,
		RetryableStatusCodes: []int{http.StatusServiceUnavailable},
	}, cb, nil)

	resp, err := client.R().Get(server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "success", resp.String())
	assert.Equal(t, int32(3), requests.Load())
}

func TestNoRetryWhenCountIsZero(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb := httpclient.NewCircuitBreaker("test_no_retry", httpclient.BreakerSettings{
		MinimumRequests:      10,
		FailureRateThreshold: 100,
		OpenStateTimeout:     time.Second,
	}, nil)
	client := httpclient.New(httpclient.Options{
		Timeout:              time.Second,
		RetryableStatusCodes: []int{http.StatusBadGateway},
	}, cb, nil)

	resp, err := client.R().Post(server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode())
	assert.Equal(t, int32(1), requests.Load())
}

func TestCircuitBreakerWindowForgetsOldSuccesses(t *testing.T) {
	var failing atomic.Bool
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cb := httpclient.NewCircuitBreaker("test_window", httpclient.BreakerSettings{
		MinimumRequests:          5,
		FailureRateThreshold:     50,
		PermittedCallsInHalfOpen: 2,
		OpenStateTimeout:         10 * time.Second,
		Interval:                 50 * time.Millisecond,
	}, nil)
	client := httpclient.New(httpclient.Options{Timeout: time.Second}, cb, nil)

	for i := 0; i < 200; i++ {
		_, err := client.R().Get(server.URL)
		require.NoError(t, err)
	}

	time.Sleep(100 * time.Millisecond)
	failing.Store(true)

	for i := 0; i < 5; i++ {
		_, _ = client.R().Get(server.URL)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State(), "an outage after healthy traffic still trips the breaker")

	before := requests.Load()
	_, err := client.R().Get(server.URL)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, before, requests.Load())
}

func TestCircuitBreakerDefaultsWindow(t *testing.T) {
	cb := httpclient.NewCircuitBreaker("test_default_window", httpclient.BreakerSettings{
		MinimumRequests:      1,
		FailureRateThreshold: 100,
	}, nil)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, time.Minute, httpclient.DefaultBreakerInterval)
}
