package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 30 * time.Second
	UserAgent      = "WeatherPanel/1.0"
)

// NewClient returns a resty client with the standard timeout and user agent.
// Retries are left to callers, which use backoff so they can tell
// retryable statuses from permanent ones.
func NewClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}
