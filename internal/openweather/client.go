package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/lox/weatherpanel/internal/httputil"
	"github.com/lox/weatherpanel/internal/metrics"
)

// API Docs: https://openweathermap.org/current, https://openweathermap.org/forecast5,
// https://openweathermap.org/api/geocoding-api
const (
	DefaultBaseURL = "https://api.openweathermap.org"

	EndpointWeather  = "/data/2.5/weather"
	EndpointForecast = "/data/2.5/forecast"
	EndpointDirect   = "/geo/1.0/direct"
	EndpointReverse  = "/geo/1.0/reverse"
)

// ErrNotFound is reported when the provider affirmatively has no match.
var ErrNotFound = errors.New("location not found")

// APIError is a non-success response from the provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openweather: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openweather: status %d", e.StatusCode)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && (e.StatusCode == http.StatusNotFound || e.Code == "404")
}

// FetchRun describes one completed upstream call for auditing.
type FetchRun struct {
	Endpoint     string
	StartedAt    time.Time
	Duration     time.Duration
	HTTPStatus   int
	ResponseSize int
	Err          error
}

// Recorder receives a FetchRun after every upstream call.
type Recorder interface {
	RecordFetch(run FetchRun) error
}

type Options struct {
	BaseURL   string
	APIKey    string
	Units     string
	Lang      string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	RetryFor  time.Duration // total time spent retrying 429/5xx responses
	Recorder  Recorder
	Logger    *slog.Logger
}

// Client talks to OpenWeatherMap. One Client (and so one rate limiter) is
// shared by every panel and suggestion feed.
type Client struct {
	http     *resty.Client
	apiKey   string
	units    string
	lang     string
	limiter  *rate.Limiter
	retryFor time.Duration
	recorder Recorder
	logger   *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Units == "" {
		opts.Units = "metric"
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.RetryFor <= 0 {
		opts.RetryFor = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		http:     httputil.NewClient(strings.TrimRight(opts.BaseURL, "/"), opts.Timeout),
		apiKey:   opts.APIKey,
		units:    opts.Units,
		lang:     opts.Lang,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		retryFor: opts.RetryFor,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// Lang returns the language used for localized names and descriptions.
func (c *Client) Lang() string {
	return c.lang
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, out any) error {
	run := FetchRun{Endpoint: endpoint, StartedAt: time.Now().UTC()}
	err := c.fetch(ctx, endpoint, params, out, &run)
	run.Duration = time.Since(run.StartedAt)
	run.Err = err

	status := strconv.Itoa(run.HTTPStatus)
	if run.HTTPStatus == 0 {
		status = "error"
	}
	metrics.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(run.Duration.Seconds())

	if c.recorder != nil {
		if rerr := c.recorder.RecordFetch(run); rerr != nil {
			c.logger.Warn("openweather: record fetch failed", "endpoint", endpoint, "error", rerr)
		}
	}
	if err != nil {
		c.logger.Debug("openweather: request failed", "endpoint", endpoint, "status", run.HTTPStatus, "error", err)
	}
	return err
}

func (c *Client) fetch(ctx context.Context, endpoint string, params map[string]string, out any, run *FetchRun) error {
	var resp *resty.Response
	operation := func() error {
		resp = nil
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait canceled: %w", err))
		}

		r, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetQueryParam("appid", c.apiKey).
			Get(endpoint)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
		}
		resp = r
		run.HTTPStatus = r.StatusCode()
		run.ResponseSize = len(r.Body())

		if r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("fetch %s: retryable status %d", endpoint, r.StatusCode())
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryFor
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if resp != nil && !resp.IsSuccess() {
			return parseAPIError(resp)
		}
		return err
	}

	if !resp.IsSuccess() {
		return parseAPIError(resp)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// parseAPIError builds an APIError from the provider's {"cod","message"} body,
// where cod may be a number or a string.
func parseAPIError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}

	var body struct {
		Cod     json.RawMessage `json:"cod"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Code = strings.Trim(string(body.Cod), `"`)
		apiErr.Message = body.Message
	}
	return apiErr
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
