// Package mapsapi implements the Geocoder and TravelEstimator ports against
// hosted map services (Google Maps Platform, OpenRouteService).
package mapsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"shelter-finder-service/internal/platform/metrics"
	"shelter-finder-service/internal/ports"
	"strings"
	"time"
)

// Options shared by every provider.
type Options struct {
	BaseURL string
	// Region biases geocoding (ISO 3166-1 alpha-2, e.g. "US"). Empty disables it.
	Region  string
	Timeout time.Duration
	// RetryAttempts is the total number of attempts for a call. Values below
	// 2 disable retries.
	RetryAttempts int
	RetryBackoff  time.Duration
}

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	return o
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// apiClient is the HTTP plumbing shared by the providers: request
// construction, status checks, retries and JSON decoding.
type apiClient struct {
	provider    string
	session     *http.Client
	header      http.Header
	maxAttempts int
	backoff     time.Duration
}

func newAPIClient(provider string, opts Options, header http.Header) *apiClient {
	if header == nil {
		header = http.Header{}
	}
	return &apiClient{
		provider:    provider,
		session:     &http.Client{Timeout: opts.Timeout},
		header:      header,
		maxAttempts: opts.RetryAttempts,
		backoff:     opts.RetryBackoff,
	}
}

func (c *apiClient) newRequest(
	ctx context.Context,
	method string,
	endpoint string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, redactURLError(err)
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) using exponential backoff while respecting context cancellation.
// With maxAttempts == 1 it performs exactly one call.
func (c *apiClient) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == c.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

// fetchJSON runs the request built by makeReq and decodes the JSON body
// into out. Every failure wraps ports.ErrUnavailable.
func (c *apiClient) fetchJSON(
	ctx context.Context,
	makeReq func() (*http.Request, error),
	out any,
) error {
	resp, err := c.doWithRetry(ctx, makeReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ports.ErrUnavailable, err)
	}

	return nil
}

// observe records the outcome of one provider operation.
func (c *apiClient) observe(op string, start time.Time, err error) {
	outcome := "ok"
	var se *ports.StatusError
	switch {
	case err == nil:
	case errors.As(err, &se):
		outcome = "status"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = "unavailable"
	}

	metrics.ProviderRequestsTotal.WithLabelValues(c.provider, op, outcome).Inc()
	metrics.ProviderDurationMs.WithLabelValues(c.provider, op).Observe(float64(time.Since(start).Milliseconds()))
}

// Query parameters that carry credentials.
var secretParams = []string{"key", "api_key"}

// redactURLError masks credentials in the URL that net/http embeds in
// transport errors, so they never reach logs.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redactURL(ue.URL)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparsable url]"
	}

	q := u.Query()
	changed := false
	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
