package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Prober performs a single reachability check against a service endpoint.
// The returned healthy flag reflects the endpoint's status signal; err is
// reserved for transport-level failures and error status codes.
type Prober interface {
	Probe(ctx context.Context, url string) (healthy bool, err error)
}

// Func adapts a plain function to the Prober interface.
type Func func(ctx context.Context, url string) (bool, error)

func (f Func) Probe(ctx context.Context, url string) (bool, error) {
	return f(ctx, url)
}

// StatusError reports a probe that reached the endpoint but got an error
// status back.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "probe returned status " + http.StatusText(e.StatusCode)
}

// HTTP probes endpoints with a GET request. A 200 response counts as
// healthy; 4xx and 5xx responses are reported as errors so they are
// accounted the same way as transport failures.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP prober. retryMax transparent retries are
// attempted on connection errors before a probe is reported as failed;
// error status codes from the endpoint are never retried.
func NewHTTP(timeout time.Duration, retryMax int) *HTTP {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	client.CheckRetry = retryPolicy

	return &HTTP{client: client.StandardClient()}
}

func (h *HTTP) Probe(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	res, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return false, &StatusError{StatusCode: res.StatusCode}
	}

	return res.StatusCode == http.StatusOK, nil
}

// retryPolicy retries on connection errors only. Responses are always
// forwarded as-is, including 4xx and 5xx, so the caller sees the real
// status instead of a generic retry-exhausted error.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil
	}

	return false, nil
}
