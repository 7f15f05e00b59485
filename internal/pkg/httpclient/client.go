package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for outbound calls to notification gateways.
type Client struct {
	r *resty.Client
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	return &Client{r: r}
}

// WithTimeout sets the per-attempt timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithRetryCount overrides the number of retries on transport errors.
func (c *Client) WithRetryCount(n int) *Client {
	c.r.SetRetryCount(n)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func check(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return resp.Body(), &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

// PostForm sends a POST request with form data.
func (c *Client) PostForm(ctx context.Context, url string, data map[string]string) ([]byte, error) {
	return check(c.r.R().SetContext(ctx).SetFormData(data).Post(url))
}
