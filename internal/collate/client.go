package collate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher requests one representation of a collation. Implementations must
// be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, rep Representation, body []byte) (Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rep Representation, body []byte) (Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rep Representation, body []byte) (Response, error) {
	return f(ctx, rep, body)
}

// Response is a successful engine answer.
type Response struct {
	Representation Representation
	ContentType    string
	Body           []byte
}

// ResponseError is returned when the engine answers with a non-2xx status.
// Body holds the raw payload so it can be shown to the user unchanged.
type ResponseError struct {
	Representation Representation
	StatusCode     int
	Status         string
	Body           string
}

func (e *ResponseError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("collate: %s: %s", e.Representation, e.Status)
	}
	return fmt.Sprintf("collate: %s: %s: %s", e.Representation, e.Status, body)
}

// Client talks to a collation engine over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient returns a client posting to baseURL + "/".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("collate: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("collate: base url %q must be http or https", base)
	}
	c := &Client{
		endpoint: strings.TrimRight(base, "/") + "/",
		http:     &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch posts body and negotiates rep through the Accept header.
func (c *Client) Fetch(ctx context.Context, rep Representation, body []byte) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("collate: build %s request: %w", rep, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", string(rep))

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("collate: %s request: %w", rep, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("collate: read %s response: %w", rep, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &ResponseError{
			Representation: rep,
			StatusCode:     resp.StatusCode,
			Status:         resp.Status,
			Body:           string(payload),
		}
	}
	return Response{
		Representation: rep,
		ContentType:    resp.Header.Get("Content-Type"),
		Body:           payload,
	}, nil
}
