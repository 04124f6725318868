// Package source is the HTTP client for the batch source service.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fairyhunter13/order-batch-loader/internal/model"
)

// ErrNotFound is returned when the source has no data for a batch.
var ErrNotFound = errors.New("batch not found")

// StatusError is a non-success response other than 404.
type StatusError struct {
	URL    string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Code, e.Detail)
	}
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Client fetches the batch catalog and batch payloads.
type Client struct {
	base     *url.URL
	listPath string
	dataPath string
	http     *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithPaths overrides the listing path and the batch data path prefix.
func WithPaths(listPath, dataPath string) Option {
	return func(c *Client) {
		if listPath != "" {
			c.listPath = listPath
		}
		if dataPath != "" {
			c.dataPath = dataPath
		}
	}
}

// New builds a Client for the service rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing source url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("source url %q must be absolute", baseURL)
	}
	c := &Client{
		base:     u,
		listPath: "/batches/batch-list",
		dataPath: "/batch-data/",
		http:     &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ListBatches returns the body of the batch listing. The caller closes it.
func (c *Client) ListBatches(ctx context.Context) (io.ReadCloser, error) {
	return c.get(ctx, c.listPath, false)
}

// FetchBatch returns the CSV payload of one batch. A 404 yields ErrNotFound.
func (c *Client) FetchBatch(ctx context.Context, id model.BatchID) (io.ReadCloser, error) {
	p := strings.TrimRight(c.dataPath, "/") + "/" + url.PathEscape(id.String())
	return c.get(ctx, p, true)
}

func (c *Client) get(ctx context.Context, path string, notFoundIsTyped bool) (io.ReadCloser, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if notFoundIsTyped && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", u, ErrNotFound)
	}
	return nil, &StatusError{URL: u.String(), Code: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
}
