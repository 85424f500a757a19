package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"canvas-mirror/internal/domain"
	"canvas-mirror/internal/httpx"
)

const acceptJSON = "application/json"

// Client talks to one Canvas instance through its /api/v1 REST surface.
type Client struct {
	BaseURL     string // instance root, no trailing slash
	AccessToken string
	PerPage     int
	HTTP        *http.Client
	Retry       httpx.RetryConfig
	Log         zerolog.Logger
}

func New(baseURL, accessToken string) *Client {
	tr := &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		PerPage:     100,
		HTTP: &http.Client{
			Timeout:   2 * time.Minute, // por-request
			Transport: tr,
		},
		Retry: httpx.DefaultRetryConfig(),
		Log:   zerolog.Nop(),
	}
}

// apiURL builds an absolute /api/v1 URL for path (no leading slash).
func (c *Client) apiURL(path string, query url.Values) string {
	u := c.BaseURL + "/api/v1/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get fetches one absolute URL with auth and returns the response headers
// alongside the body; pagination lives in the Link header.
func (c *Client) get(ctx context.Context, absURL string) (http.Header, []byte, error) {
	resp, body, err := httpx.DoWithRetry(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodGet, absURL, nil)
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", acceptJSON)
			r.Header.Set("Authorization", "Bearer "+c.AccessToken)
			// manual Accept-Encoding turns off the transport's auto-gzip;
			// httpx decodes both encodings for us
			r.Header.Set("Accept-Encoding", "gzip, br")
			return r, nil
		},
		c.Retry,
	)
	if err != nil {
		return nil, nil, err
	}
	return resp.Header, body, nil
}

// GetJSON fetches one API object into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, body, err := c.get(ctx, c.apiURL(path, query))
	if err != nil {
		return fmt.Errorf("canvas: get %s: %w", path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("canvas: parse %s: %w", path, err)
	}
	return nil
}

// Classify buckets a client error for the run driver. 401/403 mean the token
// or its scope was rejected, 429 means rate limiting survived the retry
// budget, everything else HTTP or transport level is a network failure.
func Classify(err error) domain.ErrorKind {
	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		switch herr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.KindAuth
		case http.StatusTooManyRequests:
			return domain.KindRateLimit
		default:
			return domain.KindNetwork
		}
	}
	return domain.KindNetwork
}

// StatusOf returns the HTTP status behind err, or 0 for transport errors.
// The run driver uses it to tell restricted areas (403, 404) apart from
// rejected credentials (401).
func StatusOf(err error) int {
	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

func (c *Client) perPage() int {
	if c.PerPage > 0 {
		return c.PerPage
	}
	return 100
}
