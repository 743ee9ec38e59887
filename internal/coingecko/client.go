// Package coingecko provides the CoinGecko API client and the rate-limit
// retry protocol shared by the bulk market import and per-coin metadata fetches.
package coingecko

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 5 * time.Second

// Client is an authenticated HTTP GET wrapper for the CoinGecko API.
// The auth header name and base URL depend on the deployment environment:
// the pro API in production, the public demo API everywhere else.
type Client struct {
	baseURL    string
	authHeader string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new CoinGecko client.
// baseURL and authHeader are chosen by the config layer based on APP_ENV.
func NewClient(baseURL, authHeader, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: requestTimeout,
				}).DialContext,
			},
		},
		log: log.With().Str("client", "coingecko").Logger(),
	}
}

// Get sends an authenticated GET request and returns the raw response.
// Transport failures are surfaced as *TransportError; the client never
// retries internally.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (int, http.Header, []byte, error) {
	requestURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, nil, nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.authHeader, c.apiKey)
	}

	c.log.Debug().Str("url", requestURL).Msg("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	return resp.StatusCode, resp.Header, body, nil
}
