package coingecko

import "fmt"

// TransportError indicates a network-level failure (DNS, timeout, refused
// connection). It is never retried by the protocol layer itself; outer task
// runners decide whether to redeliver.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates the retry budget against 429 responses is exhausted.
type RateLimitError struct {
	Endpoint string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for endpoint: %s after %d attempts", e.Endpoint, e.Attempts)
}

// InvalidResponseError indicates the response body could not be parsed as JSON.
type InvalidResponseError struct {
	Endpoint string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response from CoinGecko API for endpoint: %s", e.Endpoint)
}

// UpstreamError carries an error message reported by the API itself.
type UpstreamError struct {
	Endpoint string
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("CoinGecko API error for endpoint %s: %s", e.Endpoint, e.Message)
}
