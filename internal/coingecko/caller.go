package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const maxAttempts = 3

// Getter is the transport used by the Caller. Satisfied by *Client.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values) (int, http.Header, []byte, error)
}

// Caller wraps the client with the rate-limit retry protocol.
// On 429 it waits per the Retry-After header, or exponential backoff when the
// header is absent, and retries up to 3 attempts total. The same unit is used
// by the bulk market fetch and by every per-coin metadata fetch.
type Caller struct {
	client Getter
	sleep  func(time.Duration)
	log    zerolog.Logger
}

// NewCaller creates a new Caller around a client
func NewCaller(client Getter, log zerolog.Logger) *Caller {
	return &Caller{
		client: client,
		sleep:  time.Sleep,
		log:    log.With().Str("component", "coingecko_caller").Logger(),
	}
}

// Call sends a GET request and returns the parsed JSON body.
// The backoff sleep blocks the calling goroutine, which is acceptable because
// calls happen inside import jobs and queue workers, never on the read path.
func (c *Caller) Call(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	for attempt := 1; ; attempt++ {
		status, header, body, err := c.client.Get(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}

		// https://docs.coingecko.com/docs/common-errors-rate-limit
		if status == http.StatusTooManyRequests {
			if attempt >= maxAttempts {
				return nil, &RateLimitError{Endpoint: endpoint, Attempts: maxAttempts}
			}

			wait := backoffWait(header, attempt)
			c.log.Warn().
				Str("endpoint", endpoint).
				Dur("wait", wait).
				Int("attempt", attempt).
				Int("max_attempts", maxAttempts).
				Msg("Rate limit hit, retrying")

			c.sleep(wait)
			continue
		}

		// A literal null body is as useless as an unparseable one
		var decoded json.RawMessage
		if err := json.Unmarshal(body, &decoded); err != nil || len(decoded) == 0 || string(decoded) == "null" {
			return nil, &InvalidResponseError{Endpoint: endpoint}
		}

		// An object body may carry an embedded error field
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(decoded, &envelope); err == nil && envelope.Error != "" {
			return nil, &UpstreamError{Endpoint: endpoint, Message: envelope.Error}
		}

		return decoded, nil
	}
}

// backoffWait returns the Retry-After duration when the header is present,
// otherwise exponential backoff of 2^attempt seconds
func backoffWait(header http.Header, attempt int) time.Duration {
	if header != nil {
		if retryAfter := header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
