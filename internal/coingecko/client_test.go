package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsAuthHeaderAndParams(t *testing.T) {
	var gotPath, gotKey, gotCurrency string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-cg-demo-api-key")
		gotCurrency = r.URL.Query().Get("vs_currency")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "x-cg-demo-api-key", "test-key", zerolog.Nop())

	params := url.Values{}
	params.Set("vs_currency", "usd")

	status, _, body, err := client.Get(context.Background(), "/coins/markets", params)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/coins/markets", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "usd", gotCurrency)
	assert.Equal(t, "[]", string(body))
}

func TestGetOmitsAuthHeaderWithoutKey(t *testing.T) {
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header["X-Cg-Demo-Api-Key"]
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "x-cg-demo-api-key", "", zerolog.Nop())

	_, _, _, err := client.Get(context.Background(), "/coins/markets", nil)
	require.NoError(t, err)
	assert.False(t, hasHeader)
}

func TestGetReturnsStatusAndHeadersUnmodified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "x-cg-demo-api-key", "key", zerolog.Nop())

	status, header, _, err := client.Get(context.Background(), "/coins/markets", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "12", header.Get("Retry-After"))
}

func TestGetWrapsTransportFailures(t *testing.T) {
	// Closed server guarantees a connection error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "x-cg-demo-api-key", "key", zerolog.Nop())

	_, _, _, err := client.Get(context.Background(), "/coins/markets", nil)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "/coins/markets", transportErr.Endpoint)
	assert.Error(t, transportErr.Unwrap())
}
