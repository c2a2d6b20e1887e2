package nominatim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/ecosphere/internal/geocode/nominatim"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *nominatim.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})
}

func TestClient_ReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "28.6139", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.209", r.URL.Query().Get("lon"))
		assert.Equal(t, nominatim.DefaultUserAgent, r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"display_name": "Connaught Place, New Delhi, Delhi, India"}`))
	})

	addr, err := client.ReverseGeocode(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)
	assert.Equal(t, "Connaught Place, New Delhi, Delhi, India", addr)
}

func TestClient_ReverseGeocode_NoAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	_, err := client.ReverseGeocode(context.Background(), 0, -160)
	assert.ErrorIs(t, err, nominatim.ErrNoAddress)
}

func TestClient_ReverseGeocode_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.ReverseGeocode(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "unexpected status code: 403")
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, nominatim.ProviderName, nominatim.NewClient(nominatim.ClientConfig{}).Name())
}
