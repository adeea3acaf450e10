package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pedido-service/internal/config"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(config.DispatchConfig{
		Endpoint:        url,
		Timeout:         timeout,
		CallbackBaseURL: "http://api.local/",
		Workers:         2,
	})
}

func TestDispatchSendsRequestShape(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	err := c.Dispatch(context.Background(), 42, []Item{{Block: "B3", Quantity: 5}})
	require.NoError(t, err)

	assert.Equal(t, uint64(42), got.OrderID)
	assert.Equal(t, []Item{{Block: "B3", Quantity: 5}}, got.Items)
	assert.Equal(t, "http://api.local/pedidos/42", got.CallbackURL)
}

func TestDispatchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, time.Second).Dispatch(context.Background(), 1, []Item{{Block: "A", Quantity: 1}})
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusServiceUnavailable, de.StatusCode)
	assert.Equal(t, "queue full", de.Body)
	assert.Equal(t, uint64(1), de.PedidoID)
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	err := newTestClient(srv.URL, 50*time.Millisecond).Dispatch(context.Background(), 9, nil)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Zero(t, de.StatusCode)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDispatchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestClient(url, time.Second).Dispatch(context.Background(), 3, nil)
	var de *Error
	assert.True(t, errors.As(err, &de))
}
