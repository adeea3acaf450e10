// Package dispatch forwards pedidos to the external fulfillment queue.
//
// One POST is made per pedido.  Any 2xx status is success and the response
// body is ignored; network errors, timeouts and non-2xx statuses are all
// reported as *Error.  The client never retries and keeps no queue of its
// own.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/iliyamo/pedido-service/internal/config"
)

// Item is one line of a fulfillment request.
type Item struct {
	Block    string `json:"block"`
	Quantity int    `json:"quantity"`
}

// Request is the body POSTed to the queue endpoint.
type Request struct {
	OrderID     uint64 `json:"orderId"`
	Items       []Item `json:"items"`
	CallbackURL string `json:"callbackUrl"`
}

// Error describes a failed dispatch.  StatusCode is zero when no response
// was received.
type Error struct {
	PedidoID   uint64
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dispatch pedido %d: queue answered %d: %s", e.PedidoID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("dispatch pedido %d: %v", e.PedidoID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the fulfillment queue.
type Client struct {
	endpoint     string
	callbackBase string
	httpClient   *http.Client
}

// NewClient builds a client from explicit configuration.  The timeout
// bounds each call end to end.
func NewClient(cfg config.DispatchConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		callbackBase: strings.TrimSuffix(cfg.CallbackBaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}
}

// CallbackURL is where the queue reports status for pedidoID.
func (c *Client) CallbackURL(pedidoID uint64) string {
	return c.callbackBase + "/pedidos/" + strconv.FormatUint(pedidoID, 10)
}

// Dispatch sends one fulfillment request for pedidoID.
func (c *Client) Dispatch(ctx context.Context, pedidoID uint64, items []Item) error {
	body, err := json.Marshal(Request{
		OrderID:     pedidoID,
		Items:       items,
		CallbackURL: c.CallbackURL(pedidoID),
	})
	if err != nil {
		return &Error{PedidoID: pedidoID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{PedidoID: pedidoID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{PedidoID: pedidoID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			PedidoID:   pedidoID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
