// Package client is a thin convenience wrapper for CLI tools to call the
// MiniMessenger daemon's JSON API over a Unix-domain socket. It re-uses the
// DTOs from pkg/api so callers get strongly-typed results instead of generic
// maps.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/socket"
	"github.com/Krakenied/MiniMessenger/pkg/api"
)

// ErrDaemon wraps every non-2xx response.
var ErrDaemon = errors.New("daemon returned an error")

// Client holds an http.Client wired to a Unix socket.
type Client struct {
	hc   *http.Client
	base string // dummy scheme+host for Request.URL (http://unix)
}

// New returns a Client that dials the given Unix-domain socket path. A
// daemon that is still starting is waited for; one that is not running
// yields socket.ErrNotRunning.
func New(socketPath string, opts ...socket.Option) *Client {
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		return socket.Dial(ctx, socketPath, opts...)
	}
	tr := &http.Transport{DialContext: dial}
	return NewWithHTTPClient(&http.Client{Transport: tr}, "http://unix")
}

// NewWithHTTPClient returns a Client using hc against base.
func NewWithHTTPClient(hc *http.Client, base string) *Client {
	return &Client{hc: hc, base: base}
}

// --------------------------- commands ------------------------------

// Reload asks the daemon to reload its message file.
func (c *Client) Reload(ctx context.Context) (api.ReloadResponse, error) {
	var out api.ReloadResponse
	err := c.post(ctx, "/v1/reload", struct{}{}, &out)
	return out, err
}

// Send delivers a message to one recipient.
func (c *Client) Send(ctx context.Context, req api.SendRequest) error {
	return c.post(ctx, "/v1/send", req, nil)
}

// Broadcast delivers a message to every qualifying recipient and returns how
// many received it.
func (c *Client) Broadcast(ctx context.Context, req api.BroadcastRequest) (int, error) {
	var out api.BroadcastResponse
	err := c.post(ctx, "/v1/broadcast", req, &out)
	return out.Delivered, err
}

// Render resolves a message without sending it.
func (c *Client) Render(ctx context.Context, req api.RenderRequest) (api.RenderResponse, error) {
	var out api.RenderResponse
	err := c.post(ctx, "/v1/render", req, &out)
	return out, err
}

// Join registers a recipient.
func (c *Client) Join(ctx context.Context, name string, permissions []string) (audience.Recipient, error) {
	var out audience.Recipient
	err := c.post(ctx, "/v1/join", api.JoinRequest{Name: name, Permissions: permissions}, &out)
	return out, err
}

// Leave removes a recipient.
func (c *Client) Leave(ctx context.Context, id string) error {
	return c.post(ctx, "/v1/leave", api.LeaveRequest{ID: id}, nil)
}

// Recipients lists connected recipients.
func (c *Client) Recipients(ctx context.Context) ([]audience.Recipient, error) {
	var out []audience.Recipient
	err := c.get(ctx, "/v1/recipients", &out)
	return out, err
}

// Inbox returns what a recipient has received. drain empties it.
func (c *Client) Inbox(ctx context.Context, id string, drain bool) ([]audience.Delivery, error) {
	q := url.Values{"id": {id}}
	if drain {
		q.Set("drain", "true")
	}
	var out []audience.Delivery
	err := c.get(ctx, "/v1/inbox?"+q.Encode(), &out)
	return out, err
}

// Messages lists every template the daemon has loaded.
func (c *Client) Messages(ctx context.Context) ([]api.MessageEntry, error) {
	var out []api.MessageEntry
	err := c.get(ctx, "/v1/messages", &out)
	return out, err
}

// Status retrieves the current status of the daemon.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.get(ctx, "/v1/status", &out)
	return out, err
}

// --------------------------- HTTP helpers --------------------------

func (c *Client) post(ctx context.Context, path string, payload, v any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e api.ErrorResponse
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s: %s", ErrDaemon, resp.Status, e.Error)
		}
		return fmt.Errorf("%w: %s", ErrDaemon, resp.Status)
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
