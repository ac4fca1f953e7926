// Package command provides CLI command definitions for boardmesh-cli.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin REST client for the document endpoints.
type Client struct {
	base  string
	token string
	httpc *http.Client
}

// NewClient creates a document REST client.
func NewClient(server, token string) *Client {
	return &Client{
		base:  strings.TrimRight(server, "/"),
		token: token,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetDocument fetches a document snapshot and its version.
func (c *Client) GetDocument(ctx context.Context, documentID string) (json.RawMessage, int64, error) {
	var data struct {
		Version  int64           `json:"version"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := c.get(ctx, "/documents/"+documentID, &data); err != nil {
		return nil, 0, err
	}
	return data.Snapshot, data.Version, nil
}

// GetVersion fetches only the document version.
func (c *Client) GetVersion(ctx context.Context, documentID string) (int64, error) {
	var data struct {
		Version int64 `json:"version"`
	}
	if err := c.get(ctx, "/documents/"+documentID+"/version", &data); err != nil {
		return 0, err
	}
	return data.Version, nil
}

// PutDocument replaces a document snapshot and returns the new version.
func (c *Client) PutDocument(ctx context.Context, documentID string, snapshot []byte, clientID string) (int64, error) {
	u := c.base + "/documents/" + documentID
	if clientID != "" {
		u += "?clientId=" + clientID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(snapshot))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var data struct {
		Version int64 `json:"version"`
	}
	if err := parseResponse(resp, &data); err != nil {
		return 0, err
	}
	return data.Version, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return parseResponse(resp, target)
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// parseResponse unwraps the server envelope, turning non-2xx responses
// into errors carrying the server's code and message.
func parseResponse(resp *http.Response, target any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("server returned status %d with unparsable body", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if env.Code != "" {
			return fmt.Errorf("%s: %s", env.Code, env.Message)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return errors.New("response has no data")
	}
	return json.Unmarshal(env.Data, target)
}
