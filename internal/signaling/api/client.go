// Package api is the HTTP client for the coordination server's simple
// request/response calls: room-id allocation, TURN credentials, and room
// status probes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
)

// Client is an HTTP client for a coordination server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL (hosts.Host.APIBase()).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AllocateRoom asks the server for a fresh room id.
func (c *Client) AllocateRoom(ctx context.Context) (*typesv1.AllocateRoomResponse, error) {
	resp, err := c.post(ctx, "/api/rooms")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var room typesv1.AllocateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

// TurnCredentials fetches ICE server credentials for the given client id.
func (c *Client) TurnCredentials(ctx context.Context, cid string) (*typesv1.TurnResponse, error) {
	resp, err := c.get(ctx, "/api/turn?cid="+cid)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var turn typesv1.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		return nil, fmt.Errorf("decode turn: %w", err)
	}
	return &turn, nil
}

// RoomStatus probes the current participant count of a room. Used as the
// participant-hint source for join recovery after a reconnect.
func (c *Client) RoomStatus(ctx context.Context, rid string) (*typesv1.RoomStatusResponse, error) {
	resp, err := c.get(ctx, "/api/rooms/"+rid+"/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status typesv1.RoomStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode room status: %w", err)
	}
	return &status, nil
}

// get performs a GET request and checks the response status
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return resp, nil
}

// post performs a POST request and checks the response status
func (c *Client) post(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return resp, nil
}
