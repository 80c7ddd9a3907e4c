// Package backend is the HTTP client for the storefront collaborator
// endpoints this subsystem consumes: room creation, admin room listing and
// message history. The bearer credential is attached to every call.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"support-chat/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// CreateRoom asks the collaborator for a room pairing this customer with
// the admin pool. Callers must cache the returned room and never re-call
// for a customer whose room id is already known.
func (c *Client) CreateRoom(ctx context.Context, customerID int) (domain.RoomID, error) {
	body, err := json.Marshal(map[string]int{"customerId": customerID})
	if err != nil {
		return 0, err
	}
	var resp struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := c.do(ctx, http.MethodPost, "/rooms", bytes.NewReader(body), &resp); err != nil {
		return 0, fmt.Errorf("create room for customer %d: %w", customerID, err)
	}
	return resp.RoomID, nil
}

// ListRooms returns every support room, admin credential required.
func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// RoomMessages fetches a room's authoritative history, oldest first.
// Admin-scoped.
func (c *Client) RoomMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/rooms/%d/messages", roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("room %d history: %w", roomID, err)
	}
	return messages, nil
}

// CustomerMessages fetches the history of the customer's own room, oldest
// first.
func (c *Client) CustomerMessages(ctx context.Context, customerID int, roomID domain.RoomID) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/customers/%d/rooms/%d/messages", customerID, roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("customer %d room %d history: %w", customerID, roomID, err)
	}
	return messages, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("collaborator call", "method", method, "path", path,
		"status", resp.StatusCode, "in", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
