package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"eventboard-api/domain"
)

// Client is the dashboard's HTTP binding to the event API. Server failures
// come back as generic errors; the API never exposes driver detail anyway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL, authenticating with
// the signed-in user's bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type mutationResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Event   *domain.Event `json:"event"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// ListEvents fetches the owner's events, newest first.
func (c *Client) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list events: status %d", resp.StatusCode)
	}
	var events []domain.Event
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CreateEvent submits a draft and returns the persisted record.
func (c *Client) CreateEvent(ctx context.Context, draft domain.Draft) (domain.Event, error) {
	body, err := sonic.Marshal(draft)
	if err != nil {
		return domain.Event{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/events", body)
	if err != nil {
		return domain.Event{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Event{}, err
	}
	defer resp.Body.Close()

	var result mutationResult
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Event{}, fmt.Errorf("create event: status %d", resp.StatusCode)
	}
	if !result.Success || result.Event == nil {
		return domain.Event{}, mutationFailure("create event", resp.StatusCode, result.Message)
	}
	return *result.Event, nil
}

// UpdateEvent replaces the record with the edited copy.
func (c *Client) UpdateEvent(ctx context.Context, id string, ev domain.Event) error {
	body, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/api/events/"+url.PathEscape(id), body)
	if err != nil {
		return err
	}
	return c.doMutation("update event", req)
}

// DeleteEvent removes the record.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.doMutation("delete event", req)
}

func (c *Client) doMutation(op string, req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result mutationResult
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: status %d", op, resp.StatusCode)
	}
	if !result.Success {
		return mutationFailure(op, resp.StatusCode, result.Message)
	}
	return nil
}

func mutationFailure(op string, status int, message string) error {
	if message != "" {
		return fmt.Errorf("%s: %s", op, message)
	}
	return fmt.Errorf("%s: status %d", op, status)
}
