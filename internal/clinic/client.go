package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lafiyatech/medimint/internal/fault"
)

// Client wraps the clinic backend's REST endpoints, one method per
// (resource, verb) pair. It performs no retries and no caching; every
// failure is classified and surfaced to the orchestrator.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, timeouts).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a REST client rooted at the backend base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the backend's uniform {success, data|error} response.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// call issues one request and decodes the response envelope. The zero
// value of T is returned alongside any fault.
func call[T any](ctx context.Context, c *Client, op, method, path string, payload any) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return zero, fault.Wrap(fault.Validation, op, err, "encode request payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return zero, fault.Wrap(fault.Validation, op, err, "build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fault.Wrap(fault.Network, op, err, "request failed")
	}
	defer resp.Body.Close()

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fault.Wrap(fault.RemoteRejection, op, err, "malformed response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		message := strings.TrimSpace(env.Error)
		if message == "" {
			message = fmt.Sprintf("backend responded %s", resp.Status)
		}
		return zero, fault.New(fault.RemoteRejection, op, "%s", message)
	}
	return env.Data, nil
}

// Slots fetches all slots.
func (c *Client) Slots(ctx context.Context) ([]Slot, error) {
	return call[[]Slot](ctx, c, "clinic.get_slots", http.MethodGet, "/api/slots", nil)
}

// AddSlot creates a slot and returns the backend's authoritative record.
func (c *Client) AddSlot(ctx context.Context, req SlotRequest) (Slot, error) {
	return call[Slot](ctx, c, "clinic.add_slot", http.MethodPost, "/api/slots", req)
}

// UpdateSlot replaces a slot and returns the updated record.
func (c *Client) UpdateSlot(ctx context.Context, id int64, req SlotRequest) (Slot, error) {
	return call[Slot](ctx, c, "clinic.update_slot", http.MethodPut, fmt.Sprintf("/api/slots/%d", id), req)
}

// DeleteSlot removes a slot.
func (c *Client) DeleteSlot(ctx context.Context, id int64) error {
	_, err := call[json.RawMessage](ctx, c, "clinic.delete_slot", http.MethodDelete, fmt.Sprintf("/api/slots/%d", id), nil)
	return err
}

// Appointments fetches all appointments.
func (c *Client) Appointments(ctx context.Context) ([]Appointment, error) {
	return call[[]Appointment](ctx, c, "clinic.get_appointments", http.MethodGet, "/api/appointments", nil)
}

// TodayAppointments fetches appointments scheduled for today.
func (c *Client) TodayAppointments(ctx context.Context) ([]Appointment, error) {
	return call[[]Appointment](ctx, c, "clinic.get_today_appointments", http.MethodGet, "/api/appointments/today", nil)
}

// Alerts fetches the sent-alert log.
func (c *Client) Alerts(ctx context.Context) ([]Alert, error) {
	return call[[]Alert](ctx, c, "clinic.get_alerts", http.MethodGet, "/api/alerts", nil)
}

// SendAlert dispatches an SMS alert and returns the recorded entry.
func (c *Client) SendAlert(ctx context.Context, req AlertRequest) (Alert, error) {
	return call[Alert](ctx, c, "clinic.send_alert", http.MethodPost, "/api/alerts", req)
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	return call[HealthStatus](ctx, c, "clinic.health", http.MethodGet, "/health", nil)
}
