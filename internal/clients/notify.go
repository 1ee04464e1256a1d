// internal/clients/notify.go
// Notification dispatcher client. Fire-and-forget, informational only:
// a failed dispatch is logged and dropped, never retried on the caller's time.

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Dispatch event types
const (
	EventPreferencesActive = "preferences_active"
	EventTierChanged       = "tier_changed"
)

// DispatchEvent is an informational event for the notification pipeline
type DispatchEvent struct {
	UserID     int64             `json:"user_id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NotifyClient hands events to the notification dispatcher
type NotifyClient interface {
	Dispatch(event *DispatchEvent)
}

type httpNotifyClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNotifyClient creates a dispatcher client backed by the real service
func NewHTTPNotifyClient(baseURL string, timeout time.Duration) NotifyClient {
	return &httpNotifyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpNotifyClient) Dispatch(event *DispatchEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	go func() {
		body, err := json.Marshal(event)
		if err != nil {
			log.Printf("notify: failed to encode event: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
		defer cancel()

		url := fmt.Sprintf("%s/internal/v1/events", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			log.Printf("notify: failed to build request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			log.Printf("notify: dispatch failed: %v", err)
			return
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Printf("notify: dispatcher returned status %d for %s", resp.StatusCode, event.Type)
		}
	}()
}

// MockNotifyClient records dispatched events (development mode and tests)
type MockNotifyClient struct {
	mu     sync.Mutex
	Events []*DispatchEvent
}

// NewMockNotifyClient creates a mock dispatcher
func NewMockNotifyClient() *MockNotifyClient {
	return &MockNotifyClient{}
}

func (m *MockNotifyClient) Dispatch(event *DispatchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	m.Events = append(m.Events, event)
}

// Dispatched returns a snapshot of recorded events
func (m *MockNotifyClient) Dispatched() []*DispatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DispatchEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
