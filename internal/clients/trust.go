// internal/clients/trust.go
// Account/trust service client. Safety gating inputs only.

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TrustClient answers safety questions about accounts
type TrustClient interface {
	IsBannedOrSuspended(ctx context.Context, userID int64) (bool, error)
	IsMutuallyBlocked(ctx context.Context, a, b int64) (bool, error)
}

type httpTrustClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTrustClient creates a trust client backed by the real service
func NewHTTPTrustClient(baseURL string, timeout time.Duration) TrustClient {
	return &httpTrustClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpTrustClient) IsBannedOrSuspended(ctx context.Context, userID int64) (bool, error) {
	url := fmt.Sprintf("%s/internal/v1/users/%d/status", c.baseURL, userID)
	return c.getBool(ctx, url, "banned_or_suspended")
}

func (c *httpTrustClient) IsMutuallyBlocked(ctx context.Context, a, b int64) (bool, error) {
	url := fmt.Sprintf("%s/internal/v1/blocks/check?a=%d&b=%d", c.baseURL, a, b)
	return c.getBool(ctx, url, "blocked")
}

func (c *httpTrustClient) getBool(ctx context.Context, url, field string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("trust service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("trust service returned status %d", resp.StatusCode)
	}

	var payload map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("failed to decode trust response: %w", err)
	}

	return payload[field], nil
}

// MockTrustClient allows everything unless configured otherwise (development mode)
type MockTrustClient struct {
	Banned  map[int64]bool
	Blocked map[[2]int64]bool
}

// NewMockTrustClient creates a mock trust client
func NewMockTrustClient() *MockTrustClient {
	return &MockTrustClient{
		Banned:  make(map[int64]bool),
		Blocked: make(map[[2]int64]bool),
	}
}

func (m *MockTrustClient) IsBannedOrSuspended(ctx context.Context, userID int64) (bool, error) {
	return m.Banned[userID], nil
}

func (m *MockTrustClient) IsMutuallyBlocked(ctx context.Context, a, b int64) (bool, error) {
	if a > b {
		a, b = b, a
	}
	return m.Blocked[[2]int64{a, b}], nil
}

// BlockPair marks two users as mutually blocked in the mock
func (m *MockTrustClient) BlockPair(a, b int64) {
	if a > b {
		a, b = b, a
	}
	m.Blocked[[2]int64{a, b}] = true
}
