// internal/clients/billing.go
// Monetization ledger client. Read-only: this engine never writes billing state.

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaidActivity is the ledger summary feeding the tier classifier
type PaidActivity struct {
	UserID           int64 `json:"user_id"`
	PaidInteractions int   `json:"paid_interactions"`
	MeetingsBooked   int   `json:"meetings_booked"`
}

// BillingClient reads per-user monetization totals
type BillingClient interface {
	GetPaidActivity(ctx context.Context, userID int64) (*PaidActivity, error)
}

type httpBillingClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBillingClient creates a billing client backed by the real ledger
func NewHTTPBillingClient(baseURL string, timeout time.Duration) BillingClient {
	return &httpBillingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpBillingClient) GetPaidActivity(ctx context.Context, userID int64) (*PaidActivity, error) {
	url := fmt.Sprintf("%s/internal/v1/users/%d/paid-activity", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing ledger returned status %d", resp.StatusCode)
	}

	var activity PaidActivity
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, fmt.Errorf("failed to decode paid activity: %w", err)
	}

	return &activity, nil
}

// MockBillingClient reports zero paid activity unless configured (development mode)
type MockBillingClient struct {
	Activity map[int64]*PaidActivity
}

// NewMockBillingClient creates a mock billing client
func NewMockBillingClient() *MockBillingClient {
	return &MockBillingClient{Activity: make(map[int64]*PaidActivity)}
}

func (m *MockBillingClient) GetPaidActivity(ctx context.Context, userID int64) (*PaidActivity, error) {
	if a, ok := m.Activity[userID]; ok {
		return a, nil
	}
	return &PaidActivity{UserID: userID}, nil
}
