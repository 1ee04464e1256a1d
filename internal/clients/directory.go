// internal/clients/directory.go
// Profile directory client. The directory owns identity, photos and
// moderation status; this engine only reads candidate pools from it.

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DirectoryClient supplies the raw candidate pool
type DirectoryClient interface {
	FetchCandidatePool(ctx context.Context, requesterID int64, filters *PoolFilters) ([]*Candidate, error)
	GetAccountMetadata(ctx context.Context, userID int64) (*AccountMetadata, error)
}

type httpDirectoryClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectoryClient creates a directory client backed by the real service
func NewHTTPDirectoryClient(baseURL string, timeout time.Duration) DirectoryClient {
	return &httpDirectoryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpDirectoryClient) FetchCandidatePool(ctx context.Context, requesterID int64, filters *PoolFilters) ([]*Candidate, error) {
	body, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pool filters: %w", err)
	}

	url := fmt.Sprintf("%s/internal/v1/users/%d/candidate-pool", c.baseURL, requesterID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("candidate pool request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("candidate pool request returned status %d", resp.StatusCode)
	}

	var pool []*Candidate
	if err := json.NewDecoder(resp.Body).Decode(&pool); err != nil {
		return nil, fmt.Errorf("failed to decode candidate pool: %w", err)
	}

	return pool, nil
}

func (c *httpDirectoryClient) GetAccountMetadata(ctx context.Context, userID int64) (*AccountMetadata, error) {
	url := fmt.Sprintf("%s/internal/v1/users/%d/account", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("account metadata request returned status %d", resp.StatusCode)
	}

	var meta AccountMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode account metadata: %w", err)
	}

	return &meta, nil
}

// MockDirectoryClient serves a fixed candidate set (development mode)
type MockDirectoryClient struct {
	Candidates []*Candidate
	Accounts   map[int64]*AccountMetadata
}

// NewMockDirectoryClient creates a mock directory client
func NewMockDirectoryClient() *MockDirectoryClient {
	return &MockDirectoryClient{
		Accounts: make(map[int64]*AccountMetadata),
	}
}

func (m *MockDirectoryClient) FetchCandidatePool(ctx context.Context, requesterID int64, filters *PoolFilters) ([]*Candidate, error) {
	pool := make([]*Candidate, 0, len(m.Candidates))
	for _, c := range m.Candidates {
		if c.UserID == requesterID {
			continue
		}
		if filters != nil && filters.Limit > 0 && len(pool) >= filters.Limit {
			break
		}
		pool = append(pool, c)
	}
	return pool, nil
}

func (m *MockDirectoryClient) GetAccountMetadata(ctx context.Context, userID int64) (*AccountMetadata, error) {
	if meta, ok := m.Accounts[userID]; ok {
		return meta, nil
	}
	return &AccountMetadata{UserID: userID, CreatedAt: time.Now().Add(-90 * 24 * time.Hour)}, nil
}
