// Package settle moves won stakes out of the game. It speaks to an
// external payout service over HTTP; the Local settler exists for tests
// and offline play.
package settle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const requestTimeout = 10 * time.Second

// HTTPSettler posts settlement requests to a payout endpoint and returns
// the reference it issues.
type HTTPSettler struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSettler builds a settler against the given payout endpoint.
func NewHTTPSettler(endpoint string) *HTTPSettler {
	return &HTTPSettler{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type settleRequest struct {
	PlayerID string  `json:"playerId"`
	Address  string  `json:"address"`
	Amount   float64 `json:"amount"`
}

type settleResponse struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Settle submits one payout. A non-2xx response or a response without a
// reference is a failed settlement.
func (s *HTTPSettler) Settle(playerID, address string, amount float64) (string, error) {
	body, err := json.Marshal(settleRequest{PlayerID: playerID, Address: address, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("encode settlement request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("settlement request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read settlement response: %w", err)
	}

	var decoded settleResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode settlement response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decoded.Error != "" {
			return "", fmt.Errorf("settlement rejected: %s", decoded.Error)
		}
		return "", fmt.Errorf("settlement rejected with status %d", resp.StatusCode)
	}
	if decoded.Reference == "" {
		return "", fmt.Errorf("settlement response missing reference")
	}
	return decoded.Reference, nil
}

// Local approves every settlement and records it in memory. It backs
// local play and tests where no payout service exists.
type Local struct {
	mu      sync.Mutex
	Payouts []Payout
}

// Payout is one locally recorded settlement.
type Payout struct {
	PlayerID  string
	Address   string
	Amount    float64
	Reference string
}

// NewLocal builds an in-memory settler.
func NewLocal() *Local {
	return &Local{}
}

// Settle records the payout and fabricates a reference.
func (l *Local) Settle(playerID, address string, amount float64) (string, error) {
	reference := "local-" + uuid.NewString()
	l.mu.Lock()
	l.Payouts = append(l.Payouts, Payout{
		PlayerID:  playerID,
		Address:   address,
		Amount:    amount,
		Reference: reference,
	})
	l.mu.Unlock()
	return reference, nil
}
