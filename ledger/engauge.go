package ledger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Engauge is a client for the Engauge currency API. Balances are adjusted
// with POST /servers/{server}/members/{member}/currency?amount=±N. Engauge
// accounts live under a single configured server, so the guild passed to
// Debit/Credit is not part of the request.
type Engauge struct {
	base     string
	token    string
	serverID string
	client   *http.Client
}

// NewEngauge creates an Engauge ledger client bound to one server
func NewEngauge(token, serverID string) *Engauge {
	return &Engauge{
		base:     "https://engau.ge/api/v1",
		token:    token,
		serverID: serverID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *Engauge) adjust(ctx context.Context, userID int64, amount int64) error {
	endpoint := fmt.Sprintf("%s/servers/%s/members/%d/currency", e.base, e.serverID, userID)

	params := url.Values{}
	params.Set("amount", strconv.FormatInt(amount, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Engauge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientFunds
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// Debit removes amount from the member's currency. The memo is accepted for
// interface parity; Engauge has no field for it.
func (e *Engauge) Debit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	return e.adjust(ctx, userID, -amount)
}

// Credit adds amount to the member's currency
func (e *Engauge) Credit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	return e.adjust(ctx, userID, amount)
}
