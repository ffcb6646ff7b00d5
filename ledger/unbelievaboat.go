package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UnbelievaBoat is a minimal client for the UnbelievaBoat economy API.
// Balance deltas go through PATCH /v1/guilds/{guild}/users/{user} with a
// signed "cash" field; the bank balance is left alone.
type UnbelievaBoat struct {
	base   string
	token  string
	client *http.Client
}

// NewUnbelievaBoat creates an UnbelievaBoat ledger client
func NewUnbelievaBoat(token string) *UnbelievaBoat {
	return &UnbelievaBoat{
		base:  "https://unbelievaboat.com/api/v1",
		token: token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type unbPatchRequest struct {
	Cash   int64  `json:"cash"`
	Reason string `json:"reason"`
}

func (u *UnbelievaBoat) adjust(ctx context.Context, guildID string, userID int64, delta int64, memo string) error {
	url := fmt.Sprintf("%s/guilds/%s/users/%d", u.base, guildID, userID)

	payload, err := json.Marshal(unbPatchRequest{Cash: delta, Reason: memo})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// The API expects the raw token, no Bearer/Bot prefix.
	req.Header.Set("Authorization", u.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach UnbelievaBoat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// The API reports an uncovered debit as a plain 400; sniff the
		// message to tell it apart from real errors.
		msg := strings.ToLower(string(body))
		if strings.Contains(msg, "insufficient") || strings.Contains(msg, "not enough") {
			return ErrInsufficientFunds
		}
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// Debit removes amount from the user's cash balance
func (u *UnbelievaBoat) Debit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	return u.adjust(ctx, guildID, userID, -amount, memo)
}

// Credit adds amount to the user's cash balance
func (u *UnbelievaBoat) Credit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	return u.adjust(ctx, guildID, userID, amount, memo)
}
