// Package ledger abstracts the currency backends the crash game settles
// against. The engine only ever debits a stake once when a bet is placed and
// credits winnings or refunds back; it never reads balances directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Client adjusts user balances in some currency backend. Neither call is
// idempotent at the transport level; callers are responsible for not issuing
// more of them than intended.
type Client interface {
	// Debit removes amount from the user's balance. Returns
	// ErrInsufficientFunds when the balance does not cover it.
	Debit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error
	// Credit adds amount to the user's balance.
	Credit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error
}

// ErrInsufficientFunds reports a debit larger than the user's balance. No
// balance change happens when it is returned.
var ErrInsufficientFunds = errors.New("insufficient funds")

// APIError is a non-success reply from a remote currency backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger API returned HTTP %d: %s", e.Status, e.Body)
}
