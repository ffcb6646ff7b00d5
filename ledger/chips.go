package ledger

import (
	"context"
	"fmt"

	"crash-go/utils"
)

// Chips backs the ledger with the bot's own chip balances in Postgres, for
// servers that don't run an external economy bot. Balances are global per
// user, not per guild, matching how the chips table is keyed.
type Chips struct{}

// Debit removes amount from the user's chip balance
func (Chips) Debit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	ok, err := utils.TryDebitChips(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit chips: %w", err)
	}
	if !ok {
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the user's chip balance
func (Chips) Credit(ctx context.Context, guildID string, userID int64, amount int64, memo string) error {
	if err := utils.CreditChips(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to credit chips: %w", err)
	}
	return nil
}
