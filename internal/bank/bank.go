/*
This file contains the asset-transfer primitive the vault core builds on:
a minimal single-asset bank holding per-account balances. The vault's
idle balance and every adapter's custody balance are ordinary bank accounts,
which keeps the conservation invariant externally checkable.
*/

package bank

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount     = errors.New("amount is invalid")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrZeroAddress       = errors.New("account identity is zero")
)

var bankLogger = logger.GetForComponent("bank")

// Bank tracks balances of a single fungible asset per account. It is the only
// component allowed to move asset value between identities.
type Bank struct {
	asset    types.Asset
	balances map[types.AccountID]sdkmath.Int
}

// New creates an empty bank for the given asset.
func New(asset types.Asset) *Bank {
	return &Bank{
		asset:    asset,
		balances: make(map[types.AccountID]sdkmath.Int),
	}
}

// Asset returns the asset identity this bank tracks.
func (b *Bank) Asset() types.Asset {
	return b.asset
}

// Balance returns the current balance of an account. Unknown accounts hold
// zero.
func (b *Bank) Balance(account types.AccountID) sdkmath.Int {
	bal, ok := b.balances[account]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

// SetBalance credits an account directly. Used at system initialization and
// by tests to fund external callers; never called by the vault core.
func (b *Bank) SetBalance(account types.AccountID, amount sdkmath.Int) error {
	if account.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	b.balances[account] = amount
	return nil
}

// Send moves amount from one account to another. It fails without any state
// change if the sender's balance is insufficient.
func (b *Bank) Send(from, to types.AccountID, amount sdkmath.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}

	fromBal := b.Balance(from)
	if fromBal.LT(amount) {
		return errors.Join(ErrInsufficientFunds,
			fmt.Errorf("account %s holds %s, needs %s", from, fromBal, amount))
	}

	b.balances[from] = fromBal.Sub(amount)
	b.balances[to] = b.Balance(to).Add(amount)

	bankLogger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("amount", amount.String()).
		Msg("Transferred asset value")

	return nil
}

// TotalSupply returns the sum over all accounts, used by tests to assert that
// internal bookkeeping never creates or destroys value.
func (b *Bank) TotalSupply() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, bal := range b.balances {
		total = total.Add(bal)
	}
	return total
}

// validateAmount rejects nil and negative amounts.
func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return errors.Join(ErrInvalidAmount, errors.New("amount is nil"))
	}
	if amount.IsNegative() {
		return errors.Join(ErrInvalidAmount, fmt.Errorf("amount is negative: %s", amount))
	}
	return nil
}
