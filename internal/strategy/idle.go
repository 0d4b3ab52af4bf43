package strategy

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/bank"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

var idleLogger = logger.GetForComponent("idle_strategy")

// IdleStrategy is the reference adapter: it holds capital in its own bank
// account without deploying it anywhere. Zero yield is a correct, real
// outcome, not a placeholder.
type IdleStrategy struct {
	id      string
	asset   types.Asset
	bank    *bank.Bank
	account types.AccountID
	vault   types.AccountID
}

var _ Adapter = (*IdleStrategy)(nil)

// NewIdleStrategy creates an idle adapter custodying value in its own bank
// account. Accept pulls from the vault account; Release pushes back to it.
func NewIdleStrategy(id string, asset types.Asset, b *bank.Bank, account, vault types.AccountID) (*IdleStrategy, error) {
	if id == "" {
		return nil, errors.New("adapter id cannot be empty")
	}
	if b == nil {
		return nil, errors.New("bank cannot be nil")
	}
	if account.IsZero() || vault.IsZero() {
		return nil, errors.New("custody and vault accounts cannot be zero")
	}
	if account == vault {
		return nil, errors.New("custody account must differ from the vault account")
	}
	return &IdleStrategy{
		id:      id,
		asset:   asset,
		bank:    b,
		account: account,
		vault:   vault,
	}, nil
}

// ID returns the adapter identity.
func (s *IdleStrategy) ID() string {
	return s.id
}

// AssetID returns the asset this adapter custodies.
func (s *IdleStrategy) AssetID() types.Asset {
	return s.asset
}

// Accept takes custody of amount from the vault account.
func (s *IdleStrategy) Accept(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errors.Join(ErrInvalidAmount, fmt.Errorf("accept amount %s", amount))
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if err := s.bank.Send(s.vault, s.account, amount); err != nil {
		return fmt.Errorf("idle adapter %s failed to take custody: %w", s.id, err)
	}
	idleLogger.Debug().
		Str("adapter", s.id).
		Str("amount", amount.String()).
		Str("held", s.HeldValue().String()).
		Msg("Accepted capital")
	return nil
}

// Release returns min(amount, held) to the vault account. Requests beyond the
// current holding are partially fulfilled, never rejected.
func (s *IdleStrategy) Release(amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidAmount, fmt.Errorf("release amount %s", amount))
	}

	held := s.HeldValue()
	out := amount
	if held.LT(out) {
		out = held
	}
	if out.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	if err := s.bank.Send(s.account, s.vault, out); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("idle adapter %s failed to release custody: %w", s.id, err)
	}
	idleLogger.Debug().
		Str("adapter", s.id).
		Str("requested", amount.String()).
		Str("released", out.String()).
		Msg("Released capital")
	return out, nil
}

// HeldValue reports the adapter's bank balance, read fresh on every call.
func (s *IdleStrategy) HeldValue() sdkmath.Int {
	return s.bank.Balance(s.account)
}
