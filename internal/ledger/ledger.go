/*
This file contains the share ledger: fungible ownership-unit bookkeeping and
the share/asset conversion math. The ledger knows nothing about routing or
custody; the vault passes the current custodied total into every conversion.
*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount      = errors.New("amount is invalid")
	ErrZeroAddress        = errors.New("holder identity is zero")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrAllowanceExceeded  = errors.New("allowance exceeded")
)

// VirtualOffset is added to both sides of the conversion ratio. It pins the
// genesis exchange rate at 1:1 and bounds how far a first depositor can skew
// the rate with a direct donation before any real shares exist.
const VirtualOffset = 1000

var ledgerLogger = logger.GetForComponent("share_ledger")

// ShareLedger tracks issued ownership units per holder, the total issued
// supply, and spend allowances between holders.
type ShareLedger struct {
	totalShares sdkmath.Int
	balances    map[types.AccountID]sdkmath.Int
	allowances  map[types.AccountID]map[types.AccountID]sdkmath.Int
}

// New creates an empty share ledger.
func New() *ShareLedger {
	return &ShareLedger{
		totalShares: sdkmath.ZeroInt(),
		balances:    make(map[types.AccountID]sdkmath.Int),
		allowances:  make(map[types.AccountID]map[types.AccountID]sdkmath.Int),
	}
}

// TotalShares returns the sum of all issued ownership units.
func (l *ShareLedger) TotalShares() sdkmath.Int {
	return l.totalShares
}

// BalanceOf returns the units held by a holder. Unknown holders hold zero.
func (l *ShareLedger) BalanceOf(holder types.AccountID) sdkmath.Int {
	bal, ok := l.balances[holder]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

// ConvertToShares translates an asset amount into ownership units at the
// current exchange rate:
//
//	shares = assets * (totalShares + VirtualOffset) / (totalAssets + VirtualOffset)
//
// The caller picks the rounding direction: down when computing shares owed to
// a depositor, up when computing shares to burn for a requested asset amount.
func (l *ShareLedger) ConvertToShares(assets, totalAssets sdkmath.Int, rounding types.Rounding) (sdkmath.Int, error) {
	if err := validateConversionInputs(assets, totalAssets); err != nil {
		return sdkmath.ZeroInt(), err
	}

	offset := sdkmath.NewInt(VirtualOffset)
	numerator := assets.Mul(l.totalShares.Add(offset))
	denominator := totalAssets.Add(offset)

	return divide(numerator, denominator, rounding), nil
}

// ConvertToAssets translates ownership units into an asset amount at the
// current exchange rate, the inverse ratio of ConvertToShares.
func (l *ShareLedger) ConvertToAssets(shares, totalAssets sdkmath.Int, rounding types.Rounding) (sdkmath.Int, error) {
	if err := validateConversionInputs(shares, totalAssets); err != nil {
		return sdkmath.ZeroInt(), err
	}

	offset := sdkmath.NewInt(VirtualOffset)
	numerator := shares.Mul(totalAssets.Add(offset))
	denominator := l.totalShares.Add(offset)

	return divide(numerator, denominator, rounding), nil
}

// Mint issues units to a holder and grows the total supply.
func (l *ShareLedger) Mint(holder types.AccountID, amount sdkmath.Int) error {
	if holder.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	l.balances[holder] = l.BalanceOf(holder).Add(amount)
	l.totalShares = l.totalShares.Add(amount)

	ledgerLogger.Debug().
		Str("holder", string(holder)).
		Str("amount", amount.String()).
		Str("totalShares", l.totalShares.String()).
		Msg("Minted shares")

	return nil
}

// Burn destroys units held by a holder and shrinks the total supply. It fails
// with ErrInsufficientShares if the burn amount exceeds the holder's balance.
func (l *ShareLedger) Burn(holder types.AccountID, amount sdkmath.Int) error {
	if holder.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	balance := l.BalanceOf(holder)
	if balance.LT(amount) {
		return errors.Join(ErrInsufficientShares,
			fmt.Errorf("holder %s has %s shares, burn requested %s", holder, balance, amount))
	}

	l.balances[holder] = balance.Sub(amount)
	l.totalShares = l.totalShares.Sub(amount)

	ledgerLogger.Debug().
		Str("holder", string(holder)).
		Str("amount", amount.String()).
		Str("totalShares", l.totalShares.String()).
		Msg("Burned shares")

	return nil
}

// Transfer moves units between holders without touching the total supply.
func (l *ShareLedger) Transfer(from, to types.AccountID, amount sdkmath.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	balance := l.BalanceOf(from)
	if balance.LT(amount) {
		return errors.Join(ErrInsufficientShares,
			fmt.Errorf("holder %s has %s shares, transfer requested %s", from, balance, amount))
	}

	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.BalanceOf(to).Add(amount)
	return nil
}

// Approve sets the spend allowance granted by owner to spender, replacing any
// previous allowance.
func (l *ShareLedger) Approve(owner, spender types.AccountID, amount sdkmath.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	grants, ok := l.allowances[owner]
	if !ok {
		grants = make(map[types.AccountID]sdkmath.Int)
		l.allowances[owner] = grants
	}
	grants[spender] = amount
	return nil
}

// Allowance returns the remaining spend allowance granted by owner to spender.
func (l *ShareLedger) Allowance(owner, spender types.AccountID) sdkmath.Int {
	grants, ok := l.allowances[owner]
	if !ok {
		return sdkmath.ZeroInt()
	}
	allowance, ok := grants[spender]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return allowance
}

// SpendAllowance consumes part of an allowance. It fails with
// ErrAllowanceExceeded without any state change if the allowance is too small.
func (l *ShareLedger) SpendAllowance(owner, spender types.AccountID, amount sdkmath.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	allowance := l.Allowance(owner, spender)
	if allowance.LT(amount) {
		return errors.Join(ErrAllowanceExceeded,
			fmt.Errorf("spender %s allowed %s by %s, requested %s", spender, allowance, owner, amount))
	}

	l.allowances[owner][spender] = allowance.Sub(amount)
	return nil
}

// divide performs integer division in the requested rounding direction. Both
// operands are non-negative and the denominator is at least VirtualOffset.
func divide(numerator, denominator sdkmath.Int, rounding types.Rounding) sdkmath.Int {
	if rounding == types.RoundUp {
		return numerator.Add(denominator).Sub(sdkmath.OneInt()).Quo(denominator)
	}
	return numerator.Quo(denominator)
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

// validateConversionInputs rejects nil or negative conversion operands.
func validateConversionInputs(amount, totalAssets sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if totalAssets.IsNil() || totalAssets.IsNegative() {
		return errors.Join(ErrInvalidAmount, errors.New("total custodied value is invalid"))
	}
	return nil
}
