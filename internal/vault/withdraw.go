/*
This file contains the withdrawal cascade: sourcing liquidity from the idle
balance first, then from registered adapters in registration order, tolerating
per-adapter hard failures, and settling on the actually delivered amount.
Withdraw and Redeem are never gated by the pause flag.
*/

package vault

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Withdraw delivers up to requestedAssets to the receiver, burning shares from
// owner. The request is capped at the owner's proportional claim; shares
// burned are recomputed from the actually delivered amount, so a partial
// fulfillment never burns shares for assets that were not delivered. Callers
// other than owner consume a share allowance.
//
// Delivering less than requested is a valid, non-error outcome; the returned
// amount and the per-adapter failure records tell the caller what happened.
func (v *Vault) Withdraw(caller, receiver, owner types.AccountID, requestedAssets sdkmath.Int) (sdkmath.Int, []types.AdapterFailure, error) {
	exit, err := v.enter("withdraw")
	if err != nil {
		return sdkmath.ZeroInt(), nil, err
	}
	defer exit()

	if err := validateExitInputs(caller, receiver, owner, requestedAssets); err != nil {
		return sdkmath.ZeroInt(), nil, err
	}

	// Conversion happens against the pre-withdrawal totals. Adapter releases
	// move value into the idle balance but never change the conservation sum,
	// so the rate is stable across the cascade.
	totalBefore := v.totalAssets()

	// The request is served only up to the owner's proportional claim; asking
	// for more is partial fulfillment against the claim, not an error.
	claim, err := v.ledger.ConvertToAssets(v.ledger.BalanceOf(owner), totalBefore, types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt(), nil, fmt.Errorf("claim conversion failed: %w", err)
	}
	effectiveAssets := requestedAssets
	if claim.LT(effectiveAssets) {
		effectiveAssets = claim
	}
	if !effectiveAssets.IsPositive() {
		return sdkmath.ZeroInt(), nil, errors.Join(ledger.ErrInsufficientShares,
			fmt.Errorf("owner %s has no redeemable claim", owner))
	}

	// Allowance and balance are verified against the tentative upper bound
	// before any liquidity moves, so a refused exit changes nothing.
	tentativeShares, err := v.ledger.ConvertToShares(effectiveAssets, totalBefore, types.RoundUp)
	if err != nil {
		return sdkmath.ZeroInt(), nil, fmt.Errorf("share conversion failed: %w", err)
	}
	if err := v.precheckExit(caller, owner, tentativeShares); err != nil {
		return sdkmath.ZeroInt(), nil, err
	}

	released, failures := v.cascade(effectiveAssets)

	actualAssets := effectiveAssets
	if released.LT(actualAssets) {
		actualAssets = released
	}

	sharesToBurn, err := v.ledger.ConvertToShares(actualAssets, totalBefore, types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt(), failures, fmt.Errorf("share conversion failed: %w", err)
	}

	if err := v.settleExit(caller, receiver, owner, actualAssets, sharesToBurn); err != nil {
		return sdkmath.ZeroInt(), failures, err
	}

	v.notifier.WithdrawRecorded(types.WithdrawEvent{
		Caller:          caller,
		Receiver:        receiver,
		Owner:           owner,
		RequestedAssets: requestedAssets,
		ActualAssets:    actualAssets,
		SharesBurned:    sharesToBurn,
		Partial:         actualAssets.LT(requestedAssets),
		AdapterFailures: failures,
		Timestamp:       time.Now().UTC(),
	})

	vaultLogger.Info().
		Str("owner", string(owner)).
		Str("requested", requestedAssets.String()).
		Str("actual", actualAssets.String()).
		Str("sharesBurned", sharesToBurn.String()).
		Int("adapterFailures", len(failures)).
		Msg("Withdrawal completed")

	return actualAssets, failures, nil
}

// Redeem exits a share position: the asset entitlement is computed by rounding
// down, the identical cascade runs, and the full requested shares are burned
// even when available liquidity reduces the delivered amount — the holder
// explicitly asked to exit that position.
func (v *Vault) Redeem(caller, receiver, owner types.AccountID, shares sdkmath.Int) (sdkmath.Int, []types.AdapterFailure, error) {
	exit, err := v.enter("redeem")
	if err != nil {
		return sdkmath.ZeroInt(), nil, err
	}
	defer exit()

	if err := validateExitInputs(caller, receiver, owner, shares); err != nil {
		return sdkmath.ZeroInt(), nil, err
	}
	if err := v.precheckExit(caller, owner, shares); err != nil {
		return sdkmath.ZeroInt(), nil, err
	}

	totalBefore := v.totalAssets()
	entitlement, err := v.ledger.ConvertToAssets(shares, totalBefore, types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt(), nil, fmt.Errorf("asset conversion failed: %w", err)
	}

	released, failures := v.cascade(entitlement)

	actualAssets := entitlement
	if released.LT(actualAssets) {
		actualAssets = released
	}

	if err := v.settleExit(caller, receiver, owner, actualAssets, shares); err != nil {
		return sdkmath.ZeroInt(), failures, err
	}

	v.notifier.WithdrawRecorded(types.WithdrawEvent{
		Caller:          caller,
		Receiver:        receiver,
		Owner:           owner,
		RequestedAssets: entitlement,
		ActualAssets:    actualAssets,
		SharesBurned:    shares,
		Partial:         actualAssets.LT(entitlement),
		AdapterFailures: failures,
		Timestamp:       time.Now().UTC(),
	})

	vaultLogger.Info().
		Str("owner", string(owner)).
		Str("shares", shares.String()).
		Str("entitlement", entitlement.String()).
		Str("actual", actualAssets.String()).
		Int("adapterFailures", len(failures)).
		Msg("Redemption completed")

	return actualAssets, failures, nil
}

// cascade gathers liquidity for a requested amount: the idle balance first,
// then each registered adapter in registration order. A hard Release failure
// is recorded and skipped; the cascade never aborts on one bad adapter.
// It returns the total now available in the idle balance.
func (v *Vault) cascade(requested sdkmath.Int) (sdkmath.Int, []types.AdapterFailure) {
	available := v.idleBalance()
	if available.GTE(requested) {
		return available, nil
	}

	var failures []types.AdapterFailure
	for _, adapter := range v.registry.List() {
		needed := requested.Sub(available)
		if !needed.IsPositive() {
			break
		}

		released, err := adapter.Release(needed)
		if err != nil {
			failure := types.AdapterFailure{
				Adapter:   adapter.ID(),
				Requested: needed,
				Reason:    err.Error(),
			}
			failures = append(failures, failure)
			v.notifier.AdapterFailed(failure)
			vaultLogger.Error().
				Err(err).
				Str("adapter", adapter.ID()).
				Str("needed", needed.String()).
				Msg("Adapter release failed, continuing cascade")
			continue
		}

		available = available.Add(released)
	}

	return available, failures
}

// precheckExit verifies the owner's share balance and, for a third-party
// caller, the allowance cover the exit before any liquidity moves: a refused
// exit must leave every adapter and the idle balance untouched.
func (v *Vault) precheckExit(caller, owner types.AccountID, shares sdkmath.Int) error {
	if balance := v.ledger.BalanceOf(owner); balance.LT(shares) {
		return errors.Join(ledger.ErrInsufficientShares,
			fmt.Errorf("owner %s holds %s shares, exit needs %s", owner, balance, shares))
	}
	if caller != owner {
		if allowance := v.ledger.Allowance(owner, caller); allowance.LT(shares) {
			return errors.Join(ledger.ErrAllowanceExceeded,
				fmt.Errorf("spender %s allowed %s by %s, exit needs %s", caller, allowance, owner, shares))
		}
	}
	return nil
}

// settleExit consumes allowance when needed, burns shares, and pays out the
// delivered assets. Ledger state changes before the asset transfer.
func (v *Vault) settleExit(caller, receiver, owner types.AccountID, assets, shares sdkmath.Int) error {
	if caller != owner {
		if err := v.ledger.SpendAllowance(owner, caller, shares); err != nil {
			return err
		}
	}
	if err := v.ledger.Burn(owner, shares); err != nil {
		return err
	}
	if err := v.bank.Send(v.account, receiver, assets); err != nil {
		return fmt.Errorf("payout transfer failed: %w", err)
	}
	return nil
}

// validateExitInputs checks the shared withdraw/redeem preconditions. The
// pause flag is deliberately absent: exits are never refused while paused.
func validateExitInputs(caller, receiver, owner types.AccountID, amount sdkmath.Int) error {
	if caller.IsZero() || receiver.IsZero() || owner.IsZero() {
		return ErrZeroAddress
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("amount %s is invalid", amount)
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	return nil
}
