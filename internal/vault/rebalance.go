/*
This file contains the rebalance operation: moving capital between two
registered adapters while provably preserving the total custodied value.
*/

package vault

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/strategy"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Rebalance releases amount from one adapter and deposits the released value
// into another. The source releasing less than asked is slippage, a non-fatal
// observation; the shortfall is simply what gets deposited forward. A change
// in the conservation sum across the operation is fatal: it means an adapter
// claimed to hold or release value it did not actually have, and the whole
// operation is rejected.
func (v *Vault) Rebalance(caller types.AccountID, fromID, toID string, amount sdkmath.Int) (sdkmath.Int, error) {
	exit, err := v.enter("rebalance")
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer exit()

	from, to, err := v.validateRebalance(caller, fromID, toID, amount)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	totalBefore := v.totalAssets()

	released, err := from.Release(amount)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("source adapter %s failed to release: %w", fromID, err)
	}

	slippage := amount.Sub(released)
	if slippage.IsPositive() {
		vaultLogger.Warn().
			Str("from", fromID).
			Str("requested", amount.String()).
			Str("released", released.String()).
			Str("slippage", slippage.String()).
			Msg("Source adapter released less than requested")
	}

	if released.IsPositive() {
		if err := to.Accept(released); err != nil {
			// The released value sits in the idle balance; push it back to the
			// source so the operation leaves no trace.
			if restoreErr := from.Accept(released); restoreErr != nil {
				return sdkmath.ZeroInt(), errors.Join(ErrConservationViolated,
					fmt.Errorf("destination %s rejected capital (%w) and source %s refused restore (%w)",
						toID, err, fromID, restoreErr))
			}
			return sdkmath.ZeroInt(), fmt.Errorf("destination adapter %s failed to accept: %w", toID, err)
		}
	}

	totalAfter := v.totalAssets()
	if !totalAfter.Equal(totalBefore) {
		vaultLogger.Error().
			Str("before", totalBefore.String()).
			Str("after", totalAfter.String()).
			Str("from", fromID).
			Str("to", toID).
			Msg("FATAL: custodied value changed during rebalance")
		violation := fmt.Errorf("custodied value was %s before and %s after moving %s from %s to %s",
			totalBefore, totalAfter, released, fromID, toID)
		// The fatal operation must not stay partially applied: claw the moved
		// value back out of the destination and restore the source.
		if released.IsPositive() {
			recovered, releaseErr := to.Release(released)
			if releaseErr != nil {
				return sdkmath.ZeroInt(), errors.Join(ErrConservationViolated, violation,
					fmt.Errorf("destination %s refused to return capital: %w", toID, releaseErr))
			}
			if recovered.IsPositive() {
				if restoreErr := from.Accept(recovered); restoreErr != nil {
					return sdkmath.ZeroInt(), errors.Join(ErrConservationViolated, violation,
						fmt.Errorf("source %s refused restore: %w", fromID, restoreErr))
				}
			}
		}
		return sdkmath.ZeroInt(), errors.Join(ErrConservationViolated, violation)
	}

	v.notifier.RebalanceRecorded(types.RebalanceEvent{
		Caller:    caller,
		From:      fromID,
		To:        toID,
		Requested: amount,
		Released:  released,
		Slippage:  slippage,
		Timestamp: time.Now().UTC(),
	})

	vaultLogger.Info().
		Str("caller", string(caller)).
		Str("from", fromID).
		Str("to", toID).
		Str("moved", released.String()).
		Msg("Rebalance completed")

	return released, nil
}

// validateRebalance checks every rebalance precondition and resolves the two
// adapters. No state changes on failure.
func (v *Vault) validateRebalance(caller types.AccountID, fromID, toID string, amount sdkmath.Int) (strategy.Adapter, strategy.Adapter, error) {
	if err := v.access.RequireOperator(caller); err != nil {
		return nil, nil, err
	}
	if v.access.IsPaused() {
		return nil, nil, ErrPaused
	}
	if fromID == toID {
		return nil, nil, errors.Join(ErrSameAdapter, fmt.Errorf("adapter %s", fromID))
	}
	if amount.IsNil() || amount.IsNegative() {
		return nil, nil, fmt.Errorf("amount %s is invalid", amount)
	}
	if amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}

	source, ok := v.registry.Get(fromID)
	if !ok {
		return nil, nil, errors.Join(strategy.ErrUnknownAdapter, fmt.Errorf("source adapter %s", fromID))
	}
	destination, ok := v.registry.Get(toID)
	if !ok {
		return nil, nil, errors.Join(strategy.ErrUnknownAdapter, fmt.Errorf("destination adapter %s", toID))
	}

	if held := source.HeldValue(); held.LT(amount) {
		return nil, nil, errors.Join(ErrInsufficientAdapterBalance,
			fmt.Errorf("source %s holds %s, requested %s", fromID, held, amount))
	}

	cap := v.registry.Cap(toID)
	if destination.HeldValue().Add(amount).GT(cap) {
		return nil, nil, errors.Join(ErrCapExceeded,
			fmt.Errorf("destination %s holds %s with cap %s, refusing additional %s",
				toID, destination.HeldValue(), cap, amount))
	}

	return source, destination, nil
}
