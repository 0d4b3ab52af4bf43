/*
This file contains the owner/operator administrative surface: registry
mutations, pause control, and role handover. Each mutation emits a structured
notification for the display layer.
*/

package vault

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/strategy"
	"github.com/custodia-labs/vaultd/internal/types"
)

// AddStrategy registers a routing destination with its allocation cap. Owner
// only; the registry rejects duplicates, zero caps, and asset mismatches.
func (v *Vault) AddStrategy(caller types.AccountID, adapter strategy.Adapter, cap sdkmath.Int) error {
	exit, err := v.enter("add_strategy")
	if err != nil {
		return err
	}
	defer exit()

	if err := v.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := v.registry.Add(adapter, cap); err != nil {
		return err
	}

	v.notifier.RegistryChanged(types.RegistryEvent{
		Caller:    caller,
		Action:    types.RegistryActionAdd,
		Adapter:   adapter.ID(),
		Cap:       cap,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// RemoveStrategy deregisters a routing destination. Owner only; refused while
// the adapter still holds custodied value.
func (v *Vault) RemoveStrategy(caller types.AccountID, adapterID string) error {
	exit, err := v.enter("remove_strategy")
	if err != nil {
		return err
	}
	defer exit()

	if err := v.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := v.registry.Remove(adapterID); err != nil {
		return err
	}

	v.notifier.RegistryChanged(types.RegistryEvent{
		Caller:    caller,
		Action:    types.RegistryActionRemove,
		Adapter:   adapterID,
		Cap:       sdkmath.ZeroInt(),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// UpdateCap replaces an adapter's allocation cap. Owner only. An adapter
// already above the new cap is not rebalanced; only future growth is blocked.
func (v *Vault) UpdateCap(caller types.AccountID, adapterID string, cap sdkmath.Int) error {
	exit, err := v.enter("update_cap")
	if err != nil {
		return err
	}
	defer exit()

	if err := v.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := v.registry.UpdateCap(adapterID, cap); err != nil {
		return err
	}

	v.notifier.RegistryChanged(types.RegistryEvent{
		Caller:    caller,
		Action:    types.RegistryActionUpdateCap,
		Adapter:   adapterID,
		Cap:       cap,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Pause flips the system into the Paused state. Operator or owner. Deposits
// and rebalances are refused while paused; withdrawals never are.
func (v *Vault) Pause(caller types.AccountID) error {
	if err := v.access.Pause(caller); err != nil {
		return err
	}
	v.notifier.PauseChanged(types.PauseEvent{
		Caller:    caller,
		Paused:    true,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Unpause returns the system to the Active state. Owner only.
func (v *Vault) Unpause(caller types.AccountID) error {
	if err := v.access.Unpause(caller); err != nil {
		return err
	}
	v.notifier.PauseChanged(types.PauseEvent{
		Caller:    caller,
		Paused:    false,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// SetOperator hands routing power to a new identity. Owner only.
func (v *Vault) SetOperator(caller, operator types.AccountID) error {
	return v.access.SetOperator(caller, operator)
}

// SetOwner hands full administrative power to a new identity. Owner only.
func (v *Vault) SetOwner(caller, owner types.AccountID) error {
	return v.access.SetOwner(caller, owner)
}

// Approve grants spender the right to burn up to shares of caller's position
// through Withdraw/Redeem.
func (v *Vault) Approve(caller, spender types.AccountID, shares sdkmath.Int) error {
	return v.ledger.Approve(caller, spender, shares)
}

// TransferShares moves ownership units between holders without touching
// custodied value.
func (v *Vault) TransferShares(caller, to types.AccountID, shares sdkmath.Int) error {
	return v.ledger.Transfer(caller, to, shares)
}
