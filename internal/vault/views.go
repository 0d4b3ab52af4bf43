/*
This file contains the read-only views: the conservation sum, per-holder
limits, and a summary snapshot for the display layer. Views are pure reads
and never fail.
*/

package vault

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/types"
)

// Unlimited is the sentinel returned by MaxDeposit/MaxMint while the system
// is active: the vault itself imposes no size limit on entry.
var Unlimited = sdkmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))

// TotalAssets returns the total custodied value: idle balance plus every
// registered adapter's held value, read fresh.
func (v *Vault) TotalAssets() sdkmath.Int {
	return v.totalAssets()
}

// IdleBalance returns the asset held directly by the vault, undeployed.
func (v *Vault) IdleBalance() sdkmath.Int {
	return v.idleBalance()
}

// MaxDeposit returns the largest deposit currently accepted: zero while
// paused, otherwise unlimited.
func (v *Vault) MaxDeposit(types.AccountID) sdkmath.Int {
	if v.access.IsPaused() {
		return sdkmath.ZeroInt()
	}
	return Unlimited
}

// MaxMint returns the largest share mint currently accepted: zero while
// paused, otherwise unlimited.
func (v *Vault) MaxMint(types.AccountID) sdkmath.Int {
	if v.access.IsPaused() {
		return sdkmath.ZeroInt()
	}
	return Unlimited
}

// MaxWithdraw reports the assets a holder could realistically obtain: the
// smaller of their proportional claim and the optimistic liquidity estimate
// (idle balance plus every adapter's held value, assuming full release).
func (v *Vault) MaxWithdraw(holder types.AccountID) sdkmath.Int {
	total := v.totalAssets()
	claim, err := v.ledger.ConvertToAssets(v.ledger.BalanceOf(holder), total, types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt()
	}
	if total.LT(claim) {
		return total
	}
	return claim
}

// MaxRedeem reports the shares a holder could realistically redeem: their
// balance, capped by the shares the optimistic liquidity estimate could
// cover.
func (v *Vault) MaxRedeem(holder types.AccountID) sdkmath.Int {
	balance := v.ledger.BalanceOf(holder)
	total := v.totalAssets()
	liquidityShares, err := v.ledger.ConvertToShares(total, total, types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt()
	}
	if liquidityShares.LT(balance) {
		return liquidityShares
	}
	return balance
}

// AdapterView is a snapshot of one registered adapter for the display layer.
type AdapterView struct {
	ID        string      `json:"id"`
	HeldValue sdkmath.Int `json:"held_value"`
	Cap       sdkmath.Int `json:"cap"`
}

// Summary is a read-only snapshot of the vault for the display layer.
type Summary struct {
	Asset       types.Asset     `json:"asset"`
	TotalAssets sdkmath.Int     `json:"total_assets"`
	IdleBalance sdkmath.Int     `json:"idle_balance"`
	TotalShares sdkmath.Int     `json:"total_shares"`
	Paused      bool            `json:"paused"`
	Owner       types.AccountID `json:"owner"`
	Operator    types.AccountID `json:"operator"`
	Adapters    []AdapterView   `json:"adapters"`
}

// Snapshot assembles the current summary.
func (v *Vault) Snapshot() Summary {
	adapters := make([]AdapterView, 0, v.registry.Len())
	for _, adapter := range v.registry.List() {
		adapters = append(adapters, AdapterView{
			ID:        adapter.ID(),
			HeldValue: adapter.HeldValue(),
			Cap:       v.registry.Cap(adapter.ID()),
		})
	}
	return Summary{
		Asset:       v.asset,
		TotalAssets: v.totalAssets(),
		IdleBalance: v.idleBalance(),
		TotalShares: v.ledger.TotalShares(),
		Paused:      v.access.IsPaused(),
		Owner:       v.access.Owner(),
		Operator:    v.access.Operator(),
		Adapters:    adapters,
	}
}
