package vault_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultd/internal/access"
	"github.com/custodia-labs/vaultd/internal/bank"
	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/strategy"
	"github.com/custodia-labs/vaultd/internal/types"
	"github.com/custodia-labs/vaultd/internal/vault"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	b := bank.New(testAsset)

	_, err := vault.New(vault.Config{Asset: "", Account: vaultAcc, Bank: b, Owner: ownerAcc})
	require.Error(t, err)

	_, err = vault.New(vault.Config{Asset: testAsset, Account: types.ZeroAccount, Bank: b, Owner: ownerAcc})
	require.ErrorIs(t, err, vault.ErrZeroAddress)

	_, err = vault.New(vault.Config{Asset: testAsset, Account: vaultAcc, Bank: nil, Owner: ownerAcc})
	require.Error(t, err)

	_, err = vault.New(vault.Config{Asset: testAsset, Account: vaultAcc, Bank: b, Owner: types.ZeroAccount})
	require.ErrorIs(t, err, access.ErrZeroAddress)

	foreign := bank.New(types.Asset("uatom"))
	_, err = vault.New(vault.Config{Asset: testAsset, Account: vaultAcc, Bank: foreign, Owner: ownerAcc})
	require.Error(t, err)
}

// TestDeposit_GenesisMintsOneToOne covers the bootstrap flow: a first deposit
// of 1000 mints exactly 1000 shares, and routing the capital into an adapter
// leaves the custodied total untouched.
func TestDeposit_GenesisMintsOneToOne(t *testing.T) {
	f := newFixture(t)
	adapterA := f.addIdle("adapter-a", 1_000_000)

	shares := f.deposit(alice, 1000)

	require.Equal(t, sdkmath.NewInt(1000), shares)
	require.Equal(t, sdkmath.NewInt(1000), f.vault.Ledger().BalanceOf(alice))
	f.requireTotal(1000, 20_000_000)

	f.deploy(adapterA, 1000)

	require.Equal(t, sdkmath.NewInt(1000), adapterA.HeldValue())
	require.True(t, f.vault.IdleBalance().IsZero())
	f.requireTotal(1000, 20_000_000)
}

func TestDeposit_RejectsInvalidInputs(t *testing.T) {
	f := newFixture(t)

	_, err := f.vault.Deposit(alice, alice, sdkmath.ZeroInt())
	require.ErrorIs(t, err, vault.ErrZeroAmount)

	_, err = f.vault.Deposit(types.ZeroAccount, alice, sdkmath.NewInt(1))
	require.ErrorIs(t, err, vault.ErrZeroAddress)

	_, err = f.vault.Deposit(alice, types.ZeroAccount, sdkmath.NewInt(1))
	require.ErrorIs(t, err, vault.ErrZeroAddress)

	_, err = f.vault.Deposit(alice, alice, sdkmath.NewInt(-5))
	require.Error(t, err)
}

func TestDeposit_InsufficientCallerFunds(t *testing.T) {
	f := newFixture(t)

	_, err := f.vault.Deposit(alice, alice, sdkmath.NewInt(10_000_001))

	require.ErrorIs(t, err, bank.ErrInsufficientFunds)
	require.True(t, f.vault.Ledger().BalanceOf(alice).IsZero())
	require.True(t, f.vault.TotalAssets().IsZero())
}

func TestDeposit_ReceiverMayDifferFromCaller(t *testing.T) {
	f := newFixture(t)

	shares, err := f.vault.Deposit(alice, bob, sdkmath.NewInt(500))

	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), shares)
	require.Equal(t, sdkmath.NewInt(500), f.vault.Ledger().BalanceOf(bob))
	require.True(t, f.vault.Ledger().BalanceOf(alice).IsZero())
	// Alice paid; Bob holds the claim.
	require.Equal(t, sdkmath.NewInt(9_999_500), f.bank.Balance(alice))
}

// TestMint_PullsRoundedUpAssets verifies the mint side never under-collects:
// at a skewed rate the asset price of a share position rounds up.
func TestMint_PullsRoundedUpAssets(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, 1000)
	// Direct donation skews the rate to 2500/2000 assets per share.
	require.NoError(t, f.bank.Send(bob, vaultAcc, sdkmath.NewInt(500)))

	assets, err := f.vault.Mint(bob, bob, sdkmath.NewInt(101))

	require.NoError(t, err)
	// 101 * (1500 + 1000) / (1000 + 1000) = 126.25, collected as 127.
	require.Equal(t, sdkmath.NewInt(127), assets)
	require.Equal(t, sdkmath.NewInt(101), f.vault.Ledger().BalanceOf(bob))
}

func TestPause_GatesEntryButNeverExit(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, 1000)

	require.NoError(t, f.vault.Pause(ownerAcc))

	_, err := f.vault.Deposit(alice, alice, sdkmath.NewInt(100))
	require.ErrorIs(t, err, vault.ErrPaused)

	_, err = f.vault.Mint(alice, alice, sdkmath.NewInt(100))
	require.ErrorIs(t, err, vault.ErrPaused)

	require.True(t, f.vault.MaxDeposit(alice).IsZero())
	require.True(t, f.vault.MaxMint(alice).IsZero())

	// Exits stay open while paused.
	actual, failures, err := f.vault.Withdraw(alice, alice, alice, sdkmath.NewInt(400))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, sdkmath.NewInt(400), actual)

	redeemed, failures, err := f.vault.Redeem(alice, alice, alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, sdkmath.NewInt(100), redeemed)

	require.NoError(t, f.vault.Unpause(ownerAcc))
	_, err = f.vault.Deposit(alice, alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, vault.Unlimited, f.vault.MaxDeposit(alice))
}

// TestDeposit_FirstDepositorDonationAttack plays the classic inflation attack:
// deposit 1 unit, donate a large amount directly into the idle balance, and
// wait for a victim. The virtual offset keeps the attacker's capture bounded.
func TestDeposit_FirstDepositorDonationAttack(t *testing.T) {
	f := newFixture(t)
	attacker, victim := alice, bob

	attackerShares := f.deposit(attacker, 1)
	require.Equal(t, sdkmath.NewInt(1), attackerShares)

	// The donation bypasses the ledger entirely.
	require.NoError(t, f.bank.Send(attacker, vaultAcc, sdkmath.NewInt(10_000)))

	victimShares := f.deposit(victim, 1000)

	// The victim still receives a near-proportional claim...
	require.Equal(t, sdkmath.NewInt(91), victimShares)
	require.Equal(t, sdkmath.NewInt(1000), f.vault.MaxWithdraw(victim))

	// ...while the attacker's 10_001 spent units are redeemable for almost
	// nothing. The donation is socialized, not captured.
	require.Equal(t, sdkmath.NewInt(10), f.vault.MaxWithdraw(attacker))
}

// TestNoLossRoundTrip verifies deposit-then-withdraw returns the deposit
// exactly when nothing moved in between.
func TestNoLossRoundTrip(t *testing.T) {
	f := newFixture(t)
	before := f.bank.Balance(alice)

	f.deposit(alice, 12_345)
	actual, failures, err := f.vault.Withdraw(alice, alice, alice, sdkmath.NewInt(12_345))

	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, sdkmath.NewInt(12_345), actual)
	require.Equal(t, before, f.bank.Balance(alice))
	require.True(t, f.vault.Ledger().BalanceOf(alice).IsZero())
	require.True(t, f.vault.TotalAssets().IsZero())
}

func TestApprove_ThirdPartyWithdrawConsumesAllowance(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, 1000)
	require.NoError(t, f.vault.Approve(alice, bob, sdkmath.NewInt(600)))

	// Bob pulls 500 of Alice's position to himself.
	bobBefore := f.bank.Balance(bob)
	actual, failures, err := f.vault.Withdraw(bob, bob, alice, sdkmath.NewInt(500))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, sdkmath.NewInt(500), actual)
	require.Equal(t, bobBefore.Add(sdkmath.NewInt(500)), f.bank.Balance(bob))
	require.Equal(t, sdkmath.NewInt(500), f.vault.Ledger().BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(100), f.vault.Ledger().Allowance(alice, bob))

	// A second pull past the remaining allowance fails with no state change.
	_, _, err = f.vault.Withdraw(bob, bob, alice, sdkmath.NewInt(200))
	require.ErrorIs(t, err, ledger.ErrAllowanceExceeded)
	require.Equal(t, sdkmath.NewInt(500), f.vault.Ledger().BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(100), f.vault.Ledger().Allowance(alice, bob))
}

func TestTransferShares_MovesClaimNotValue(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, 1000)

	require.NoError(t, f.vault.TransferShares(alice, bob, sdkmath.NewInt(300)))

	require.Equal(t, sdkmath.NewInt(700), f.vault.Ledger().BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(300), f.vault.Ledger().BalanceOf(bob))
	require.Equal(t, sdkmath.NewInt(1000), f.vault.TotalAssets())
	require.Equal(t, sdkmath.NewInt(300), f.vault.MaxWithdraw(bob))
}

func TestAddStrategy_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	adapter, err := strategy.NewIdleStrategy("idle-x", testAsset, f.bank, "adapter/idle-x", vaultAcc)
	require.NoError(t, err)

	require.ErrorIs(t, f.vault.AddStrategy(alice, adapter, sdkmath.NewInt(1000)), access.ErrNotOwner)
	require.NoError(t, f.vault.AddStrategy(ownerAcc, adapter, sdkmath.NewInt(1000)))
}

func TestRemoveStrategy_RefusedWhileFunded(t *testing.T) {
	f := newFixture(t)
	adapterA := f.addIdle("adapter-a", 1_000_000)
	f.deposit(alice, 1000)
	f.deploy(adapterA, 1000)

	require.ErrorIs(t, f.vault.RemoveStrategy(ownerAcc, "adapter-a"), strategy.ErrAdapterNotEmpty)

	// Drain, then removal succeeds.
	_, failures, err := f.vault.Withdraw(alice, alice, alice, sdkmath.NewInt(1000))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.NoError(t, f.vault.RemoveStrategy(ownerAcc, "adapter-a"))
}

func TestUpdateCap_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	f.addIdle("adapter-a", 1000)

	require.ErrorIs(t, f.vault.UpdateCap(alice, "adapter-a", sdkmath.NewInt(2000)), access.ErrNotOwner)
	require.NoError(t, f.vault.UpdateCap(ownerAcc, "adapter-a", sdkmath.NewInt(2000)))
}

func TestMaxRedeem_CappedByHolderBalance(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, 1000)

	require.Equal(t, sdkmath.NewInt(1000), f.vault.MaxRedeem(alice))
	require.True(t, f.vault.MaxRedeem(bob).IsZero())
}

func TestSnapshot_ReflectsCurrentState(t *testing.T) {
	f := newFixture(t)
	adapterA := f.addIdle("adapter-a", 5000)
	f.deposit(alice, 1000)
	f.deploy(adapterA, 600)

	snap := f.vault.Snapshot()

	require.Equal(t, testAsset, snap.Asset)
	require.Equal(t, sdkmath.NewInt(1000), snap.TotalAssets)
	require.Equal(t, sdkmath.NewInt(400), snap.IdleBalance)
	require.Equal(t, sdkmath.NewInt(1000), snap.TotalShares)
	require.False(t, snap.Paused)
	require.Equal(t, ownerAcc, snap.Owner)
	require.Equal(t, ownerAcc, snap.Operator)
	require.Len(t, snap.Adapters, 1)
	require.Equal(t, "adapter-a", snap.Adapters[0].ID)
	require.Equal(t, sdkmath.NewInt(600), snap.Adapters[0].HeldValue)
	require.Equal(t, sdkmath.NewInt(5000), snap.Adapters[0].Cap)
}
