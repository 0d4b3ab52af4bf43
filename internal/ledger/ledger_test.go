package ledger_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/types"
)

const (
	alice = types.AccountID("alice")
	bob   = types.AccountID("bob")
)

// TestConvertToShares_GenesisIsOneToOne verifies that the very first deposit
// converts 1:1, which the symmetric virtual offset pins regardless of size.
func TestConvertToShares_GenesisIsOneToOne(t *testing.T) {
	l := ledger.New()

	shares, err := l.ConvertToShares(sdkmath.NewInt(1000), sdkmath.ZeroInt(), types.RoundDown)

	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1000), shares)
}

// TestConversion_RoundTripAtParity verifies shares<->assets symmetry when the
// issued supply equals the custodied total.
func TestConversion_RoundTripAtParity(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1000)))
	total := sdkmath.NewInt(1000)

	shares, err := l.ConvertToShares(sdkmath.NewInt(500), total, types.RoundDown)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), shares)

	assets, err := l.ConvertToAssets(shares, total, types.RoundDown)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), assets)
}

// TestConvertToShares_RoundingDirection verifies both rounding directions on a
// non-trivial exchange rate. With 1000 shares over 3000 custodied units the
// offset-adjusted ratio is 2000/4000, so 5 assets are worth exactly 2.5 shares.
func TestConvertToShares_RoundingDirection(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1000)))
	total := sdkmath.NewInt(3000)

	down, err := l.ConvertToShares(sdkmath.NewInt(5), total, types.RoundDown)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2), down)

	up, err := l.ConvertToShares(sdkmath.NewInt(5), total, types.RoundUp)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(3), up)
}

// TestConvertToAssets_RoundingDirection mirrors the shares test on the inverse
// ratio: 3 shares are worth exactly 6 assets, 5 shares are worth 10 assets.
func TestConvertToAssets_RoundingDirection(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1000)))
	total := sdkmath.NewInt(3000)

	exact, err := l.ConvertToAssets(sdkmath.NewInt(3), total, types.RoundDown)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(6), exact)

	// 1 share is worth exactly 2 assets at this rate; rounding up must not
	// inflate an exact quotient.
	up, err := l.ConvertToAssets(sdkmath.NewInt(1), total, types.RoundUp)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2), up)
}

// TestConvertToShares_DonationSkewIsBounded verifies that a direct donation
// into the custodied total cannot zero out a later depositor: the virtual
// offset keeps the quoted rate finite even with one real share outstanding.
func TestConvertToShares_DonationSkewIsBounded(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1)))

	// 1 real share against a donated total of 10001.
	shares, err := l.ConvertToShares(sdkmath.NewInt(1000), sdkmath.NewInt(10001), types.RoundDown)

	require.NoError(t, err)
	// 1000 * (1 + 1000) / (10001 + 1000) = 91, not zero.
	require.Equal(t, sdkmath.NewInt(91), shares)
}

func TestConversion_RejectsInvalidInputs(t *testing.T) {
	l := ledger.New()

	_, err := l.ConvertToShares(sdkmath.NewInt(-1), sdkmath.ZeroInt(), types.RoundDown)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = l.ConvertToShares(sdkmath.NewInt(1), sdkmath.NewInt(-1), types.RoundDown)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = l.ConvertToAssets(sdkmath.Int{}, sdkmath.ZeroInt(), types.RoundDown)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestMintAndBurn_TrackTotalSupply(t *testing.T) {
	l := ledger.New()

	require.NoError(t, l.Mint(alice, sdkmath.NewInt(700)))
	require.NoError(t, l.Mint(bob, sdkmath.NewInt(300)))
	require.Equal(t, sdkmath.NewInt(1000), l.TotalShares())

	require.NoError(t, l.Burn(alice, sdkmath.NewInt(200)))
	require.Equal(t, sdkmath.NewInt(500), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(800), l.TotalShares())
}

func TestBurn_InsufficientShares_NoStateChange(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(100)))

	err := l.Burn(alice, sdkmath.NewInt(101))

	require.ErrorIs(t, err, ledger.ErrInsufficientShares)
	require.Equal(t, sdkmath.NewInt(100), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(100), l.TotalShares())
}

func TestMint_RejectsZeroHolder(t *testing.T) {
	l := ledger.New()

	require.ErrorIs(t, l.Mint(types.ZeroAccount, sdkmath.NewInt(1)), ledger.ErrZeroAddress)
	require.ErrorIs(t, l.Mint(alice, sdkmath.NewInt(-1)), ledger.ErrInvalidAmount)
}

func TestTransfer_MovesSharesWithoutChangingSupply(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Mint(alice, sdkmath.NewInt(1000)))

	require.NoError(t, l.Transfer(alice, bob, sdkmath.NewInt(400)))

	require.Equal(t, sdkmath.NewInt(600), l.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(400), l.BalanceOf(bob))
	require.Equal(t, sdkmath.NewInt(1000), l.TotalShares())

	require.ErrorIs(t, l.Transfer(alice, bob, sdkmath.NewInt(601)), ledger.ErrInsufficientShares)
}

func TestAllowance_ApproveSpendLifecycle(t *testing.T) {
	l := ledger.New()

	// Unknown pairs have a zero allowance.
	require.True(t, l.Allowance(alice, bob).IsZero())

	require.NoError(t, l.Approve(alice, bob, sdkmath.NewInt(100)))
	require.Equal(t, sdkmath.NewInt(100), l.Allowance(alice, bob))

	require.NoError(t, l.SpendAllowance(alice, bob, sdkmath.NewInt(60)))
	require.Equal(t, sdkmath.NewInt(40), l.Allowance(alice, bob))

	// Spending past the remainder fails and leaves it untouched.
	err := l.SpendAllowance(alice, bob, sdkmath.NewInt(50))
	require.ErrorIs(t, err, ledger.ErrAllowanceExceeded)
	require.Equal(t, sdkmath.NewInt(40), l.Allowance(alice, bob))

	// A fresh approval replaces, never accumulates.
	require.NoError(t, l.Approve(alice, bob, sdkmath.NewInt(10)))
	require.Equal(t, sdkmath.NewInt(10), l.Allowance(alice, bob))
}
