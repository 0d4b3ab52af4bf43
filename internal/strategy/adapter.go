package strategy

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrZeroAmount        = errors.New("amount is zero")
	ErrInvalidAmount     = errors.New("amount is invalid")
	ErrAlreadyRegistered = errors.New("adapter is already registered")
	ErrUnknownAdapter    = errors.New("adapter is not registered")
	ErrZeroCap           = errors.New("allocation cap is zero")
	ErrAssetMismatch     = errors.New("adapter holds a different asset")
	ErrAdapterNotEmpty   = errors.New("adapter still holds custodied value")
)

// Adapter is the capability contract every routing destination must satisfy.
// The vault iterates adapters in registration order during the withdrawal
// cascade and calls into at most two of them during a rebalance.
//
// Implementations own only their custody balance; they must not assume any
// access to vault-internal state.
type Adapter interface {
	// ID returns the stable identity of this destination, unique within a
	// registry.
	ID() string

	// AssetID returns the asset this adapter custodies. The registry rejects
	// adapters whose asset differs from the vault's.
	AssetID() types.Asset

	// Accept takes custody of amount from the vault. Fails with ErrZeroAmount
	// if amount is not positive.
	Accept(amount sdkmath.Int) error

	// Release returns up to amount back to the vault and reports how much was
	// actually moved. A request larger than the current holding MUST return
	// min(amount, held) rather than fail; partial fulfillment is a
	// first-class, non-error outcome.
	Release(amount sdkmath.Int) (sdkmath.Int, error)

	// HeldValue reports the current custody balance, read fresh on every
	// call. Never cached, never simulated.
	HeldValue() sdkmath.Int
}
