/*
This file contains the vault orchestrator: construction, the re-entrancy
guard, and the deposit-side operations. The vault composes the share ledger,
the strategy registry, the access controller, and the bank; all asset value it
custodies directly sits in its own bank account (the idle balance).
*/

package vault

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/access"
	"github.com/custodia-labs/vaultd/internal/bank"
	"github.com/custodia-labs/vaultd/internal/events"
	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/strategy"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrZeroAmount                 = errors.New("amount is zero")
	ErrZeroAddress                = errors.New("identity is zero")
	ErrPaused                     = errors.New("system is paused")
	ErrSameAdapter                = errors.New("source and destination adapters are identical")
	ErrInsufficientAdapterBalance = errors.New("source adapter holds less than requested")
	ErrCapExceeded                = errors.New("destination allocation cap exceeded")
	ErrConservationViolated       = errors.New("total custodied value changed during rebalance")
	ErrReentrantCall              = errors.New("nested call rejected by re-entrancy guard")
)

var vaultLogger = logger.GetForComponent("vault")

// Vault is the custody and accounting orchestrator. A single instance manages
// one asset, one share ledger, and one adapter registry. The surrounding
// service serializes all calls against an instance; the re-entrancy guard
// additionally rejects nested entry from a misbehaving adapter calling back
// in during accept/release.
type Vault struct {
	asset    types.Asset
	account  types.AccountID
	bank     *bank.Bank
	ledger   *ledger.ShareLedger
	registry *strategy.Registry
	access   *access.Controller
	notifier events.Notifier

	// Per-instance "call in progress" flag, set at entry and cleared at exit
	// of every state-mutating operation.
	entered bool
}

// Config carries the collaborators a vault composes.
type Config struct {
	Asset    types.Asset
	Account  types.AccountID
	Bank     *bank.Bank
	Owner    types.AccountID
	Notifier events.Notifier
}

// New creates a vault with the initializer holding both the owner and
// operator roles, an empty ledger, and an empty registry.
func New(cfg Config) (*Vault, error) {
	if cfg.Asset == "" {
		return nil, errors.New("asset identity cannot be empty")
	}
	if cfg.Account.IsZero() {
		return nil, errors.Join(ErrZeroAddress, errors.New("vault custody account cannot be zero"))
	}
	if cfg.Bank == nil {
		return nil, errors.New("bank cannot be nil")
	}
	if cfg.Bank.Asset() != cfg.Asset {
		return nil, fmt.Errorf("bank tracks %s, vault custodies %s", cfg.Bank.Asset(), cfg.Asset)
	}

	controller, err := access.NewController(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("access controller initialization failed: %w", err)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = events.NopNotifier{}
	}

	v := &Vault{
		asset:    cfg.Asset,
		account:  cfg.Account,
		bank:     cfg.Bank,
		ledger:   ledger.New(),
		registry: strategy.NewRegistry(cfg.Asset),
		access:   controller,
		notifier: notifier,
	}

	vaultLogger.Info().
		Str("asset", string(cfg.Asset)).
		Str("account", string(cfg.Account)).
		Str("owner", string(cfg.Owner)).
		Msg("Vault initialized")

	return v, nil
}

// Asset returns the single accepted asset identity.
func (v *Vault) Asset() types.Asset {
	return v.asset
}

// Account returns the vault's own custody account.
func (v *Vault) Account() types.AccountID {
	return v.account
}

// Ledger exposes the share ledger for read access and allowance management.
func (v *Vault) Ledger() *ledger.ShareLedger {
	return v.ledger
}

// Access exposes the role/pause state.
func (v *Vault) Access() *access.Controller {
	return v.access
}

// enter acquires the re-entrancy guard. Every state-mutating operation calls
// it first and defers the returned release.
func (v *Vault) enter(op string) (func(), error) {
	if v.entered {
		return nil, errors.Join(ErrReentrantCall, fmt.Errorf("operation %s", op))
	}
	v.entered = true
	return func() { v.entered = false }, nil
}

// Deposit pulls assets from the caller into the idle balance and mints the
// proportional shares to the receiver, rounding down so the pool is never
// over-issued. Refused while paused.
func (v *Vault) Deposit(caller, receiver types.AccountID, assets sdkmath.Int) (sdkmath.Int, error) {
	exit, err := v.enter("deposit")
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer exit()

	if err := v.validateDeposit(caller, receiver, assets); err != nil {
		return sdkmath.ZeroInt(), err
	}

	shares, err := v.ledger.ConvertToShares(assets, v.totalAssets(), types.RoundDown)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("share conversion failed: %w", err)
	}

	if err := v.bank.Send(caller, v.account, assets); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("deposit transfer failed: %w", err)
	}
	if err := v.ledger.Mint(receiver, shares); err != nil {
		// The transfer succeeded; minting only fails on invalid inputs, which
		// validateDeposit already excluded. Surface as fatal.
		return sdkmath.ZeroInt(), fmt.Errorf("share mint failed after transfer: %w", err)
	}

	v.notifier.DepositRecorded(types.DepositEvent{
		Caller:    caller,
		Receiver:  receiver,
		Assets:    assets,
		Shares:    shares,
		Timestamp: time.Now().UTC(),
	})

	vaultLogger.Info().
		Str("caller", string(caller)).
		Str("receiver", string(receiver)).
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Msg("Deposit completed")

	return shares, nil
}

// Mint is the symmetric inverse of Deposit: the caller specifies shares and
// the asset amount to pull is computed by rounding up, so the pool never
// under-collects. Refused while paused.
func (v *Vault) Mint(caller, receiver types.AccountID, shares sdkmath.Int) (sdkmath.Int, error) {
	exit, err := v.enter("mint")
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer exit()

	if err := v.validateDeposit(caller, receiver, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}

	assets, err := v.ledger.ConvertToAssets(shares, v.totalAssets(), types.RoundUp)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("asset conversion failed: %w", err)
	}

	if err := v.bank.Send(caller, v.account, assets); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("mint transfer failed: %w", err)
	}
	if err := v.ledger.Mint(receiver, shares); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("share mint failed after transfer: %w", err)
	}

	v.notifier.DepositRecorded(types.DepositEvent{
		Caller:    caller,
		Receiver:  receiver,
		Assets:    assets,
		Shares:    shares,
		Timestamp: time.Now().UTC(),
	})

	vaultLogger.Info().
		Str("caller", string(caller)).
		Str("receiver", string(receiver)).
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Msg("Mint completed")

	return assets, nil
}

// validateDeposit checks the shared deposit/mint preconditions.
func (v *Vault) validateDeposit(caller, receiver types.AccountID, amount sdkmath.Int) error {
	if v.access.IsPaused() {
		return ErrPaused
	}
	if caller.IsZero() || receiver.IsZero() {
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

// idleBalance returns the asset held directly by the vault, undeployed.
func (v *Vault) idleBalance() sdkmath.Int {
	return v.bank.Balance(v.account)
}

// totalAssets computes the conservation sum: idle balance plus every
// registered adapter's held value, read fresh.
func (v *Vault) totalAssets() sdkmath.Int {
	total := v.idleBalance()
	for _, adapter := range v.registry.List() {
		total = total.Add(adapter.HeldValue())
	}
	return total
}
