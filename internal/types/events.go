/*
This file contains the structured notifications emitted by the vault after
every successful state-mutating operation. They are consumed by the external
display layer via the events.Notifier sinks (console log, Postgres receipts).
*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// AdapterFailure records a hard failure of a single adapter during the
// withdrawal cascade. The cascade skips the adapter and continues; the record
// is surfaced alongside the operation result for observability.
type AdapterFailure struct {
	Adapter   string      `json:"adapter"`
	Requested sdkmath.Int `json:"requested"`
	Reason    string      `json:"reason"`
}

// DepositEvent is emitted after a successful deposit or mint.
type DepositEvent struct {
	Caller    AccountID   `json:"caller"`
	Receiver  AccountID   `json:"receiver"`
	Assets    sdkmath.Int `json:"assets"`
	Shares    sdkmath.Int `json:"shares"`
	Timestamp time.Time   `json:"timestamp"`
}

// WithdrawEvent is emitted after a successful withdraw or redeem. A partial
// fulfillment (ActualAssets < RequestedAssets) is a normal outcome, not an
// error, and is flagged here for the display layer.
type WithdrawEvent struct {
	Caller          AccountID        `json:"caller"`
	Receiver        AccountID        `json:"receiver"`
	Owner           AccountID        `json:"owner"`
	RequestedAssets sdkmath.Int      `json:"requested_assets"`
	ActualAssets    sdkmath.Int      `json:"actual_assets"`
	SharesBurned    sdkmath.Int      `json:"shares_burned"`
	Partial         bool             `json:"partial"`
	AdapterFailures []AdapterFailure `json:"adapter_failures,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// RebalanceEvent is emitted after a successful rebalance between two
// registered adapters. Slippage is the non-fatal shortfall between the
// requested and released amounts.
type RebalanceEvent struct {
	Caller    AccountID   `json:"caller"`
	From      string      `json:"from_adapter"`
	To        string      `json:"to_adapter"`
	Requested sdkmath.Int `json:"requested"`
	Released  sdkmath.Int `json:"released"`
	Slippage  sdkmath.Int `json:"slippage"`
	Timestamp time.Time   `json:"timestamp"`
}

// RegistryAction enumerates the registry mutations carried by RegistryEvent.
type RegistryAction string

const (
	RegistryActionAdd       RegistryAction = "ADD"
	RegistryActionRemove    RegistryAction = "REMOVE"
	RegistryActionUpdateCap RegistryAction = "UPDATE_CAP"
)

// RegistryEvent is emitted after a successful registry mutation.
type RegistryEvent struct {
	Caller    AccountID      `json:"caller"`
	Action    RegistryAction `json:"action"`
	Adapter   string         `json:"adapter"`
	Cap       sdkmath.Int    `json:"cap"`
	Timestamp time.Time      `json:"timestamp"`
}

// PauseEvent is emitted when the pause flag flips.
type PauseEvent struct {
	Caller    AccountID `json:"caller"`
	Paused    bool      `json:"paused"`
	Timestamp time.Time `json:"timestamp"`
}
