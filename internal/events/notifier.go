/*
This file contains the notification sinks consumed by the external display
layer. Every successful state-mutating vault operation emits exactly one
structured notification; sinks can be multiplexed (console log + Postgres).
*/

package events

import (
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Notifier receives structured notifications about vault operations. Sinks
// must not fail the originating operation; delivery problems are their own
// concern to log.
type Notifier interface {
	DepositRecorded(event types.DepositEvent)
	WithdrawRecorded(event types.WithdrawEvent)
	RebalanceRecorded(event types.RebalanceEvent)
	RegistryChanged(event types.RegistryEvent)
	PauseChanged(event types.PauseEvent)
	AdapterFailed(failure types.AdapterFailure)
}

// NopNotifier discards every notification. Useful default for tests.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) DepositRecorded(types.DepositEvent)     {}
func (NopNotifier) WithdrawRecorded(types.WithdrawEvent)   {}
func (NopNotifier) RebalanceRecorded(types.RebalanceEvent) {}
func (NopNotifier) RegistryChanged(types.RegistryEvent)    {}
func (NopNotifier) PauseChanged(types.PauseEvent)          {}
func (NopNotifier) AdapterFailed(types.AdapterFailure)     {}

// LogNotifier writes every notification to the structured log.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

var eventLogger = logger.GetForComponent("events")

func (LogNotifier) DepositRecorded(event types.DepositEvent) {
	eventLogger.Info().
		Str("caller", string(event.Caller)).
		Str("receiver", string(event.Receiver)).
		Str("assets", event.Assets.String()).
		Str("shares", event.Shares.String()).
		Msg("Deposit recorded")
}

func (LogNotifier) WithdrawRecorded(event types.WithdrawEvent) {
	eventLogger.Info().
		Str("caller", string(event.Caller)).
		Str("receiver", string(event.Receiver)).
		Str("owner", string(event.Owner)).
		Str("requested", event.RequestedAssets.String()).
		Str("actual", event.ActualAssets.String()).
		Str("sharesBurned", event.SharesBurned.String()).
		Bool("partial", event.Partial).
		Int("adapterFailures", len(event.AdapterFailures)).
		Msg("Withdrawal recorded")
}

func (LogNotifier) RebalanceRecorded(event types.RebalanceEvent) {
	eventLogger.Info().
		Str("caller", string(event.Caller)).
		Str("from", event.From).
		Str("to", event.To).
		Str("requested", event.Requested.String()).
		Str("released", event.Released.String()).
		Str("slippage", event.Slippage.String()).
		Msg("Rebalance recorded")
}

func (LogNotifier) RegistryChanged(event types.RegistryEvent) {
	eventLogger.Info().
		Str("caller", string(event.Caller)).
		Str("action", string(event.Action)).
		Str("adapter", event.Adapter).
		Str("cap", event.Cap.String()).
		Msg("Registry changed")
}

func (LogNotifier) PauseChanged(event types.PauseEvent) {
	eventLogger.Warn().
		Str("caller", string(event.Caller)).
		Bool("paused", event.Paused).
		Msg("Pause flag changed")
}

func (LogNotifier) AdapterFailed(failure types.AdapterFailure) {
	eventLogger.Error().
		Str("adapter", failure.Adapter).
		Str("requested", failure.Requested.String()).
		Str("reason", failure.Reason).
		Msg("Adapter release failed during cascade")
}

// MultiNotifier fans a notification out to several sinks in order.
type MultiNotifier []Notifier

var _ Notifier = MultiNotifier{}

func (m MultiNotifier) DepositRecorded(event types.DepositEvent) {
	for _, n := range m {
		n.DepositRecorded(event)
	}
}

func (m MultiNotifier) WithdrawRecorded(event types.WithdrawEvent) {
	for _, n := range m {
		n.WithdrawRecorded(event)
	}
}

func (m MultiNotifier) RebalanceRecorded(event types.RebalanceEvent) {
	for _, n := range m {
		n.RebalanceRecorded(event)
	}
}

func (m MultiNotifier) RegistryChanged(event types.RegistryEvent) {
	for _, n := range m {
		n.RegistryChanged(event)
	}
}

func (m MultiNotifier) PauseChanged(event types.PauseEvent) {
	for _, n := range m {
		n.PauseChanged(event)
	}
}

func (m MultiNotifier) AdapterFailed(failure types.AdapterFailure) {
	for _, n := range m {
		n.AdapterFailed(failure)
	}
}
