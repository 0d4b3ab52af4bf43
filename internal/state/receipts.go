/*
This file contains the operation-receipt store: every structured notification
emitted by the vault is persisted here for the external display layer. The
Recorder is an events.Notifier sink; persistence failures are logged and never
fail the originating vault operation.
*/

package state

import (
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/events"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

var stateLogger = logger.GetForComponent("receipt_store")

// OperationReceipt is one persisted notification row.
type OperationReceipt struct {
	ReceiptID       int             `json:"receipt_id"`
	RecordedAt      time.Time       `json:"recorded_at"`
	Operation       string          `json:"operation"`
	Caller          string          `json:"caller"`
	Receiver        string          `json:"receiver,omitempty"`
	Owner           string          `json:"owner,omitempty"`
	RequestedAmount string          `json:"requested_amount,omitempty"`
	ActualAmount    string          `json:"actual_amount,omitempty"`
	Shares          string          `json:"shares,omitempty"`
	Partial         bool            `json:"partial"`
	Detail          json.RawMessage `json:"detail,omitempty"`
}

// Recorder persists vault notifications into Postgres.
type Recorder struct{}

var _ events.Notifier = Recorder{}

// NewRecorder returns a Postgres-backed notification sink. InitDB must have
// been called first.
func NewRecorder() Recorder {
	return Recorder{}
}

func (Recorder) DepositRecorded(event types.DepositEvent) {
	insertReceipt("DEPOSIT", string(event.Caller), string(event.Receiver), "",
		event.Assets.String(), event.Assets.String(), event.Shares.String(), false, nil)
}

func (Recorder) WithdrawRecorded(event types.WithdrawEvent) {
	var detail []byte
	if len(event.AdapterFailures) > 0 {
		if raw, err := json.Marshal(event.AdapterFailures); err == nil {
			detail = raw
		}
	}
	insertReceipt("WITHDRAW", string(event.Caller), string(event.Receiver), string(event.Owner),
		event.RequestedAssets.String(), event.ActualAssets.String(), event.SharesBurned.String(),
		event.Partial, detail)
}

func (Recorder) RebalanceRecorded(event types.RebalanceEvent) {
	detail, err := json.Marshal(map[string]string{
		"from":     event.From,
		"to":       event.To,
		"slippage": event.Slippage.String(),
	})
	if err != nil {
		detail = nil
	}
	insertReceipt("REBALANCE", string(event.Caller), "", "",
		event.Requested.String(), event.Released.String(), "", false, detail)
}

func (Recorder) RegistryChanged(event types.RegistryEvent) {
	detail, err := json.Marshal(map[string]string{
		"action":  string(event.Action),
		"adapter": event.Adapter,
	})
	if err != nil {
		detail = nil
	}
	insertReceipt("REGISTRY", string(event.Caller), "", "",
		event.Cap.String(), "", "", false, detail)
}

func (Recorder) PauseChanged(event types.PauseEvent) {
	detail, err := json.Marshal(map[string]bool{"paused": event.Paused})
	if err != nil {
		detail = nil
	}
	insertReceipt("PAUSE", string(event.Caller), "", "", "", "", "", false, detail)
}

func (Recorder) AdapterFailed(failure types.AdapterFailure) {
	if DB == nil {
		stateLogger.Warn().Msg("Database not initialized, dropping adapter failure record")
		return
	}
	_, err := DB.Exec(`
		INSERT INTO adapter_failures (adapter, requested_amount, reason)
		VALUES ($1, $2, $3)`,
		failure.Adapter, failure.Requested.String(), failure.Reason)
	if err != nil {
		stateLogger.Error().Err(err).Str("adapter", failure.Adapter).Msg("Failed to persist adapter failure")
	}
}

// insertReceipt writes one receipt row, logging rather than propagating any
// persistence error.
func insertReceipt(operation, caller, receiver, owner, requested, actual, shares string, partial bool, detail []byte) {
	if DB == nil {
		stateLogger.Warn().Str("operation", operation).Msg("Database not initialized, dropping receipt")
		return
	}

	var detailArg interface{}
	if len(detail) > 0 {
		detailArg = string(detail)
	}

	_, err := DB.Exec(`
		INSERT INTO operation_receipts
			(operation, caller, receiver, owner_account, requested_amount, actual_amount, shares, partial, detail)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, '')::NUMERIC, NULLIF($6, '')::NUMERIC, NULLIF($7, '')::NUMERIC, $8, $9)`,
		operation, caller, receiver, owner, requested, actual, shares, partial, detailArg)
	if err != nil {
		stateLogger.Error().Err(err).Str("operation", operation).Msg("Failed to persist operation receipt")
	}
}

// GetRecentReceipts returns the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT receipt_id, recorded_at, operation, caller,
			COALESCE(receiver, ''), COALESCE(owner_account, ''),
			COALESCE(requested_amount::TEXT, ''), COALESCE(actual_amount::TEXT, ''),
			COALESCE(shares::TEXT, ''), partial, COALESCE(detail::TEXT, '')
		FROM operation_receipts
		ORDER BY recorded_at DESC, receipt_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	var receipts []OperationReceipt
	for rows.Next() {
		var r OperationReceipt
		var detail string
		if err := rows.Scan(&r.ReceiptID, &r.RecordedAt, &r.Operation, &r.Caller,
			&r.Receiver, &r.Owner, &r.RequestedAmount, &r.ActualAmount,
			&r.Shares, &r.Partial, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan operation receipt: %w", err)
		}
		if detail != "" {
			r.Detail = json.RawMessage(detail)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation receipts: %w", err)
	}
	return receipts, nil
}

// GetRecentAdapterFailures returns the most recent cascade failures, newest
// first.
func GetRecentAdapterFailures(limit int) ([]types.AdapterFailure, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT adapter, COALESCE(requested_amount::TEXT, '0'), reason
		FROM adapter_failures
		ORDER BY recorded_at DESC, failure_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query adapter failures: %w", err)
	}
	defer rows.Close()

	var failures []types.AdapterFailure
	for rows.Next() {
		var adapter, requested, reason string
		if err := rows.Scan(&adapter, &requested, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan adapter failure: %w", err)
		}
		failure := types.AdapterFailure{Adapter: adapter, Reason: reason}
		if parsed, ok := parseInt(requested); ok {
			failure.Requested = parsed
		}
		failures = append(failures, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adapter failures: %w", err)
	}
	return failures, nil
}

// parseInt parses a decimal amount string into an Int.
func parseInt(s string) (sdkmath.Int, bool) {
	return sdkmath.NewIntFromString(s)
}
