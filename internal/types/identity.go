/*
This file contains the shared identity and amount types used across the custody
ledger: asset identifiers, account identifiers, and rounding directions for
share/asset conversion.
*/

package types

// Asset identifies the single fungible asset a vault custodies (e.g. "uusdc").
type Asset string

// AccountID identifies a holder, the vault itself, or an adapter custody
// account. The zero value is never a valid identity.
type AccountID string

// ZeroAccount is the null identity, rejected by every operation that takes a
// receiver or owner.
const ZeroAccount AccountID = ""

// IsZero reports whether the account is the null identity.
func (a AccountID) IsZero() bool {
	return a == ZeroAccount
}

// Rounding selects the direction of share/asset conversion math.
type Rounding int

const (
	// RoundDown truncates, protecting the pool when computing shares owed to
	// a depositor or assets owed to a withdrawer.
	RoundDown Rounding = iota
	// RoundUp rounds toward positive infinity, protecting remaining holders
	// when computing shares to burn or assets to collect.
	RoundUp
)

// String returns a human-readable rounding direction.
func (r Rounding) String() string {
	if r == RoundUp {
		return "up"
	}
	return "down"
}
