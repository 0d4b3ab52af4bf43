/*
This file contains the strategy registry: the insertion-ordered set of active
adapters, their allocation caps, and membership checks. Registration order
defines withdrawal-cascade priority. Authorization lives in the vault; the
registry is pure bookkeeping.
*/

package strategy

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

var registryLogger = logger.GetForComponent("strategy_registry")

// Registry tracks the active adapter set for a single-asset vault.
type Registry struct {
	asset    types.Asset
	order    []string
	adapters map[string]Adapter
	caps     map[string]sdkmath.Int
}

// NewRegistry creates an empty registry for the given asset.
func NewRegistry(asset types.Asset) *Registry {
	return &Registry{
		asset:    asset,
		adapters: make(map[string]Adapter),
		caps:     make(map[string]sdkmath.Int),
	}
}

// Add registers an adapter with its allocation cap. Fails if the adapter is
// already registered, the cap is zero, or the adapter custodies a different
// asset. No state changes on failure.
func (r *Registry) Add(adapter Adapter, cap sdkmath.Int) error {
	if adapter == nil {
		return errors.New("adapter cannot be nil")
	}
	id := adapter.ID()
	if _, exists := r.adapters[id]; exists {
		return errors.Join(ErrAlreadyRegistered, fmt.Errorf("adapter %s", id))
	}
	if cap.IsNil() || !cap.IsPositive() {
		return errors.Join(ErrZeroCap, fmt.Errorf("adapter %s cap %s", id, cap))
	}
	if adapter.AssetID() != r.asset {
		return errors.Join(ErrAssetMismatch,
			fmt.Errorf("adapter %s holds %s, vault custodies %s", id, adapter.AssetID(), r.asset))
	}

	r.adapters[id] = adapter
	r.caps[id] = cap
	r.order = append(r.order, id)

	registryLogger.Info().
		Str("adapter", id).
		Str("cap", cap.String()).
		Int("registered", len(r.order)).
		Msg("Adapter registered")
	return nil
}

// Remove deregisters an adapter. Fails unless its held value is exactly zero,
// so custodied value can never be orphaned.
func (r *Registry) Remove(id string) error {
	adapter, exists := r.adapters[id]
	if !exists {
		return errors.Join(ErrUnknownAdapter, fmt.Errorf("adapter %s", id))
	}
	if held := adapter.HeldValue(); !held.IsZero() {
		return errors.Join(ErrAdapterNotEmpty,
			fmt.Errorf("adapter %s still holds %s", id, held))
	}

	delete(r.adapters, id)
	delete(r.caps, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	registryLogger.Info().Str("adapter", id).Msg("Adapter removed")
	return nil
}

// UpdateCap replaces an adapter's allocation cap. It takes effect immediately
// but never forces a rebalance: an adapter already over the new cap keeps its
// holding, only future growth past the cap is blocked.
func (r *Registry) UpdateCap(id string, cap sdkmath.Int) error {
	if _, exists := r.adapters[id]; !exists {
		return errors.Join(ErrUnknownAdapter, fmt.Errorf("adapter %s", id))
	}
	if cap.IsNil() || !cap.IsPositive() {
		return errors.Join(ErrZeroCap, fmt.Errorf("adapter %s cap %s", id, cap))
	}

	r.caps[id] = cap
	registryLogger.Info().Str("adapter", id).Str("cap", cap.String()).Msg("Allocation cap updated")
	return nil
}

// Get returns a registered adapter by id.
func (r *Registry) Get(id string) (Adapter, bool) {
	adapter, ok := r.adapters[id]
	return adapter, ok
}

// IsRegistered reports set membership.
func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.adapters[id]
	return ok
}

// Cap returns the allocation cap of a registered adapter, zero otherwise.
func (r *Registry) Cap(id string) sdkmath.Int {
	cap, ok := r.caps[id]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return cap
}

// List returns the registered adapters in registration order, the priority
// order of the withdrawal cascade.
func (r *Registry) List() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.order)
}
