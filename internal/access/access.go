/*
This file contains the two-role authority model and the pause flag gating
risk-increasing operations. The controller is an explicit state struct handed
to the vault, so tests can inject arbitrary role/pause states deterministically.
*/

package access

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNotAuthorized = errors.New("caller is not authorized")
	ErrNotOwner      = errors.New("caller is not the owner")
	ErrZeroAddress   = errors.New("identity is zero")
)

var accessLogger = logger.GetForComponent("access_controller")

// Controller holds the owner and operator identities plus the pause flag.
// States: Active, Paused. pause() moves Active -> Paused (operator or owner),
// unpause() moves Paused -> Active (owner only). Transitions are immediate;
// there are no other states and no timeouts.
type Controller struct {
	owner    types.AccountID
	operator types.AccountID
	paused   bool
}

// NewController creates an active controller with the initializer holding
// both roles, matching the vault lifecycle at system initialization.
func NewController(initializer types.AccountID) (*Controller, error) {
	if initializer.IsZero() {
		return nil, errors.Join(ErrZeroAddress, errors.New("initializer cannot be the zero identity"))
	}
	return &Controller{
		owner:    initializer,
		operator: initializer,
		paused:   false,
	}, nil
}

// Owner returns the identity holding full administrative power.
func (c *Controller) Owner() types.AccountID {
	return c.owner
}

// Operator returns the identity holding routing power.
func (c *Controller) Operator() types.AccountID {
	return c.operator
}

// IsPaused reports whether the controller is in the Paused state.
func (c *Controller) IsPaused() bool {
	return c.paused
}

// RequireOwner fails unless the caller is the owner.
func (c *Controller) RequireOwner(caller types.AccountID) error {
	if caller != c.owner {
		return errors.Join(ErrNotOwner, fmt.Errorf("caller %s is not owner %s", caller, c.owner))
	}
	return nil
}

// RequireOperator fails unless the caller holds routing power (operator or
// owner).
func (c *Controller) RequireOperator(caller types.AccountID) error {
	if caller != c.operator && caller != c.owner {
		return errors.Join(ErrNotAuthorized,
			fmt.Errorf("caller %s is neither operator nor owner", caller))
	}
	return nil
}

// Pause moves the controller into the Paused state. Operator or owner only.
// Pausing an already-paused controller is a no-op.
func (c *Controller) Pause(caller types.AccountID) error {
	if err := c.RequireOperator(caller); err != nil {
		return err
	}
	if c.paused {
		return nil
	}
	c.paused = true
	accessLogger.Warn().Str("caller", string(caller)).Msg("System paused")
	return nil
}

// Unpause moves the controller back into the Active state. Owner only.
// Unpausing an active controller is a no-op.
func (c *Controller) Unpause(caller types.AccountID) error {
	if err := c.RequireOwner(caller); err != nil {
		// The operator may pause but never unpause; surface the broader
		// authorization error kind for this operation.
		return errors.Join(ErrNotAuthorized, err)
	}
	if !c.paused {
		return nil
	}
	c.paused = false
	accessLogger.Info().Str("caller", string(caller)).Msg("System unpaused")
	return nil
}

// SetOperator hands routing power to a new identity. Owner only, and the new
// identity must not be zero.
func (c *Controller) SetOperator(caller, operator types.AccountID) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if operator.IsZero() {
		return errors.Join(ErrZeroAddress, errors.New("operator cannot be the zero identity"))
	}
	previous := c.operator
	c.operator = operator
	accessLogger.Info().
		Str("previous", string(previous)).
		Str("operator", string(operator)).
		Msg("Operator updated")
	return nil
}

// SetOwner hands full administrative power to a new identity. Owner only, and
// the new identity must not be zero.
func (c *Controller) SetOwner(caller, owner types.AccountID) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if owner.IsZero() {
		return errors.Join(ErrZeroAddress, errors.New("owner cannot be the zero identity"))
	}
	previous := c.owner
	c.owner = owner
	accessLogger.Info().
		Str("previous", string(previous)).
		Str("owner", string(owner)).
		Msg("Ownership transferred")
	return nil
}
