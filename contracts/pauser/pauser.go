// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pauser implements the pause registry: a bitmap of disabled
// operations. Pausing may only set bits and unpausing may only clear
// them, so the two roles cannot undo each other's action in one call.
package pauser

import (
	"math/big"

	"github.com/openrestake/restake/contracts"
	"github.com/openrestake/restake/contracts/reverts"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
)

// Pause flag bit indices.
const (
	PausedNewDelegation        uint = 0
	PausedEnterWithdrawalQueue uint = 1
	PausedExitWithdrawalQueue  uint = 2
)

var (
	slotFlags    = storage.NameToSlot("paused-flags")
	slotPauser   = storage.NameToSlot("pauser")
	slotUnpauser = storage.NameToSlot("unpauser")

	errNotPauser   = reverts.New("pauser: caller is not the pauser")
	errNotUnpauser = reverts.New("pauser: caller is not the unpauser")
	errBitsCleared = reverts.New("pauser: pausing may only set bits")
	errBitsSet     = reverts.New("pauser: unpausing may only clear bits")
)

// EventPaused is emitted when the pause bitmap gains bits.
type EventPaused struct {
	Account   restake.Address
	NewStatus *big.Int
}

func (EventPaused) EventName() string { return "Paused" }

// EventUnpaused is emitted when the pause bitmap loses bits.
type EventUnpaused struct {
	Account   restake.Address
	NewStatus *big.Int
}

func (EventUnpaused) EventName() string { return "Unpaused" }

// Pauser implements the pause registry contract.
type Pauser struct {
	env      *runtime.Environment
	flags    *storage.Uint256
	pauser   *storage.Raw[restake.Address]
	unpauser *storage.Raw[restake.Address]
}

// New creates a pauser instance bound to the registry address.
func New(env *runtime.Environment) *Pauser {
	sctx := storage.NewContext(contracts.PauserRegistryAddress, env.State())
	return &Pauser{
		env:      env,
		flags:    storage.NewUint256(sctx, slotFlags),
		pauser:   storage.NewRaw[restake.Address](sctx, slotPauser),
		unpauser: storage.NewRaw[restake.Address](sctx, slotUnpauser),
	}
}

// Paused returns the current pause bitmap.
func (p *Pauser) Paused() (*big.Int, error) {
	return p.flags.Get()
}

// IsPaused reports whether the given operation bit is set.
func (p *Pauser) IsPaused(bit uint) (bool, error) {
	flags, err := p.flags.Get()
	if err != nil {
		return false, err
	}
	return flags.Bit(int(bit)) == 1, nil
}

// RequireNotPaused reverts when the given operation bit is set.
func (p *Pauser) RequireNotPaused(bit uint) error {
	paused, err := p.IsPaused(bit)
	if err != nil {
		return err
	}
	if paused {
		return reverts.New("pauser: operation is paused")
	}
	return nil
}

// Pause replaces the bitmap with newStatus. Only the configured pauser
// may call, and newStatus must be a superset of the current bitmap.
func (p *Pauser) Pause(newStatus *big.Int) error {
	pauser, err := p.pauser.Get()
	if err != nil {
		return err
	}
	if p.env.Caller() != pauser {
		return errNotPauser
	}
	current, err := p.flags.Get()
	if err != nil {
		return err
	}
	if new(big.Int).And(current, newStatus).Cmp(current) != 0 {
		return errBitsCleared
	}
	p.flags.Set(newStatus)
	p.env.Log(EventPaused{Account: p.env.Caller(), NewStatus: newStatus})
	return nil
}

// Unpause replaces the bitmap with newStatus. Only the configured
// unpauser may call, and newStatus must be a subset of the current
// bitmap.
func (p *Pauser) Unpause(newStatus *big.Int) error {
	unpauser, err := p.unpauser.Get()
	if err != nil {
		return err
	}
	if p.env.Caller() != unpauser {
		return errNotUnpauser
	}
	current, err := p.flags.Get()
	if err != nil {
		return err
	}
	if new(big.Int).And(current, newStatus).Cmp(newStatus) != 0 {
		return errBitsSet
	}
	p.flags.Set(newStatus)
	p.env.Log(EventUnpaused{Account: p.env.Caller(), NewStatus: newStatus})
	return nil
}

// SetRoles writes the pauser and unpauser addresses. Meant for genesis
// initialization only.
func (p *Pauser) SetRoles(pauser, unpauser restake.Address) error {
	if err := p.pauser.Set(pauser); err != nil {
		return err
	}
	return p.unpauser.Set(unpauser)
}
