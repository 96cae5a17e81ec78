// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime carries the execution environment of a core contract
// call: who is calling, at which block, on which chain, plus the event
// recorder and the all-or-nothing transaction discipline.
package runtime

import (
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/state"
)

// Event is a typed protocol event recorded during an operation, for
// off-chain indexers.
type Event interface {
	EventName() string
}

// Context is the immutable per-call context.
type Context struct {
	Caller      restake.Address
	BlockNumber uint32
	ChainID     uint64
}

// Environment binds a state instance to a call context.
type Environment struct {
	state  *state.State
	ctx    Context
	events []Event
}

// New creates an environment for one call.
func New(st *state.State, ctx Context) *Environment {
	return &Environment{state: st, ctx: ctx}
}

// State returns the bound state.
func (env *Environment) State() *state.State {
	return env.state
}

// Caller returns the address driving the current operation.
func (env *Environment) Caller() restake.Address {
	return env.ctx.Caller
}

// BlockNumber returns the current block number.
func (env *Environment) BlockNumber() uint32 {
	return env.ctx.BlockNumber
}

// ChainID returns the live chain identifier. It is read per call so a
// fork that changes the identifier is picked up by subsequent
// signature-domain computations.
func (env *Environment) ChainID() uint64 {
	return env.ctx.ChainID
}

// Log records a typed event.
func (env *Environment) Log(ev Event) {
	env.events = append(env.events, ev)
}

// Events returns all events recorded so far.
func (env *Environment) Events() []Event {
	return env.events
}

// Transact runs fn under a state checkpoint. On error every storage
// write and every event recorded inside fn is discarded, so a failed
// operation leaves no partial mutation behind.
func (env *Environment) Transact(fn func() error) error {
	cp := env.state.NewCheckpoint()
	evMark := len(env.events)
	if err := fn(); err != nil {
		env.state.RevertTo(cp)
		env.events = env.events[:evMark]
		return err
	}
	return nil
}
