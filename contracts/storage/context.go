// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage provides Solidity-style typed storage primitives
// (mappings, value slots) for the core contracts, rlp-encoded over the
// world state.
package storage

import (
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/state"
)

// Context binds a contract address to a state instance.
type Context struct {
	address restake.Address
	state   *state.State
}

// NewContext creates a storage context.
func NewContext(address restake.Address, st *state.State) *Context {
	return &Context{
		address: address,
		state:   st,
	}
}

// Address returns the owning contract address.
func (c *Context) Address() restake.Address {
	return c.address
}

// State returns the bound state.
func (c *Context) State() *state.State {
	return c.state
}

// NameToSlot derives a slot position by hashing a stable name.
func NameToSlot(name string) restake.Bytes32 {
	return restake.Blake2b([]byte(name))
}
