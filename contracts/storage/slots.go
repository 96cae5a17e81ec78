// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openrestake/restake/restake"
)

// Uint256 is a wrapper for storage and retrieval of a uint256, similar
// to storing a uint256 in a smart contract.
type Uint256 struct {
	context *Context
	pos     restake.Bytes32
}

// NewUint256 creates a uint256 slot.
func NewUint256(context *Context, slot restake.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

// Get returns the stored value, zero if unset.
func (u *Uint256) Get() (*big.Int, error) {
	stored, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(stored.Bytes()), nil
}

// Set stores the value. Values beyond 256 bits are truncated to fit.
func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.address, u.pos, restake.BytesToBytes32(value.Bytes()))
}

// Add adds value to the stored value.
func (u *Uint256) Add(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Add(stored, value)
	u.Set(stored)
	return nil
}

// Sub subtracts value from the stored value.
func (u *Uint256) Sub(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Sub(stored, value)
	u.Set(stored)
	return nil
}

// Raw is a single typed storage slot, rlp-encoded.
type Raw[V any] struct {
	context *Context
	pos     restake.Bytes32
}

// NewRaw creates a typed slot.
func NewRaw[V any](context *Context, slot restake.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: slot}
}

// Get returns the stored value, the zero value if unset.
func (r *Raw[V]) Get() (value V, err error) {
	err = r.context.state.DecodeStorage(r.context.address, r.pos, func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value.
func (r *Raw[V]) Set(value V) error {
	return r.context.state.EncodeStorage(r.context.address, r.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}
