// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state provides the mutable world state of the core contracts:
// per-(contract, slot) storage journaled through a stacked map so that
// every externally driven operation either commits fully or reverts
// without trace.
package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openrestake/restake/kv"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr restake.Address
	key  restake.Bytes32
}

// State manages contract storage with checkpoint/revert semantics.
// All values are kept in the journal until Stage is asked to persist
// them, so a RevertTo discards every mutation made after the matching
// NewCheckpoint.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap
}

// New creates a state instance backed by the given store.
func New(store kv.Store) *State {
	state := &State{store: store}
	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.srcGetter(key)
	})
	// base level that Stage journals from
	state.sm.Push()
	return state
}

// srcGetter loads values missing from the journal out of the store.
func (s *State) srcGetter(key any) (any, bool, error) {
	k, ok := key.(storageKey)
	if !ok {
		panic(fmt.Errorf("unexpected key type %+v", key))
	}
	raw, err := s.store.Get(persistentKey(k))
	if err != nil {
		if s.store.IsNotFound(err) {
			return rlp.RawValue(nil), true, nil
		}
		return nil, false, err
	}
	return rlp.RawValue(raw), true, nil
}

func persistentKey(k storageKey) []byte {
	b := make([]byte, 0, restake.AddressLength+32)
	b = append(b, k.addr.Bytes()...)
	return append(b, k.key.Bytes()...)
}

// GetRawStorage returns the storage value in rlp raw form for the given address and key.
func (s *State) GetRawStorage(addr restake.Address, key restake.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage sets the storage value in rlp raw form.
func (s *State) SetRawStorage(addr restake.Address, key restake.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns the 32-byte storage value for the given address and key.
func (s *State) GetStorage(addr restake.Address, key restake.Bytes32) (restake.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return restake.Bytes32{}, err
	}
	if len(raw) == 0 {
		return restake.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return restake.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// customized storage value, return hash of raw data
		return restake.Blake2b(raw), nil
	}
	return restake.BytesToBytes32(content), nil
}

// SetStorage sets the 32-byte storage value for the given address and key.
func (s *State) SetStorage(addr restake.Address, key, value restake.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	trimmed := value.Bytes()
	for len(trimmed) > 0 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}
	v, _ := rlp.EncodeToBytes(trimmed)
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage sets a storage value encoded by the given enc method.
func (s *State) EncodeStorage(addr restake.Address, key restake.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage gets and decodes a storage value.
func (s *State) DecodeStorage(addr restake.Address, key restake.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to the checkpoint specified by the revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Stage collects all journaled changes into a batch ready to be
// committed to the backing store.
func (s *State) Stage() *Stage {
	// replay the journal; later writes win
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(k, v any) bool {
		changes[k.(storageKey)] = v.(rlp.RawValue)
		return true
	})

	batch := s.store.NewBatch()
	for k, raw := range changes {
		if len(raw) == 0 {
			_ = batch.Delete(persistentKey(k))
		} else {
			_ = batch.Put(persistentKey(k), raw)
		}
	}
	return &Stage{batch: batch}
}

// Stage holds the pending writes of a state.
type Stage struct {
	batch kv.Batch
}

// Commit persists the staged changes. The batch is applied atomically
// by the underlying store.
func (s *Stage) Commit() error {
	if err := s.batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
