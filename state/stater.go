// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/openrestake/restake/kv"

// Stater is the factory of state instances over one backing store.
type Stater struct {
	store kv.Store
}

// NewStater creates a stater.
func NewStater(store kv.Store) *Stater {
	return &Stater{store: store}
}

// NewState creates a fresh state view over the committed store contents.
func (s *Stater) NewState() *State {
	return New(s.store)
}
