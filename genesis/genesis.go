// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis performs the one-time initialization of a fresh
// deployment: admin roles, delay configuration, strategy registration
// and initial token allocations.
package genesis

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/openrestake/restake/contracts"
	"github.com/openrestake/restake/contracts/delegation"
	"github.com/openrestake/restake/contracts/pauser"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/contracts/strategies"
	"github.com/openrestake/restake/eventdb"
	"github.com/openrestake/restake/log"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/sigverify"
	"github.com/openrestake/restake/state"
)

var logger = log.WithContext("pkg", "genesis")

var slotInitialized = storage.NameToSlot("genesis-initialized")

// ErrAlreadyInitialized is returned when genesis ran before on this
// state. Initialization never runs twice: upgraded deployments keep
// every balance, nonce and pending withdrawal.
var ErrAlreadyInitialized = errors.New("genesis: already initialized")

// IsInitialized reports whether genesis has run on this state.
func IsInitialized(st *state.State) (bool, error) {
	sctx := storage.NewContext(contracts.DelegationManagerAddress, st)
	return storage.NewRaw[bool](sctx, slotInitialized).Get()
}

// Init applies the genesis configuration to a fresh state and commits
// it, indexing the events it emits at block 0 when edb is non-nil.
// Running it on an initialized state fails without touching anything.
func Init(st *state.State, cfg *Config, edb *eventdb.EventDB) error {
	done, err := IsInitialized(st)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyInitialized
	}

	env := runtime.New(st, runtime.Context{Caller: cfg.Owner, BlockNumber: 0, ChainID: cfg.ChainID})
	if err := env.Transact(func() error {
		dm := delegation.New(env, nil, sigverify.NewVerifier(nil))
		if err := dm.SetOwner(cfg.Owner); err != nil {
			return err
		}
		if err := pauser.New(env).SetRoles(cfg.Pauser, cfg.Unpauser); err != nil {
			return err
		}
		if err := dm.SetMinWithdrawalDelayBlocks(cfg.MinWithdrawalDelayBlocks); err != nil {
			return err
		}

		m := strategies.NewManager(env)
		for _, s := range cfg.Strategies {
			if err := m.RegisterStrategy(s.Address, s.Token); err != nil {
				return err
			}
			if s.WithdrawalDelayBlocks > 0 {
				if err := dm.SetStrategyWithdrawalDelayBlocks(
					[]restake.Address{s.Address}, []uint32{s.WithdrawalDelayBlocks}); err != nil {
					return err
				}
			}
		}
		for _, a := range cfg.Allocations {
			amount, _ := new(big.Int).SetString(a.Amount, 10)
			if err := m.Vault().Mint(a.Token, a.Holder, amount); err != nil {
				return err
			}
		}

		sctx := storage.NewContext(contracts.DelegationManagerAddress, st)
		return storage.NewRaw[bool](sctx, slotInitialized).Set(true)
	}); err != nil {
		return errors.Wrap(err, "apply genesis")
	}

	if err := st.Stage().Commit(); err != nil {
		return errors.Wrap(err, "commit genesis")
	}
	if edb != nil {
		if err := edb.Store(0, env.Events()); err != nil {
			return errors.Wrap(err, "index genesis events")
		}
	}
	logger.Info("genesis initialized",
		"chainId", cfg.ChainID, "strategies", len(cfg.Strategies), "allocations", len(cfg.Allocations))
	return nil
}
