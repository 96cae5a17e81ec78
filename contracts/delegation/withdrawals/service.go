// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package withdrawals keeps the withdrawal-queue bookkeeping: per-staker
// nonces, pending withdrawal roots and the delay configuration.
package withdrawals

import (
	"math/big"

	"github.com/openrestake/restake/contracts/reverts"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/restake"
)

var (
	slotNonces        = storage.NameToSlot("withdrawal-nonces")
	slotPending       = storage.NameToSlot("pending-withdrawals")
	slotMinDelay      = storage.NameToSlot("min-withdrawal-delay")
	slotStrategyDelay = storage.NameToSlot("strategy-withdrawal-delay")

	errDelayTooLarge = reverts.New("withdrawals: delay exceeds maximum")
)

// Service manages withdrawal-queue state.
type Service struct {
	nonces        *storage.Mapping[restake.Address, *big.Int]
	pending       *storage.Mapping[restake.Bytes32, bool]
	minDelay      *storage.Raw[uint32]
	strategyDelay *storage.Mapping[restake.Address, uint32]
}

// New creates the withdrawal service on the given storage context.
func New(sctx *storage.Context) *Service {
	return &Service{
		nonces:        storage.NewMapping[restake.Address, *big.Int](sctx, slotNonces),
		pending:       storage.NewMapping[restake.Bytes32, bool](sctx, slotPending),
		minDelay:      storage.NewRaw[uint32](sctx, slotMinDelay),
		strategyDelay: storage.NewMapping[restake.Address, uint32](sctx, slotStrategyDelay),
	}
}

// Nonce returns the number of withdrawals the staker has ever queued.
func (s *Service) Nonce(staker restake.Address) (*big.Int, error) {
	return s.nonces.Get(staker)
}

// ConsumeNonce returns the staker's current nonce and advances it. The
// counter never decreases, so every queued withdrawal gets a root that
// no other withdrawal of the same staker can collide with.
func (s *Service) ConsumeNonce(staker restake.Address) (*big.Int, error) {
	nonce, err := s.nonces.Get(staker)
	if err != nil {
		return nil, err
	}
	if err := s.nonces.Set(staker, new(big.Int).Add(nonce, big.NewInt(1))); err != nil {
		return nil, err
	}
	return nonce, nil
}

// IsPending reports whether a withdrawal root is queued and
// uncompleted.
func (s *Service) IsPending(root restake.Bytes32) (bool, error) {
	return s.pending.Get(root)
}

// SetPending marks a withdrawal root as queued.
func (s *Service) SetPending(root restake.Bytes32) error {
	return s.pending.Set(root, true)
}

// ClearPending removes a withdrawal root from the pending set.
func (s *Service) ClearPending(root restake.Bytes32) error {
	return s.pending.Clear(root)
}

// MinDelayBlocks returns the global minimum withdrawal delay.
func (s *Service) MinDelayBlocks() (uint32, error) {
	return s.minDelay.Get()
}

// SetMinDelayBlocks stores the global minimum withdrawal delay,
// bounded by the protocol maximum.
func (s *Service) SetMinDelayBlocks(blocks uint32) error {
	if blocks > restake.MaxWithdrawalDelayBlocks {
		return errDelayTooLarge
	}
	return s.minDelay.Set(blocks)
}

// StrategyDelayBlocks returns the extra delay configured for a
// strategy, zero when none.
func (s *Service) StrategyDelayBlocks(strategy restake.Address) (uint32, error) {
	return s.strategyDelay.Get(strategy)
}

// SetStrategyDelayBlocks stores a per-strategy withdrawal delay,
// bounded by the protocol maximum.
func (s *Service) SetStrategyDelayBlocks(strategy restake.Address, blocks uint32) error {
	if blocks > restake.MaxWithdrawalDelayBlocks {
		return errDelayTooLarge
	}
	return s.strategyDelay.Set(strategy, blocks)
}

// EffectiveDelay returns the delay a withdrawal over the given
// strategies must wait: the maximum of the global minimum and every
// per-strategy delay involved.
func (s *Service) EffectiveDelay(strategies []restake.Address) (uint32, error) {
	delay, err := s.MinDelayBlocks()
	if err != nil {
		return 0, err
	}
	for _, strategy := range strategies {
		sd, err := s.strategyDelay.Get(strategy)
		if err != nil {
			return 0, err
		}
		if sd > delay {
			delay = sd
		}
	}
	return delay, nil
}
