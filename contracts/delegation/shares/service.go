// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package shares keeps the per-(operator, strategy) delegated share
// ledger. Balances only move through the delegation core, so the
// ledger never goes negative.
package shares

import (
	"math/big"

	"github.com/openrestake/restake/contracts/reverts"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/restake"
)

var (
	slotShares = storage.NameToSlot("operator-shares")

	errInsufficientShares = reverts.New("shares: insufficient operator shares")
)

type ledgerKey struct {
	Operator restake.Address
	Strategy restake.Address
}

func (k ledgerKey) Bytes() []byte {
	return append(k.Operator.Bytes(), k.Strategy.Bytes()...)
}

// Service manages the delegated share ledger.
type Service struct {
	shares *storage.Mapping[ledgerKey, *big.Int]
}

// New creates the share service on the given storage context.
func New(sctx *storage.Context) *Service {
	return &Service{
		shares: storage.NewMapping[ledgerKey, *big.Int](sctx, slotShares),
	}
}

// Get returns the operator's delegated shares in strategy.
func (s *Service) Get(operator, strategy restake.Address) (*big.Int, error) {
	return s.shares.Get(ledgerKey{operator, strategy})
}

// Increase credits shares to the operator's balance in strategy.
func (s *Service) Increase(operator, strategy restake.Address, amount *big.Int) error {
	key := ledgerKey{operator, strategy}
	current, err := s.shares.Get(key)
	if err != nil {
		return err
	}
	return s.shares.Set(key, new(big.Int).Add(current, amount))
}

// Decrease debits shares from the operator's balance in strategy,
// failing when the balance does not cover the amount.
func (s *Service) Decrease(operator, strategy restake.Address, amount *big.Int) error {
	key := ledgerKey{operator, strategy}
	current, err := s.shares.Get(key)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return errInsufficientShares
	}
	remaining := new(big.Int).Sub(current, amount)
	if remaining.Sign() == 0 {
		return s.shares.Clear(key)
	}
	return s.shares.Set(key, remaining)
}
