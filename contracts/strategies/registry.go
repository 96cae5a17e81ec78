// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package strategies tracks per-staker deposit shares. The delegation
// core consumes it through the Registry interface; Manager is the
// reference implementation backed by the world state, paying out
// withdrawals through the underlying-token vault.
package strategies

import (
	"math/big"

	"github.com/openrestake/restake/restake"
)

// Registry is the deposit-share collaborator of the delegation core.
type Registry interface {
	// GetDeposits returns every strategy the staker holds deposit
	// shares in, with the matching share amounts.
	GetDeposits(staker restake.Address) ([]restake.Address, []*big.Int, error)

	// AddShares credits deposit shares to staker, used when a queued
	// withdrawal is completed back into shares.
	AddShares(staker, strategy restake.Address, shares *big.Int) error

	// RemoveShares debits deposit shares from staker, used when a
	// withdrawal is queued. It fails when the balance is insufficient.
	RemoveShares(staker, strategy restake.Address, shares *big.Int) error

	// WithdrawSharesAsTokens converts shares into the strategy's
	// underlying token and credits the recipient.
	WithdrawSharesAsTokens(recipient, strategy, token restake.Address, shares *big.Int) error
}

// DepositObserver is notified when a staker's deposit shares in a
// strategy grow, so delegated operators can be credited.
type DepositObserver interface {
	OnDepositSharesIncreased(staker, strategy restake.Address, shares *big.Int) error
}
