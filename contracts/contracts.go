// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contracts hosts the core protocol contracts and their
// well-known addresses. The addresses are fixed so that persistent
// state keyed by them survives implementation upgrades.
package contracts

import "github.com/openrestake/restake/restake"

var (
	// DelegationManagerAddress is the storage address of the delegation core.
	DelegationManagerAddress = restake.BytesToAddress([]byte("DelegationManager"))

	// StrategyManagerAddress is the storage address of the strategy registry.
	StrategyManagerAddress = restake.BytesToAddress([]byte("StrategyManager"))

	// PauserRegistryAddress is the storage address of the pauser registry.
	PauserRegistryAddress = restake.BytesToAddress([]byte("PauserRegistry"))

	// TokenVaultAddress is the storage address of the underlying-token ledger.
	TokenVaultAddress = restake.BytesToAddress([]byte("TokenVault"))
)
