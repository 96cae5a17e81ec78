// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/openrestake/restake/contracts/delegation/operators"
	"github.com/openrestake/restake/restake"
)

type EventOperatorRegistered struct {
	Operator restake.Address
	Details  operators.Details
}

func (EventOperatorRegistered) EventName() string { return "OperatorRegistered" }

type EventOperatorDetailsModified struct {
	Operator restake.Address
	Details  operators.Details
}

func (EventOperatorDetailsModified) EventName() string { return "OperatorDetailsModified" }

type EventOperatorMetadataURIUpdated struct {
	Operator    restake.Address
	MetadataURI string
}

func (EventOperatorMetadataURIUpdated) EventName() string { return "OperatorMetadataURIUpdated" }

type EventStakerDelegated struct {
	Staker   restake.Address
	Operator restake.Address
}

func (EventStakerDelegated) EventName() string { return "StakerDelegated" }

type EventStakerUndelegated struct {
	Staker   restake.Address
	Operator restake.Address
}

func (EventStakerUndelegated) EventName() string { return "StakerUndelegated" }

type EventOperatorSharesIncreased struct {
	Operator restake.Address
	Staker   restake.Address
	Strategy restake.Address
	Shares   *big.Int
}

func (EventOperatorSharesIncreased) EventName() string { return "OperatorSharesIncreased" }

type EventOperatorSharesDecreased struct {
	Operator restake.Address
	Staker   restake.Address
	Strategy restake.Address
	Shares   *big.Int
}

func (EventOperatorSharesDecreased) EventName() string { return "OperatorSharesDecreased" }

type EventWithdrawalQueued struct {
	Root       restake.Bytes32
	Withdrawal Withdrawal
}

func (EventWithdrawalQueued) EventName() string { return "WithdrawalQueued" }

type EventWithdrawalCompleted struct {
	Root restake.Bytes32
}

func (EventWithdrawalCompleted) EventName() string { return "WithdrawalCompleted" }

type EventMinWithdrawalDelayBlocksSet struct {
	Previous uint32
	New      uint32
}

func (EventMinWithdrawalDelayBlocksSet) EventName() string { return "MinWithdrawalDelayBlocksSet" }

type EventStrategyWithdrawalDelayBlocksSet struct {
	Strategy restake.Address
	Previous uint32
	New      uint32
}

func (EventStrategyWithdrawalDelayBlocksSet) EventName() string {
	return "StrategyWithdrawalDelayBlocksSet"
}
