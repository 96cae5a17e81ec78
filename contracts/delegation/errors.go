// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import "github.com/openrestake/restake/contracts/reverts"

var (
	errNotOwner             = reverts.New("delegation: caller is not the owner")
	errAlreadyDelegated     = reverts.New("delegation: staker is already actively delegated")
	errNotDelegated         = reverts.New("delegation: staker is not actively delegated")
	errOperatorNotFound     = reverts.New("delegation: operator is not registered")
	errOperatorUndelegate   = reverts.New("delegation: operators cannot be undelegated")
	errUndelegateForbidden  = reverts.New("delegation: caller cannot undelegate staker")
	errStakerSigExpired     = reverts.New("delegation: staker signature expired")
	errStakerSigInvalid     = reverts.New("delegation: staker signature not from staker")
	errApproverSigExpired   = reverts.New("delegation: approver signature expired")
	errApproverSigInvalid   = reverts.New("delegation: approver signature not from approver")
	errApproverSaltSpent    = reverts.New("delegation: approver salt already spent")
	errLengthMismatch       = reverts.New("delegation: input length mismatch")
	errWithdrawerNotStaker  = reverts.New("delegation: withdrawer must be the staker")
	errWithdrawalNotPending = reverts.New("delegation: withdrawal is not pending")
	errNotWithdrawer        = reverts.New("delegation: caller must be the withdrawer")
	errDelayNotElapsed      = reverts.New("delegation: withdrawal delay has not elapsed")
)
