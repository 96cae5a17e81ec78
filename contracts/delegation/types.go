// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openrestake/restake/restake"
)

// SignatureWithExpiry carries a signature and the block number after
// which it is no longer acceptable.
type SignatureWithExpiry struct {
	Signature []byte
	Expiry    uint32
}

// QueuedWithdrawalParams describes one withdrawal to queue: parallel
// strategy and share lists plus the address allowed to complete it.
type QueuedWithdrawalParams struct {
	Strategies []restake.Address
	Shares     []*big.Int
	Withdrawer restake.Address
}

// Withdrawal is the full description of a queued withdrawal. Only its
// root is stored; completion takes the struct back as calldata and
// recomputes the root, so any field mismatch makes completion fail.
type Withdrawal struct {
	Staker      restake.Address
	DelegatedTo restake.Address
	Withdrawer  restake.Address
	Nonce       *big.Int
	StartBlock  uint32
	Strategies  []restake.Address
	Shares      []*big.Int
}

// Root computes the withdrawal's unique identifier.
func (w *Withdrawal) Root() (restake.Bytes32, error) {
	raw, err := rlp.EncodeToBytes(w)
	if err != nil {
		return restake.Bytes32{}, err
	}
	return restake.Keccak256(raw), nil
}
