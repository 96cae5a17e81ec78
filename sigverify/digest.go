// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sigverify computes typed authorization digests and verifies
// signatures over them, for both key-holding accounts and contract
// wallets.
package sigverify

import (
	"encoding/binary"

	"github.com/openrestake/restake/restake"
)

// DomainName identifies this protocol in authorization digests.
const DomainName = "OpenRestake"

var (
	domainTypehash             = restake.Keccak256([]byte("EIP712Domain(string name,uint256 chainId,address verifyingContract)"))
	stakerDelegationTypehash   = restake.Keccak256([]byte("StakerDelegation(address staker,address operator,uint256 expiry)"))
	delegationApprovalTypehash = restake.Keccak256([]byte("DelegationApproval(address staker,address operator,bytes32 salt,uint256 expiry)"))
	domainNameHash             = restake.Keccak256([]byte(DomainName))
)

func addressWord(addr restake.Address) []byte {
	var word [32]byte
	copy(word[12:], addr.Bytes())
	return word[:]
}

func uintWord(v uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], v)
	return word[:]
}

// DomainSeparator derives the signing domain from the live chain
// identifier and the verifying contract address. It is recomputed per
// call, never cached in storage, so signatures stop replaying across a
// chain-identifier fork.
func DomainSeparator(chainID uint64, contract restake.Address) restake.Bytes32 {
	return restake.Keccak256(
		domainTypehash.Bytes(),
		domainNameHash.Bytes(),
		uintWord(chainID),
		addressWord(contract),
	)
}

func typedDigest(separator, structHash restake.Bytes32) restake.Bytes32 {
	return restake.Keccak256([]byte{0x19, 0x01}, separator.Bytes(), structHash.Bytes())
}

// StakerDelegationDigest is the digest a staker signs to authorize
// delegation to an operator. It deliberately carries no consumable
// nonce: once the staker is delegated, replaying the signature fails
// the already-delegated check, and expiry bounds its lifetime.
func StakerDelegationDigest(chainID uint64, contract, staker, operator restake.Address, expiry uint32) restake.Bytes32 {
	structHash := restake.Keccak256(
		stakerDelegationTypehash.Bytes(),
		addressWord(staker),
		addressWord(operator),
		uintWord(uint64(expiry)),
	)
	return typedDigest(DomainSeparator(chainID, contract), structHash)
}

// DelegationApprovalDigest is the digest an operator's delegation
// approver signs to admit a staker. The salt is consumed on use.
func DelegationApprovalDigest(chainID uint64, contract, staker, operator restake.Address, salt restake.Bytes32, expiry uint32) restake.Bytes32 {
	structHash := restake.Keccak256(
		delegationApprovalTypehash.Bytes(),
		addressWord(staker),
		addressWord(operator),
		salt.Bytes(),
		uintWord(uint64(expiry)),
	)
	return typedDigest(DomainSeparator(chainID, contract), structHash)
}
