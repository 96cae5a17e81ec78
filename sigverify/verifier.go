// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sigverify

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/openrestake/restake/cache"
	"github.com/openrestake/restake/restake"
)

// WalletVerifier checks contract-wallet signatures, for signers that
// hold no key of their own.
type WalletVerifier interface {
	VerifyWalletSignature(signer restake.Address, digest restake.Bytes32, sig []byte) (bool, error)
}

// Verifier validates signatures against an expected signer. Recovery
// results are memoized since the same (digest, signature) pair is often
// checked more than once within a block.
type Verifier struct {
	wallets WalletVerifier
	cache   *cache.LRU[recoveryKey, restake.Address]
}

// NewVerifier creates a verifier. wallets may be nil when contract
// wallets are not supported.
func NewVerifier(wallets WalletVerifier) *Verifier {
	c, _ := cache.NewLRU[recoveryKey, restake.Address](1024)
	return &Verifier{wallets: wallets, cache: c}
}

type recoveryKey struct {
	digest restake.Bytes32
	sigKey restake.Bytes32
}

// Verify reports whether sig is a valid signature by signer over
// digest. Key recovery is tried first; when it does not produce the
// signer, the contract-wallet verifier decides.
func (v *Verifier) Verify(signer restake.Address, digest restake.Bytes32, sig []byte) (bool, error) {
	if recovered, err := v.recover(digest, sig); err == nil && recovered == signer {
		return true, nil
	}
	if v.wallets != nil {
		return v.wallets.VerifyWalletSignature(signer, digest, sig)
	}
	return false, nil
}

func (v *Verifier) recover(digest restake.Bytes32, sig []byte) (restake.Address, error) {
	if len(sig) != 65 {
		return restake.Address{}, errors.New("invalid signature length")
	}
	key := recoveryKey{digest: digest, sigKey: restake.Keccak256(sig)}
	return v.cache.GetOrLoad(key, func(recoveryKey) (restake.Address, error) {
		pub, err := crypto.SigToPub(digest.Bytes(), sig)
		if err != nil {
			return restake.Address{}, errors.Wrap(err, "recover signer")
		}
		return restake.Address(crypto.PubkeyToAddress(*pub)), nil
	})
}
