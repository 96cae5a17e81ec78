// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package strategies

import (
	"math/big"

	"github.com/openrestake/restake/contracts"
	"github.com/openrestake/restake/contracts/reverts"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/state"
)

var slotBalances = storage.NameToSlot("token-balances")

var errInsufficientBalance = reverts.New("vault: insufficient token balance")

type balanceKey struct {
	Token  restake.Address
	Holder restake.Address
}

func (k balanceKey) Bytes() []byte {
	return append(k.Token.Bytes(), k.Holder.Bytes()...)
}

// Vault is the underlying-token ledger. Each (token, holder) pair has a
// balance; strategies hold the tokens backing their deposit shares.
type Vault struct {
	balances *storage.Mapping[balanceKey, *big.Int]
}

// NewVault creates a vault bound to its well-known address.
func NewVault(st *state.State) *Vault {
	sctx := storage.NewContext(contracts.TokenVaultAddress, st)
	return &Vault{
		balances: storage.NewMapping[balanceKey, *big.Int](sctx, slotBalances),
	}
}

// Balance returns the holder's balance of token.
func (v *Vault) Balance(token, holder restake.Address) (*big.Int, error) {
	return v.balances.Get(balanceKey{token, holder})
}

// Mint credits freshly issued tokens to the holder. Meant for genesis
// allocation and tests.
func (v *Vault) Mint(token, holder restake.Address, amount *big.Int) error {
	balance, err := v.Balance(token, holder)
	if err != nil {
		return err
	}
	return v.balances.Set(balanceKey{token, holder}, new(big.Int).Add(balance, amount))
}

// Transfer moves tokens between holders, failing when the sender's
// balance does not cover the amount.
func (v *Vault) Transfer(token, from, to restake.Address, amount *big.Int) error {
	fromBalance, err := v.Balance(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	toBalance, err := v.Balance(token, to)
	if err != nil {
		return err
	}
	if err := v.balances.Set(balanceKey{token, from}, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return v.balances.Set(balanceKey{token, to}, new(big.Int).Add(toBalance, amount))
}
