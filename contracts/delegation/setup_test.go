// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/openrestake/restake/contracts/delegation/operators"
	"github.com/openrestake/restake/contracts/pauser"
	"github.com/openrestake/restake/contracts/strategies"
	"github.com/openrestake/restake/lvldb"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/sigverify"
	"github.com/openrestake/restake/state"
)

var (
	ownerAddr    = restake.BytesToAddress([]byte("owner"))
	pauserAddr   = restake.BytesToAddress([]byte("pauser-role"))
	unpauserAddr = restake.BytesToAddress([]byte("unpauser-role"))

	tokenA = restake.BytesToAddress([]byte("token-a"))
	tokenB = restake.BytesToAddress([]byte("token-b"))
	stratA = restake.BytesToAddress([]byte("strategy-a"))
	stratB = restake.BytesToAddress([]byte("strategy-b"))
)

const (
	testChainID  = uint64(77)
	testMinDelay = uint32(50)
)

// testChain drives the delegation core against an in-memory state,
// one environment per call so caller and block number vary naturally.
type testChain struct {
	t     *testing.T
	st    *state.State
	block uint32
}

func newTestChain(t *testing.T) *testChain {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	c := &testChain{t: t, st: state.NewStater(db).NewState(), block: 10}

	dm, m, env := c.actors(ownerAddr)
	require.NoError(t, m.RegisterStrategy(stratA, tokenA))
	require.NoError(t, m.RegisterStrategy(stratB, tokenB))
	require.NoError(t, pauser.New(env).SetRoles(pauserAddr, unpauserAddr))
	require.NoError(t, dm.SetOwner(ownerAddr))
	require.NoError(t, dm.SetMinWithdrawalDelayBlocks(testMinDelay))
	return c
}

func (c *testChain) actors(caller restake.Address) (*DelegationManager, *strategies.Manager, *runtime.Environment) {
	env := runtime.New(c.st, runtime.Context{Caller: caller, BlockNumber: c.block, ChainID: testChainID})
	m := strategies.NewManager(env)
	dm := New(env, m, sigverify.NewVerifier(nil))
	m.SetObserver(dm)
	return dm, m, env
}

func (c *testChain) dm(caller restake.Address) *DelegationManager {
	dm, _, _ := c.actors(caller)
	return dm
}

func (c *testChain) fund(holder restake.Address, token restake.Address, amount int64) {
	_, m, _ := c.actors(holder)
	require.NoError(c.t, m.Vault().Mint(token, holder, big.NewInt(amount)))
}

func (c *testChain) deposit(staker restake.Address, strategy restake.Address, amount int64) {
	_, m, _ := c.actors(staker)
	require.NoError(c.t, m.Deposit(strategy, big.NewInt(amount)))
}

func (c *testChain) registerOperator(operator restake.Address, approver restake.Address, optOutWindow uint32) {
	dm := c.dm(operator)
	require.NoError(c.t, dm.RegisterAsOperator(&operators.Details{
		DelegationApprover:       approver,
		StakerOptOutWindowBlocks: optOutWindow,
	}, "https://operator.example/meta"))
}

func (c *testChain) delegate(staker, operator restake.Address) {
	require.NoError(c.t, c.dm(staker).DelegateTo(operator, nil, restake.Bytes32{}))
}

func (c *testChain) operatorShares(operator, strategy restake.Address) *big.Int {
	shares, err := c.dm(operator).OperatorShares(operator, strategy)
	require.NoError(c.t, err)
	return shares
}

func (c *testChain) stakerDeposit(staker, strategy restake.Address) *big.Int {
	_, m, _ := c.actors(staker)
	strats, amounts, err := m.GetDeposits(staker)
	require.NoError(c.t, err)
	for i, s := range strats {
		if s == strategy {
			return amounts[i]
		}
	}
	return new(big.Int)
}

func (c *testChain) tokenBalance(token, holder restake.Address) *big.Int {
	_, m, _ := c.actors(holder)
	balance, err := m.Vault().Balance(token, holder)
	require.NoError(c.t, err)
	return balance
}

func newSigner(t *testing.T) (*ecdsa.PrivateKey, restake.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, restake.Address(crypto.PubkeyToAddress(key.PublicKey))
}

func signDigest(t *testing.T, key *ecdsa.PrivateKey, digest restake.Bytes32) []byte {
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	return sig
}
