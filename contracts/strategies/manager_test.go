// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package strategies

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrestake/restake/lvldb"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/state"
)

var (
	staker    = restake.BytesToAddress([]byte("staker-1"))
	strategyA = restake.BytesToAddress([]byte("strategy-a"))
	strategyB = restake.BytesToAddress([]byte("strategy-b"))
	tokenA    = restake.BytesToAddress([]byte("token-a"))
	tokenB    = restake.BytesToAddress([]byte("token-b"))
)

type recordingObserver struct {
	increases int
	lastWho   restake.Address
	lastWhere restake.Address
	lastHow   *big.Int
}

func (o *recordingObserver) OnDepositSharesIncreased(staker, strategy restake.Address, shares *big.Int) error {
	o.increases++
	o.lastWho, o.lastWhere, o.lastHow = staker, strategy, shares
	return nil
}

func newManager(t *testing.T) *Manager {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.NewStater(db).NewState()
	env := runtime.New(st, runtime.Context{Caller: staker, BlockNumber: 1, ChainID: 1})
	m := NewManager(env)
	require.NoError(t, m.RegisterStrategy(strategyA, tokenA))
	require.NoError(t, m.RegisterStrategy(strategyB, tokenB))
	require.NoError(t, m.Vault().Mint(tokenA, staker, big.NewInt(1000)))
	require.NoError(t, m.Vault().Mint(tokenB, staker, big.NewInt(1000)))
	return m
}

func TestDepositAndGetDeposits(t *testing.T) {
	m := newManager(t)
	obs := &recordingObserver{}
	m.SetObserver(obs)

	require.NoError(t, m.Deposit(strategyA, big.NewInt(300)))
	require.NoError(t, m.Deposit(strategyB, big.NewInt(200)))
	require.NoError(t, m.Deposit(strategyA, big.NewInt(100)))

	strats, shares, err := m.GetDeposits(staker)
	require.NoError(t, err)
	require.Equal(t, []restake.Address{strategyA, strategyB}, strats)
	assert.Equal(t, big.NewInt(400), shares[0])
	assert.Equal(t, big.NewInt(200), shares[1])

	assert.Equal(t, 3, obs.increases)
	assert.Equal(t, staker, obs.lastWho)
	assert.Equal(t, strategyA, obs.lastWhere)
	assert.Equal(t, big.NewInt(100), obs.lastHow)

	// tokens moved from the staker to the strategy
	balance, err := m.Vault().Balance(tokenA, staker)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), balance)
	balance, err = m.Vault().Balance(tokenA, strategyA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), balance)
}

func TestDepositFailures(t *testing.T) {
	m := newManager(t)

	assert.Equal(t, errZeroShares, m.Deposit(strategyA, big.NewInt(0)))
	unknown := restake.BytesToAddress([]byte("no-such-strategy"))
	assert.Equal(t, errUnknownStrategy, m.Deposit(unknown, big.NewInt(1)))
	assert.Equal(t, errInsufficientBalance, m.Deposit(strategyA, big.NewInt(5000)))

	// failed deposits leave no shares behind
	strats, _, err := m.GetDeposits(staker)
	require.NoError(t, err)
	assert.Empty(t, strats)
}

func TestRemoveShares(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Deposit(strategyA, big.NewInt(400)))
	require.NoError(t, m.Deposit(strategyB, big.NewInt(200)))

	assert.Equal(t, errInsufficientStake, m.RemoveShares(staker, strategyA, big.NewInt(401)))
	require.NoError(t, m.RemoveShares(staker, strategyA, big.NewInt(150)))

	strats, shares, err := m.GetDeposits(staker)
	require.NoError(t, err)
	require.Len(t, strats, 2)
	assert.Equal(t, big.NewInt(250), shares[0])

	// draining a strategy removes it from the staker's list
	require.NoError(t, m.RemoveShares(staker, strategyA, big.NewInt(250)))
	strats, shares, err = m.GetDeposits(staker)
	require.NoError(t, err)
	require.Equal(t, []restake.Address{strategyB}, strats)
	assert.Equal(t, big.NewInt(200), shares[0])
}

func TestWithdrawSharesAsTokens(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Deposit(strategyA, big.NewInt(400)))
	require.NoError(t, m.RemoveShares(staker, strategyA, big.NewInt(400)))

	recipient := restake.BytesToAddress([]byte("recipient"))
	assert.Equal(t, errTokenMismatch, m.WithdrawSharesAsTokens(recipient, strategyA, tokenB, big.NewInt(400)))

	require.NoError(t, m.WithdrawSharesAsTokens(recipient, strategyA, tokenA, big.NewInt(400)))
	balance, err := m.Vault().Balance(tokenA, recipient)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), balance)
	balance, err = m.Vault().Balance(tokenA, strategyA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), balance)
}
