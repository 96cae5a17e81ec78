// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrestake/restake/contracts/pauser"
	"github.com/openrestake/restake/restake"
)

// queue queues one withdrawal and returns it with its root, digging the
// full withdrawal out of the queued event.
func (c *testChain) queue(staker restake.Address, strats []restake.Address, amounts []int64) (Withdrawal, restake.Bytes32) {
	dm, _, env := c.actors(staker)
	shares := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		shares[i] = big.NewInt(a)
	}
	roots, err := dm.QueueWithdrawals([]QueuedWithdrawalParams{{
		Strategies: strats, Shares: shares, Withdrawer: staker,
	}})
	require.NoError(c.t, err)
	require.Len(c.t, roots, 1)
	for _, ev := range env.Events() {
		if q, ok := ev.(EventWithdrawalQueued); ok && q.Root == roots[0] {
			return q.Withdrawal, q.Root
		}
	}
	c.t.Fatal("queued event not recorded")
	return Withdrawal{}, restake.Bytes32{}
}

func TestQueueWithdrawals(t *testing.T) {
	c := newTestChain(t)
	op := restake.BytesToAddress([]byte("operator-1"))
	staker := restake.BytesToAddress([]byte("staker-1"))

	c.registerOperator(op, restake.Address{}, 100)
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)
	c.delegate(staker, op)

	dm := c.dm(staker)

	_, root1 := c.queue(staker, []restake.Address{stratA}, []int64{120})
	assert.Equal(t, big.NewInt(180), c.operatorShares(op, stratA))
	assert.Equal(t, big.NewInt(180), c.stakerDeposit(staker, stratA))

	nonce, err := dm.CumulativeWithdrawalsQueued(staker)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), nonce)

	// identical parameters produce a distinct root thanks to the nonce
	_, root2 := c.queue(staker, []restake.Address{stratA}, []int64{120})
	assert.NotEqual(t, root1, root2)

	// withdrawer must be the queueing staker
	_, err = dm.QueueWithdrawals([]QueuedWithdrawalParams{{
		Strategies: []restake.Address{stratA},
		Shares:     []*big.Int{big.NewInt(10)},
		Withdrawer: op,
	}})
	assert.Equal(t, errWithdrawerNotStaker, err)

	_, err = dm.QueueWithdrawals([]QueuedWithdrawalParams{{
		Strategies: []restake.Address{stratA, stratB},
		Shares:     []*big.Int{big.NewInt(10)},
		Withdrawer: staker,
	}})
	assert.Equal(t, errLengthMismatch, err)

	// over-queueing fails and leaves no trace
	before, err := dm.CumulativeWithdrawalsQueued(staker)
	require.NoError(t, err)
	_, err = dm.QueueWithdrawals([]QueuedWithdrawalParams{{
		Strategies: []restake.Address{stratA},
		Shares:     []*big.Int{big.NewInt(1000)},
		Withdrawer: staker,
	}})
	require.EqualError(t, err, "shares: insufficient operator shares")
	after, err := dm.CumulativeWithdrawalsQueued(staker)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, big.NewInt(60), c.stakerDeposit(staker, stratA))
}

func TestQueueWithdrawalsPartialFailure(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)

	dm := c.dm(staker)

	// the first two params queue and bump the nonce twice before the
	// third fails; the rollback must leave the staker fully readable
	params := []QueuedWithdrawalParams{
		{Strategies: []restake.Address{stratA}, Shares: []*big.Int{big.NewInt(50)}, Withdrawer: staker},
		{Strategies: []restake.Address{stratA}, Shares: []*big.Int{big.NewInt(50)}, Withdrawer: staker},
		{Strategies: []restake.Address{stratA}, Shares: []*big.Int{big.NewInt(1000)}, Withdrawer: staker},
	}
	_, err := dm.QueueWithdrawals(params)
	require.EqualError(t, err, "strategies: insufficient deposit shares")

	nonce, err := dm.CumulativeWithdrawalsQueued(staker)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), nonce)
	assert.Equal(t, big.NewInt(300), c.stakerDeposit(staker, stratA))
}

func TestQueueWithdrawalsUndelegated(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)

	// an undelegated staker queues against deposits only
	w, root := c.queue(staker, []restake.Address{stratA}, []int64{100})
	assert.True(t, w.DelegatedTo.IsZero())
	assert.Equal(t, big.NewInt(200), c.stakerDeposit(staker, stratA))

	pending, err := c.dm(staker).PendingWithdrawal(root)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestCompleteAsTokens(t *testing.T) {
	c := newTestChain(t)
	op := restake.BytesToAddress([]byte("operator-1"))
	staker := restake.BytesToAddress([]byte("staker-1"))

	c.registerOperator(op, restake.Address{}, 100)
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)
	c.delegate(staker, op)

	w, root := c.queue(staker, []restake.Address{stratA}, []int64{120})
	start := c.block

	// one block short of the delay
	c.block = start + testMinDelay - 1
	err := c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true)
	assert.Equal(t, errDelayNotElapsed, err)

	// exactly at the threshold the withdrawal completes
	c.block = start + testMinDelay

	// but only for the designated withdrawer
	err = c.dm(op).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true)
	assert.Equal(t, errNotWithdrawer, err)

	// and with a token per strategy
	err = c.dm(staker).CompleteQueuedWithdrawal(&w, nil, true)
	assert.Equal(t, errLengthMismatch, err)

	require.NoError(t, c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true))
	assert.Equal(t, big.NewInt(820), c.tokenBalance(tokenA, staker))
	assert.Equal(t, big.NewInt(180), c.tokenBalance(tokenA, stratA))

	// total supply is conserved
	total := new(big.Int).Add(c.tokenBalance(tokenA, staker), c.tokenBalance(tokenA, stratA))
	assert.Equal(t, big.NewInt(1000), total)

	// a completed withdrawal cannot complete again
	err = c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true)
	assert.Equal(t, errWithdrawalNotPending, err)
	pending, err := c.dm(staker).PendingWithdrawal(root)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestCompleteAsSharesRedirectsToNewOperator(t *testing.T) {
	c := newTestChain(t)
	op1 := restake.BytesToAddress([]byte("operator-1"))
	op2 := restake.BytesToAddress([]byte("operator-2"))
	staker := restake.BytesToAddress([]byte("staker-1"))

	c.registerOperator(op1, restake.Address{}, 100)
	c.registerOperator(op2, restake.Address{}, 100)
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)
	c.delegate(staker, op1)

	w1, _ := c.queue(staker, []restake.Address{stratA}, []int64{120})

	// undelegating queues the remaining 180 and frees the staker
	roots, err := c.dm(staker).Undelegate(staker)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, big.NewInt(0), c.operatorShares(op1, stratA))

	// the staker joins a new operator with nothing deposited
	c.delegate(staker, op2)
	assert.Equal(t, big.NewInt(0), c.operatorShares(op2, stratA))

	c.block += restake.MaxWithdrawalDelayBlocks

	// completing back into shares credits the current operator
	require.NoError(t, c.dm(staker).CompleteQueuedWithdrawal(&w1, nil, false))
	assert.Equal(t, big.NewInt(120), c.stakerDeposit(staker, stratA))
	assert.Equal(t, big.NewInt(120), c.operatorShares(op2, stratA))
	assert.Equal(t, big.NewInt(0), c.operatorShares(op1, stratA))
}

func TestCompleteBatch(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	c.fund(staker, tokenA, 1000)
	c.fund(staker, tokenB, 500)
	c.deposit(staker, stratA, 300)
	c.deposit(staker, stratB, 200)

	w1, _ := c.queue(staker, []restake.Address{stratA}, []int64{100})
	w2, _ := c.queue(staker, []restake.Address{stratB}, []int64{50})

	c.block += testMinDelay
	dm := c.dm(staker)

	assert.Equal(t, errLengthMismatch, dm.CompleteQueuedWithdrawals(
		[]*Withdrawal{&w1, &w2}, [][]restake.Address{{tokenA}}, []bool{true, true}))

	// one bad entry rolls back the whole batch
	err := dm.CompleteQueuedWithdrawals(
		[]*Withdrawal{&w1, &w2},
		[][]restake.Address{{tokenA}, {tokenA}},
		[]bool{true, true})
	require.EqualError(t, err, "strategies: token does not match strategy underlying")
	pending, err := dm.PendingWithdrawal(mustRoot(t, &w1))
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, dm.CompleteQueuedWithdrawals(
		[]*Withdrawal{&w1, &w2},
		[][]restake.Address{{tokenA}, {tokenB}},
		[]bool{true, true}))
	assert.Equal(t, big.NewInt(800), c.tokenBalance(tokenA, staker))
	assert.Equal(t, big.NewInt(350), c.tokenBalance(tokenB, staker))
}

func mustRoot(t *testing.T, w *Withdrawal) restake.Bytes32 {
	root, err := w.Root()
	require.NoError(t, err)
	return root
}

func TestWithdrawalRootIntegrity(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)

	w, _ := c.queue(staker, []restake.Address{stratA}, []int64{100})
	c.block += testMinDelay

	// any tampered field changes the root and misses the pending set
	tampered := w
	tampered.Shares = []*big.Int{big.NewInt(300)}
	err := c.dm(staker).CompleteQueuedWithdrawal(&tampered, []restake.Address{tokenA}, true)
	assert.Equal(t, errWithdrawalNotPending, err)

	tampered = w
	tampered.StartBlock = 1
	err = c.dm(staker).CompleteQueuedWithdrawal(&tampered, []restake.Address{tokenA}, true)
	assert.Equal(t, errWithdrawalNotPending, err)
}

func TestDelayConfiguration(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	dm := c.dm(staker)

	assert.Equal(t, errNotOwner, dm.SetMinWithdrawalDelayBlocks(10))
	assert.Equal(t, errNotOwner, dm.SetStrategyWithdrawalDelayBlocks(
		[]restake.Address{stratA}, []uint32{10}))

	owner := c.dm(ownerAddr)
	err := owner.SetMinWithdrawalDelayBlocks(restake.MaxWithdrawalDelayBlocks + 1)
	require.EqualError(t, err, "withdrawals: delay exceeds maximum")
	err = owner.SetStrategyWithdrawalDelayBlocks(
		[]restake.Address{stratA}, []uint32{restake.MaxWithdrawalDelayBlocks + 1})
	require.EqualError(t, err, "withdrawals: delay exceeds maximum")
	assert.Equal(t, errLengthMismatch, owner.SetStrategyWithdrawalDelayBlocks(
		[]restake.Address{stratA, stratB}, []uint32{10}))

	require.NoError(t, owner.SetStrategyWithdrawalDelayBlocks(
		[]restake.Address{stratB}, []uint32{200}))

	// the effective delay is the max over global and involved strategies
	delay, err := dm.EffectiveWithdrawalDelay([]restake.Address{stratA})
	require.NoError(t, err)
	assert.Equal(t, testMinDelay, delay)
	delay, err = dm.EffectiveWithdrawalDelay([]restake.Address{stratA, stratB})
	require.NoError(t, err)
	assert.Equal(t, uint32(200), delay)
}

func TestDelayEvaluatedAtCompletion(t *testing.T) {
	c := newTestChain(t)
	staker := restake.BytesToAddress([]byte("staker-1"))
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)

	w, _ := c.queue(staker, []restake.Address{stratA}, []int64{100})
	start := c.block

	// the delay rule in force at completion time governs
	require.NoError(t, c.dm(ownerAddr).SetMinWithdrawalDelayBlocks(testMinDelay*2))

	c.block = start + testMinDelay
	err := c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true)
	assert.Equal(t, errDelayNotElapsed, err)

	c.block = start + testMinDelay*2
	require.NoError(t, c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true))
}

func TestPausedWithdrawals(t *testing.T) {
	c := newTestChain(t)
	op := restake.BytesToAddress([]byte("operator-1"))
	staker := restake.BytesToAddress([]byte("staker-1"))

	c.registerOperator(op, restake.Address{}, 100)
	c.fund(staker, tokenA, 1000)
	c.deposit(staker, stratA, 300)
	c.delegate(staker, op)

	w, _ := c.queue(staker, []restake.Address{stratA}, []int64{100})

	_, _, env := c.actors(pauserAddr)
	flags := new(big.Int).SetBit(new(big.Int), int(pauser.PausedEnterWithdrawalQueue), 1)
	flags.SetBit(flags, int(pauser.PausedExitWithdrawalQueue), 1)
	require.NoError(t, pauser.New(env).Pause(flags))

	_, err := c.dm(staker).QueueWithdrawals([]QueuedWithdrawalParams{{
		Strategies: []restake.Address{stratA},
		Shares:     []*big.Int{big.NewInt(10)},
		Withdrawer: staker,
	}})
	require.EqualError(t, err, "pauser: operation is paused")

	_, err = c.dm(staker).Undelegate(staker)
	require.EqualError(t, err, "pauser: operation is paused")

	c.block += testMinDelay
	err = c.dm(staker).CompleteQueuedWithdrawal(&w, []restake.Address{tokenA}, true)
	require.EqualError(t, err, "pauser: operation is paused")
}
