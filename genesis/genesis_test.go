// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrestake/restake/contracts/delegation"
	"github.com/openrestake/restake/contracts/strategies"
	"github.com/openrestake/restake/eventdb"
	"github.com/openrestake/restake/lvldb"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/sigverify"
	"github.com/openrestake/restake/state"
)

const configYAML = `
chainId: 77
owner: "0x0000000000000000000000000000000000000001"
pauser: "0x0000000000000000000000000000000000000002"
unpauser: "0x0000000000000000000000000000000000000003"
minWithdrawalDelayBlocks: 50
strategies:
  - address: "0x00000000000000000000000000000000000000a1"
    token: "0x00000000000000000000000000000000000000b1"
    withdrawalDelayBlocks: 200
  - address: "0x00000000000000000000000000000000000000a2"
    token: "0x00000000000000000000000000000000000000b2"
allocations:
  - token: "0x00000000000000000000000000000000000000b1"
    holder: "0x0000000000000000000000000000000000000099"
    amount: "1000000"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(configYAML))
	require.NoError(t, err)
	assert.Equal(t, uint64(77), cfg.ChainID)
	assert.Equal(t, restake.MustParseAddress("0x0000000000000000000000000000000000000001"), cfg.Owner)
	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, uint32(200), cfg.Strategies[0].WithdrawalDelayBlocks)
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	_, err := ParseConfig([]byte("chainId: 0"))
	assert.ErrorContains(t, err, "chain id")

	_, err = ParseConfig([]byte("chainId: 1"))
	assert.ErrorContains(t, err, "owner")

	bad := configYAML + `  - token: "0x00000000000000000000000000000000000000b1"
    holder: "0x0000000000000000000000000000000000000099"
    amount: "not-a-number"
`
	_, err = ParseConfig([]byte(bad))
	assert.ErrorContains(t, err, "allocation amount")
}

func TestInit(t *testing.T) {
	cfg, err := ParseConfig([]byte(configYAML))
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	stater := state.NewStater(db)

	edb, err := eventdb.NewMem()
	require.NoError(t, err)
	defer edb.Close()

	require.NoError(t, Init(stater.NewState(), cfg, edb))

	// a reloaded state sees the committed genesis
	st := stater.NewState()
	done, err := IsInitialized(st)
	require.NoError(t, err)
	assert.True(t, done)

	env := runtime.New(st, runtime.Context{Caller: cfg.Owner, BlockNumber: 1, ChainID: cfg.ChainID})
	m := strategies.NewManager(env)
	dm := delegation.New(env, m, sigverify.NewVerifier(nil))

	owner, err := dm.Owner()
	require.NoError(t, err)
	assert.Equal(t, cfg.Owner, owner)

	minDelay, err := dm.MinWithdrawalDelayBlocks()
	require.NoError(t, err)
	assert.Equal(t, uint32(50), minDelay)

	strategyDelay, err := dm.StrategyWithdrawalDelayBlocks(cfg.Strategies[0].Address)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), strategyDelay)

	token, err := m.UnderlyingToken(cfg.Strategies[1].Address)
	require.NoError(t, err)
	assert.Equal(t, cfg.Strategies[1].Token, token)

	balance, err := m.Vault().Balance(cfg.Allocations[0].Token, cfg.Allocations[0].Holder)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000000), balance)

	// genesis events are indexed at block 0
	records, err := edb.Query(&eventdb.Filter{Names: []string{"MinWithdrawalDelayBlocksSet"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint32(0), records[0].BlockNumber)
	records, err = edb.Query(&eventdb.Filter{Names: []string{"StrategyWithdrawalDelayBlocksSet"}})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// genesis never runs twice, and a re-run indexes nothing
	records, err = edb.Query(nil)
	require.NoError(t, err)
	total := len(records)
	assert.Equal(t, ErrAlreadyInitialized, Init(stater.NewState(), cfg, edb))
	records, err = edb.Query(nil)
	require.NoError(t, err)
	assert.Len(t, records, total)
}
