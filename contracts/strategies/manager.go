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
	"github.com/openrestake/restake/runtime"
)

var (
	slotDeposits         = storage.NameToSlot("deposits")
	slotStakerStrategies = storage.NameToSlot("staker-strategies")
	slotStrategyTokens   = storage.NameToSlot("strategy-tokens")

	errZeroShares        = reverts.New("strategies: shares must be positive")
	errUnknownStrategy   = reverts.New("strategies: strategy has no underlying token")
	errTokenMismatch     = reverts.New("strategies: token does not match strategy underlying")
	errInsufficientStake = reverts.New("strategies: insufficient deposit shares")
)

type depositKey struct {
	Staker   restake.Address
	Strategy restake.Address
}

func (k depositKey) Bytes() []byte {
	return append(k.Staker.Bytes(), k.Strategy.Bytes()...)
}

// EventDeposit is emitted when a staker deposits into a strategy.
type EventDeposit struct {
	Staker   restake.Address
	Strategy restake.Address
	Token    restake.Address
	Shares   *big.Int
}

func (EventDeposit) EventName() string { return "Deposit" }

// Manager is the reference strategy registry. Deposit shares are
// issued one-to-one against underlying tokens held by the vault.
type Manager struct {
	env              *runtime.Environment
	vault            *Vault
	deposits         *storage.Mapping[depositKey, *big.Int]
	stakerStrategies *storage.Mapping[restake.Address, []restake.Address]
	strategyTokens   *storage.Mapping[restake.Address, restake.Address]
	observer         DepositObserver
}

var _ Registry = (*Manager)(nil)

// NewManager creates a strategy manager bound to its well-known
// address, sharing the environment's state.
func NewManager(env *runtime.Environment) *Manager {
	sctx := storage.NewContext(contracts.StrategyManagerAddress, env.State())
	return &Manager{
		env:              env,
		vault:            NewVault(env.State()),
		deposits:         storage.NewMapping[depositKey, *big.Int](sctx, slotDeposits),
		stakerStrategies: storage.NewMapping[restake.Address, []restake.Address](sctx, slotStakerStrategies),
		strategyTokens:   storage.NewMapping[restake.Address, restake.Address](sctx, slotStrategyTokens),
	}
}

// SetObserver wires the delegation core so deposits propagate to
// operator shares.
func (m *Manager) SetObserver(observer DepositObserver) {
	m.observer = observer
}

// Vault returns the underlying-token ledger.
func (m *Manager) Vault() *Vault {
	return m.vault
}

// RegisterStrategy binds a strategy to its underlying token. Meant for
// genesis initialization.
func (m *Manager) RegisterStrategy(strategy, token restake.Address) error {
	return m.strategyTokens.Set(strategy, token)
}

// UnderlyingToken returns the token a strategy is denominated in.
func (m *Manager) UnderlyingToken(strategy restake.Address) (restake.Address, error) {
	return m.strategyTokens.Get(strategy)
}

// Deposit pulls tokens from the caller into the strategy and issues
// deposit shares, notifying the observer of the increase.
func (m *Manager) Deposit(strategy restake.Address, amount *big.Int) error {
	return m.env.Transact(func() error {
		if amount.Sign() <= 0 {
			return errZeroShares
		}
		token, err := m.strategyTokens.Get(strategy)
		if err != nil {
			return err
		}
		if token.IsZero() {
			return errUnknownStrategy
		}
		staker := m.env.Caller()
		if err := m.vault.Transfer(token, staker, strategy, amount); err != nil {
			return err
		}
		if err := m.addShares(staker, strategy, amount); err != nil {
			return err
		}
		m.env.Log(EventDeposit{Staker: staker, Strategy: strategy, Token: token, Shares: amount})
		if m.observer != nil {
			return m.observer.OnDepositSharesIncreased(staker, strategy, amount)
		}
		return nil
	})
}

// GetDeposits implements Registry.
func (m *Manager) GetDeposits(staker restake.Address) ([]restake.Address, []*big.Int, error) {
	list, err := m.stakerStrategies.Get(staker)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]*big.Int, 0, len(list))
	for _, strategy := range list {
		amount, err := m.deposits.Get(depositKey{staker, strategy})
		if err != nil {
			return nil, nil, err
		}
		shares = append(shares, amount)
	}
	return list, shares, nil
}

// AddShares implements Registry.
func (m *Manager) AddShares(staker, strategy restake.Address, shares *big.Int) error {
	if shares.Sign() <= 0 {
		return errZeroShares
	}
	return m.addShares(staker, strategy, shares)
}

func (m *Manager) addShares(staker, strategy restake.Address, shares *big.Int) error {
	key := depositKey{staker, strategy}
	current, err := m.deposits.Get(key)
	if err != nil {
		return err
	}
	if current.Sign() == 0 {
		list, err := m.stakerStrategies.Get(staker)
		if err != nil {
			return err
		}
		if err := m.stakerStrategies.Set(staker, append(list, strategy)); err != nil {
			return err
		}
	}
	return m.deposits.Set(key, new(big.Int).Add(current, shares))
}

// RemoveShares implements Registry.
func (m *Manager) RemoveShares(staker, strategy restake.Address, shares *big.Int) error {
	if shares.Sign() <= 0 {
		return errZeroShares
	}
	key := depositKey{staker, strategy}
	current, err := m.deposits.Get(key)
	if err != nil {
		return err
	}
	if current.Cmp(shares) < 0 {
		return errInsufficientStake
	}
	remaining := new(big.Int).Sub(current, shares)
	if remaining.Sign() == 0 {
		if err := m.deposits.Clear(key); err != nil {
			return err
		}
		return m.dropStrategy(staker, strategy)
	}
	return m.deposits.Set(key, remaining)
}

func (m *Manager) dropStrategy(staker, strategy restake.Address) error {
	list, err := m.stakerStrategies.Get(staker)
	if err != nil {
		return err
	}
	for i, s := range list {
		if s == strategy {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		return m.stakerStrategies.Clear(staker)
	}
	return m.stakerStrategies.Set(staker, list)
}

// WithdrawSharesAsTokens implements Registry. Shares convert one-to-one
// into the strategy's underlying token.
func (m *Manager) WithdrawSharesAsTokens(recipient, strategy, token restake.Address, shares *big.Int) error {
	underlying, err := m.strategyTokens.Get(strategy)
	if err != nil {
		return err
	}
	if underlying.IsZero() {
		return errUnknownStrategy
	}
	if token != underlying {
		return errTokenMismatch
	}
	return m.vault.Transfer(token, strategy, recipient, shares)
}
