// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openrestake/restake/restake"
)

// StrategyConfig binds a strategy to its underlying token and an
// optional extra withdrawal delay.
type StrategyConfig struct {
	Address               restake.Address `yaml:"address"`
	Token                 restake.Address `yaml:"token"`
	WithdrawalDelayBlocks uint32          `yaml:"withdrawalDelayBlocks"`
}

// Allocation is an initial token balance.
type Allocation struct {
	Token  restake.Address `yaml:"token"`
	Holder restake.Address `yaml:"holder"`
	Amount string          `yaml:"amount"`
}

// Config is the genesis configuration of a deployment.
type Config struct {
	ChainID                  uint64           `yaml:"chainId"`
	Owner                    restake.Address  `yaml:"owner"`
	Pauser                   restake.Address  `yaml:"pauser"`
	Unpauser                 restake.Address  `yaml:"unpauser"`
	MinWithdrawalDelayBlocks uint32           `yaml:"minWithdrawalDelayBlocks"`
	Strategies               []StrategyConfig `yaml:"strategies"`
	Allocations              []Allocation     `yaml:"allocations"`
}

// LoadConfig reads and validates a yaml genesis configuration.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis config")
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates a yaml genesis configuration.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse genesis config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural mistakes.
func (cfg *Config) Validate() error {
	if cfg.ChainID == 0 {
		return errors.New("genesis: chain id must not be zero")
	}
	if cfg.Owner.IsZero() {
		return errors.New("genesis: owner must not be zero")
	}
	if cfg.MinWithdrawalDelayBlocks > restake.MaxWithdrawalDelayBlocks {
		return errors.New("genesis: min withdrawal delay exceeds maximum")
	}
	seen := make(map[restake.Address]bool, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		if s.Address.IsZero() || s.Token.IsZero() {
			return errors.New("genesis: strategy address and token must not be zero")
		}
		if seen[s.Address] {
			return errors.Errorf("genesis: duplicate strategy %v", s.Address)
		}
		seen[s.Address] = true
		if s.WithdrawalDelayBlocks > restake.MaxWithdrawalDelayBlocks {
			return errors.Errorf("genesis: strategy %v delay exceeds maximum", s.Address)
		}
	}
	for _, a := range cfg.Allocations {
		if _, ok := new(big.Int).SetString(a.Amount, 10); !ok {
			return errors.Errorf("genesis: invalid allocation amount %q", a.Amount)
		}
	}
	return nil
}
