// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time           `json:"date"`
	ChainID      uint64              `json:"chain_id"`      // The chain id represents an unique id for this running instance.
	Difficulty   uint64              `json:"difficulty"`    // How difficult it needs to be to solve the work problem.
	GasLimit     uint64              `json:"gas_limit"`     // Maximum amount of gas the transactions of one block can use.
	GasPrice     uint64              `json:"gas_price"`     // Default price of one unit of gas when the sender doesn't provide one.
	MiningReward uint64              `json:"mining_reward"` // Reward for mining a block.
	ExtraData    string              `json:"extra_data"`
	Balances     map[string]*big.Int `json:"balances"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values can be used to construct a chain.
func (g Genesis) Validate() error {
	if g.Difficulty == 0 {
		return fmt.Errorf("difficulty must be greater than zero")
	}

	if g.GasLimit == 0 {
		return fmt.Errorf("gas limit must be greater than zero")
	}

	for addr, balance := range g.Balances {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid account %q in balances", addr)
		}
		if balance == nil || balance.Sign() < 0 {
			return fmt.Errorf("invalid balance for account %q", addr)
		}
	}

	return nil
}

// Alloc returns the starting balances keyed by address.
func (g Genesis) Alloc() map[common.Address]*big.Int {
	alloc := make(map[common.Address]*big.Int, len(g.Balances))
	for addr, balance := range g.Balances {
		alloc[common.HexToAddress(addr)] = new(big.Int).Set(balance)
	}
	return alloc
}
