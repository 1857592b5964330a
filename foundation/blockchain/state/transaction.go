package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
)

// TxRequest represents a transaction submitted on behalf of one of the
// accounts held by the node. Optional values are filled in with defaults.
type TxRequest struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Gas      *uint64
	GasPrice *big.Int
	Nonce    *uint64
	Data     []byte
}

// SubmitTransaction signs the request with the key of the sender and applies
// it to the candidate. The sender must be an unlocked account of the
// registry. A sender that can't cover the value and the gas produces
// database.ErrInsufficientBalance and nothing changes.
func (s *State) SubmitTransaction(req TxRequest) (common.Hash, error) {
	if _, err := s.registry.Resolve(req.From); err != nil {
		return common.Hash{}, err
	}

	privateKey, err := s.registry.Key(req.From)
	if err != nil {
		return common.Hash{}, err
	}

	gas := database.DefaultGasAllowance
	if req.Gas != nil {
		gas = *req.Gas
	}

	gasPrice := new(big.Int).SetUint64(s.genesis.GasPrice)
	if req.GasPrice != nil {
		gasPrice = req.GasPrice
	}

	hash, err := func() (common.Hash, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		// The nonce is read and used under the same lock so two requests
		// from the same sender can't claim the same nonce.
		nonce := s.candidate.Nonce(req.From)
		if req.Nonce != nil {
			nonce = *req.Nonce
		}

		tx := database.NewTx(nonce, req.To, req.Value, gas, gasPrice, req.Data)

		signedTx, err := tx.Sign(privateKey)
		if err != nil {
			return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
		}

		return s.applyLocked(signedTx)
	}()

	if err != nil {
		return common.Hash{}, err
	}

	s.signalMining()

	return hash, nil
}
