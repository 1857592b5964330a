package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/pow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Work represents the inputs of the proof of work for the live candidate.
type Work struct {
	Number     uint64
	Difficulty *big.Int
	MiningHash common.Hash
}

// MiningWork returns the inputs needed to search for a nonce for the live
// candidate.
func (s *State) MiningWork() Work {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Work{
		Number:     s.candidate.Number(),
		Difficulty: s.candidate.Difficulty(),
		MiningHash: s.candidate.MiningHash(),
	}
}

// Apply validates the transaction against the balances of the candidate and
// adds it to the candidate. The hash of the transaction is appended to the
// pending log. Nothing changes when an error is returned.
func (s *State) Apply(tx database.SignedTx) (common.Hash, error) {
	hash, err := s.apply(tx)
	if err != nil {
		return common.Hash{}, err
	}

	s.signalMining()

	return hash, nil
}

// apply performs the work of Apply while holding the lock.
func (s *State) apply(tx database.SignedTx) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(tx)
}

// applyLocked adds the transaction to the candidate. The caller must hold
// the write lock.
func (s *State) applyLocked(tx database.SignedTx) (common.Hash, error) {
	hash, err := s.candidate.Apply(tx)
	if err != nil {
		s.evHandler("state: apply: blk[%d]: tx[%s]: REJECTED: %s", s.candidate.Number(), tx, err)
		return common.Hash{}, err
	}

	n := s.pending.Append(hash)

	s.evHandler("viewer: state: apply: blk[%d]: tx[%s]: hash[%s]: pending[%d]", s.candidate.Number(), tx, hash, n)

	return hash, nil
}

// Promote seals the candidate with the nonce and mix hash found by the
// proof of work and makes it the new head of the chain. The mining hash the
// nonce was found against must still be the mining hash of the candidate,
// otherwise ErrStaleMiningHash is returned and the search must be restarted
// against the new work. On success a new empty candidate is opened on top of
// the new head and the pending log starts over.
func (s *State) Promote(nonce types.BlockNonce, mixHash common.Hash, miningHash common.Hash) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand := s.candidate

	if miningHash != cand.MiningHash() {
		s.evHandler("state: promote: blk[%d]: STALE: got[%s] exp[%s]", cand.Number(), miningHash, cand.MiningHash())
		return database.Block{}, ErrStaleMiningHash
	}

	if err := pow.Verify(cand.Number(), cand.Difficulty(), miningHash, nonce, mixHash); err != nil {
		return database.Block{}, fmt.Errorf("%w: %s", ErrInvalidSeal, err)
	}

	block, sheet := cand.Seal(nonce, mixHash)

	if err := block.ValidateBlock(s.db.LatestBlock(), s.evHandler); err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: promote: blk[%d]: write to storage", block.Number())

	if err := s.db.Write(block, sheet); err != nil {
		return database.Block{}, err
	}

	s.candidate = s.newCandidate(block, sheet)
	s.pending.Reset()
	s.blocks.Append(block.Hash())

	s.evHandler("viewer: state: promote: blk[%d]: hash[%s]: txs[%d]", block.Number(), block.Hash(), len(block.Transactions()))

	return block, nil
}

// Reset throws away every stored block and starts the chain over from
// genesis. The candidate and both hash logs start over too, so installed
// filters see the reset on their next poll.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Reset(); err != nil {
		return err
	}

	s.candidate = s.newCandidate(s.db.LatestBlock(), s.db.HeadSheet())
	s.pending.Reset()
	s.blocks.Reset()

	s.evHandler("viewer: state: reset: chain back to genesis")

	return nil
}
