package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/hashlog"
	"github.com/ethereum/go-ethereum/common"
)

// BlockSelector identifies which view of the chain a query reads. Values of
// zero and above are block numbers.
type BlockSelector int64

// Set of selectors for the named views of the chain.
const (
	SelectPending  BlockSelector = -2
	SelectLatest   BlockSelector = -1
	SelectEarliest BlockSelector = 0
)

// String implements the fmt.Stringer interface.
func (bs BlockSelector) String() string {
	switch bs {
	case SelectPending:
		return "pending"
	case SelectLatest:
		return "latest"
	case SelectEarliest:
		return "earliest"
	}
	return fmt.Sprintf("%d", int64(bs))
}

// accountView represents the behavior of any value that holds balances.
type accountView interface {
	Balance(addr common.Address) *big.Int
	Nonce(addr common.Address) uint64
}

// =============================================================================

// QueryBalance returns the balance of the account as of the selected block.
// The candidate is selected by SelectPending.
func (s *State) QueryBalance(addr common.Address, sel BlockSelector) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, err := s.viewLocked(sel)
	if err != nil {
		return nil, err
	}

	return view.Balance(addr), nil
}

// QueryNonce returns the nonce of the account as of the selected block.
func (s *State) QueryNonce(addr common.Address, sel BlockSelector) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, err := s.viewLocked(sel)
	if err != nil {
		return 0, err
	}

	return view.Nonce(addr), nil
}

// QueryCandidate returns a copy of the candidate block.
func (s *State) QueryCandidate() *database.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.candidate.Copy()
}

// QueryLatestBlock returns the head of the chain.
func (s *State) QueryLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlock returns the selected final block. The candidate isn't a final
// block, use QueryCandidate for SelectPending.
func (s *State) QueryBlock(sel BlockSelector) (database.Block, error) {
	head := s.db.LatestBlock()

	switch {
	case sel == SelectLatest:
		return head, nil

	case sel < 0:
		return database.Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, sel)

	case uint64(sel) == head.Number():
		return head, nil

	case uint64(sel) > head.Number():
		return database.Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, sel)
	}

	block, err := s.db.GetBlock(uint64(sel))
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %s: %s", ErrBlockNotFound, sel, err)
	}

	return block, nil
}

// QueryPendingLog returns a consistent snapshot of the hashes of the
// transactions applied to the candidate.
func (s *State) QueryPendingLog() hashlog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pending.Snapshot()
}

// QueryBlockLog returns a snapshot of the hashes of the blocks promoted
// since the node started.
func (s *State) QueryBlockLog() hashlog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocks.Snapshot()
}

// =============================================================================

// viewLocked returns the accounts as of the selected block. Only the
// candidate, the head and genesis are kept in memory. The caller must hold
// the read lock.
func (s *State) viewLocked(sel BlockSelector) (accountView, error) {
	head := s.db.LatestBlock()

	switch {
	case sel == SelectPending:
		return s.candidate, nil

	case sel == SelectLatest:
		return s.db.HeadSheet(), nil

	case sel < 0:
		return nil, fmt.Errorf("%w: %s", ErrStateUnavailable, sel)

	case uint64(sel) == s.candidate.Number():
		return s.candidate, nil

	case uint64(sel) == head.Number():
		return s.db.HeadSheet(), nil

	case sel == SelectEarliest:
		return s.db.GenesisSheet(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrStateUnavailable, sel)
}
