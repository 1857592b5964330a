package worker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/pow"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultRounds is the number of nonces tried in one call to the search
// function.
const DefaultRounds = 1_000_000

// errWorkChanged is used internally when the candidate changed in the middle
// of a search.
var errWorkChanged = errors.New("mining work changed")

// Status represents the state of the mining coordinator.
type Status int32

// Set of states the mining coordinator moves through.
const (
	Idle Status = iota
	Searching
	Found
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Found:
		return "found"
	}
	return "idle"
}

// SearchFunc tries rounds nonces starting at startNonce and reports the
// first one that solves the proof of work.
type SearchFunc func(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool)

// Chain represents the behavior the coordinator needs from the chain state.
type Chain interface {
	MiningWork() state.Work
	Promote(nonce types.BlockNonce, mixHash common.Hash, miningHash common.Hash) (database.Block, error)
}

// =============================================================================

// Coordinator drives the search for a nonce for the live candidate and the
// promotion of the candidate once a nonce is found.
type Coordinator struct {
	chain     Chain
	search    SearchFunc
	rounds    uint64
	evHandler state.EventHandler

	mu     sync.Mutex
	status atomic.Int32
}

// NewCoordinator constructs a coordinator. A nil search function uses the
// proof of work of the pow package and a zero rounds uses DefaultRounds.
func NewCoordinator(chain Chain, search SearchFunc, rounds uint64, evHandler state.EventHandler) *Coordinator {
	if search == nil {
		search = pow.Search
	}
	if rounds == 0 {
		rounds = DefaultRounds
	}
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Coordinator{
		chain:     chain,
		search:    search,
		rounds:    rounds,
		evHandler: evHandler,
	}
}

// Status returns the current state of the coordinator.
func (c *Coordinator) Status() Status {
	return Status(c.status.Load())
}

// MineNextBlock searches for a nonce for the live candidate and promotes it.
// When the candidate changes before the promotion, the search starts over
// against the new candidate. The search runs until a block is produced or
// the context is cancelled.
func (c *Coordinator) MineNextBlock(ctx context.Context) (database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer c.setStatus(Idle)

	for {
		work := c.chain.MiningWork()

		c.setStatus(Searching)
		c.evHandler("worker: MineNextBlock: MINING: searching: blk[%d]: hash[%s]", work.Number, work.MiningHash)

		nonce, mixHash, err := c.searchWork(ctx, work)
		if err != nil {
			if errors.Is(err, errWorkChanged) {
				c.evHandler("worker: MineNextBlock: MINING: candidate changed: restart")
				continue
			}
			return database.Block{}, err
		}

		c.setStatus(Found)
		c.evHandler("worker: MineNextBlock: MINING: found: blk[%d]: nonce[%d]", work.Number, nonce.Uint64())

		block, err := c.chain.Promote(nonce, mixHash, work.MiningHash)
		if err != nil {
			if errors.Is(err, state.ErrStaleMiningHash) {
				c.evHandler("worker: MineNextBlock: MINING: stale mining hash: restart")
				continue
			}
			return database.Block{}, err
		}

		return block, nil
	}
}

// searchWork calls the search function one chunk at a time from nonce zero.
// Between chunks the context and the live mining hash are checked.
func (c *Coordinator) searchWork(ctx context.Context, work state.Work) (types.BlockNonce, common.Hash, error) {
	var attempts uint64

	for start := uint64(0); ; start += c.rounds {
		if ctx.Err() != nil {
			c.evHandler("worker: searchWork: MINING: CANCELLED")
			return types.BlockNonce{}, common.Hash{}, ctx.Err()
		}

		nonce, mixHash, found := c.search(work.Number, work.Difficulty, work.MiningHash, start, c.rounds)
		if found {
			return nonce, mixHash, nil
		}

		attempts += c.rounds
		c.evHandler("worker: searchWork: MINING: attempts[%d]", attempts)

		if c.chain.MiningWork().MiningHash != work.MiningHash {
			return types.BlockNonce{}, common.Hash{}, errWorkChanged
		}
	}
}

// setStatus records the state of the coordinator.
func (c *Coordinator) setStatus(s Status) {
	c.status.Store(int32(s))
}
