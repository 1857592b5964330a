package worker_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// fakeChain hands out work and records promotions. The mining hash can be
// changed to simulate transactions arriving during a search.
type fakeChain struct {
	mu         sync.Mutex
	miningHash common.Hash
	staleOnce  bool
	promotions []common.Hash
}

func (fc *fakeChain) MiningWork() state.Work {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	return state.Work{Number: 1, Difficulty: big.NewInt(1), MiningHash: fc.miningHash}
}

func (fc *fakeChain) Promote(nonce types.BlockNonce, mixHash common.Hash, miningHash common.Hash) (database.Block, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.promotions = append(fc.promotions, miningHash)

	if fc.staleOnce {
		fc.staleOnce = false
		fc.miningHash = common.HexToHash("0x2")
		return database.Block{}, state.ErrStaleMiningHash
	}

	if miningHash != fc.miningHash {
		return database.Block{}, state.ErrStaleMiningHash
	}

	return database.Block{}, nil
}

func (fc *fakeChain) setMiningHash(h common.Hash) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.miningHash = h
}

// =============================================================================

func TestCoordinatorChunks(t *testing.T) {
	chain := fakeChain{miningHash: common.HexToHash("0x1")}

	var starts []uint64
	search := func(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool) {
		starts = append(starts, startNonce)
		if len(starts) == 3 {
			return types.EncodeNonce(startNonce + 7), common.Hash{}, true
		}
		return types.BlockNonce{}, common.Hash{}, false
	}

	coord := worker.NewCoordinator(&chain, search, 10, nil)

	t.Log("Given the need to search for a nonce in chunks.")
	{
		t.Logf("\tTest 0:\tWhen the third chunk finds the nonce.")
		{
			if _, err := coord.MineNextBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine the block.", success)

			exp := []uint64{0, 10, 20}
			if len(starts) != len(exp) {
				t.Fatalf("\t%s\tTest 0:\tShould search three chunks: got %v", failed, starts)
			}
			for i := range exp {
				if starts[i] != exp[i] {
					t.Fatalf("\t%s\tTest 0:\tShould start each chunk after the last: got %v", failed, starts)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould start each chunk after the last.", success)

			if coord.Status() != worker.Idle {
				t.Fatalf("\t%s\tTest 0:\tShould be idle after the promotion: got %s", failed, coord.Status())
			}
			t.Logf("\t%s\tTest 0:\tShould be idle after the promotion.", success)
		}
	}
}

func TestCoordinatorStaleRestart(t *testing.T) {
	chain := fakeChain{miningHash: common.HexToHash("0x1"), staleOnce: true}

	var searched []common.Hash
	search := func(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool) {
		searched = append(searched, miningHash)
		return types.EncodeNonce(startNonce), common.Hash{}, true
	}

	coord := worker.NewCoordinator(&chain, search, 10, nil)

	if _, err := coord.MineNextBlock(context.Background()); err != nil {
		t.Fatalf("Should recover from a stale mining hash: %v", err)
	}

	if len(chain.promotions) != 2 {
		t.Fatalf("Should try to promote twice: got %d", len(chain.promotions))
	}

	if searched[1] != common.HexToHash("0x2") {
		t.Fatalf("Should search the new work after the restart: got %s", searched[1])
	}
}

func TestCoordinatorWorkChanged(t *testing.T) {
	chain := fakeChain{miningHash: common.HexToHash("0x1")}

	var searched []common.Hash
	search := func(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool) {
		searched = append(searched, miningHash)
		if len(searched) == 1 {
			chain.setMiningHash(common.HexToHash("0x3"))
			return types.BlockNonce{}, common.Hash{}, false
		}
		return types.EncodeNonce(startNonce), common.Hash{}, true
	}

	coord := worker.NewCoordinator(&chain, search, 10, nil)

	if _, err := coord.MineNextBlock(context.Background()); err != nil {
		t.Fatalf("Should be able to mine the block: %v", err)
	}

	if len(chain.promotions) != 1 || chain.promotions[0] != common.HexToHash("0x3") {
		t.Fatalf("Should promote only against the new work: got %v", chain.promotions)
	}
}

func TestCoordinatorCancel(t *testing.T) {
	chain := fakeChain{miningHash: common.HexToHash("0x1")}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	search := func(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool) {
		time.Sleep(time.Millisecond)
		return types.BlockNonce{}, common.Hash{}, false
	}

	coord := worker.NewCoordinator(&chain, search, 10, nil)

	if _, err := coord.MineNextBlock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Should stop when the context is cancelled: got %v", err)
	}

	if coord.Status() != worker.Idle {
		t.Fatalf("Should be idle after cancellation: got %s", coord.Status())
	}
}
