package state_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ethnode/foundation/blockchain/filters"
	"github.com/ardanlabs/ethnode/foundation/blockchain/genesis"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const richKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

var (
	receiver    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	beneficiary = common.HexToAddress("0x0000000000000000000000000000000000000fee")
)

// node bundles everything a test needs to drive the chain.
type node struct {
	state   *state.State
	coord   *worker.Coordinator
	filters *filters.Registry
	rich    common.Address
	poor    common.Address
	locked  common.Address
}

func newNode(t *testing.T) node {
	t.Helper()

	reg := accounts.New()

	richPK, err := crypto.HexToECDSA(richKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %v", err)
	}
	rich := reg.Add("rich", richPK, true)

	poorPK, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %v", err)
	}
	poor := reg.Add("poor", poorPK, true)

	lockedPK, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %v", err)
	}
	locked := reg.Add("locked", lockedPK, false)

	richBalance, _ := new(big.Int).SetString("1000000000000000000000000", 10)

	gen := genesis.Genesis{
		ChainID:      1,
		Difficulty:   1,
		GasLimit:     3_141_592,
		GasPrice:     1,
		MiningReward: 5000,
		Balances: map[string]*big.Int{
			rich.Hex():   richBalance,
			poor.Hex():   big.NewInt(1),
			locked.Hex(): richBalance,
		},
	}

	st, err := state.New(state.Config{
		Beneficiary: beneficiary,
		Genesis:     gen,
		Storage:     memory.New(),
		Registry:    reg,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	return node{
		state:   st,
		coord:   worker.NewCoordinator(st, nil, 1000, nil),
		filters: filters.New(st),
		rich:    rich,
		poor:    poor,
		locked:  locked,
	}
}

func (n node) send(t *testing.T, value int64) common.Hash {
	t.Helper()

	hash, err := n.state.SubmitTransaction(state.TxRequest{
		From:  n.rich,
		To:    &receiver,
		Value: big.NewInt(value),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to submit the transaction: %v", failed, err)
	}

	return hash
}

func (n node) mine(t *testing.T) database.Block {
	t.Helper()

	block, err := n.coord.MineNextBlock(context.Background())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine the candidate: %v", failed, err)
	}

	return block
}

func (n node) poll(t *testing.T, id string) []common.Hash {
	t.Helper()

	hashes, err := n.filters.Changes(id)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to poll the filter: %v", failed, err)
	}

	return hashes
}

// =============================================================================

func TestSendTransaction(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to accept a transaction and mine it.")
	{
		t.Logf("\tTest 0:\tWhen submitting a transaction with enough balance.")
		{
			before := n.state.QueryCandidate()
			hash := n.send(t, 100)
			cand := n.state.QueryCandidate()

			if cand.Count() != before.Count()+1 {
				t.Fatalf("\t%s\tTest 0:\tShould add one transaction to the candidate: got %d", failed, cand.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould add one transaction to the candidate.", success)

			if n.state.QueryPendingLog().Len() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould add one hash to the pending log.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould add one hash to the pending log.", success)

			if got := cand.Transactions()[0].Hash(); got != hash {
				t.Fatalf("\t%s\tTest 0:\tShould return the content hash: got %s, exp %s", failed, hash, got)
			}
			t.Logf("\t%s\tTest 0:\tShould return the content hash.", success)

			bal, err := n.state.QueryBalance(receiver, state.SelectPending)
			if err != nil || bal.Cmp(big.NewInt(100)) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould see the value in the candidate balance: %v %v", failed, bal, err)
			}
			t.Logf("\t%s\tTest 0:\tShould see the value in the candidate balance.", success)

			bal, err = n.state.QueryBalance(receiver, state.SelectLatest)
			if err != nil || bal.Sign() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not see the value in the head balance yet: %v %v", failed, bal, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not see the value in the head balance yet.", success)
		}

		t.Logf("\tTest 1:\tWhen mining the candidate.")
		{
			prev := n.state.QueryCandidate()
			block := n.mine(t)

			if block.Hash() != n.state.QueryLatestBlock().Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould make the block the head.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould make the block the head.", success)

			if diff := cmp.Diff(hashes(prev.Transactions()), hashes(block.Transactions())); diff != "" {
				t.Fatalf("\t%s\tTest 1:\tShould keep the candidate transactions:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the candidate transactions.", success)

			cand := n.state.QueryCandidate()
			if cand.Count() != 0 || cand.Number() != block.Number()+1 {
				t.Fatalf("\t%s\tTest 1:\tShould open an empty candidate after the head: count[%d] number[%d]", failed, cand.Count(), cand.Number())
			}
			t.Logf("\t%s\tTest 1:\tShould open an empty candidate after the head.", success)

			if n.state.QueryPendingLog().Len() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould reset the pending log.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reset the pending log.", success)

			bal, err := n.state.QueryBalance(receiver, state.SelectLatest)
			if err != nil || bal.Cmp(big.NewInt(100)) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould see the value in the head balance: %v %v", failed, bal, err)
			}
			t.Logf("\t%s\tTest 1:\tShould see the value in the head balance.", success)
		}
	}
}

func TestPendingTransactionFilter(t *testing.T) {
	n := newNode(t)

	f1 := n.filters.NewPendingTransactionFilter()

	t.Log("Given the need to poll for pending transactions.")
	{
		t.Logf("\tTest 0:\tWhen submitting transactions to the candidate.")
		{
			a := n.send(t, 1)
			if diff := cmp.Diff([]common.Hash{a}, n.poll(t, f1)); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould get transaction A:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould get transaction A.", success)

			b := n.send(t, 2)
			c := n.send(t, 3)
			if diff := cmp.Diff([]common.Hash{b, c}, n.poll(t, f1)); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould get transactions B and C in order:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould get transactions B and C in order.", success)

			if diff := cmp.Diff([]common.Hash{}, n.poll(t, f1)); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould get nothing on a second poll:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould get nothing on a second poll.", success)
		}

		t.Logf("\tTest 1:\tWhen a block is mined between polls.")
		{
			n.send(t, 4)
			n.mine(t)
			e := n.send(t, 5)

			if diff := cmp.Diff([]common.Hash{e}, n.poll(t, f1)); diff != "" {
				t.Fatalf("\t%s\tTest 1:\tShould only get transaction E:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 1:\tShould only get transaction E.", success)
		}

		t.Logf("\tTest 2:\tWhen a block filter is installed.")
		{
			fb := n.filters.NewBlockFilter()
			block := n.mine(t)

			got, err := n.filters.Changes(fb)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to poll the block filter: %v", failed, err)
			}
			if diff := cmp.Diff([]common.Hash{block.Hash()}, got); diff != "" {
				t.Fatalf("\t%s\tTest 2:\tShould get the mined block:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 2:\tShould get the mined block.", success)
		}
	}
}

func TestRejectedTransactions(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to reject transactions.")
	{
		t.Logf("\tTest 0:\tWhen the sender has a balance of 1.")
		{
			_, err := n.state.SubmitTransaction(state.TxRequest{
				From:  n.poor,
				To:    &receiver,
				Value: big.NewInt(1),
			})
			if !errors.Is(err, database.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest 0:\tShould get insufficient balance: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get insufficient balance.", success)

			if got := n.state.QueryCandidate().Transactions(); len(got) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the candidate empty: got %d", failed, len(got))
			}
			if n.state.QueryPendingLog().Len() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the pending log empty.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the candidate and the pending log empty.", success)
		}

		t.Logf("\tTest 1:\tWhen the sender is locked or unknown.")
		{
			_, err := n.state.SubmitTransaction(state.TxRequest{From: n.locked, To: &receiver, Value: big.NewInt(1)})
			if !errors.Is(err, accounts.ErrLockedAccount) {
				t.Fatalf("\t%s\tTest 1:\tShould get locked account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get locked account.", success)

			_, err = n.state.SubmitTransaction(state.TxRequest{From: receiver, To: &receiver, Value: big.NewInt(1)})
			if !errors.Is(err, accounts.ErrUnknownAccount) {
				t.Fatalf("\t%s\tTest 1:\tShould get unknown account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get unknown account.", success)
		}
	}
}

func TestPromoteStale(t *testing.T) {
	n := newNode(t)

	work := n.state.MiningWork()
	n.send(t, 1)

	if _, err := n.state.Promote(database.Block{}.Nonce(), common.Hash{}, work.MiningHash); !errors.Is(err, state.ErrStaleMiningHash) {
		t.Fatalf("Should reject a stale mining hash: got %v", err)
	}

	if n.state.QueryLatestBlock().Number() != 0 {
		t.Fatalf("Should not change the head on a stale promotion.")
	}

	work = n.state.MiningWork()
	if _, err := n.state.Promote(database.Block{}.Nonce(), common.HexToHash("0x1"), work.MiningHash); !errors.Is(err, state.ErrInvalidSeal) {
		t.Fatalf("Should reject an invalid seal: got %v", err)
	}

	block := n.mine(t)
	if len(block.Transactions()) != 1 {
		t.Fatalf("Should mine the transaction after the restart: got %d", len(block.Transactions()))
	}
}

func TestMiningNeedsSignal(t *testing.T) {
	t.Log("Given the need to keep pending transactions until mining is signaled.")
	{
		n := newNode(t)

		w := worker.Run(n.state, nil, func(v string, args ...any) {})
		t.Cleanup(w.Shutdown)

		id := n.filters.NewPendingTransactionFilter()
		a := n.send(t, 1)

		time.Sleep(200 * time.Millisecond)

		if diff := cmp.Diff([]common.Hash{a}, n.poll(t, id)); diff != "" {
			t.Fatalf("\t%s\tShould deliver A to the filter. Diff:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould deliver A to the filter.", success)

		if got := n.state.QueryLatestBlock().Number(); got != 0 {
			t.Fatalf("\t%s\tShould not mine without a signal: head %d", failed, got)
		}
		t.Logf("\t%s\tShould not mine without a signal.", success)

		w.SignalStartMining()

		deadline := time.Now().Add(10 * time.Second)
		for n.state.QueryLatestBlock().Number() == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould mine the candidate once signaled.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould mine the candidate once signaled.", success)
	}
}

func TestReset(t *testing.T) {
	t.Log("Given the need to start the chain over from genesis.")
	{
		n := newNode(t)

		id := n.filters.NewPendingTransactionFilter()
		n.send(t, 1)
		n.mine(t)
		n.send(t, 1)

		if err := n.state.Reset(); err != nil {
			t.Fatalf("\t%s\tShould be able to reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to reset.", success)

		if got := n.state.QueryLatestBlock().Number(); got != 0 {
			t.Fatalf("\t%s\tShould have genesis as the head: got %d", failed, got)
		}
		t.Logf("\t%s\tShould have genesis as the head.", success)

		bal, err := n.state.QueryBalance(receiver, state.SelectPending)
		if err != nil || bal.Sign() != 0 {
			t.Fatalf("\t%s\tShould drop the transfers: got %v %v", failed, bal, err)
		}
		t.Logf("\t%s\tShould drop the transfers.", success)

		if got := n.poll(t, id); len(got) != 0 {
			t.Fatalf("\t%s\tShould report nothing to the filter: got %v", failed, got)
		}
		t.Logf("\t%s\tShould report nothing to the filter.", success)

		b := n.send(t, 1)
		if diff := cmp.Diff([]common.Hash{b}, n.poll(t, id)); diff != "" {
			t.Fatalf("\t%s\tShould deliver new transactions after the reset. Diff:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould deliver new transactions after the reset.", success)

		block := n.mine(t)
		if block.Number() != 1 {
			t.Fatalf("\t%s\tShould mine block 1 again: got %d", failed, block.Number())
		}
		t.Logf("\t%s\tShould mine block 1 again.", success)
	}
}

func TestQuerySelectors(t *testing.T) {
	n := newNode(t)

	n.send(t, 7)
	n.mine(t)
	n.send(t, 8)

	tests := []struct {
		sel state.BlockSelector
		exp int64
	}{
		{state.SelectEarliest, 0},
		{state.SelectLatest, 7},
		{state.SelectPending, 15},
		{1, 7},
		{2, 15},
	}

	for _, tt := range tests {
		bal, err := n.state.QueryBalance(receiver, tt.sel)
		if err != nil {
			t.Fatalf("Should be able to query %s: %v", tt.sel, err)
		}
		if bal.Cmp(big.NewInt(tt.exp)) != 0 {
			t.Fatalf("Should get %d for %s: got %s", tt.exp, tt.sel, bal)
		}
	}

	if _, err := n.state.QueryBalance(receiver, 5); !errors.Is(err, state.ErrStateUnavailable) {
		t.Fatalf("Should not have state for block 5: got %v", err)
	}

	nonce, err := n.state.QueryNonce(n.rich, state.SelectPending)
	if err != nil || nonce != 2 {
		t.Fatalf("Should get the pending nonce: got %d %v", nonce, err)
	}

	if _, err := n.state.QueryBlock(3); !errors.Is(err, state.ErrBlockNotFound) {
		t.Fatalf("Should not find block 3: got %v", err)
	}

	block, err := n.state.QueryBlock(1)
	if err != nil || block.Number() != 1 {
		t.Fatalf("Should find block 1: %v", err)
	}
}

func TestConcurrentApplyAndMine(t *testing.T) {
	n := newNode(t)

	const submits = 40

	sent := make([]common.Hash, submits)

	var g errgroup.Group
	for i := range submits {
		g.Go(func() error {
			hash, err := n.state.SubmitTransaction(state.TxRequest{
				From:  n.rich,
				To:    &receiver,
				Value: big.NewInt(1),
			})
			sent[i] = hash
			return err
		})
	}
	for range 3 {
		g.Go(func() error {
			_, err := n.coord.MineNextBlock(context.Background())
			return err
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("Should be able to submit and mine concurrently: %v", err)
	}

	// Every accepted transaction must be in exactly one place, a block or
	// the candidate.
	seen := make(map[common.Hash]int)
	head := n.state.QueryLatestBlock().Number()
	for num := uint64(1); num <= head; num++ {
		block, err := n.state.QueryBlock(state.BlockSelector(num))
		if err != nil {
			t.Fatalf("Should be able to read block %d: %v", num, err)
		}
		for _, tx := range block.Transactions() {
			seen[tx.Hash()]++
		}
	}
	for _, tx := range n.state.QueryCandidate().Transactions() {
		seen[tx.Hash()]++
	}

	for _, hash := range sent {
		if seen[hash] != 1 {
			t.Fatalf("Should find transaction %s exactly once: got %d", hash, seen[hash])
		}
	}

	if len(seen) != submits {
		t.Fatalf("Should find %d transactions: got %d", submits, len(seen))
	}

	bal, err := n.state.QueryBalance(receiver, state.SelectPending)
	if err != nil || bal.Cmp(big.NewInt(submits)) != 0 {
		t.Fatalf("Should credit every transaction: got %v %v", bal, err)
	}
}

// =============================================================================

func hashes(txs []database.SignedTx) []common.Hash {
	out := make([]common.Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash()
	}
	return out
}
