package hashlog_test

import (
	"testing"

	"github.com/ardanlabs/ethnode/foundation/blockchain/hashlog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

func TestLog(t *testing.T) {
	a := common.HexToHash("0xa")
	b := common.HexToHash("0xb")
	c := common.HexToHash("0xc")

	log := hashlog.New()
	log.Append(a)
	snap := log.Snapshot()

	if n := log.Append(b); n != 2 {
		t.Fatalf("Should get the new length back: got %d", n)
	}

	if diff := cmp.Diff([]common.Hash{a}, snap.Since(0)); diff != "" {
		t.Fatalf("Should not see appends made after the snapshot:\n%s", diff)
	}

	snap = log.Snapshot()
	if diff := cmp.Diff([]common.Hash{b}, snap.Since(1)); diff != "" {
		t.Fatalf("Should get the hashes since the offset:\n%s", diff)
	}

	if got := snap.Since(5); len(got) != 0 {
		t.Fatalf("Should get nothing past the end: got %v", got)
	}

	log.Reset()
	log.Append(c)

	after := log.Snapshot()
	if after.Generation != snap.Generation+1 {
		t.Fatalf("Should start a new generation on reset: got %d", after.Generation)
	}

	if diff := cmp.Diff([]common.Hash{c}, after.Since(0)); diff != "" {
		t.Fatalf("Should only see the new generation:\n%s", diff)
	}

	if diff := cmp.Diff([]common.Hash{a, b}, snap.Since(0)); diff != "" {
		t.Fatalf("Should keep old snapshots intact after reset:\n%s", diff)
	}
}
