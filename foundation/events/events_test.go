package events_test

import (
	"testing"

	"github.com/ardanlabs/ethnode/foundation/events"
)

func TestTopics(t *testing.T) {
	evts := events.New()

	all := evts.Acquire("all")
	viewer := evts.Acquire("viewer", "viewer")

	evts.Send("viewer: state: promote: blk[1]")
	evts.Send("worker: runMiningOperation: MINING: started")

	if len(all) != 2 {
		t.Fatalf("Should deliver every message without topics: got %d", len(all))
	}

	if len(viewer) != 1 {
		t.Fatalf("Should deliver only the viewer topic: got %d", len(viewer))
	}

	if err := evts.Release("viewer"); err != nil {
		t.Fatalf("Should be able to release the receiver: %v", err)
	}

	if _, open := <-viewer; !open {
		t.Fatalf("Should still drain buffered messages after release.")
	}

	if err := evts.Release("viewer"); err == nil {
		t.Fatalf("Should not release the receiver twice.")
	}

	evts.Shutdown()
	if evts.Len() != 0 {
		t.Fatalf("Should remove every receiver on shutdown: got %d", evts.Len())
	}
}
