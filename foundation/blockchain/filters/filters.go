// Package filters maintains the filters clients poll for new pending
// transactions and new blocks. A filter only remembers how far into a log it
// has delivered, it never holds a copy of the hashes it hasn't delivered.
package filters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ethnode/foundation/blockchain/hashlog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ErrFilterNotFound is returned when the filter id is unknown.
var ErrFilterNotFound = errors.New("filter not found")

// Kind represents the log a filter reads.
type Kind int

// Set of filter kinds.
const (
	PendingTransactions Kind = iota
	Blocks
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	if k == Blocks {
		return "blocks"
	}
	return "pending_transactions"
}

// Source represents the behavior required to read the logs a filter
// delivers from.
type Source interface {
	QueryPendingLog() hashlog.Snapshot
	QueryBlockLog() hashlog.Snapshot
}

// filter represents the delivery position of one client.
type filter struct {
	kind       Kind
	cursor     int
	generation uint64
}

// =============================================================================

// Registry maintains the set of installed filters.
type Registry struct {
	mu      sync.Mutex
	source  Source
	filters map[string]*filter
}

// New constructs a registry reading from the specified source.
func New(source Source) *Registry {
	return &Registry{
		source:  source,
		filters: make(map[string]*filter),
	}
}

// NewPendingTransactionFilter installs a filter that delivers the hashes of
// transactions applied to the candidate after the filter was installed.
func (r *Registry) NewPendingTransactionFilter() string {
	return r.install(PendingTransactions)
}

// NewBlockFilter installs a filter that delivers the hashes of blocks
// promoted after the filter was installed.
func (r *Registry) NewBlockFilter() string {
	return r.install(Blocks)
}

// Changes returns the hashes appended to the log of the filter since the last
// call, in the order they were appended. A hash is delivered to a filter at
// most once.
func (r *Registry) Changes(id string) ([]common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, exists := r.filters[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFilterNotFound, id)
	}

	snap := r.snapshot(f.kind)

	// The log was reset since the last poll. Everything in the log now was
	// appended after the reset and hasn't been delivered.
	if snap.Generation != f.generation {
		f.cursor = 0
		f.generation = snap.Generation
	}

	hashes := snap.Since(f.cursor)
	f.cursor = snap.Len()

	return hashes, nil
}

// Kind returns the kind of the filter.
func (r *Registry) Kind(id string) (Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, exists := r.filters[id]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrFilterNotFound, id)
	}

	return f.kind, nil
}

// Uninstall removes the filter. It reports whether the filter existed.
func (r *Registry) Uninstall(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.filters[id]; !exists {
		return false
	}

	delete(r.filters, id)
	return true
}

// Len returns the number of installed filters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.filters)
}

// =============================================================================

// install adds a filter positioned at the current end of its log.
func (r *Registry) install(kind Kind) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot(kind)

	id := uuid.NewString()
	r.filters[id] = &filter{
		kind:       kind,
		cursor:     snap.Len(),
		generation: snap.Generation,
	}

	return id
}

// snapshot reads the log for the specified kind of filter.
func (r *Registry) snapshot(kind Kind) hashlog.Snapshot {
	if kind == Blocks {
		return r.source.QueryBlockLog()
	}
	return r.source.QueryPendingLog()
}
