// Package hashlog provides an append-only log of hashes that can be reset.
// Every reset starts a new generation so readers holding an offset into an
// older generation can tell their offset no longer applies.
package hashlog

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Log is an append-only ordered sequence of hashes.
type Log struct {
	mu         sync.RWMutex
	generation uint64
	hashes     []common.Hash
}

// New constructs an empty log at generation zero.
func New() *Log {
	return &Log{}
}

// Append adds the hash to the end of the log and returns the new length.
func (l *Log) Append(hash common.Hash) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hashes = append(l.hashes, hash)
	return len(l.hashes)
}

// Reset empties the log and starts a new generation.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hashes = nil
	l.generation++
}

// Len returns the number of hashes in the current generation.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.hashes)
}

// Snapshot captures a consistent view of the log.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// The log only ever appends to the backing array or replaces it on
	// reset, so the slice header is safe to share.
	return Snapshot{
		Generation: l.generation,
		hashes:     l.hashes[:len(l.hashes):len(l.hashes)],
	}
}

// =============================================================================

// Snapshot is a point in time view of a log.
type Snapshot struct {
	Generation uint64
	hashes     []common.Hash
}

// Len returns the number of hashes in the snapshot.
func (s Snapshot) Len() int {
	return len(s.hashes)
}

// Since returns a copy of the hashes from the offset to the end of the
// snapshot. Offsets past the end return an empty result.
func (s Snapshot) Since(offset int) []common.Hash {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.hashes) {
		return []common.Hash{}
	}

	return append([]common.Hash{}, s.hashes[offset:]...)
}
