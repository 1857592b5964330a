// Package state is the core API for the blockchain and implements all the
// business rules and processing. It owns the head of the chain and the
// candidate block being assembled on top of it.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/genesis"
	"github.com/ardanlabs/ethnode/foundation/blockchain/hashlog"
	"github.com/ethereum/go-ethereum/common"
)

// Set of error variables for state processing.
var (
	ErrStaleMiningHash  = errors.New("mining hash no longer matches the candidate")
	ErrInvalidSeal      = errors.New("invalid seal")
	ErrStateUnavailable = errors.New("state is not available for the requested block")
	ErrBlockNotFound    = errors.New("block not found")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Beneficiary common.Address
	Genesis     genesis.Genesis
	Storage     database.Storage
	Registry    *accounts.Registry
	AutoMine    bool
	EvHandler   EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	beneficiary common.Address
	extra       []byte
	autoMine    bool
	evHandler   EventHandler

	genesis   genesis.Genesis
	db        *database.Database
	registry  *accounts.Registry
	candidate *database.Candidate
	pending   *hashlog.Log
	blocks    *hashlog.Log

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the storage for the blockchain. Every stored block is validated
	// and replayed to rebuild the head of the chain.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = accounts.New()
	}

	state := State{
		beneficiary: cfg.Beneficiary,
		extra:       []byte(cfg.Genesis.ExtraData),
		autoMine:    cfg.AutoMine,
		evHandler:   ev,

		genesis:  cfg.Genesis,
		db:       db,
		registry: registry,
		pending:  hashlog.New(),
		blocks:   hashlog.New(),
	}

	// Open the first candidate on top of whatever the head is.
	state.candidate = state.newCandidate(db.LatestBlock(), db.HeadSheet())

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database is properly closed.
	return s.db.Close()
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Beneficiary returns the account receiving the rewards for mined blocks.
func (s *State) Beneficiary() common.Address {
	return s.beneficiary
}

// Registry returns the registry of signing identities.
func (s *State) Registry() *accounts.Registry {
	return s.registry
}

// =============================================================================

// newCandidate constructs an empty candidate on top of the specified parent.
func (s *State) newCandidate(parent database.Block, parentSheet *database.Sheet) *database.Candidate {
	return database.NewCandidate(parent, parentSheet, s.beneficiary, s.genesis.MiningReward, s.extra, time.Now())
}

// signalMining tells the worker to start mining when the node is configured
// to mine as transactions arrive.
func (s *State) signalMining() {
	if !s.autoMine || s.Worker == nil {
		return
	}

	s.Worker.SignalStartMining()
}
