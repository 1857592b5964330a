// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory sheet of account
// information for the head of the chain.
package database

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ethnode/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator wraps a storage iterator and converts what is read into
// blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages the head of the chain and the accounts as of that head.
type Database struct {
	mu sync.RWMutex

	genesis      genesis.Genesis
	genesisBlock Block
	genesisSheet *Sheet
	latestBlock  Block
	headSheet    *Sheet

	storage Storage
}

// New constructs a new database and applies account genesis information. All
// the blocks found in storage are validated and replayed to rebuild the head
// of the chain.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	genesisSheet, err := NewSheet(gen.Alloc())
	if err != nil {
		return nil, err
	}
	genesisBlock := GenesisBlock(gen, genesisSheet)

	db := Database{
		genesis:      gen,
		genesisBlock: genesisBlock,
		genesisSheet: genesisSheet,
		latestBlock:  genesisBlock,
		headSheet:    genesisSheet.Copy(),
		storage:      storage,
	}

	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if err := block.ValidateBlock(db.latestBlock, evHandler); err != nil {
			return nil, err
		}

		sheet, err := db.replay(block)
		if err != nil {
			return nil, err
		}

		db.latestBlock = block
		db.headSheet = sheet
	}

	evHandler("database: New: replayed: head[%d]: hash[%s]", db.latestBlock.Number(), db.latestBlock.Hash())

	return &db, nil
}

// replay applies the block to a copy of the head sheet and confirms the
// result matches the state root recorded in the block.
func (db *Database) replay(block Block) (*Sheet, error) {
	header := block.header

	sheet := db.headSheet.Copy()
	sheet.ApplyMiningReward(header.Beneficiary, db.genesis.MiningReward)

	for _, tx := range block.Transactions() {
		if _, err := sheet.ApplyTransaction(header.Beneficiary, tx); err != nil {
			return nil, fmt.Errorf("block %d: tx %s: %w", header.Number, tx.Hash(), err)
		}
	}

	if root := sheet.Hash(); root != header.StateRoot {
		return nil, fmt.Errorf("block %d: state root does not match accounts, got %s, exp %s", header.Number, root, header.StateRoot)
	}

	return sheet, nil
}

// Close closes the open blocks database.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Reset(); err != nil {
		return err
	}

	db.latestBlock = db.genesisBlock
	db.headSheet = db.genesisSheet.Copy()

	return nil
}

// Genesis returns the genesis information the database was constructed with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// GenesisSheet returns a copy of the accounts as of the genesis block.
func (db *Database) GenesisSheet() *Sheet {
	return db.genesisSheet.Copy()
}

// LatestBlock returns the head of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// HeadSheet returns a copy of the accounts as of the head of the chain.
func (db *Database) HeadSheet() *Sheet {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.headSheet.Copy()
}

// Write adds a new block to the chain and makes it the head. The sheet is
// the state of the accounts after the block was applied.
func (db *Database) Write(block Block, sheet *Sheet) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if block.Number() != db.latestBlock.Number()+1 {
		return fmt.Errorf("block %d is not the next block after %d", block.Number(), db.latestBlock.Number())
	}

	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return err
	}

	db.latestBlock = block
	db.headSheet = sheet.Copy()

	return nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// GetBlock searches the blockchain in storage to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	if num == 0 {
		return db.genesisBlock, nil
	}

	blockData, err := db.storage.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}
