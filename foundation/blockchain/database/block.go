package database

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/ethnode/foundation/blockchain/genesis"
	"github.com/ardanlabs/ethnode/foundation/blockchain/merkle"
	"github.com/ardanlabs/ethnode/foundation/blockchain/pow"
	"github.com/ardanlabs/ethnode/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrBlockHashMismatch is returned when stored block data doesn't hash to the
// value that was recorded with it.
var ErrBlockHashMismatch = errors.New("block hash mismatch")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	ParentHash  common.Hash    `json:"parent_hash"` // Ethereum: Hash of the previous block in the chain.
	Beneficiary common.Address `json:"beneficiary"` // Ethereum: The account who is receiving fees and the mining reward.
	StateRoot   common.Hash    `json:"state_root"`  // Ethereum: Hash of the account balances after this block is applied.
	TxRoot      common.Hash    `json:"tx_root"`     // Ethereum: Merkle root of the transactions in this block.
	Difficulty  *big.Int       `json:"difficulty"`  // Ethereum: How difficult it is to solve the work problem.
	Number      uint64         `json:"number"`      // Ethereum: Block number in the chain.
	GasLimit    uint64         `json:"gas_limit"`   // Ethereum: Maximum amount of gas the transactions can use.
	GasUsed     uint64         `json:"gas_used"`    // Ethereum: Amount of gas the transactions used.
	Time        uint64         `json:"time"`        // Ethereum: Time the block was assembled.
	Extra       hexutil.Bytes  `json:"extra"`       // Ethereum: Arbitrary data provided by the miner.
}

// MiningHash returns the hash of the header. This is the value the proof of
// work is performed against.
func (h BlockHeader) MiningHash() common.Hash {
	return signature.Hash(h)
}

// copy makes a deep copy of the header.
func (h BlockHeader) copy() BlockHeader {
	if h.Difficulty != nil {
		h.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	h.Extra = append(hexutil.Bytes(nil), h.Extra...)
	return h
}

// =============================================================================

// Block represents a finalized group of transactions. A block can't be
// changed once it's constructed.
type Block struct {
	header  BlockHeader
	mixHash common.Hash
	nonce   types.BlockNonce
	trans   *merkle.Tree[SignedTx]
}

// GenesisBlock constructs the first block of the chain from the genesis
// information and the starting account sheet.
func GenesisBlock(gen genesis.Genesis, sheet *Sheet) Block {
	var tm uint64
	if !gen.Date.IsZero() && gen.Date.Unix() > 0 {
		tm = uint64(gen.Date.Unix())
	}

	return Block{
		header: BlockHeader{
			StateRoot:  sheet.Hash(),
			TxRoot:     merkle.EmptyRoot,
			Difficulty: new(big.Int).SetUint64(gen.Difficulty),
			GasLimit:   gen.GasLimit,
			Time:       tm,
			Extra:      hexutil.Bytes(gen.ExtraData),
		},
		trans: merkle.NewTree[SignedTx](nil),
	}
}

// Header returns a copy of the block header.
func (b Block) Header() BlockHeader {
	return b.header.copy()
}

// Number returns the block number.
func (b Block) Number() uint64 {
	return b.header.Number
}

// Difficulty returns a copy of the block difficulty.
func (b Block) Difficulty() *big.Int {
	return new(big.Int).Set(b.header.Difficulty)
}

// MiningHash returns the hash the nonce of this block was found against.
func (b Block) MiningHash() common.Hash {
	return b.header.MiningHash()
}

// MixHash returns the mix digest produced by the proof of work.
func (b Block) MixHash() common.Hash {
	return b.mixHash
}

// Nonce returns the nonce that solved the proof of work.
func (b Block) Nonce() types.BlockNonce {
	return b.nonce
}

// Transactions returns the transactions in the block in the order they
// were applied.
func (b Block) Transactions() []SignedTx {
	if b.trans == nil {
		return nil
	}
	return b.trans.Values()
}

// Hash returns the unique hash for the block. The seal is part of the hash
// so two blocks with the same header and different nonces are different.
func (b Block) Hash() common.Hash {
	return signature.Hash(struct {
		Header  BlockHeader
		MixHash common.Hash
		Nonce   types.BlockNonce
	}{
		Header:  b.header,
		MixHash: b.mixHash,
		Nonce:   b.nonce,
	})
}

// ValidateBlock takes a block and validates it to be the next block after
// the specified parent.
func (b Block) ValidateBlock(parent Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.header.Number)

	nextNumber := parent.header.Number + 1
	if b.header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.header.Number)

	if b.header.ParentHash != parent.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.header.ParentHash, parent.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's time is greater than parent block's time", b.header.Number)

	if b.header.Time <= parent.header.Time {
		return fmt.Errorf("block time is before parent block, parent %d, block %d", parent.header.Time, b.header.Time)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block difficulty is the same as parent block difficulty", b.header.Number)

	if b.header.Difficulty == nil || b.header.Difficulty.Cmp(parent.header.Difficulty) != 0 {
		return fmt.Errorf("block difficulty doesn't match parent block difficulty, parent %s, block %s", parent.header.Difficulty, b.header.Difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: gas used is within the gas limit", b.header.Number)

	if b.header.GasUsed > b.header.GasLimit {
		return fmt.Errorf("block gas used exceeds gas limit, limit %d, used %d", b.header.GasLimit, b.header.GasUsed)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block has been sealed", b.header.Number)

	if err := pow.Verify(b.header.Number, b.header.Difficulty, b.MiningHash(), b.nonce, b.mixHash); err != nil {
		return fmt.Errorf("block seal is invalid: %w", err)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.header.Number)

	if root := b.trans.Root(); b.header.TxRoot != root {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.header.TxRoot)
	}

	return nil
}

// =============================================================================

// Candidate represents the block being assembled on top of the head of the
// chain. Transactions can be applied to it until it's sealed. A candidate is
// not safe for concurrent use, the owner is responsible for synchronization.
type Candidate struct {
	header BlockHeader
	trans  []SignedTx
	sheet  *Sheet
}

// NewCandidate constructs the next block to be mined on top of the parent.
// The mining reward is applied to the beneficiary up front so the state root
// always represents the final state of the block.
func NewCandidate(parent Block, parentSheet *Sheet, beneficiary common.Address, reward uint64, extra []byte, now time.Time) *Candidate {
	tm := parent.header.Time + 1
	if unix := now.Unix(); unix > 0 && uint64(unix) > parent.header.Time {
		tm = uint64(unix)
	}

	sheet := parentSheet.Copy()
	sheet.ApplyMiningReward(beneficiary, reward)

	return &Candidate{
		header: BlockHeader{
			ParentHash:  parent.Hash(),
			Beneficiary: beneficiary,
			StateRoot:   sheet.Hash(),
			TxRoot:      merkle.EmptyRoot,
			Difficulty:  parent.Difficulty(),
			Number:      parent.header.Number + 1,
			GasLimit:    parent.header.GasLimit,
			Time:        tm,
			Extra:       append(hexutil.Bytes(nil), extra...),
		},
		sheet: sheet,
	}
}

// Apply validates the transaction against the candidate's accounts and adds
// it to the candidate. The candidate is unchanged when an error is returned.
func (c *Candidate) Apply(tx SignedTx) (common.Hash, error) {
	if tx.Gas > c.header.GasLimit-c.header.GasUsed {
		return common.Hash{}, fmt.Errorf("%w: remaining %d, provided %d", ErrGasLimitReached, c.header.GasLimit-c.header.GasUsed, tx.Gas)
	}

	gasUsed, err := c.sheet.ApplyTransaction(c.header.Beneficiary, tx)
	if err != nil {
		return common.Hash{}, err
	}

	c.trans = append(c.trans, tx)
	c.header.GasUsed += gasUsed
	c.header.TxRoot = merkle.NewTree(c.trans).Root()
	c.header.StateRoot = c.sheet.Hash()

	return tx.Hash(), nil
}

// Seal produces the final block using the nonce and mix hash found by the
// proof of work. The account sheet representing the state after the block
// is returned with it.
func (c *Candidate) Seal(nonce types.BlockNonce, mixHash common.Hash) (Block, *Sheet) {
	b := Block{
		header:  c.header.copy(),
		mixHash: mixHash,
		nonce:   nonce,
		trans:   merkle.NewTree(c.trans),
	}

	return b, c.sheet.Copy()
}

// Copy makes a deep copy of the candidate.
func (c *Candidate) Copy() *Candidate {
	return &Candidate{
		header: c.header.copy(),
		trans:  append([]SignedTx(nil), c.trans...),
		sheet:  c.sheet.Copy(),
	}
}

// Header returns a copy of the candidate header.
func (c *Candidate) Header() BlockHeader {
	return c.header.copy()
}

// Number returns the number the block will have once sealed.
func (c *Candidate) Number() uint64 {
	return c.header.Number
}

// Difficulty returns a copy of the candidate difficulty.
func (c *Candidate) Difficulty() *big.Int {
	return new(big.Int).Set(c.header.Difficulty)
}

// MiningHash returns the hash the proof of work must be performed against.
// Every applied transaction changes this value.
func (c *Candidate) MiningHash() common.Hash {
	return c.header.MiningHash()
}

// Transactions returns a copy of the transactions applied so far.
func (c *Candidate) Transactions() []SignedTx {
	return append([]SignedTx(nil), c.trans...)
}

// Count returns the number of transactions applied so far.
func (c *Candidate) Count() int {
	return len(c.trans)
}

// Balance returns the balance of the address as of this candidate.
func (c *Candidate) Balance(addr common.Address) *big.Int {
	return c.sheet.Balance(addr)
}

// Nonce returns the nonce the next transaction from the address must use.
func (c *Candidate) Nonce(addr common.Address) uint64 {
	return c.sheet.Nonce(addr)
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash    common.Hash      `json:"hash"`
	Header  BlockHeader      `json:"header"`
	MixHash common.Hash      `json:"mix_hash"`
	Nonce   types.BlockNonce `json:"nonce"`
	Trans   []SignedTx       `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:    block.Hash(),
		Header:  block.Header(),
		MixHash: block.mixHash,
		Nonce:   block.nonce,
		Trans:   block.Transactions(),
	}
}

// ToBlock converts the storage representation back into a block. The
// recorded hash must match the hash of the converted block.
func ToBlock(blockData BlockData) (Block, error) {
	b := Block{
		header:  blockData.Header.copy(),
		mixHash: blockData.MixHash,
		nonce:   blockData.Nonce,
		trans:   merkle.NewTree(blockData.Trans),
	}

	if b.header.Difficulty == nil {
		return Block{}, fmt.Errorf("block %d: missing difficulty", b.header.Number)
	}

	if hash := b.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("%w: block %d, got %s, exp %s", ErrBlockHashMismatch, b.header.Number, hash, blockData.Hash)
	}

	return b, nil
}
