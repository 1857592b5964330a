package database

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ardanlabs/ethnode/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account represents information stored in the database for an individual account.
type Account struct {
	Address common.Address
	Nonce   uint64
	Balance *uint256.Int
}

// =============================================================================

// Sheet maintains the balance and nonce of every account that has
// transacted on the blockchain as of a given block. A Sheet is not safe for
// concurrent use, the owner is responsible for synchronization.
type Sheet struct {
	accounts map[common.Address]Account
}

// NewSheet constructs a sheet with the specified starting balances.
func NewSheet(alloc map[common.Address]*big.Int) (*Sheet, error) {
	s := Sheet{
		accounts: make(map[common.Address]Account, len(alloc)),
	}

	for addr, balance := range alloc {
		bal, overflow := uint256.FromBig(balance)
		if overflow {
			return nil, fmt.Errorf("balance for %s overflows 256 bits", addr)
		}
		s.accounts[addr] = Account{Address: addr, Balance: bal}
	}

	return &s, nil
}

// Copy makes a deep copy of the sheet.
func (s *Sheet) Copy() *Sheet {
	cpy := Sheet{
		accounts: make(map[common.Address]Account, len(s.accounts)),
	}

	for addr, acct := range s.accounts {
		acct.Balance = acct.Balance.Clone()
		cpy.accounts[addr] = acct
	}

	return &cpy
}

// Account returns a copy of the account information for the address. Unknown
// accounts have a zero balance and a zero nonce.
func (s *Sheet) Account(addr common.Address) Account {
	acct, exists := s.accounts[addr]
	if !exists {
		return Account{Address: addr, Balance: new(uint256.Int)}
	}

	acct.Balance = acct.Balance.Clone()
	return acct
}

// Balance returns the balance of the address.
func (s *Sheet) Balance(addr common.Address) *big.Int {
	return s.Account(addr).Balance.ToBig()
}

// Nonce returns the nonce the next transaction from this address must use.
func (s *Sheet) Nonce(addr common.Address) uint64 {
	return s.accounts[addr].Nonce
}

// Accounts returns a copy of every account in the sheet sorted by address.
func (s *Sheet) Accounts() []Account {
	accts := make([]Account, 0, len(s.accounts))
	for addr := range s.accounts {
		accts = append(accts, s.Account(addr))
	}

	sort.Slice(accts, func(i, j int) bool {
		return bytes.Compare(accts[i].Address[:], accts[j].Address[:]) < 0
	})

	return accts
}

// Hash returns a hash that represents the state of every account in the sheet.
func (s *Sheet) Hash() common.Hash {
	type entry struct {
		Address common.Address
		Nonce   uint64
		Balance *big.Int
	}

	accts := s.Accounts()
	entries := make([]entry, len(accts))
	for i, acct := range accts {
		entries[i] = entry{
			Address: acct.Address,
			Nonce:   acct.Nonce,
			Balance: acct.Balance.ToBig(),
		}
	}

	return signature.Hash(entries)
}

// ApplyMiningReward gives the specified beneficiary the mining reward.
func (s *Sheet) ApplyMiningReward(beneficiary common.Address, reward uint64) {
	if reward == 0 {
		return
	}

	acct := s.Account(beneficiary)
	acct.Balance.Add(acct.Balance, uint256.NewInt(reward))
	s.accounts[beneficiary] = acct
}

// ApplyTransaction performs the business logic for applying a transaction
// to the sheet. All checks are performed before any account is changed so a
// failed transaction leaves the sheet untouched. The amount of gas the
// transaction used is returned.
func (s *Sheet) ApplyTransaction(beneficiary common.Address, tx SignedTx) (uint64, error) {
	from, err := tx.From()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	// Perform basic accounting checks.
	sender := s.Account(from)
	switch {
	case tx.Nonce < sender.Nonce:
		return 0, fmt.Errorf("%w: account %s, current %d, provided %d", ErrNonceTooLow, from, sender.Nonce, tx.Nonce)

	case tx.Nonce > sender.Nonce:
		return 0, fmt.Errorf("%w: account %s, current %d, provided %d", ErrNonceTooHigh, from, sender.Nonce, tx.Nonce)
	}

	gasUsed := IntrinsicGas(tx.Data)
	if tx.Gas < gasUsed {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.Gas, gasUsed)
	}

	value, gasPrice, err := tx.amounts()
	if err != nil {
		return 0, err
	}

	// The sender must be able to cover the full gas allowance up front even
	// though only the gas used is charged.
	cost, overflow := new(uint256.Int).MulOverflow(gasPrice, uint256.NewInt(tx.Gas))
	if !overflow {
		cost, overflow = cost.AddOverflow(cost, value)
	}
	if overflow || sender.Balance.Lt(cost) {
		return 0, fmt.Errorf("%w: account %s, balance %s, needed %s", ErrInsufficientBalance, from, sender.Balance.Dec(), cost.Dec())
	}

	fee := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasUsed))

	// Charge the sender for the value and the gas that was used.
	sender.Balance.Sub(sender.Balance, value)
	sender.Balance.Sub(sender.Balance, fee)
	sender.Nonce++
	s.accounts[from] = sender

	// Credit the receiver. The receiver is read after the sender was written
	// so sending money to yourself works.
	var to common.Address
	if tx.To != nil {
		to = *tx.To
	}
	receiver := s.Account(to)
	receiver.Balance.Add(receiver.Balance, value)
	s.accounts[to] = receiver

	// Give the beneficiary the fee.
	bnfc := s.Account(beneficiary)
	bnfc.Balance.Add(bnfc.Balance, fee)
	s.accounts[beneficiary] = bnfc

	return gasUsed, nil
}
