// Package accounts maintains the signing identities the node holds keys for.
// Keys are read from a folder of .ecdsa files and every identity can be
// locked or unlocked. Only unlocked identities can sign transactions.
package accounts

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of error variables for account lookups.
var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrLockedAccount  = errors.New("account is locked")
)

// Account represents an identity the registry holds a key for.
type Account struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Unlocked bool           `json:"unlocked"`
}

// identity is what the registry stores for each account.
type identity struct {
	name     string
	key      *ecdsa.PrivateKey
	unlocked bool
}

// Registry maintains a map of accounts and their keys.
type Registry struct {
	mu         sync.RWMutex
	identities map[common.Address]*identity
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		identities: make(map[common.Address]*identity),
	}
}

// Load constructs a registry with the keys found in the specified folder.
// The file name without the extension becomes the account name. Every
// account loaded is unlocked.
func Load(root string) (*Registry, error) {
	r := New()

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		r.Add(strings.TrimSuffix(filepath.Base(fileName), ".ecdsa"), privateKey, true)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return r, nil
}

// Add stores the key under the specified name and returns the address the
// key belongs to.
func (r *Registry) Add(name string, privateKey *ecdsa.PrivateKey, unlocked bool) common.Address {
	addr := crypto.PubkeyToAddress(privateKey.PublicKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.identities[addr] = &identity{
		name:     name,
		key:      privateKey,
		unlocked: unlocked,
	}

	return addr
}

// Resolve returns the account for the address.
func (r *Registry) Resolve(addr common.Address) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[addr]
	if !exists {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
	}

	return Account{Address: addr, Name: id.name, Unlocked: id.unlocked}, nil
}

// IsUnlocked reports whether the account can sign transactions.
func (r *Registry) IsUnlocked(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[addr]
	return exists && id.unlocked
}

// Key returns the private key for an unlocked account.
func (r *Registry) Key(addr common.Address) (*ecdsa.PrivateKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[addr]
	switch {
	case !exists:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
	case !id.unlocked:
		return nil, fmt.Errorf("%w: %s", ErrLockedAccount, addr)
	}

	return id.key, nil
}

// Lock prevents the account from signing transactions.
func (r *Registry) Lock(addr common.Address) error {
	return r.setUnlocked(addr, false)
}

// Unlock allows the account to sign transactions.
func (r *Registry) Unlock(addr common.Address) error {
	return r.setUnlocked(addr, true)
}

// Lookup returns the name for the specified address. The hex form of the
// address is returned for unknown accounts.
func (r *Registry) Lookup(addr common.Address) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[addr]
	if !exists {
		return addr.Hex()
	}
	return id.name
}

// List returns every account sorted by address.
func (r *Registry) List() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accts := make([]Account, 0, len(r.identities))
	for addr, id := range r.identities {
		accts = append(accts, Account{Address: addr, Name: id.name, Unlocked: id.unlocked})
	}

	sort.Slice(accts, func(i, j int) bool {
		return bytes.Compare(accts[i].Address[:], accts[j].Address[:]) < 0
	})

	return accts
}

// setUnlocked changes the lock state of the account.
func (r *Registry) setUnlocked(addr common.Address, unlocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.identities[addr]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
	}

	id.unlocked = unlocked
	return nil
}
