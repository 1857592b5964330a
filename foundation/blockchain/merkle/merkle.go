// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been reworked to use generics and keccak256 hashes.

// Package merkle provides an implementation of a merkle tree for validation
// support for the blockchain.
package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EmptyRoot is the root of a tree with no values. A block without
// transactions carries this value as its transaction root.
var EmptyRoot = crypto.Keccak256Hash(nil)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() common.Hash
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. Levels are stored bottom up, the
// leaf hashes are at index 0 and the root is the only hash of the last level.
type Tree[T Hashable] struct {
	values []T
	levels [][]common.Hash
}

// NewTree constructs a new merkle tree from the specified values. An empty
// set of values produces a tree whose root is EmptyRoot.
func NewTree[T Hashable](values []T) *Tree[T] {
	t := Tree[T]{
		values: append([]T(nil), values...),
	}

	if len(values) == 0 {
		return &t
	}

	leafs := make([]common.Hash, len(values))
	for i, value := range values {
		leafs[i] = value.Hash()
	}

	t.levels = append(t.levels, leafs)
	for level := leafs; len(level) > 1; {
		level = buildLevel(level)
		t.levels = append(t.levels, level)
	}

	return &t
}

// Root returns the merkle root hash.
func (t *Tree[T]) Root() common.Hash {
	if len(t.levels) == 0 {
		return EmptyRoot
	}

	return t.levels[len(t.levels)-1][0]
}

// RootHex converts the merkle root hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return t.Root().Hex()
}

// Values returns a copy of the values stored in the tree in their
// original order.
func (t *Tree[T]) Values() []T {
	return append([]T(nil), t.values...)
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash comes first, 1 means it comes second.
func (t *Tree[T]) Proof(value T) ([]common.Hash, []int64, error) {
	if len(t.levels) == 0 {
		return nil, nil, errors.New("unable to find data in tree")
	}

	target := value.Hash()

	idx := -1
	for i, leaf := range t.levels[0] {
		if leaf == target {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil, errors.New("unable to find data in tree")
	}

	var proof []common.Hash
	var order []int64
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx
		}

		proof = append(proof, level[sibling])
		if idx%2 == 0 {
			order = append(order, 1)
		} else {
			order = append(order, 0)
		}

		idx /= 2
	}

	return proof, order, nil
}

// VerifyProof walks the proof for the specified value and reports whether the
// result matches the root.
func VerifyProof(root common.Hash, value Hashable, proof []common.Hash, order []int64) bool {
	if len(proof) != len(order) {
		return false
	}

	hash := value.Hash()
	for i, p := range proof {
		switch order[i] {
		case 0:
			hash = crypto.Keccak256Hash(p[:], hash[:])
		default:
			hash = crypto.Keccak256Hash(hash[:], p[:])
		}
	}

	return hash == root
}

// Verify recalculates every level of the tree from the values and checks the
// result matches the stored root.
func (t *Tree[T]) Verify() error {
	if NewTree(t.values).Root() != t.Root() {
		return errors.New("root hash invalid")
	}

	return nil
}

// =============================================================================

// buildLevel hashes pairs of nodes into the next level up. When there is an
// odd number of nodes, the last node is paired with itself.
func buildLevel(nodes []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(nodes)+1)/2)

	for i := 0; i < len(nodes); i += 2 {
		left, right := nodes[i], nodes[i]
		if i+1 < len(nodes) {
			right = nodes[i+1]
		}

		next = append(next, crypto.Keccak256Hash(left[:], right[:]))
	}

	return next
}
