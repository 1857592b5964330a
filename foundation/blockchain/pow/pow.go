// Package pow provides the nonce search and seal verification for the
// proof of work used by the blockchain. The search is a bounded unit of work
// so callers can interleave other checks between invocations.
package pow

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EpochLength is the number of blocks that share the same seed hash.
const EpochLength = 30000

// Set of error variables for seal verification.
var (
	ErrInvalidDifficulty = errors.New("non-positive difficulty")
	ErrInvalidMixDigest  = errors.New("invalid mix digest")
	ErrInvalidPoW        = errors.New("invalid proof-of-work")
)

// two256 is 2^256, the size of the hash space.
var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// =============================================================================

// Search tries the nonces in [startNonce, startNonce+rounds) looking for one
// that solves the puzzle for the specified mining hash. The boolean is false
// when every nonce in the range was exhausted.
func Search(number uint64, difficulty *big.Int, miningHash common.Hash, startNonce uint64, rounds uint64) (types.BlockNonce, common.Hash, bool) {
	target := Target(difficulty)
	if target.Sign() == 0 {
		return types.BlockNonce{}, common.Hash{}, false
	}

	seed := SeedHash(number)
	result := new(big.Int)

	nonce := startNonce
	for i := uint64(0); i < rounds; i++ {
		mix, digest := hashimoto(seed, miningHash, nonce)
		if result.SetBytes(digest[:]).Cmp(target) <= 0 {
			return types.EncodeNonce(nonce), mix, true
		}
		nonce++
	}

	return types.BlockNonce{}, common.Hash{}, false
}

// Verify checks the nonce and mix hash solve the puzzle for the specified
// mining hash.
func Verify(number uint64, difficulty *big.Int, miningHash common.Hash, nonce types.BlockNonce, mixHash common.Hash) error {
	target := Target(difficulty)
	if target.Sign() == 0 {
		return ErrInvalidDifficulty
	}

	mix, digest := hashimoto(SeedHash(number), miningHash, nonce.Uint64())
	if mix != mixHash {
		return ErrInvalidMixDigest
	}

	if new(big.Int).SetBytes(digest[:]).Cmp(target) > 0 {
		return ErrInvalidPoW
	}

	return nil
}

// Target returns the largest hash value that solves the puzzle for the
// specified difficulty, 2^256 / difficulty. A zero target is returned for a
// non-positive difficulty.
func Target(difficulty *big.Int) *big.Int {
	if difficulty == nil || difficulty.Sign() <= 0 {
		return new(big.Int)
	}

	target := new(big.Int).Div(two256, difficulty)
	if target.BitLen() > 256 {
		target.Sub(target, big.NewInt(1))
	}

	return target
}

// SeedHash returns the seed for the epoch the block number belongs to.
func SeedHash(number uint64) common.Hash {
	var seed common.Hash
	for i := uint64(0); i < number/EpochLength; i++ {
		seed = crypto.Keccak256Hash(seed[:])
	}
	return seed
}

// =============================================================================

// hashimoto produces the mix digest and the final digest that is compared
// against the target.
func hashimoto(seed common.Hash, miningHash common.Hash, nonce uint64) (common.Hash, common.Hash) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)

	mix := crypto.Keccak256Hash(seed[:], miningHash[:], n[:])
	digest := crypto.Keccak256Hash(miningHash[:], mix[:])

	return mix, digest
}
