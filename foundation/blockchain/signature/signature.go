// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ZeroHash represents a hash code of zeros.
var ZeroHash = common.Hash{}

// recoveryOffset is added to the recovery id of every signature we produce.
// Ethereum uses 27 for legacy transactions and so do we.
const recoveryOffset = 27

// =============================================================================

// Hash returns the keccak256 hash of the rlp encoding of the value. Values
// that can't be rlp encoded hash to the ZeroHash.
func Hash(value any) common.Hash {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return ZeroHash
	}

	return crypto.Keccak256Hash(data)
}

// Sign uses the specified private key to sign the data.
func Sign(value any, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {

	// Prepare the data for signing.
	data, err := signingHash(value)
	if err != nil {
		return nil, nil, nil, err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, nil, nil, err
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, nil, nil, err
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, nil, nil, errors.New("invalid signature")
	}

	// Convert the 65 byte signature into the [R|S|V] format.
	v, r, s = toSignatureValues(sig)

	return v, r, s, nil
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(v, r, s *big.Int) error {
	if v == nil || r == nil || s == nil {
		return errors.New("missing signature values")
	}

	// Check the recovery id is either 0 or 1.
	uintV := v.Uint64() - recoveryOffset
	if uintV != 0 && uintV != 1 {
		return errors.New("invalid recovery id")
	}

	// Check the signature values are valid.
	if !crypto.ValidateSignatureValues(byte(uintV), r, s, true) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromAddress extracts the address for the account that signed the data.
func FromAddress(value any, v, r, s *big.Int) (common.Address, error) {
	if err := VerifySignature(v, r, s); err != nil {
		return common.Address{}, err
	}

	// Prepare the data for public key extraction.
	data, err := signingHash(value)
	if err != nil {
		return common.Address{}, err
	}

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(data, ToSignatureBytes(v, r, s))
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// SignatureString returns the signature as a string.
func SignatureString(v, r, s *big.Int) string {
	sig := ToSignatureBytes(v, r, s)
	sig[64] = byte(v.Uint64())

	return hexutil.Encode(sig)
}

// ToSignatureBytes converts the r, s, v values into a slice of bytes
// with the removal of the recovery offset.
func ToSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v.Uint64() - recoveryOffset)

	return sig
}

// =============================================================================

// signingHash returns the 32 byte hash that is signed for the value.
func signingHash(value any) ([]byte, error) {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return nil, err
	}

	return crypto.Keccak256(data), nil
}

// toSignatureValues converts the signature into the r, s, v values.
func toSignatureValues(sig []byte) (v, r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64] + recoveryOffset})

	return v, r, s
}
