package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Set of error variables for transaction processing.
var (
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrNonceTooHigh        = errors.New("nonce too high")
	ErrIntrinsicGas        = errors.New("intrinsic gas too low")
	ErrInsufficientBalance = errors.New("insufficient funds for gas * price + value")
	ErrGasLimitReached     = errors.New("gas limit reached")
)

// Gas costs every transaction has to cover before it's executed.
const (
	TxGas               uint64 = 21000 // Per transaction.
	TxDataZeroGas       uint64 = 4     // Per zero byte of data.
	TxDataNonZeroGas    uint64 = 68    // Per non-zero byte of data.
	DefaultGasAllowance uint64 = 90000 // Gas provided when the sender doesn't specify any.
)

// IntrinsicGas computes the gas a transaction with the specified data uses.
func IntrinsicGas(data []byte) uint64 {
	gas := TxGas
	for _, b := range data {
		if b == 0 {
			gas += TxDataZeroGas
			continue
		}
		gas += TxDataNonZeroGas
	}
	return gas
}

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	Nonce    uint64          `json:"nonce"`                  // Ethereum: Number of transactions previously sent by the sender.
	GasPrice *big.Int        `json:"gas_price"`              // Ethereum: Price the sender pays for one unit of gas.
	Gas      uint64          `json:"gas"`                    // Ethereum: Maximum amount of gas the sender allows to be used.
	To       *common.Address `json:"to,omitempty" rlp:"nil"` // Ethereum: Account receiving the value, nil for contract creation.
	Value    *big.Int        `json:"value"`                  // Ethereum: Monetary value received from this transaction.
	Data     []byte          `json:"data"`                   // Ethereum: Extra data related to the transaction.
}

// NewTx constructs a new transaction.
func NewTx(nonce uint64, to *common.Address, value *big.Int, gas uint64, gasPrice *big.Int, data []byte) Tx {
	if value == nil {
		value = new(big.Int)
	}
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}

	return Tx{
		Nonce:    nonce,
		GasPrice: new(big.Int).Set(gasPrice),
		Gas:      gas,
		To:       to,
		Value:    new(big.Int).Set(value),
		Data:     data,
	}
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is what is applied
// to a candidate block and recorded inside a block.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Ethereum: Recovery identifier, either 27 or 28.
	R *big.Int `json:"r"` // Ethereum: First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Ethereum: Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards.
func (tx SignedTx) Validate() error {
	if tx.GasPrice == nil || tx.Value == nil {
		return errors.New("missing gas price or value")
	}

	if tx.GasPrice.Sign() < 0 || tx.Value.Sign() < 0 {
		return errors.New("negative gas price or value")
	}

	return signature.VerifySignature(tx.V, tx.R, tx.S)
}

// From extracts the address of the account that signed the transaction.
func (tx SignedTx) From() (common.Address, error) {
	return signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
}

// Hash returns the content hash of the transaction. This implements the
// merkle Hashable interface.
func (tx SignedTx) Hash() common.Hash {
	return signature.Hash(tx)
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.From()
	if err != nil {
		return fmt.Sprintf("unknown:%d", tx.Nonce)
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// amounts converts the value and gas price into 256 bit integers.
func (tx SignedTx) amounts() (value *uint256.Int, gasPrice *uint256.Int, err error) {
	if err := tx.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	value, overflow := uint256.FromBig(tx.Value)
	if overflow {
		return nil, nil, fmt.Errorf("%w: value overflows 256 bits", ErrInsufficientBalance)
	}

	gasPrice, overflow = uint256.FromBig(tx.GasPrice)
	if overflow {
		return nil, nil, fmt.Errorf("%w: gas price overflows 256 bits", ErrInsufficientBalance)
	}

	return value, gasPrice, nil
}
