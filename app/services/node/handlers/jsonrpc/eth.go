package jsonrpc

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/filters"
	"github.com/ardanlabs/ethnode/foundation/blockchain/pow"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ardanlabs/ethnode/foundation/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// EthAPI provides the methods of the eth namespace.
type EthAPI struct {
	log     *zap.SugaredLogger
	state   *state.State
	filters *filters.Registry
	worker  *worker.Worker
}

// SendTransaction signs the transaction with the key of the sender and
// applies it to the candidate block. A sender without the funds to cover
// the transaction produces a null result and nothing changes.
func (api *EthAPI) SendTransaction(args TransactionArgs) (*common.Hash, error) {
	req, err := args.toRequest()
	if err != nil {
		metrics.AddTransaction("invalid")
		return nil, err
	}

	hash, err := api.state.SubmitTransaction(req)
	if err != nil {
		if errors.Is(err, database.ErrInsufficientBalance) {
			metrics.AddTransaction("insufficient")
			api.logf("eth_sendTransaction: from[%s]: %s", req.From, err)
			return nil, nil
		}

		metrics.AddTransaction("rejected")
		return nil, toRequestError(err)
	}

	metrics.AddTransaction("accepted")

	return &hash, nil
}

// NewPendingTransactionFilter installs a filter reporting the hashes of
// the transactions applied to the candidate block.
func (api *EthAPI) NewPendingTransactionFilter() string {
	id := api.filters.NewPendingTransactionFilter()
	metrics.SetFilters(api.filters.Len())
	return id
}

// NewBlockFilter installs a filter reporting the hashes of new head blocks.
func (api *EthAPI) NewBlockFilter() string {
	id := api.filters.NewBlockFilter()
	metrics.SetFilters(api.filters.Len())
	return id
}

// GetFilterChanges returns the hashes recorded for the filter since the
// last call.
func (api *EthAPI) GetFilterChanges(id string) ([]common.Hash, error) {
	hashes, err := api.filters.Changes(id)
	if err != nil {
		return nil, toRequestError(err)
	}

	return hashes, nil
}

// UninstallFilter removes the filter and reports whether it existed.
func (api *EthAPI) UninstallFilter(id string) bool {
	ok := api.filters.Uninstall(id)
	metrics.SetFilters(api.filters.Len())
	return ok
}

// GetBalance returns the balance of the account. The candidate block is
// used when no block is given.
func (api *EthAPI) GetBalance(addr common.Address, bn *rpc.BlockNumber) (*hexutil.Big, error) {
	sel, err := toSelector(bn, state.SelectPending)
	if err != nil {
		return nil, err
	}

	balance, err := api.state.QueryBalance(addr, sel)
	if err != nil {
		return nil, toRequestError(err)
	}

	return (*hexutil.Big)(balance), nil
}

// GetTransactionCount returns the nonce of the account. The candidate block
// is used when no block is given.
func (api *EthAPI) GetTransactionCount(addr common.Address, bn *rpc.BlockNumber) (hexutil.Uint64, error) {
	sel, err := toSelector(bn, state.SelectPending)
	if err != nil {
		return 0, err
	}

	nonce, err := api.state.QueryNonce(addr, sel)
	if err != nil {
		return 0, toRequestError(err)
	}

	return hexutil.Uint64(nonce), nil
}

// BlockNumber returns the number of the head block.
func (api *EthAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.state.QueryLatestBlock().Number())
}

// GetBlockByNumber returns the selected block. The pending block is the
// candidate and has no hash, nonce or mix hash. Unknown blocks produce a
// null result.
func (api *EthAPI) GetBlockByNumber(bn rpc.BlockNumber, fullTx bool) (map[string]any, error) {
	sel, err := toSelector(&bn, state.SelectLatest)
	if err != nil {
		return nil, err
	}

	if sel == state.SelectPending {
		candidate := api.state.QueryCandidate()
		return newRPCBlock(candidate.Header(), candidate.Transactions(), nil, nil, nil, fullTx), nil
	}

	block, err := api.state.QueryBlock(sel)
	if err != nil {
		if errors.Is(err, state.ErrBlockNotFound) {
			return nil, nil
		}
		return nil, err
	}

	hash := block.Hash()
	nonce := block.Nonce()
	mixHash := block.MixHash()

	return newRPCBlock(block.Header(), block.Transactions(), &hash, &nonce, &mixHash, fullTx), nil
}

// Accounts returns the addresses of the accounts held by the node.
func (api *EthAPI) Accounts() []common.Address {
	list := api.state.Registry().List()

	addrs := make([]common.Address, len(list))
	for i, acc := range list {
		addrs[i] = acc.Address
	}

	return addrs
}

// Coinbase returns the account receiving the mining rewards.
func (api *EthAPI) Coinbase() common.Address {
	return api.state.Beneficiary()
}

// Mining reports whether the node is searching for a nonce.
func (api *EthAPI) Mining() bool {
	if api.worker == nil {
		return false
	}

	return api.worker.Status() == worker.Searching
}

// ChainId returns the chain id of the genesis file.
func (api *EthAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.state.Genesis().ChainID)
}

// GetWork returns the work of the candidate block for external miners: the
// mining hash, the seed hash of the epoch and the boundary condition.
func (api *EthAPI) GetWork() ([3]string, error) {
	work := api.state.MiningWork()

	if work.Difficulty == nil || work.Difficulty.Sign() <= 0 {
		return [3]string{}, fmt.Errorf("%w: %v", pow.ErrInvalidDifficulty, work.Difficulty)
	}
	target := pow.Target(work.Difficulty)

	result := [3]string{
		work.MiningHash.Hex(),
		pow.SeedHash(work.Number).Hex(),
		common.BigToHash(target).Hex(),
	}

	return result, nil
}

// SubmitWork offers a solution for the candidate block. It reports whether
// the candidate was promoted to the head of the chain.
func (api *EthAPI) SubmitWork(nonce types.BlockNonce, miningHash common.Hash, mixHash common.Hash) bool {
	block, err := api.state.Promote(nonce, mixHash, miningHash)
	if err != nil {
		api.logf("eth_submitWork: nonce[%x]: %s", nonce, err)
		return false
	}

	metrics.SetHead(block.Number())

	return true
}

// logf writes to the logger when one was provided.
func (api *EthAPI) logf(format string, args ...any) {
	if api.log != nil {
		api.log.Infof(format, args...)
	}
}

// =============================================================================

// NetAPI provides the methods of the net namespace.
type NetAPI struct {
	state *state.State
}

// Version returns the network id as a decimal string.
func (api *NetAPI) Version() string {
	return new(big.Int).SetUint64(api.state.Genesis().ChainID).String()
}

// =============================================================================

// Web3API provides the methods of the web3 namespace.
type Web3API struct {
	build string
}

// ClientVersion returns the name and build of the node.
func (api *Web3API) ClientVersion() string {
	return "ethnode/" + api.build
}

// Sha3 returns the keccak256 hash of the input.
func (api *Web3API) Sha3(input hexutil.Bytes) hexutil.Bytes {
	return crypto.Keccak256(input)
}
