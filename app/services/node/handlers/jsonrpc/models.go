package jsonrpc

import (
	"math/big"

	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// TransactionArgs represents the arguments to eth_sendTransaction.
type TransactionArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    *hexutil.Uint64 `json:"nonce"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

// toRequest converts the arguments into a request for the state.
func (args TransactionArgs) toRequest() (state.TxRequest, error) {
	if args.From == nil {
		return state.TxRequest{}, invalidParams("missing from address")
	}

	if args.Data != nil && args.Input != nil && string(*args.Data) != string(*args.Input) {
		return state.TxRequest{}, invalidParams("both data and input are set and not equal")
	}

	req := state.TxRequest{
		From:  *args.From,
		To:    args.To,
		Value: new(big.Int),
	}

	if args.Value != nil {
		req.Value = args.Value.ToInt()
	}
	if args.GasPrice != nil {
		req.GasPrice = args.GasPrice.ToInt()
	}
	if args.Gas != nil {
		gas := uint64(*args.Gas)
		req.Gas = &gas
	}
	if args.Nonce != nil {
		nonce := uint64(*args.Nonce)
		req.Nonce = &nonce
	}

	switch {
	case args.Input != nil:
		req.Data = *args.Input
	case args.Data != nil:
		req.Data = *args.Data
	}

	return req, nil
}

// =============================================================================

// rpcTransaction represents a transaction in api responses.
type rpcTransaction struct {
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Nonce       hexutil.Uint64  `json:"nonce"`
	Gas         hexutil.Uint64  `json:"gas"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	Value       *hexutil.Big    `json:"value"`
	Input       hexutil.Bytes   `json:"input"`
	V           *hexutil.Big    `json:"v"`
	R           *hexutil.Big    `json:"r"`
	S           *hexutil.Big    `json:"s"`
}

func newRPCTransaction(tx database.SignedTx, number uint64) rpcTransaction {
	from, _ := tx.From()

	return rpcTransaction{
		BlockNumber: (*hexutil.Big)(new(big.Int).SetUint64(number)),
		Hash:        tx.Hash(),
		From:        from,
		To:          tx.To,
		Nonce:       hexutil.Uint64(tx.Nonce),
		Gas:         hexutil.Uint64(tx.Gas),
		GasPrice:    (*hexutil.Big)(tx.GasPrice),
		Value:       (*hexutil.Big)(tx.Value),
		Input:       tx.Data,
		V:           (*hexutil.Big)(tx.V),
		R:           (*hexutil.Big)(tx.R),
		S:           (*hexutil.Big)(tx.S),
	}
}

// newRPCBlock converts the header and transactions of a block into the
// response format. The hash, nonce and mix hash are nil for the candidate.
func newRPCBlock(header database.BlockHeader, txs []database.SignedTx, hash *common.Hash, nonce *types.BlockNonce, mixHash *common.Hash, fullTx bool) map[string]any {
	var transactions []any
	for _, tx := range txs {
		if fullTx {
			transactions = append(transactions, newRPCTransaction(tx, header.Number))
			continue
		}
		transactions = append(transactions, tx.Hash())
	}
	if transactions == nil {
		transactions = []any{}
	}

	return map[string]any{
		"number":           (*hexutil.Big)(new(big.Int).SetUint64(header.Number)),
		"hash":             hash,
		"parentHash":       header.ParentHash,
		"nonce":            nonce,
		"mixHash":          mixHash,
		"miner":            header.Beneficiary,
		"stateRoot":        header.StateRoot,
		"transactionsRoot": header.TxRoot,
		"difficulty":       (*hexutil.Big)(header.Difficulty),
		"gasLimit":         hexutil.Uint64(header.GasLimit),
		"gasUsed":          hexutil.Uint64(header.GasUsed),
		"timestamp":        hexutil.Uint64(header.Time),
		"extraData":        header.Extra,
		"transactions":     transactions,
	}
}

// toSelector converts the block number argument into a selector for the
// state. A nil argument uses the default.
func toSelector(bn *rpc.BlockNumber, def state.BlockSelector) (state.BlockSelector, error) {
	if bn == nil {
		return def, nil
	}

	switch *bn {
	case rpc.PendingBlockNumber:
		return state.SelectPending, nil
	case rpc.LatestBlockNumber, rpc.SafeBlockNumber, rpc.FinalizedBlockNumber:
		return state.SelectLatest, nil
	case rpc.EarliestBlockNumber:
		return state.SelectEarliest, nil
	}

	if *bn < 0 {
		return 0, invalidParams("unsupported block tag")
	}

	return state.BlockSelector(*bn), nil
}
