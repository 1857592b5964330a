package public

import (
	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

type account struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Unlocked bool           `json:"unlocked"`
	Balance  *hexutil.Big   `json:"balance"`
	Nonce    hexutil.Uint64 `json:"nonce"`
}

type tx struct {
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	FromName string          `json:"from_name"`
	To       *common.Address `json:"to"`
	ToName   string          `json:"to_name"`
	Nonce    uint64          `json:"nonce"`
	Value    *hexutil.Big    `json:"value"`
	Gas      uint64          `json:"gas"`
	GasPrice *hexutil.Big    `json:"gas_price"`
	Data     hexutil.Bytes   `json:"data"`
	Sig      string          `json:"sig"`
}

type block struct {
	Hash         *common.Hash         `json:"hash"`
	Header       database.BlockHeader `json:"header"`
	MiningHash   common.Hash          `json:"mining_hash"`
	MixHash      *common.Hash         `json:"mix_hash,omitempty"`
	Nonce        *types.BlockNonce    `json:"nonce,omitempty"`
	Transactions []tx                 `json:"transactions"`
}
