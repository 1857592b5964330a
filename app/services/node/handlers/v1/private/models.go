package private

import (
	"github.com/ardanlabs/ethnode/business/sys/validate"
	"github.com/ethereum/go-ethereum/common"
)

type accountRequest struct {
	Address string `json:"address" validate:"required,address"`
}

// Validate checks the request.
func (req accountRequest) Validate() error {
	return validate.Check(req)
}

func (req accountRequest) address() common.Address {
	return common.HexToAddress(req.Address)
}

type miningStatus struct {
	Status     string      `json:"status"`
	Number     uint64      `json:"number"`
	MiningHash common.Hash `json:"mining_hash"`
	Pending    int         `json:"pending"`
}
