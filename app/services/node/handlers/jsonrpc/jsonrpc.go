// Package jsonrpc provides the Ethereum style JSON-RPC 2.0 api of the node.
// The api is served by the go-ethereum rpc server so method names follow
// the namespace_method convention, e.g. eth_sendTransaction.
package jsonrpc

import (
	"github.com/ardanlabs/ethnode/foundation/blockchain/filters"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by the api.
type Config struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Filters *filters.Registry
	Worker  *worker.Worker
	Build   string
}

// NewServer constructs an rpc server with the eth, net and web3 namespaces
// registered.
func NewServer(cfg Config) (*rpc.Server, error) {
	srv := rpc.NewServer()

	apis := []struct {
		namespace string
		service   any
	}{
		{"eth", &EthAPI{log: cfg.Log, state: cfg.State, filters: cfg.Filters, worker: cfg.Worker}},
		{"net", &NetAPI{state: cfg.State}},
		{"web3", &Web3API{build: cfg.Build}},
	}

	for _, api := range apis {
		if err := srv.RegisterName(api.namespace, api.service); err != nil {
			srv.Stop()
			return nil, err
		}
	}

	return srv, nil
}
