// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"errors"
	"net/http"

	"github.com/ardanlabs/ethnode/business/web/errs"
	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ardanlabs/ethnode/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Worker *worker.Worker
}

// SignalMining asks the worker to mine the candidate block.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Worker == nil {
		return errs.NewTrusted(errors.New("mining is not enabled on this node"), http.StatusServiceUnavailable)
	}

	h.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// MiningStatus returns the state of the miner and the work it searches for.
func (h Handlers) MiningStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := worker.Idle
	if h.Worker != nil {
		status = h.Worker.Status()
	}

	work := h.State.MiningWork()

	resp := miningStatus{
		Status:     status.String(),
		Number:     work.Number,
		MiningHash: work.MiningHash,
		Pending:    h.State.QueryPendingLog().Len(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ResetChain discards every mined block and starts the chain over from
// genesis.
func (h Handlers) ResetChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	if err := h.State.Reset(); err != nil {
		return err
	}

	h.Log.Infow("reset", "traceid", v.TraceID, "head", h.State.QueryLatestBlock().Number())

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// LockAccount prevents the account from signing transactions.
func (h Handlers) LockAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.setLocked(ctx, w, r, true)
}

// UnlockAccount allows the account to sign transactions.
func (h Handlers) UnlockAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.setLocked(ctx, w, r, false)
}

func (h Handlers) setLocked(ctx context.Context, w http.ResponseWriter, r *http.Request, locked bool) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req accountRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	addr := req.address()

	switch locked {
	case true:
		err = h.State.Registry().Lock(addr)
	default:
		err = h.State.Registry().Unlock(addr)
	}

	if err != nil {
		if errors.Is(err, accounts.ErrUnknownAccount) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	h.Log.Infow("account", "traceid", v.TraceID, "address", addr, "locked", locked)

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
