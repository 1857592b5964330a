// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/events"
	"github.com/ardanlabs/ethnode/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. Only the
// events on the viewer topic are streamed.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, "viewer")
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Accounts returns the accounts held by the node with their pending
// balances and nonces.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	list := h.State.Registry().List()

	accts := make([]account, 0, len(list))
	for _, acct := range list {
		balance, err := h.State.QueryBalance(acct.Address, state.SelectPending)
		if err != nil {
			return err
		}

		nonce, err := h.State.QueryNonce(acct.Address, state.SelectPending)
		if err != nil {
			return err
		}

		accts = append(accts, account{
			Address:  acct.Address,
			Name:     acct.Name,
			Unlocked: acct.Unlocked,
			Balance:  (*hexutil.Big)(balance),
			Nonce:    hexutil.Uint64(nonce),
		})
	}

	return web.Respond(ctx, w, accts, http.StatusOK)
}

// Head returns the block at the head of the chain.
func (h Handlers) Head(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk := h.State.QueryLatestBlock()

	hash := blk.Hash()
	mixHash := blk.MixHash()
	nonce := blk.Nonce()

	resp := block{
		Hash:         &hash,
		Header:       blk.Header(),
		MiningHash:   blk.MiningHash(),
		MixHash:      &mixHash,
		Nonce:        &nonce,
		Transactions: toTxs(h.State.Registry(), blk.Transactions()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Candidate returns the block being assembled on top of the head.
func (h Handlers) Candidate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cnd := h.State.QueryCandidate()

	resp := block{
		Header:       cnd.Header(),
		MiningHash:   cnd.MiningHash(),
		Transactions: toTxs(h.State.Registry(), cnd.Transactions()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func toTxs(reg *accounts.Registry, signedTxs []database.SignedTx) []tx {
	trans := make([]tx, len(signedTxs))
	for i, signedTx := range signedTxs {
		from, _ := signedTx.From()

		var toName string
		if signedTx.To != nil {
			toName = reg.Lookup(*signedTx.To)
		}

		trans[i] = tx{
			Hash:     signedTx.Hash(),
			From:     from,
			FromName: reg.Lookup(from),
			To:       signedTx.To,
			ToName:   toName,
			Nonce:    signedTx.Nonce,
			Value:    (*hexutil.Big)(signedTx.Value),
			Gas:      signedTx.Gas,
			GasPrice: (*hexutil.Big)(signedTx.GasPrice),
			Data:     signedTx.Data,
			Sig:      signedTx.SignatureString(),
		}
	}

	return trans
}
