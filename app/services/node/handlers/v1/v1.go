// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ethnode/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/ethnode/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ardanlabs/ethnode/foundation/events"
	"github.com/ardanlabs/ethnode/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Worker *worker.Worker
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/blocks/head", pbl.Head)
	app.Handle(http.MethodGet, version, "/blocks/candidate", pbl.Candidate)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Worker: cfg.Worker,
	}

	app.Handle(http.MethodPost, version, "/mining/signal", prv.SignalMining)
	app.Handle(http.MethodGet, version, "/mining/status", prv.MiningStatus)
	app.Handle(http.MethodPost, version, "/node/reset", prv.ResetChain)
	app.Handle(http.MethodPost, version, "/accounts/lock", prv.LockAccount)
	app.Handle(http.MethodPost, version, "/accounts/unlock", prv.UnlockAccount)
}
