// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/ethnode/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/ethnode/app/services/node/handlers/v1"
	"github.com/ardanlabs/ethnode/app/services/node/handlers/viewer"
	"github.com/ardanlabs/ethnode/business/web/mid"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
	"github.com/ardanlabs/ethnode/foundation/blockchain/worker"
	"github.com/ardanlabs/ethnode/foundation/events"
	"github.com/ardanlabs/ethnode/foundation/web"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	Worker   *worker.Worker
	RPC      *rpc.Server
	Evts     *events.Events
}

// PublicMux constructs a http.Handler with all application routes defined.
// The JSON-RPC api is served from the root path.
func PublicMux(cfg MuxConfig) (http.Handler, error) {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests if config has been provided.
	// Don't forget to apply the CORS middleware to the routes that need it.
	// Example Config: `conf:"default:https://MY_DOMAIN.COM"`
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// The rpc server writes its own responses, including JSON-RPC errors
	// which are always sent with a 200.
	rpcHandler := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cfg.RPC.ServeHTTP(w, r.WithContext(ctx))
		return web.SetStatusCode(ctx, http.StatusOK)
	}
	app.Handle(http.MethodPost, "", "/", rpcHandler)

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	})

	// Register the page streaming the node events.
	vh, err := viewer.New()
	if err != nil {
		return nil, err
	}
	app.Handle(http.MethodGet, "", "/viewer", vh.Index)

	return app, nil
}

// PrivateMux constructs a http.Handler with all application routes defined.
func PrivateMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Panics(),
	)

	// Load the v1 routes.
	v1.PrivateRoutes(app, v1.Config{
		Log:    cfg.Log,
		State:  cfg.State,
		Worker: cfg.Worker,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger, st *state.State) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		State: st,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	// Expose the prometheus collectors.
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
