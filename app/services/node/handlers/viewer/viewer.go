// Package viewer serves a page that streams the node events from the
// websocket of the public api.
package viewer

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ardanlabs/ethnode/foundation/web"
)

//go:embed assets/index.html
var assets embed.FS

// Handlers serves the viewer page.
type Handlers struct {
	tmpl *template.Template
}

// New parses the viewer page.
func New() (*Handlers, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}

	return &Handlers{tmpl: tmpl}, nil
}

// Index renders the page pointing the websocket at the host that served it.
func (h *Handlers) Index(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		EventsURL string
	}{
		EventsURL: "ws://" + r.Host + "/v1/events",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return err
	}

	return h.tmpl.Execute(w, data)
}
