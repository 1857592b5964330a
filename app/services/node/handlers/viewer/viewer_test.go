package viewer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/ethnode/app/services/node/handlers/viewer"
	"github.com/ardanlabs/ethnode/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestIndex(t *testing.T) {
	t.Log("Given the need to serve the viewer page.")
	{
		h, err := viewer.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to parse the page: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to parse the page.", success)

		app := web.NewApp(make(chan os.Signal, 1))
		app.Handle(http.MethodGet, "", "/viewer", h.Index)

		r := httptest.NewRequest(http.MethodGet, "/viewer", nil).WithContext(context.Background())
		r.Host = "localhost:8080"
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould get a 200: got %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get a 200.", success)

		if !strings.Contains(w.Body.String(), "localhost:8080") {
			t.Fatalf("\t%s\tShould point the websocket at the host serving the page.", failed)
		}
		t.Logf("\t%s\tShould point the websocket at the host serving the page.", success)
	}
}
