package web

import (
	"net/http"

	"github.com/goji/httpauth"
	"github.com/gorilla/mux"

	"github.com/fendouba123/DCNN/storage"
)

// NewRouter wires up the dashboard routes and returns the live page so the
// caller can feed it training progress. If user is non empty all pages are
// protected with basic auth.
func NewRouter(store *storage.Store, user, pass string) (*mux.Router, *LivePage, error) {
	t, err := NewTemplates()
	if err != nil {
		return nil, nil, err
	}
	runsPage := NewRunsPage(t.Clone(), store)
	runPage := NewRunPage(t.Clone(), store)
	live := NewLivePage(t.Clone())

	r := mux.NewRouter()
	r.HandleFunc("/", runsPage.Base())
	r.HandleFunc("/run/{id}", runPage.Base())
	r.HandleFunc("/live", live.Base())
	r.HandleFunc("/ws", live.Websocket())
	if user != "" {
		r.Use(basicAuth(user, pass))
	}
	return r, live, nil
}

func basicAuth(user, pass string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return httpauth.SimpleBasicAuth(user, pass)(next)
	}
}
