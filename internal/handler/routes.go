package handler

import (
	"net/http"
)

// RegisterRoutes sets up the operational HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, db Pinger) {
	mux.HandleFunc("GET /healthz", HandleHealthz(db))
}
