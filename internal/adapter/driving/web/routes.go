package web

import "net/http"

// RegisterRoutes registers all web GUI routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Queue)
}
