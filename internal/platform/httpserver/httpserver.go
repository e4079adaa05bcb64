package httpserver

import (
	"net/http"

	"eidgate/internal/platform/config"
)

// New builds the UI bridge server from the HTTP configuration.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
