// Package httpserver builds the process HTTP server with shared timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an HTTP server for the given address and handler. The timeouts
// are generous for admin operations (the retirement cascade touches many
// rows) while still bounding slow clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
