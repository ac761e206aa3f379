package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second

	// writeTimeout must stay above the 60s handler timeout, which
	// covers a cold-start dataset fetch plus the search itself.
	writeTimeout = 90 * time.Second

	idleTimeout = 120 * time.Second
)

// New builds the HTTP server for the lookup API. Responses can carry
// hundreds of records, so the write timeout is generous while slow
// header attacks and idle keep-alives are cut short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
