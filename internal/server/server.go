package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the auth flow.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// CallbackServer runs a short-lived loopback HTTP server for one OAuth
// callback and then shuts down.
type CallbackServer struct {
	srv  *http.Server
	errc chan error
}

// NewCallbackServer creates a server on localhost at the given port serving
// the provided router.
func NewCallbackServer(port int, router Router) *CallbackServer {
	return &CallbackServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf("localhost:%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		errc: make(chan error, 1),
	}
}

// Start begins serving in a background goroutine.
func (s *CallbackServer) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errc <- err
		}
		close(s.errc)
	}()
}

// Err returns a channel that yields a listen failure, if any.
func (s *CallbackServer) Err() <-chan error {
	return s.errc
}

// Shutdown gracefully stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
