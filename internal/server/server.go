package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/app"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
)

// Write timeout is generous because statement fetches and uploads can run
// long behind a single request.
const (
	readTimeout  = 30 * time.Second
	writeTimeout = 300 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server is the REST front of the sync service. It owns the channel signaled
// by the admin shutdown endpoint so main can wait on it directly.
type Server struct {
	app      *app.App
	srv      *http.Server
	logger   *common.Logger
	shutdown chan struct{}
}

// New builds the server with routes and the full middleware chain attached.
func New(a *app.App) *Server {
	s := &Server{
		app:      a,
		logger:   a.Logger,
		shutdown: make(chan struct{}, 1),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      applyMiddleware(mux, a.Logger, a.Config),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// ShutdownRequested is signaled once when the shutdown endpoint fires.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

// Handler exposes the middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Starting REST API server")
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
