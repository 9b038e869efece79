package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stakd-me/stakd-sub000/internal/app"
	"github.com/stakd-me/stakd-sub000/internal/common"
)

// Write timeout is generous because report generation renders charts
// inline; reads stay tight.
const (
	readTimeout  = 30 * time.Second
	writeTimeout = 300 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server is the REST API front of the application.
type Server struct {
	app    *app.App
	server *http.Server
	logger *common.Logger
}

// NewServer builds the server with its routes and middleware stack from
// the wired application.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      applyMiddleware(mux, a.Logger),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens and serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
