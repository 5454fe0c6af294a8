package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jhousteau/genesis-go/genesis/health"
	"github.com/jhousteau/genesis-go/genesis/log"
)

// ErrNoHandlerConfigured indicates the server was started with nothing to
// serve.
var ErrNoHandlerConfigured = errors.New("server: no handler configured, use WithHandler or WithHealth")

// Server hosts an http.Handler with graceful shutdown on SIGINT/SIGTERM.
// Its usual payload is the health probe endpoints, so orchestrators keep
// getting readiness answers until the listener drains.
type Server struct {
	address         string
	mux             *http.ServeMux
	hasHandler      bool
	logger          log.Logger
	shutdownChan    <-chan struct{}
	shutdownTimeout time.Duration

	startedOnce sync.Once
	started     chan struct{}
	httpServer  *http.Server
}

// New creates a Server listening on address.
func New(address string, logger log.Logger) *Server {
	return &Server{
		address:         address,
		mux:             http.NewServeMux(),
		logger:          log.OrNop(logger),
		shutdownTimeout: 30 * time.Second,
		started:         make(chan struct{}),
	}
}

// WithHealth mounts the probe endpoints served by handler.
func (s *Server) WithHealth(handler *health.Handler) *Server {
	handler.Mount(s.mux)
	s.hasHandler = true

	return s
}

// WithHandler mounts an additional handler under pattern.
func (s *Server) WithHandler(pattern string, handler http.Handler) *Server {
	s.mux.Handle(pattern, handler)
	s.hasHandler = true

	return s
}

// WithShutdownChannel replaces OS signals with a custom trigger, letting
// tests drive shutdown deterministically.
func (s *Server) WithShutdownChannel(ch <-chan struct{}) *Server {
	s.shutdownChan = ch

	return s
}

// WithShutdownTimeout bounds how long shutdown waits for in-flight
// requests to drain. Defaults to 30 seconds.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d

	return s
}

// Started returns a channel closed once the serve goroutine has been
// launched. It signals launch, not that the socket is accepting yet.
func (s *Server) Started() <-chan struct{} {
	return s.started
}

// Run serves until a shutdown trigger arrives, then drains gracefully.
func (s *Server) Run(ctx context.Context) error {
	if !s.hasHandler {
		return ErrNoHandlerConfigured
	}

	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrors := make(chan error, 1)

	go func() {
		s.logger.Log(ctx, log.LevelInfo, "http server starting",
			log.String("address", s.address))

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
	}()

	s.startedOnce.Do(func() { close(s.started) })

	if err := s.waitForShutdown(ctx, serveErrors); err != nil {
		return err
	}

	return s.drain()
}

func (s *Server) waitForShutdown(ctx context.Context, serveErrors chan error) error {
	if s.shutdownChan != nil {
		select {
		case <-s.shutdownChan:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-serveErrors:
			return err
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		s.logger.Log(ctx, log.LevelInfo, "shutdown signal received",
			log.String("signal", sig.String()))

		return nil
	case <-ctx.Done():
		return nil
	case err := <-serveErrors:
		return err
	}
}

func (s *Server) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Log(ctx, log.LevelInfo, "http server draining",
		log.Duration("timeout", s.shutdownTimeout))

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Log(ctx, log.LevelError, "graceful shutdown failed, closing", log.Err(err))

		return s.httpServer.Close()
	}

	s.logger.Log(context.Background(), log.LevelInfo, "http server stopped")

	return nil
}
