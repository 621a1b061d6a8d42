package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ottera/fotad/internal/admission"
	"github.com/ottera/fotad/internal/config"
	"github.com/ottera/fotad/internal/firmware"
	"github.com/ottera/fotad/internal/logging"
)

// Server owns the listening socket and the accept loop. Each accepted
// connection must win an admission slot before any request bytes are
// read; rejected connections are closed on the spot.
type Server struct {
	config    *config.Config
	listener  net.Listener
	admission *admission.Controller
	cache     *firmware.MetadataCache
	router    *Router
	ioTimeout time.Duration
	wg        sync.WaitGroup
}

// New creates a new Server instance
func New(cfg *config.Config) (*Server, error) {
	// Initialize logging
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cache := firmware.NewMetadataCache()
	ctrl := admission.New(cfg.MaxConnections)

	return &Server{
		config:    cfg,
		admission: ctrl,
		cache:     cache,
		router:    NewRouter(cache, ctrl, cfg.FirmwarePath(), cfg.FirmwareFile),
		ioTimeout: cfg.IOTimeout(),
	}, nil
}

// Listen binds the listening socket. Separate from Serve so tests and
// callers can learn the bound address before serving begins.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("firmware", s.config.FirmwarePath()),
		zap.Int("max_connections", s.config.MaxConnections),
	)
	return nil
}

// Addr returns the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting OTA server",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.String("firmware", s.config.FirmwarePath()),
		zap.String("log_level", s.config.LogLevel),
	)

	if err := s.Listen(); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start accepting connections in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Serve accepts and dispatches incoming connections until the listener
// is closed. Admission happens here, before a worker is spawned and
// before a single request byte is read.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if listener was closed (during shutdown)
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		release, ok := s.admission.TryAcquire()
		if !ok {
			logging.LogAdmissionRejected(conn.RemoteAddr().String(),
				s.admission.Active(), s.admission.Limit())
			_ = conn.Close()
			continue
		}

		// Handle connection in goroutine; the slot is released on
		// every exit path of the handler
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer release()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves one request on one connection. The connection
// is always closed on return; devices open a fresh connection per request.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	// A stalled client must not hold its slot indefinitely
	if err := conn.SetDeadline(time.Now().Add(s.ioTimeout)); err != nil {
		logging.Error("Failed to set connection deadline",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		logging.Debug("Failed to read HTTP request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	status, written := s.router.Handle(conn, req, remoteAddr)
	logging.LogRequest(remoteAddr, req.Method, req.URL.Path, status, written)
}

// ActiveConnections returns the number of connections currently served.
func (s *Server) ActiveConnections() int64 {
	return s.admission.Active()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	// Close listener to stop accepting new connections
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	// Wait for in-flight connections to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	// Sync logger
	logging.Sync()

	return nil
}
