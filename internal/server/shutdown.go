package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"sales-dashboard/internal/config"
)

const hookTimeout = 10 * time.Second

// ShutdownHook releases a resource when the server stops.
type ShutdownHook func(ctx context.Context) error

// GracefulServer runs an http.Server until its context ends and then drains
// it, running the registered hooks alongside.
type GracefulServer struct {
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []ShutdownHook
	addr  net.Addr
	ready chan struct{}
}

// New builds the http.Server for handler from the server config.
func New(handler http.Handler, logger *slog.Logger, cfg *config.Config) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:         cfg.Address(),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:  logger,
		timeout: cfg.Server.ShutdownTimeout,
		ready:   make(chan struct{}),
	}
}

func (gs *GracefulServer) RegisterShutdownHook(fn ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, fn)
}

// Ready is closed once the listener is bound.
func (gs *GracefulServer) Ready() <-chan struct{} {
	return gs.ready
}

// Addr is the bound listen address, or nil before Ready.
func (gs *GracefulServer) Addr() net.Addr {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.addr
}

// Run serves until ctx is cancelled and then shuts down. Open SSE streams end
// when the shutdown cancels their request contexts. OS signals are expected to
// be wired into ctx by the caller.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	}
	gs.mu.Lock()
	gs.addr = ln.Addr()
	gs.mu.Unlock()
	close(gs.ready)

	gs.server.BaseContext = func(net.Listener) context.Context { return ctx }

	gs.logger.Info("server listening",
		"addr", ln.Addr().String(),
		"read_timeout", gs.server.ReadTimeout,
		"write_timeout", gs.server.WriteTimeout,
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- gs.server.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	gs.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gs.timeout)
	defer cancel()
	return gs.shutdown(shutdownCtx)
}

// shutdown stops the HTTP server and runs every hook concurrently, joining
// their errors.
func (gs *GracefulServer) shutdown(ctx context.Context) error {
	gs.mu.Lock()
	hooks := append([]ShutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	start := time.Now()
	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	record := func(err error) {
		emu.Lock()
		errs = append(errs, err)
		emu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("HTTP server shutdown failed", "error", err)
			record(fmt.Errorf("http shutdown: %w", err))
		}
	}()

	for i, hook := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hctx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()
			if err := hook(hctx); err != nil {
				gs.logger.Error("shutdown hook failed", "hook", i, "error", err)
				record(fmt.Errorf("shutdown hook %d: %w", i, err))
			}
		}()
	}

	wg.Wait()
	gs.logger.Info("shutdown complete", "duration", time.Since(start), "errors", len(errs))
	return errors.Join(errs...)
}
