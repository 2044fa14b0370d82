// Package shutdown coordinates graceful termination: a priority-ordered
// registry of cleanup handlers plus SIGINT/SIGTERM handling, so that
// killing the llamahost process always stops a supervised llama-server
// and closes the switcher's current context before the process exits.
// Adapted from the teacher's shutdown.Manager; this module drives no
// concurrent request-tracking (the switcher already serializes callers
// through its own lock — see switcher.Switcher), so the teacher's
// OperationTracker has no counterpart here and was dropped rather than
// carried as dead weight (see DESIGN.md).
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager owns the process-wide shutdown context and the Registry of
// cleanup handlers run when that context is cancelled.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	sigChan  chan os.Signal
	sigCount atomic.Int32
}

type ManagerOption func(*Manager)

// WithTimeout sets the overall cleanup timeout. Default 60s.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = timeout }
}

func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the process-wide context, cancelled once a shutdown
// signal arrives. The supervisor's readiness scan and the switcher's
// blocking calls should select on it alongside their own deadlines.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds fn to the cleanup sequence; see Registry's doc comment
// for this module's priority convention.
func (m *Manager) Register(name string, priority int, fn ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown handler", zap.String("name", name), zap.Int("priority", priority))
}

// Start begins listening for SIGINT/SIGTERM. The first signal cancels
// Context(); a second forces os.Exit(1) immediately, in case a stuck
// llama-server subprocess is preventing graceful cleanup from finishing.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			if m.sigCount.Add(1) == 1 {
				m.logger.Info("shutdown signal received, cancelling context", zap.String("signal", sig.String()))
				m.cancel()
				continue
			}
			m.logger.Warn("second shutdown signal received, forcing exit")
			os.Exit(1)
		}
	}()
	m.logger.Info("shutdown manager listening for signals")
}

// Shutdown runs every registered cleanup handler in priority order within
// the configured timeout. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	start := time.Now()
	m.logger.Info("running shutdown handlers",
		zap.Int("count", m.registry.Count()),
		zap.Strings("handlers", m.registry.Names()),
		zap.Duration("timeout", m.timeout))

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("shutdown handler failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)
	close(m.sigChan)

	if len(errs) > 0 {
		m.logger.Error("shutdown completed with errors", zap.Duration("duration", time.Since(start)), zap.Int("error_count", len(errs)))
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}
	m.logger.Info("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// Wait blocks until Context() is cancelled.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// IsShuttingDown reports whether Shutdown has started or completed.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// RegisteredHandlers returns handler names in the order Shutdown would run
// them.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
