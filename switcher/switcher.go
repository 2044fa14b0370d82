// Package switcher coordinates hand-offs between a stream of callers and a
// single running llama-server process: reuse it when the running config
// accepts the pending request, swap to a fresh process otherwise. Grounded
// on the teacher's shutdown.Manager priority-registration idiom for
// guaranteeing the owned process is always torn down, and on its narrow
// interface style (core.ProgressReporter) for the Spec/Context abstraction.
package switcher

import (
	"context"
	"strconv"
	"sync"

	"llamahost/errs"
	"llamahost/installprobe"
	"llamahost/serverconfig"
	"llamahost/supervisor"
)

// SpecLike is the capability a switcher needs from a process specification:
// decide whether it accepts a pending one, and start a fresh context.
type SpecLike interface {
	Accept(pending serverconfig.Config) bool
	Start(ctx context.Context) (ContextLike, error)
	Config() serverconfig.Config
}

// ContextLike is the capability a switcher needs from a running process
// context: its address and how to tear it down.
type ContextLike interface {
	BaseURL() string
	Close(force bool) error
}

// Spec pairs an installation handle with a Server Config; Start augments
// the config per §4.7 (host/port forced, gpuLayers defaulted under CUDA)
// and launches a supervisor-backed Context.
type Spec struct {
	Install *installprobe.Handle
	Cfg     serverconfig.Config
	Opts    supervisor.Options
}

func (s Spec) Config() serverconfig.Config { return s.Cfg }

func (s Spec) Accept(pending serverconfig.Config) bool {
	return s.Cfg.Accept(pending)
}

// Start augments s.Cfg (host=0.0.0.0, port=0, and gpuLayers=999 if the
// installation reports CUDA and the caller left it unset), then starts a
// supervisor and returns the resulting Context.
func (s Spec) Start(ctx context.Context) (ContextLike, error) {
	cfg := s.Cfg
	cfg.Host = "0.0.0.0"
	cfg.Port = 0

	if cfg.GPULayers == nil {
		if hasCUDA, err := s.Install.HasCUDA(ctx); err == nil && hasCUDA {
			layers := 999
			cfg.GPULayers = &layers
		}
	}

	sv := supervisor.New(s.Install, cfg, s.Opts)
	if err := sv.Start(ctx); err != nil {
		return nil, err
	}
	return &Context{supervisor: sv, config: cfg}, nil
}

// Context is a running supervisor-backed process context.
type Context struct {
	supervisor *supervisor.Supervisor
	config     serverconfig.Config
}

func (c *Context) BaseURL() string {
	return "http://localhost:" + strconv.Itoa(c.supervisor.Port())
}

func (c *Context) Close(force bool) error {
	return c.supervisor.Stop(force)
}

// Port exposes the underlying supervisor's bound port, used by callers
// (and tests) that need it directly rather than through BaseURL.
func (c *Context) Port() int {
	return c.supervisor.Port()
}

// current holds the switcher's at-most-one live (spec, context) pair.
type current struct {
	spec SpecLike
	ctx  ContextLike
}

// Switcher is a single-slot coordinator: at any moment it owns at most one
// running process context, handed to callers serialized through mu.
type Switcher struct {
	mu      sync.Mutex
	current *current
}

// New returns an empty Switcher with no running process.
func New() *Switcher {
	return &Switcher{}
}

// WithContext acquires the serializer, reuses the current context if its
// spec accepts pendingSpec, otherwise closes the current context (if any)
// and starts pendingSpec, then runs body against the resulting context
// while still holding the serializer.
func (s *Switcher) WithContext(ctx context.Context, pendingSpec SpecLike, body func(ContextLike) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.spec.Accept(pendingSpec.Config()) {
		return body(s.current.ctx)
	}

	if s.current != nil {
		_ = s.current.ctx.Close(false)
		s.current = nil
	}

	newCtx, err := pendingSpec.Start(ctx)
	if err != nil {
		return errs.New("switcher.WithContext", errs.StartFailed, err)
	}
	s.current = &current{spec: pendingSpec, ctx: newCtx}

	return body(newCtx)
}

// Stop closes the current context if any, releasing all owned resources.
func (s *Switcher) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	err := s.current.ctx.Close(true)
	s.current = nil
	return err
}
