package lua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/plugin/build"
)

// Runtime loads Lua bundles into plugin modules. Each module gets its own
// Lua state and executor.
type Runtime struct {
	logger *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger plugins log to.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates a Lua runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load implements plugin.Runtime.
func (r *Runtime) Load(ctx context.Context, art build.Artifact) (plugin.Module, error) {
	b, err := ReadBundle(art.Path)
	if err != nil {
		return nil, err
	}
	return r.LoadBundle(ctx, b)
}

// LoadBundle runs every file of b in a fresh state and collects the plugin
// definition.
func (r *Runtime) LoadBundle(ctx context.Context, b *Bundle) (*Module, error) {
	logger := r.logger.With("component", "lua", "plugin", b.Plugin)

	state, err := NewState(WithStateLogger(logger))
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &Module{
		name:   b.Plugin,
		state:  state,
		exec:   NewExecutor(state.L, 0),
		logger: logger,
		cancel: cancel,
	}
	go m.exec.Run(runCtx)

	err = m.exec.Execute(ctx, func(L *lua.LState) error {
		m.installAPI(L)
		for _, f := range b.Files {
			if err := state.Load(f.Name, f.Source); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
		return m.resolveRoot(L)
	})
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("plugin %q: %w", b.Plugin, err)
	}

	logger.Debug("lua plugin loaded", "files", len(b.Files), "build", b.BuildID)
	return m, nil
}

// Module is a Lua plugin running in its own state.
type Module struct {
	name   string
	state  *State
	exec   *Executor
	logger *slog.Logger
	cancel context.CancelFunc

	// Collected by codedeck.plugin while loading; executor-only.
	defs []*lua.LTable

	root    *rootDef
	rootErr error

	closeOnce sync.Once
}

// Name implements plugin.Module.
func (m *Module) Name() string { return m.name }

// Root implements plugin.Module.
func (m *Module) Root() (plugin.Root, error) {
	if m.rootErr != nil {
		return nil, m.rootErr
	}
	return m.root, nil
}

// Close stops the executor, waits for the running call to finish and
// releases the Lua state. Timers started by tiles stop with it.
func (m *Module) Close() error {
	m.closeOnce.Do(func() {
		m.exec.Close()
		m.cancel()
		<-m.exec.Stopped()
		m.state.Close()
	})
	return nil
}

func (m *Module) resolveRoot(L *lua.LState) error {
	switch len(m.defs) {
	case 0:
		m.rootErr = plugin.ErrNoRoot
		return nil
	case 1:
	default:
		m.rootErr = fmt.Errorf("%w: %d definitions", plugin.ErrMultipleRoots, len(m.defs))
		return nil
	}

	root, err := parseRoot(L, m, m.defs[0])
	if err != nil {
		return err
	}
	m.root = root
	m.defs = nil
	return nil
}

// call invokes fn in protected mode. It must run on the executor.
func (m *Module) call(L *lua.LState, fn *lua.LFunction, args ...lua.LValue) error {
	if fn == nil {
		return nil
	}
	return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
}

// schedule runs fn on the executor after every interval until ctx ends.
// With repeat false it runs at most once.
func (m *Module) schedule(ctx context.Context, interval time.Duration, repeat bool, fn *lua.LFunction, args ...lua.LValue) {
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.exec.Stopped():
				return
			case <-timer.C:
			}

			err := m.exec.Execute(ctx, func(L *lua.LState) error {
				if ctx.Err() != nil {
					return nil
				}
				return m.call(L, fn, args...)
			})
			if err != nil && ctx.Err() == nil && !errors.Is(err, ErrExecutorClosed) {
				m.logger.Warn("timer callback failed", "error", err)
			}

			if !repeat {
				return
			}
			timer.Reset(interval)
		}
	}()
}
