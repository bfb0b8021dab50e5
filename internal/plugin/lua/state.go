package lua

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for Lua state.
const (
	DefaultCallStackSize = 256
	DefaultRegistrySize  = 1024 * 20
)

// State wraps gopher-lua with the sandbox used for plugin execution.
//
// IMPORTANT: gopher-lua's LState is not goroutine-safe. A State belongs to
// one Executor and is only touched from the executor's goroutine. The mutex
// protects Close against a late call from Go code.
type State struct {
	L *lua.LState

	mu sync.Mutex

	logger *slog.Logger

	sandbox *Sandbox

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithStateLogger sets the logger receiving print output.
func WithStateLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{logger: slog.Default()}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true, // We'll open selectively
		CallStackSize: DefaultCallStackSize,
		RegistrySize:  DefaultRegistrySize,
	})
	state.L = L

	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}

	state.sandbox = NewSandbox(L, state.logger)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
// io, debug and package are intentionally not opened; os is opened and then
// reduced to its clock functions by the sandbox.
func openSafeLibraries(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.OsLibName, lua.OpenOs},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}
	return nil
}

// Load compiles and runs one chunk under the given name. The name appears
// in error messages and tracebacks.
func (s *State) Load(name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.doWithRecovery(func() error {
		fn, err := s.L.Load(strings.NewReader(source), name)
		if err != nil {
			return err
		}
		s.L.Push(fn)
		return s.L.PCall(0, 0, nil)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	return s.Load("<string>", code)
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.L.Close()
	s.closed = true
	return nil
}
