package lua

import (
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// safeOSFuncs are the os functions plugins may use.
var safeOSFuncs = []string{"clock", "date", "difftime", "time"}

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L      *lua.LState
	logger *slog.Logger
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{L: L, logger: logger}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that reach the file system or load unchecked code
	for _, name := range []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"require",
		"module",
	} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.restrictOS()
	s.installSafePrint()
}

// restrictOS replaces the os table with its clock functions.
func (s *Sandbox) restrictOS() {
	full, ok := s.L.GetGlobal("os").(*lua.LTable)
	if !ok {
		return
	}

	safe := s.L.NewTable()
	for _, name := range safeOSFuncs {
		if fn := full.RawGetString(name); fn != lua.LNil {
			safe.RawSetString(name, fn)
		}
	}
	s.L.SetGlobal("os", safe)
}

// installSafePrint sends print output to the plugin log.
func (s *Sandbox) installSafePrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info(strings.Join(parts, "\t"), "source", "print")
		return 0
	}))
}
