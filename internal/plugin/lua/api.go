package lua

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// APIVersion is exposed to plugins as codedeck.version.
const APIVersion = "1"

//go:embed prelude.lua
var prelude string

// installAPI creates the codedeck global and the userdata metatables.
func (m *Module) installAPI(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"plugin": m.apiPlugin,
		"log":    m.apiLog,
		"now":    apiNow,
	})
	mod.RawSetString("version", lua.LString(APIVersion))
	L.SetGlobal("codedeck", mod)

	registerTileType(L)
	registerScopeType(L)

	if err := m.state.doWithRecovery(func() error { return L.DoString(prelude) }); err != nil {
		m.logger.Error("lua prelude failed", "error", err)
	}
}

// codedeck.plugin(def) registers the plugin definition and returns it.
func (m *Module) apiPlugin(L *lua.LState) int {
	def := L.CheckTable(1)
	m.defs = append(m.defs, def)
	L.Push(def)
	return 1
}

// codedeck.log(level, ...) writes to the plugin log.
func (m *Module) apiLog(L *lua.LState) int {
	level := parseLevel(L.CheckString(1))
	n := L.GetTop()
	parts := make([]string, 0, n-1)
	for i := 2; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	m.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "lua")
	return 0
}

// codedeck.now() returns the wall clock in fractional seconds.
func apiNow(L *lua.LState) int {
	L.Push(lua.LNumber(float64(time.Now().UnixNano()) / float64(time.Second)))
	return 1
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
