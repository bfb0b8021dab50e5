package lua

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const scopeTypeName = "codedeck.scope"

// scope is the Lua view of a tile's cancellation scope. Timers started
// through it stop when the scope ends.
type scope struct {
	ctx  context.Context
	mod  *Module
	tile lua.LValue
}

func newScope(L *lua.LState, mod *Module, ctx context.Context, tile lua.LValue) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &scope{ctx: ctx, mod: mod, tile: tile}
	L.SetMetatable(ud, L.GetTypeMetatable(scopeTypeName))
	return ud
}

func registerScopeType(L *lua.LState) {
	mt := L.NewTypeMetatable(scopeTypeName)
	mt.RawSetString("__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"canceled": scopeCanceled,
		"every":    scopeEvery,
		"after":    scopeAfter,
	}))
}

func checkScope(L *lua.LState) *scope {
	ud := L.CheckUserData(1)
	s, ok := ud.Value.(*scope)
	if !ok {
		L.ArgError(1, "scope expected")
	}
	return s
}

// scope:canceled() reports whether the tile left service.
func scopeCanceled(L *lua.LState) int {
	s := checkScope(L)
	L.Push(lua.LBool(s.ctx.Err() != nil))
	return 1
}

// scope:every(ms, fn) calls fn(tile) every ms milliseconds.
func scopeEvery(L *lua.LState) int {
	return scopeTimer(L, true)
}

// scope:after(ms, fn) calls fn(tile) once after ms milliseconds.
func scopeAfter(L *lua.LState) int {
	return scopeTimer(L, false)
}

func scopeTimer(L *lua.LState, repeat bool) int {
	s := checkScope(L)
	ms := float64(L.CheckNumber(2))
	fn := L.CheckFunction(3)
	if ms <= 0 {
		L.ArgError(2, "interval must be positive")
	}
	if s.ctx.Err() == nil {
		s.mod.schedule(s.ctx, time.Duration(ms*float64(time.Millisecond)), repeat, fn, s.tile)
	}
	return 0
}
