package lua

import (
	"context"
	"fmt"
	"maps"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/settings"
)

// settingDecl is one declared setting of a plugin or tile.
type settingDecl struct {
	name string
	kind settings.Kind
	def  lua.LValue
}

// tileDef is a tile kind declared in the plugin's tiles table.
type tileDef struct {
	name      string
	settings  []settingDecl
	init      *lua.LFunction
	pressDown *lua.LFunction
	pressUp   *lua.LFunction
	deinit    *lua.LFunction
}

// rootDef is the plugin root built from the table passed to
// codedeck.plugin.
type rootDef struct {
	mod      *Module
	settings []settingDecl
	loaded   *lua.LFunction
	tiles    []*tileDef

	mu     sync.RWMutex
	values map[string]any
	raw    map[string]string
	path   string

	// Plugin context table handed to hooks; executor-only.
	table *lua.LTable
}

func parseRoot(L *lua.LState, m *Module, def *lua.LTable) (*rootDef, error) {
	br := NewBridge(L)
	root := &rootDef{mod: m, values: make(map[string]any)}

	var err error
	if root.settings, err = parseSettings(br, def); err != nil {
		return nil, fmt.Errorf("plugin settings: %w", err)
	}
	root.loaded, _ = br.GetTableFunc(def, "loaded")

	tiles, ok := br.GetTableTable(def, "tiles")
	if !ok {
		return root, nil
	}
	for _, name := range br.StringKeys(tiles) {
		tdef, ok := tiles.RawGetString(name).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: tile %q must be a table", ErrInvalidDefinition, name)
		}
		t := &tileDef{name: name}
		if t.settings, err = parseSettings(br, tdef); err != nil {
			return nil, fmt.Errorf("tile %q settings: %w", name, err)
		}
		t.init, _ = br.GetTableFunc(tdef, "init")
		t.pressDown, _ = br.GetTableFunc(tdef, "press_down")
		t.pressUp, _ = br.GetTableFunc(tdef, "press_up")
		t.deinit, _ = br.GetTableFunc(tdef, "deinit")
		root.tiles = append(root.tiles, t)
	}
	return root, nil
}

// parseSettings reads a settings table of the form
//
//	settings = { Step = "int", Label = { kind = "string", default = "Go" } }
func parseSettings(br *Bridge, def *lua.LTable) ([]settingDecl, error) {
	tbl, ok := br.GetTableTable(def, "settings")
	if !ok {
		return nil, nil
	}

	var decls []settingDecl
	for _, name := range br.StringKeys(tbl) {
		switch v := tbl.RawGetString(name).(type) {
		case lua.LString:
			decls = append(decls, settingDecl{name: name, kind: settings.ParseKind(string(v)), def: lua.LNil})
		case *lua.LTable:
			kind, _ := br.GetTableString(v, "kind")
			decls = append(decls, settingDecl{name: name, kind: settings.ParseKind(kind), def: v.RawGetString("default")})
		default:
			return nil, fmt.Errorf("%w: setting %q must be a kind name or a table", ErrInvalidDefinition, name)
		}
	}
	return decls, nil
}

// declaredFields turns decls into settings fields that store into values.
func declaredFields(decls []settingDecl, mu sync.Locker, values map[string]any) []settings.Field {
	fields := make([]settings.Field, 0, len(decls))
	for _, d := range decls {
		fields = append(fields, settings.Declared(d.name, d.kind, func(v any) {
			mu.Lock()
			values[d.name] = v
			mu.Unlock()
		}))
	}
	return fields
}

// DescribeSettings implements settings.Target.
func (r *rootDef) DescribeSettings() []settings.Field {
	return declaredFields(r.settings, &r.mu, r.values)
}

// SetRawSettings implements settings.Target.
func (r *rootDef) SetRawSettings(values map[string]string) {
	r.mu.Lock()
	r.raw = values
	r.mu.Unlock()
}

// SetPath implements plugin.Root.
func (r *rootDef) SetPath(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// Path returns the plugin directory.
func (r *rootDef) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Blueprints implements plugin.Root.
func (r *rootDef) Blueprints() []plugin.Blueprint {
	bps := make([]plugin.Blueprint, 0, len(r.tiles))
	for _, t := range r.tiles {
		bps = append(bps, &blueprint{root: r, def: t})
	}
	return bps
}

// Loaded implements plugin.LoadedHook. It builds the plugin context table
// and runs the definition's loaded function with it.
func (r *rootDef) Loaded(ctx context.Context, pctx *plugin.Context) error {
	return r.mod.exec.Execute(ctx, func(L *lua.LState) error {
		return r.mod.call(L, r.loaded, r.contextTable(L, pctx.Name))
	})
}

// contextTable returns the table shared by the plugin's hooks, creating it
// on first use. It must run on the executor.
func (r *rootDef) contextTable(L *lua.LState, name string) *lua.LTable {
	if r.table != nil {
		return r.table
	}

	br := NewBridge(L)
	r.mu.RLock()
	raw := maps.Clone(r.raw)
	values := maps.Clone(r.values)
	path := r.path
	r.mu.RUnlock()

	t := L.NewTable()
	t.RawSetString("name", lua.LString(name))
	t.RawSetString("path", lua.LString(path))
	t.RawSetString("settings", br.StringMap(raw))
	for _, d := range r.settings {
		if v, ok := values[d.name]; ok {
			t.RawSetString(d.name, br.ToLuaValue(v))
		} else {
			t.RawSetString(d.name, d.def)
		}
	}
	r.table = t
	return t
}
