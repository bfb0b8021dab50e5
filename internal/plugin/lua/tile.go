package lua

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/render"
	"github.com/hagronnestad/code-deck/internal/settings"
	"github.com/hagronnestad/code-deck/internal/tile"
)

const tileTypeName = "codedeck.tile"

// blueprint creates Lua tiles of one declared kind.
type blueprint struct {
	root *rootDef
	def  *tileDef
}

func (b *blueprint) Name() string { return b.def.name }

func (b *blueprint) New(pctx *plugin.Context) tile.Tile {
	return &luaTile{root: b.root, def: b.def, pluginName: pctx.Name, values: make(map[string]any)}
}

// luaTile adapts a Lua tile definition to tile.Tile. Hooks run on the
// module's executor.
type luaTile struct {
	tile.Base

	root       *rootDef
	def        *tileDef
	pluginName string

	mu     sync.Mutex
	values map[string]any

	// Executor-only.
	ud     *lua.LUserData
	fields *lua.LTable
}

// DescribeSettings implements settings.Target.
func (t *luaTile) DescribeSettings() []settings.Field {
	return declaredFields(t.def.settings, &t.mu, t.values)
}

// Init implements tile.Tile.
func (t *luaTile) Init(ctx context.Context) error {
	return t.invoke(ctx, t.def.init, true)
}

// PressDown implements tile.Tile.
func (t *luaTile) PressDown(ctx context.Context) error {
	return t.invoke(ctx, t.def.pressDown, true)
}

// PressUp implements tile.Tile.
func (t *luaTile) PressUp(ctx context.Context) error {
	return t.invoke(ctx, t.def.pressUp, true)
}

// DeInit implements tile.Tile.
func (t *luaTile) DeInit(ctx context.Context) error {
	return t.invoke(ctx, t.def.deinit, false)
}

// invoke calls fn(tile[, scope]) on the executor. The scope passed to Lua
// is bound to ctx.
func (t *luaTile) invoke(ctx context.Context, fn *lua.LFunction, scoped bool) error {
	if fn == nil {
		return nil
	}
	mod := t.root.mod
	return mod.exec.Execute(ctx, func(L *lua.LState) error {
		args := []lua.LValue{t.userdata(L)}
		if scoped {
			args = append(args, newScope(L, mod, ctx, t.userdata(L)))
		}
		return mod.call(L, fn, args...)
	})
}

// userdata returns the Lua handle of the tile. It must run on the executor.
func (t *luaTile) userdata(L *lua.LState) *lua.LUserData {
	if t.ud == nil {
		t.fields = L.NewTable()
		t.ud = L.NewUserData()
		t.ud.Value = t
		L.SetMetatable(t.ud, L.GetTypeMetatable(tileTypeName))
	}
	return t.ud
}

func (t *luaTile) declared(name string) (settingDecl, bool) {
	for _, d := range t.def.settings {
		if d.name == name {
			return d, true
		}
	}
	return settingDecl{}, false
}

func registerTileType(L *lua.LState) {
	mt := L.NewTypeMetatable(tileTypeName)
	mt.RawSetString("__index", L.NewFunction(tileIndex))
	mt.RawSetString("__newindex", L.NewFunction(tileNewIndex))
}

func checkTile(L *lua.LState) *luaTile {
	ud := L.CheckUserData(1)
	t, ok := ud.Value.(*luaTile)
	if !ok {
		L.ArgError(1, "tile expected")
	}
	return t
}

func optColor(c *color.RGBA) lua.LValue {
	if c == nil {
		return lua.LNil
	}
	return lua.LString(render.FormatColor(*c))
}

func tileIndex(L *lua.LState) int {
	t := checkTile(L)
	key := L.CheckString(2)
	br := NewBridge(L)
	d := t.Observable().Display()

	var v lua.LValue = lua.LNil
	switch key {
	case "text":
		if d.Text != nil {
			v = lua.LString(*d.Text)
		}
	case "text_color":
		v = optColor(d.TextColor)
	case "background_color":
		v = optColor(d.BackgroundColor)
	case "indicator_color":
		v = optColor(d.IndicatorColor)
	case "font":
		if d.Font != nil {
			v = lua.LString(*d.Font)
		}
	case "font_size":
		if d.FontSize != nil {
			v = lua.LNumber(*d.FontSize)
		}
	case "image_padding":
		if d.ImagePadding != nil {
			v = lua.LNumber(*d.ImagePadding)
		}
	case "indicator":
		v = lua.LBool(d.Indicator)
	case "kind":
		v = lua.LString(t.def.name)
	case "settings":
		v = br.StringMap(t.Observable().RawSettings())
	case "plugin":
		v = t.root.contextTable(L, t.pluginName)
	default:
		if decl, ok := t.declared(key); ok {
			t.mu.Lock()
			val, set := t.values[key]
			t.mu.Unlock()
			if set {
				v = br.ToLuaValue(val)
			} else {
				v = decl.def
			}
		} else {
			v = t.fields.RawGetString(key)
		}
	}

	L.Push(v)
	return 1
}

func tileNewIndex(L *lua.LState) int {
	t := checkTile(L)
	key := L.CheckString(2)
	val := L.Get(3)
	b := t.Observable()

	switch key {
	case "text":
		if val == lua.LNil {
			b.ClearText()
		} else {
			b.SetText(L.ToStringMeta(val).String())
		}
	case "text_color":
		b.SetTextColor(checkColor(L, 3))
	case "background_color":
		b.SetBackgroundColor(checkColor(L, 3))
	case "indicator_color":
		b.SetIndicatorColor(checkColor(L, 3))
	case "font":
		b.SetFont(L.CheckString(3))
	case "font_size":
		b.SetFontSize(float64(L.CheckNumber(3)))
	case "image_padding":
		b.SetImagePadding(int(L.CheckNumber(3)))
	case "indicator":
		b.SetIndicator(lua.LVAsBool(val))
	case "image":
		if val == lua.LNil {
			b.SetImage(nil)
			break
		}
		path := L.CheckString(3)
		if !filepath.IsAbs(path) {
			path = filepath.Join(t.root.Path(), path)
		}
		img, err := render.LoadImage(path)
		if err != nil {
			L.RaiseError("image: %v", err)
		}
		b.SetImage(img)
	case "kind", "settings", "plugin":
		L.RaiseError("tile field %q is read-only", key)
	default:
		if _, ok := t.declared(key); ok {
			t.mu.Lock()
			t.values[key] = NewBridge(L).ToGoValue(val)
			t.mu.Unlock()
		} else {
			t.fields.RawSetString(key, val)
		}
	}
	return 0
}

func checkColor(L *lua.LState, n int) color.RGBA {
	s := L.CheckString(n)
	c, err := render.ParseColor(s)
	if err != nil {
		L.ArgError(n, fmt.Sprintf("invalid color %q", s))
	}
	return c
}
