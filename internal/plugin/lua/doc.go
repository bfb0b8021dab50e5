// Package lua runs CodeDeck plugins written in Lua.
//
// The Compiler checks every .lua file of a plugin with gopher-lua's parser
// and packs them into a bundle artifact. The Runtime loads a bundle into a
// sandboxed state owned by a single-goroutine Executor; every hook and
// timer callback is marshalled onto that goroutine.
//
// # Plugin API
//
// A plugin calls codedeck.plugin exactly once:
//
//	codedeck.plugin {
//	  settings = { Greeting = { kind = "string", default = "Hello" } },
//
//	  loaded = function(ctx)
//	    codedeck.log("info", "loaded from", ctx.path)
//	  end,
//
//	  tiles = {
//	    Counter = {
//	      settings = { Step = "int" },
//	      init = function(tile, scope)
//	        tile.count = 0
//	        tile.text = "0"
//	      end,
//	      press_down = function(tile, scope)
//	        tile.count = tile.count + (tile.Step or 1)
//	        tile.text = tostring(tile.count)
//	      end,
//	    },
//	  },
//	}
//
// Tile handles expose the visual properties text, text_color,
// background_color, font, font_size, image, image_padding, indicator and
// indicator_color. Assigning one re-renders the key. Declared settings read
// as typed values, settings holds the raw map, plugin is the shared plugin
// context table, and any other field is private tile state.
//
// The scope passed to init, press_down and press_up offers canceled(),
// every(ms, fn) and after(ms, fn). Timers end with the tile.
//
// Files under lib/ load first. The sandbox removes file and module loading
// and reduces os to clock, date, difftime and time.
package lua
