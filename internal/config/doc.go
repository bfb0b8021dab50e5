// Package config holds the deck configuration model.
//
// A deck file describes profiles, their pages and the keys on each page,
// plus per-plugin settings:
//
//	brightness = 75
//
//	[[profiles]]
//	name = "DefaultProfile"
//
//	  [[profiles.pages]]
//	  name = "Home"
//
//	    [[profiles.pages.keys]]
//	    index = 0
//	    plugin = "Counter"
//	    tile = "Counter"
//	    settings = { Step = "2" }
//
// The Store reads and writes TOML, YAML or JSON chosen by file extension and
// creates a default deck when the file is missing. Flatten turns the
// hierarchy into the (profile, page, key) list the orchestrator builds
// bindings from.
package config
