// Package plugin loads CodeDeck plugins and resolves tile blueprints.
//
// A plugin is either a directory of scripts, built by the build package and
// loaded by a Runtime, or a module compiled into the binary and registered
// with NewStaticModule. Both end up as a Module, from which the Registry
// extracts exactly one Root.
//
// # Loading
//
// Registry.Load performs the load sequence for a module:
//
//  1. obtain the module's single Root
//  2. bind plugin-level settings onto it and set its path
//  3. create the shared plugin Context
//  4. run the root's Loaded hook, if it has one
//  5. index the root's blueprints by name
//
// A failing Loaded hook is logged and does not make the plugin unusable.
//
// # Resolution
//
// Manager.Acquire resolves a plugin by name for the deck. It builds the
// plugin through the cache, loads it on first use, and replaces the loaded
// handle when the artifact or the plugin settings change. Each replacement
// gets a new Context; contexts are never shared across loads.
package plugin
