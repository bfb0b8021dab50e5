//go:build windows

package app

import "os"

// Windows has no user signals; reload and lock are only reachable through
// the deck file watcher.
func notifySignals(chan<- os.Signal) {}

func classify(os.Signal) signalAction { return actionNone }
