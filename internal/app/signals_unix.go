//go:build !windows

package app

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals routes SIGHUP (reload), SIGUSR1 (lock) and SIGUSR2
// (unlock) to ch.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
}

func classify(sig os.Signal) signalAction {
	switch sig {
	case syscall.SIGHUP:
		return actionReload
	case syscall.SIGUSR1:
		return actionLock
	case syscall.SIGUSR2:
		return actionUnlock
	default:
		return actionNone
	}
}
