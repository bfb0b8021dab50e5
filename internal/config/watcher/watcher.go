// Package watcher reports changes to the deck file.
//
// The watcher observes the file's directory rather than the file itself so
// that editors which save by rename are still seen. Bursts of writes are
// collapsed into one event once the file has been quiet for the debounce
// interval.
package watcher

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before an event is emitted.
const DefaultDebounce = 250 * time.Millisecond

// ErrWatcherClosed is returned when the watcher has been closed.
var ErrWatcherClosed = errors.New("watcher closed")

// Event reports that the watched file settled after a change.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string
	// Time is when the last underlying change was seen.
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watcher emits debounced change events for one file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	events chan Event

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

// New starts watching path.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		events:   make(chan Event, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "config-watcher")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Events delivers one event per settled change. Events not yet received
// are coalesced.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and closes the events channel.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.events)

	var (
		timer *time.Timer
		fire  <-chan time.Time
		last  time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&relevant == 0 {
				continue
			}
			last = time.Now()
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.emit(Event{Path: w.path, Time: last})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Debug("change already pending", "path", ev.Path)
	}
}
