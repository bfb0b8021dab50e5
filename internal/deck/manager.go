package deck

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/device"
	"github.com/hagronnestad/code-deck/internal/render"
	"github.com/hagronnestad/code-deck/internal/tile"
)

// Source loads the deck configuration. config.Store implements it.
type Source interface {
	Load() (*config.Deck, error)
}

// Renderer composes key bitmaps. render.Compositor implements it.
type Renderer interface {
	Compose(d tile.Display, o render.Overrides) (image.Image, error)
}

// LockSignal asks the deck to show or leave the lock screen.
type LockSignal int

const (
	Lock LockSignal = iota
	Unlock
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBaseDir sets the directory relative key images are resolved against.
func WithBaseDir(dir string) Option {
	return func(m *Manager) { m.baseDir = dir }
}

// WithReloads makes Run reload the configuration on every receive.
func WithReloads(ch <-chan struct{}) Option {
	return func(m *Manager) { m.reloads = ch }
}

// WithLockSignals makes Run lock and unlock the deck on request.
func WithLockSignals(ch <-chan LockSignal) Option {
	return func(m *Manager) { m.locks = ch }
}

// WithSplash shows the renderer's logo on the middle key while bindings are
// being built. The renderer must provide Logo() image.Image.
func WithSplash() Option {
	return func(m *Manager) { m.splash = true }
}

// Manager is the deck orchestrator. It is the only owner of the binding set
// and the navigation stack.
type Manager struct {
	source   Source
	resolver PluginResolver
	renderer Renderer
	dev      device.Device
	logger   *slog.Logger
	baseDir  string
	splash   bool
	reloads  <-chan struct{}
	locks    <-chan LockSignal

	// applyMu serializes building the binding set.
	applyMu sync.Mutex

	mu sync.Mutex
	// life is the parent of every tile scope. Shutdown cancels it and the
	// next apply starts a new one.
	life     context.Context
	stop     context.CancelFunc
	deck     *config.Deck
	nav      Navigator
	bindings []*Binding

	reloading atomic.Bool
	renders   atomic.Int64
	pending   sync.WaitGroup
}

// NewManager creates a deck orchestrator.
func NewManager(source Source, resolver PluginResolver, renderer Renderer, dev device.Device, opts ...Option) *Manager {
	m := &Manager{
		source:   source,
		resolver: resolver,
		renderer: renderer,
		dev:      dev,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "deck")
	m.life, m.stop = context.WithCancel(context.Background())
	return m
}

// Apply loads the configuration and builds every binding, tearing down any
// previous set first. A configuration that fails to load is replaced by the
// default deck.
func (m *Manager) Apply(ctx context.Context) error {
	deck, err := m.source.Load()
	if err != nil {
		m.logger.Error("config load failed, using default deck", "error", err)
		deck = config.Default()
	}
	return m.apply(ctx, deck)
}

// Reload tears down every binding and rebuilds from a fresh configuration.
// A reload requested while another runs returns ErrReloadInProgress. If the
// configuration fails to load the current bindings stay in place.
func (m *Manager) Reload(ctx context.Context) error {
	if !m.reloading.CompareAndSwap(false, true) {
		return ErrReloadInProgress
	}
	defer m.reloading.Store(false)

	deck, err := m.source.Load()
	if err != nil {
		m.logger.Error("config reload failed, keeping current deck", "error", err)
		return fmt.Errorf("reload: %w", err)
	}

	m.logger.Info("reloading deck")
	return m.apply(ctx, deck)
}

// apply replaces the live binding set. Every old binding is torn down before
// any new tile starts.
func (m *Manager) apply(ctx context.Context, deck *config.Deck) error {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	m.teardownAll(ctx)

	m.mu.Lock()
	if m.life.Err() != nil {
		m.life, m.stop = context.WithCancel(context.Background())
	}
	life := m.life
	m.deck = deck
	if cur, ok := m.nav.Current(); ok {
		if _, exists := deck.FindPage(cur.Profile, cur.Page); !exists {
			m.logger.Warn("current page no longer exists", "frame", cur)
			m.nav.Reset()
		}
	}
	if m.nav.Depth() == 0 {
		if profile, page, ok := deck.FirstNormalPage(); ok {
			m.nav.Goto(Frame{Profile: profile, Page: page})
		}
	}
	_, hasFrame := m.nav.Current()
	m.mu.Unlock()

	if err := m.dev.SetBrightness(deck.Brightness); err != nil {
		m.logger.Warn("setting brightness", "error", err)
	}
	m.showSplash()

	var bindings []*Binding
	for _, fk := range deck.Flatten() {
		var ps map[string]string
		if fk.Key.HasTile() {
			ps = deck.PluginSettings(fk.Key.Plugin)
		}
		bindings = append(bindings, NewBinding(fk, ps, m.baseDir, m.logger))
	}

	var wg sync.WaitGroup
	for _, b := range bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Instantiate(ctx, m.resolver); err != nil {
				return
			}
			_ = b.Init(life)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	m.bindings = bindings
	m.mu.Unlock()

	for _, b := range bindings {
		b.Activate(m.onChange)
	}

	if !hasFrame {
		m.logger.Error("nothing to show", "error", ErrNoFrame)
		_ = m.dev.ClearKeys()
		return ErrNoFrame
	}
	m.logger.Info("deck applied", "bindings", len(bindings))
	m.Refresh()
	return nil
}

func (m *Manager) showSplash() {
	if !m.splash {
		return
	}
	logo, ok := m.renderer.(interface{ Logo() image.Image })
	if !ok {
		return
	}
	_ = m.dev.ClearKeys()
	if err := m.dev.SetKeyBitmap(m.dev.Layout().Middle(), logo.Logo()); err != nil {
		m.logger.Debug("splash not shown", "error", err)
	}
}

// teardownAll cancels every scope first, then waits for every DeInit.
func (m *Manager) teardownAll(ctx context.Context) {
	m.mu.Lock()
	bindings := m.bindings
	m.bindings = nil
	m.mu.Unlock()

	for _, b := range bindings {
		b.Cancel()
	}

	var wg sync.WaitGroup
	for _, b := range bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Teardown(ctx)
		}()
	}
	wg.Wait()
}

// Refresh clears the device and draws every binding of the current frame.
func (m *Manager) Refresh() {
	m.mu.Lock()
	cur, ok := m.nav.Current()
	var visible []*Binding
	if ok {
		for _, b := range m.bindings {
			if b.Visible(cur) {
				visible = append(visible, b)
			}
		}
	}
	m.mu.Unlock()

	if err := m.dev.ClearKeys(); err != nil {
		m.logger.Warn("clearing keys", "error", err)
	}
	for _, b := range visible {
		m.draw(b)
	}
}

func (m *Manager) onChange(b *Binding) {
	if !m.isVisible(b) {
		return
	}
	m.draw(b)
}

func (m *Manager) isVisible(b *Binding) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isVisibleLocked(b)
}

func (m *Manager) isVisibleLocked(b *Binding) bool {
	cur, ok := m.nav.Current()
	return ok && b.Visible(cur) && slices.Contains(m.bindings, b)
}

// draw composes outside the lock and pushes only if the binding is still
// visible.
func (m *Manager) draw(b *Binding) {
	img, err := m.renderer.Compose(b.Display(), b.Overrides())
	m.renders.Add(1)
	if err != nil {
		m.logger.Warn("compose failed", "key", b.Index(), "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isVisibleLocked(b) {
		return
	}
	if b.Index() >= m.dev.Layout().Count {
		m.logger.Debug("key not on device", "key", b.Index())
		return
	}
	if err := m.dev.SetKeyBitmap(b.Index(), img); err != nil {
		m.logger.Warn("pushing key bitmap", "key", b.Index(), "error", err)
	}
}

// HandleKey dispatches a key event on the current frame. Back and page keys
// act on release; normal keys forward both edges to their tile.
func (m *Manager) HandleKey(ev device.KeyEvent) {
	m.mu.Lock()
	cur, ok := m.nav.Current()
	var target *Binding
	if ok {
		for _, b := range m.bindings {
			if b.Visible(cur) && b.Index() == ev.Index {
				target = b
				break
			}
		}
	}
	m.mu.Unlock()

	if target == nil {
		return
	}

	key := target.Key()
	switch key.Type() {
	case config.KeyBack:
		if !ev.Down {
			m.GoBack()
		}
	case config.KeyPage:
		if !ev.Down {
			m.GotoPage(key.Profile, key.Page)
		}
	default:
		if ev.Down {
			_ = target.PressDown()
		} else {
			_ = target.PressUp()
		}
	}
}

// GotoPage navigates to a configured page. Unknown pages are logged and
// ignored.
func (m *Manager) GotoPage(profile, page string) bool {
	m.mu.Lock()
	if _, ok := m.deck.FindPage(profile, page); !ok {
		m.mu.Unlock()
		m.logger.Warn("page key target does not exist", "profile", profile, "page", page)
		return false
	}
	changed := m.nav.Goto(Frame{Profile: profile, Page: page})
	m.mu.Unlock()

	if changed {
		m.Refresh()
	}
	return changed
}

// GoBack returns to the previous page.
func (m *Manager) GoBack() bool {
	m.mu.Lock()
	changed := m.nav.Back()
	m.mu.Unlock()

	if changed {
		m.Refresh()
	}
	return changed
}

// Lock shows the lock screen profile. Without one it does nothing.
func (m *Manager) Lock() bool {
	m.mu.Lock()
	profile, page, ok := m.deck.LockScreen()
	changed := ok && m.nav.Goto(Frame{Profile: profile, Page: page})
	m.mu.Unlock()

	if changed {
		m.logger.Info("deck locked")
		m.Refresh()
	}
	return changed
}

// Unlock leaves the lock screen profile, going back past every page of it
// that was visited. It does nothing unless a lock screen page is showing.
func (m *Manager) Unlock() bool {
	m.mu.Lock()
	profile, _, ok := m.deck.LockScreen()
	changed := false
	for ok {
		cur, shown := m.nav.Current()
		if !shown || cur.Profile != profile || !m.nav.Back() {
			break
		}
		changed = true
	}
	m.mu.Unlock()

	if changed {
		m.logger.Info("deck unlocked")
		m.Refresh()
	}
	return changed
}

// Run applies the configuration and serves key events, reload requests and
// lock signals until ctx ends or the device closes. All bindings are torn
// down before it returns.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Apply(ctx); err != nil && !errors.Is(err, ErrNoFrame) {
		return err
	}

	events := m.dev.Events()
	for {
		select {
		case <-ctx.Done():
			m.Shutdown(context.WithoutCancel(ctx))
			return nil

		case ev, ok := <-events:
			if !ok {
				m.Shutdown(context.WithoutCancel(ctx))
				return device.ErrClosed
			}
			m.HandleKey(ev)

		case <-m.reloads:
			m.pending.Add(1)
			go func() {
				defer m.pending.Done()
				if err := m.Reload(ctx); errors.Is(err, ErrReloadInProgress) {
					m.logger.Debug("reload dropped", "error", err)
				}
			}()

		case sig := <-m.locks:
			switch sig {
			case Lock:
				m.Lock()
			case Unlock:
				m.Unlock()
			}
		}
	}
}

// Shutdown waits for pending reloads, tears down every binding, clears the
// keys and cancels the lifetime of all tile scopes.
func (m *Manager) Shutdown(ctx context.Context) {
	m.pending.Wait()
	m.teardownAll(ctx)
	if err := m.dev.ClearKeys(); err != nil && !errors.Is(err, device.ErrClosed) {
		m.logger.Warn("clearing keys", "error", err)
	}
	m.mu.Lock()
	m.stop()
	m.mu.Unlock()
}

// Bindings returns a copy of the live binding set.
func (m *Manager) Bindings() []*Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bindings)
}

// Current returns the visible frame.
func (m *Manager) Current() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nav.Current()
}

// Depth returns the navigation stack depth.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nav.Depth()
}

// Deck returns the applied configuration.
func (m *Manager) Deck() *config.Deck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deck
}

// RenderCount returns the number of compose calls so far.
func (m *Manager) RenderCount() int64 {
	return m.renders.Load()
}
