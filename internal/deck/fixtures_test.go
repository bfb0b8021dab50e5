package deck

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/render"
	"github.com/hagronnestad/code-deck/internal/settings"
	"github.com/hagronnestad/code-deck/internal/tile"
)

func ptr[T any](v T) *T { return &v }

// recorder observes every stub tile of a test.
type recorder struct {
	mu         sync.Mutex
	live       []context.Context
	old        []context.Context
	violations int
	inits      map[string]int
	deinits    map[string]int
	presses    map[string]int
	releases   map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		inits:    make(map[string]int),
		deinits:  make(map[string]int),
		presses:  make(map[string]int),
		releases: make(map[string]int),
	}
}

// nextGeneration marks every scope seen so far as belonging to tiles that
// must be canceled before any new Init.
func (r *recorder) nextGeneration() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.old = append(r.old, r.live...)
	r.live = nil
}

func (r *recorder) init(label string, scope context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.old {
		if s.Err() == nil {
			r.violations++
		}
	}
	r.live = append(r.live, scope)
	r.inits[label]++
}

// canceledLive counts scopes of the current generation that are already
// canceled.
func (r *recorder) canceledLive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.live {
		if s.Err() != nil {
			n++
		}
	}
	return n
}

func (r *recorder) count(m map[string]int, label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[label]
}

func (r *recorder) bump(m map[string]int, label string) {
	r.mu.Lock()
	m[label]++
	r.mu.Unlock()
}

type stubTile struct {
	tile.Base
	rec   *recorder
	Label string
	Fail  bool
	Panic bool
}

func (p *stubTile) DescribeSettings() []settings.Field {
	return []settings.Field{
		settings.String("Label", &p.Label),
		settings.Bool("Fail", &p.Fail),
		settings.Bool("Panic", &p.Panic),
	}
}

func (p *stubTile) Init(ctx context.Context) error {
	p.rec.init(p.Label, ctx)
	if p.Panic {
		panic("stub exploded")
	}
	if p.Fail {
		return errors.New("stub refused to start")
	}
	p.SetText(p.Label)
	return nil
}

func (p *stubTile) PressDown(context.Context) error {
	p.rec.bump(p.rec.presses, p.Label)
	return nil
}

func (p *stubTile) PressUp(context.Context) error {
	p.rec.bump(p.rec.releases, p.Label)
	return nil
}

func (p *stubTile) DeInit(context.Context) error {
	p.rec.bump(p.rec.deinits, p.Label)
	return nil
}

func stubModule(rec *recorder) plugin.Module {
	return plugin.NewStaticModule("Stub", plugin.NewStaticRoot(
		plugin.NewBlueprint("Stub", func(*plugin.Context) tile.Tile {
			return &stubTile{rec: rec}
		}),
	))
}

func newResolver(rec *recorder) *plugin.Manager {
	return plugin.NewManager(plugin.ManagerConfig{}, nil, nil, plugin.WithStatic(stubModule(rec)))
}

// source serves a deck that tests can swap or make fail.
type source struct {
	mu    sync.Mutex
	deck  *config.Deck
	err   error
	gate  chan struct{}
	loads atomic.Int32
}

func (s *source) set(deck *config.Deck, err error) {
	s.mu.Lock()
	s.deck, s.err = deck, err
	s.mu.Unlock()
}

func (s *source) Load() (*config.Deck, error) {
	s.loads.Add(1)
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck, s.err
}

// countingRenderer delegates to a real compositor and counts calls.
type countingRenderer struct {
	inner *render.Compositor
	calls atomic.Int64
	fail  atomic.Bool
}

func (r *countingRenderer) Compose(d tile.Display, o render.Overrides) (image.Image, error) {
	r.calls.Add(1)
	if r.fail.Load() {
		return nil, errors.New("compose failed")
	}
	return r.inner.Compose(d, o)
}

func stubKey(index int, label string) config.Key {
	return config.Key{
		Index:    index,
		Plugin:   "Stub",
		Tile:     "Stub",
		Settings: map[string]string{"Label": label},
	}
}

// testDeck has a home page with two stub tiles, a page key and a label, a
// second page with a back key and a stub tile, and a lock screen.
func testDeck() *config.Deck {
	failing := stubKey(1, "B")
	failing.Settings["Fail"] = "true"
	return &config.Deck{
		Brightness: 60,
		Profiles: []config.Profile{
			{Name: "Main", Pages: []config.Page{
				{Name: "Home", Keys: []config.Key{
					stubKey(0, "A"),
					failing,
					{Index: 2, Text: ptr("More"), KeyType: config.KeyPage, Profile: "Main", Page: "Other"},
					{Index: 3, Text: ptr("Label")},
				}},
				{Name: "Other", Keys: []config.Key{
					{Index: 0, Text: ptr("Back"), KeyType: config.KeyBack},
					stubKey(1, "C"),
				}},
			}},
			{Name: "Lock", ProfileType: config.ProfileLockScreen, Pages: []config.Page{
				{Name: "Locked", Keys: []config.Key{{Index: 0, Text: ptr("Locked")}}},
			}},
		},
	}
}
