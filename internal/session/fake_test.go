package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/audiograph/beepgraph"
	"github.com/edward-ap/miniplayer/internal/audioout"
	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/visual"
)

type quietLogger struct{}

func (quietLogger) Printf(string, ...any) {}

// fakeElement reports metadata on Load unless holdMeta is set; tests drive
// the rest of its events by hand.
type fakeElement struct {
	item     media.Item
	meta     time.Duration
	holdMeta bool
	loadErr  error
	events   *media.Emitter

	mu      sync.Mutex
	obs     media.Observer
	plays   int
	pauses  int
	closed  bool
	pos     time.Duration
	visuals []visual.Descriptor
	raw     []float64
}

func (e *fakeElement) ID() string { return e.item.ID }

func (e *fakeElement) SetObserver(o media.Observer) {
	e.mu.Lock()
	e.obs = o
	e.mu.Unlock()
	e.events.SetObserver(o)
}

func (e *fakeElement) observer() media.Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.obs
}

func (e *fakeElement) Load(context.Context) error {
	if e.loadErr != nil {
		e.events.Error(e.loadErr)
		return nil
	}
	if !e.holdMeta {
		e.events.Metadata(e.meta)
	}
	return nil
}

func (e *fakeElement) Play(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays++
	return nil
}

func (e *fakeElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	return nil
}

func (e *fakeElement) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = pos
	return nil
}

func (e *fakeElement) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *fakeElement) Duration() time.Duration { return e.meta }

func (e *fakeElement) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.events.Close()
	return nil
}

func (e *fakeElement) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeElement) ApplyVisual(d visual.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visuals = append(e.visuals, d)
	return nil
}

func (e *fakeElement) SetRawVolume(level float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.raw = append(e.raw, level)
	return nil
}

func (e *fakeElement) rawVolume() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.raw) == 0 {
		return 0, false
	}
	return e.raw[len(e.raw)-1], true
}

func (e *fakeElement) end() { e.events.Ended() }

// tappableElement lets the beep graph route its (silent) samples.
type tappableElement struct {
	*fakeElement
	tapped bool
}

func (e *tappableElement) Tap() beep.Streamer {
	e.tapped = true
	return beep.Silence(-1)
}

func (e *tappableElement) Untap() { e.tapped = false }

// fakeFactory builds tappable elements for audio and opaque ones otherwise.
type fakeFactory struct {
	mu       sync.Mutex
	created  map[string][]*fakeElement
	holdMeta map[string]bool
	failLoad map[string]error
	failNew  map[string]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		created:  map[string][]*fakeElement{},
		holdMeta: map[string]bool{},
		failLoad: map[string]error{},
		failNew:  map[string]error{},
	}
}

func (f *fakeFactory) NewElement(it media.Item) (media.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNew[it.Name]; err != nil {
		return nil, err
	}
	e := &fakeElement{
		item:     it,
		meta:     time.Duration(len(it.Name)) * time.Second,
		holdMeta: f.holdMeta[it.Name],
		loadErr:  f.failLoad[it.Name],
		events:   media.NewEmitter(),
	}
	f.created[it.Name] = append(f.created[it.Name], e)
	if it.Class == media.Audio {
		return &tappableElement{fakeElement: e}, nil
	}
	return e, nil
}

func (f *fakeFactory) last(name string) *fakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	els := f.created[name]
	if len(els) == 0 {
		return nil
	}
	return els[len(els)-1]
}

func (f *fakeFactory) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created[name])
}

func newTestPlayer(t *testing.T) (*Player, *fakeFactory, *audiograph.Controller) {
	t.Helper()
	out := audioout.NewManual(beep.SampleRate(8000))
	graph := audiograph.NewController(beepgraph.Factory(out), equalizer.DefaultBands(), audiograph.WithLogger(quietLogger{}))
	f := newFakeFactory()
	p := New(graph, f, WithLogger(quietLogger{}))
	t.Cleanup(func() { _ = p.Close() })
	return p, f, graph
}

func waitFor(t *testing.T, p *Player, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s := p.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s; last snapshot: state=%s item=%s err=%v", what, s.State, s.Item.Name, s.PlaybackError)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func stateIs(name string, st State) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.Item.Name == name && s.State == st }
}

func paths(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "/media/" + n
	}
	return out
}

func idOf(t *testing.T, p *Player, name string) string {
	t.Helper()
	for _, it := range p.Snapshot().Items {
		if it.Name == name {
			return it.ID
		}
	}
	t.Fatalf("no playlist item %s", name)
	return ""
}

func describe(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s)", s.State, s.Item.Name)
	return b.String()
}
