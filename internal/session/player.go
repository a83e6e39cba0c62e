package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/playlist"
	"github.com/edward-ap/miniplayer/internal/visual"
)

// ErrUnknownPreset is returned by ApplyPreset for a name not in the bundle.
var ErrUnknownPreset = errors.New("unknown equalizer preset")

// ElementFactory builds the element that plays an item.
type ElementFactory interface {
	NewElement(it media.Item) (media.Element, error)
}

// ElementFactoryFunc adapts a function to ElementFactory.
type ElementFactoryFunc func(it media.Item) (media.Element, error)

func (f ElementFactoryFunc) NewElement(it media.Item) (media.Element, error) { return f(it) }

// VisualApplier is implemented by elements that render video.
type VisualApplier interface {
	ApplyVisual(d visual.Descriptor) error
}

// RawVolumeSetter is implemented by elements that play on their own output.
// The master volume reaches them directly while the graph cannot.
type RawVolumeSetter interface {
	SetRawVolume(level float64) error
}

// Prober resolves durations ahead of playback.
type Prober interface {
	Probe(ctx context.Context, it media.Item) (media.Probed, error)
}

// Logger is a small logging interface used for non-fatal session events.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Snapshot is the render-facing view of the player.
type Snapshot struct {
	Item          media.Item
	HasItem       bool
	State         State
	Playing       bool
	Position      time.Duration
	Duration      time.Duration
	PlaybackError error
	GraphDegraded bool
	Gains         equalizer.Gains
	Bands         []equalizer.Band
	Volume        float64
	Muted         bool
	Preset        string
	Visual        visual.Descriptor
	Items         []media.Item
	CurrentIndex  int
}

// Player serialises every view operation and element event behind one lock.
// Listeners run after the lock is released.
type Player struct {
	mu sync.Mutex

	store   *playlist.Store
	graph   *audiograph.Controller
	factory ElementFactory
	prober  Prober
	logger  Logger

	ctx    context.Context
	cancel context.CancelFunc

	gen     uint64
	cur     *track
	visual  visual.Descriptor
	preset  string
	muted   bool
	preMute float64
	closed  bool

	listeners map[int]func(Snapshot)
	nextID    int
}

// Option customises a Player.
type Option func(*Player)

func WithLogger(l Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithProber resolves playlist durations in the background after AddFiles.
func WithProber(pr Prober) Option {
	return func(p *Player) { p.prober = pr }
}

// WithPlaylist uses store instead of a fresh one.
func WithPlaylist(store *playlist.Store) Option {
	return func(p *Player) {
		if store != nil {
			p.store = store
		}
	}
}

// New wires a player around graph. The player owns graph and tears it down
// on Close.
func New(graph *audiograph.Controller, factory ElementFactory, opts ...Option) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		store:     playlist.New(),
		graph:     graph,
		factory:   factory,
		logger:    stdLogger{},
		ctx:       ctx,
		cancel:    cancel,
		visual:    visual.Map(visual.Defaults()),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(p)
	}
	p.preset = equalizer.MatchPreset(graph.Gains())
	return p
}

// do runs fn under the lock and publishes a snapshot afterwards.
func (p *Player) do(fn func() error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	err := fn()
	snap := p.snapshotLocked()
	ls := make([]func(Snapshot), 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()
	for _, l := range ls {
		l(snap)
	}
	return err
}

func (p *Player) setState(t *track, to State) bool {
	if !canTransition(t.state, to) {
		p.logger.Printf("session: ignoring %s -> %s for %s", t.state, to, t.item.Name)
		return false
	}
	t.state = to
	return true
}

// releaseTrackLocked detaches the graph and closes the current element.
func (p *Player) releaseTrackLocked() {
	t := p.cur
	if t == nil {
		return
	}
	p.cur = nil
	p.graph.Detach()
	if t.element != nil {
		if err := t.element.Close(); err != nil {
			p.logger.Printf("session: close %s: %v", t.item.Name, err)
		}
	}
}

// loadLocked replaces the track with a fresh one for it. Events of every
// earlier load are dropped from here on.
func (p *Player) loadLocked(it media.Item, autoplay bool) {
	prev := Empty
	if p.cur != nil {
		prev = p.cur.state
	}
	p.releaseTrackLocked()

	p.gen++
	t := &track{gen: p.gen, item: it, state: prev, duration: it.Duration, autoplay: autoplay}
	p.cur = t
	p.setState(t, Loading)

	el, err := p.factory.NewElement(it)
	if err != nil {
		p.failLocked(t, err)
		return
	}
	t.element = el
	if va, ok := el.(VisualApplier); ok {
		if err := va.ApplyVisual(p.visual); err != nil {
			p.logger.Printf("session: visual effects for %s: %v", it.Name, err)
		}
	}
	el.SetObserver(&observer{p: p, gen: t.gen})
	if err := el.Load(p.ctx); err != nil {
		p.failLocked(t, err)
	}
}

// failLocked records a terminal failure for the track. The rest of the
// playlist stays usable.
func (p *Player) failLocked(t *track, err error) {
	if !errors.Is(err, media.ErrPlaybackFailed) {
		err = fmt.Errorf("%s: %v: %w", t.item.Name, err, media.ErrPlaybackFailed)
	}
	t.err = err
	t.autoplay = false
	p.graph.Detach()
	p.setState(t, Ended)
	p.logger.Printf("session: %v", err)
}

func (p *Player) playLocked(ctx context.Context, t *track) error {
	if t.element == nil {
		return ErrNoItem
	}
	if err := p.graph.Resume(ctx); err != nil {
		p.logger.Printf("session: warning: %v", err)
	}
	if err := t.element.Play(ctx); err != nil {
		p.failLocked(t, err)
		return t.err
	}
	p.setState(t, Playing)
	return nil
}

func (p *Player) onMetadata(t *track, d time.Duration) {
	t.duration = d
	t.item.Duration = d
	p.store.SetDuration(t.item.ID, d)
	if t.state != Loading {
		return
	}
	p.setState(t, Ready)
	if err := p.graph.Attach(p.ctx, t.element); err != nil {
		p.logger.Printf("session: effects disabled for %s: %v", t.item.Name, err)
	}
	p.syncRawVolumeLocked()
	if t.autoplay {
		_ = p.playLocked(p.ctx, t)
	}
}

func (p *Player) onEnded(t *track) {
	t.position = t.duration
	if !p.setState(t, Ended) {
		return
	}
	if next, ok := p.store.AdvanceToNext(); ok {
		p.loadLocked(next, true)
	}
}

// AddFiles classifies paths and appends the accepted ones. When nothing is
// current the first added item is loaded without playing.
func (p *Player) AddFiles(paths []string) (added []media.Item, rejected []error) {
	err := p.do(func() error {
		for _, path := range paths {
			it, err := media.NewItem(p.store.NewID(filepath.Base(path)), path, nil)
			if err != nil {
				p.logger.Printf("session: %v", err)
				rejected = append(rejected, err)
				continue
			}
			added = append(added, it)
		}
		if len(added) == 0 {
			return nil
		}
		if err := p.store.Add(added...); err != nil {
			return err
		}
		if p.cur == nil {
			if it, _, err := p.store.SelectID(added[0].ID); err == nil {
				p.loadLocked(it, false)
			}
		}
		return nil
	})
	if err != nil {
		return nil, append(rejected, err)
	}
	p.probe(added)
	return added, rejected
}

func (p *Player) probe(items []media.Item) {
	if p.prober == nil || len(items) == 0 {
		return
	}
	go func() {
		for _, it := range items {
			res, err := p.prober.Probe(p.ctx, it)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				continue
			}
			_ = p.do(func() error {
				if cur, ok := p.store.Get(it.ID); ok && cur.Duration == 0 {
					p.store.SetDuration(it.ID, res.Duration)
				}
				return nil
			})
		}
	}()
}

// SelectItem loads the item with id. It stays Ready until TogglePlay.
func (p *Player) SelectItem(id string) error {
	return p.do(func() error {
		it, _, err := p.store.SelectID(id)
		if err != nil {
			return err
		}
		p.loadLocked(it, false)
		return nil
	})
}

// Next advances circularly, keeping playback running if it was. An empty
// playlist is a no-op.
func (p *Player) Next() error {
	return p.do(func() error {
		playing := p.cur != nil && (p.cur.state == Playing || (p.cur.state == Loading && p.cur.autoplay))
		it, ok := p.store.AdvanceToNext()
		if !ok {
			return nil
		}
		p.loadLocked(it, playing)
		return nil
	})
}

// RemoveItem drops id from the playlist. Removing the current item loads its
// neighbour, or empties the session when nothing is left.
func (p *Player) RemoveItem(id string) error {
	return p.do(func() error {
		r, err := p.store.RemoveByID(id)
		if err != nil {
			return err
		}
		if !r.WasCurrent {
			return nil
		}
		playing := p.cur != nil && p.cur.state == Playing
		if r.Current < 0 {
			if p.cur != nil {
				p.setState(p.cur, Empty)
			}
			p.releaseTrackLocked()
			return nil
		}
		if next, ok := p.store.Current(); ok {
			p.loadLocked(next, playing)
		}
		return nil
	})
}

// TogglePlay plays or pauses the current track. While loading it flips the
// autoplay intent; on an ended track it reloads and plays.
func (p *Player) TogglePlay(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.do(func() error {
		t := p.cur
		if t == nil {
			return ErrNoItem
		}
		switch t.state {
		case Loading:
			t.autoplay = !t.autoplay
		case Ready, Paused:
			return p.playLocked(ctx, t)
		case Playing:
			if err := t.element.Pause(); err != nil {
				return err
			}
			p.setState(t, Paused)
		case Ended:
			p.loadLocked(t.item, true)
		}
		return nil
	})
}

func (p *Player) seekLocked(pos time.Duration) error {
	t := p.cur
	if t == nil || t.element == nil {
		return ErrNoItem
	}
	if pos < 0 {
		pos = 0
	}
	if t.duration > 0 && pos > t.duration {
		pos = t.duration
	}
	if err := t.element.Seek(pos); err != nil {
		return err
	}
	t.position = pos
	return nil
}

// Seek moves to pos, clamped to [0, duration].
func (p *Player) Seek(pos time.Duration) error {
	return p.do(func() error { return p.seekLocked(pos) })
}

// Skip seeks relative to the current position.
func (p *Player) Skip(delta time.Duration) error {
	return p.do(func() error {
		if p.cur == nil {
			return ErrNoItem
		}
		return p.seekLocked(p.cur.position + delta)
	})
}

// SetBandGain forwards to the graph. The value is clamped; a bad index is a
// programmer error and returns ErrInvalidBandIndex.
func (p *Player) SetBandGain(i int, db float64) error {
	return p.do(func() error {
		if err := p.graph.SetBandGain(i, db); err != nil {
			return err
		}
		p.preset = equalizer.MatchPreset(p.graph.Gains())
		return nil
	})
}

// ApplyPreset replaces every band gain with the named preset.
func (p *Player) ApplyPreset(name string) error {
	return p.do(func() error {
		preset, ok := equalizer.FindPreset(name)
		if !ok {
			return fmt.Errorf("%q: %w", name, ErrUnknownPreset)
		}
		p.graph.ApplyGains(preset.Gains)
		p.preset = preset.Name
		return nil
	})
}

// SetMasterVolume clamps and applies level. A zero level counts as muted.
func (p *Player) SetMasterVolume(level float64) float64 {
	var v float64
	_ = p.do(func() error {
		v = p.graph.SetMasterVolume(level)
		p.muted = v == 0
		if v > 0 {
			p.preMute = v
		}
		p.syncRawVolumeLocked()
		return nil
	})
	return v
}

// ToggleMute silences the master gain, remembering the level to restore.
func (p *Player) ToggleMute() bool {
	var muted bool
	_ = p.do(func() error {
		if p.muted {
			level := p.preMute
			if level <= 0 {
				level = 1
			}
			p.graph.SetMasterVolume(level)
			p.muted = false
		} else {
			p.preMute = p.graph.MasterVolume()
			p.graph.SetMasterVolume(0)
			p.muted = true
		}
		muted = p.muted
		p.syncRawVolumeLocked()
		return nil
	})
	return muted
}

// syncRawVolumeLocked mirrors the master level onto an element the graph
// does not process. A graph-routed element stays at unity.
func (p *Player) syncRawVolumeLocked() {
	if p.cur == nil || p.cur.element == nil {
		return
	}
	rv, ok := p.cur.element.(RawVolumeSetter)
	if !ok {
		return
	}
	level := 1.0
	if !p.graph.Available() {
		level = p.graph.MasterVolume()
	}
	if err := rv.SetRawVolume(level); err != nil {
		p.logger.Printf("session: volume for %s: %v", p.cur.item.Name, err)
	}
}

// SetVisual maps s and applies it to a video element if one is loaded.
func (p *Player) SetVisual(s visual.Settings) visual.Descriptor {
	d := visual.Map(s)
	_ = p.do(func() error {
		p.visual = d
		if p.cur == nil {
			return nil
		}
		if va, ok := p.cur.element.(VisualApplier); ok {
			if err := va.ApplyVisual(d); err != nil {
				p.logger.Printf("session: visual effects for %s: %v", p.cur.item.Name, err)
			}
		}
		return nil
	})
	return d
}

// Retry reloads the current item and plays it.
func (p *Player) Retry(ctx context.Context) error {
	return p.do(func() error {
		if p.cur == nil {
			return ErrNoItem
		}
		p.loadLocked(p.cur.item, true)
		return nil
	})
}

func (p *Player) snapshotLocked() Snapshot {
	s := Snapshot{
		State:         Empty,
		GraphDegraded: p.graph.Degraded(),
		Gains:         p.graph.Gains(),
		Bands:         p.graph.Bands(),
		Volume:        p.graph.MasterVolume(),
		Muted:         p.muted,
		Preset:        p.preset,
		Visual:        p.visual,
		Items:         p.store.Items(),
		CurrentIndex:  p.store.CurrentIndex(),
	}
	if t := p.cur; t != nil {
		s.Item = t.item
		s.HasItem = true
		s.State = t.state
		s.Playing = t.state == Playing
		s.Position = t.position
		s.Duration = t.duration
		s.PlaybackError = t.err
	}
	return s
}

// Snapshot returns the current render state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn for every state change and returns a cancel func.
func (p *Player) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Close releases the element, the graph and every playlist source. It is
// idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.releaseTrackLocked()
	err := p.graph.Teardown()
	p.store.Close()
	p.cancel()
	p.listeners = map[int]func(Snapshot){}
	return err
}

// observer binds element events to the load that created it.
type observer struct {
	p   *Player
	gen uint64
}

func (o *observer) dispatch(event string, fn func(t *track)) {
	_ = o.p.do(func() error {
		t := o.p.cur
		if t == nil || t.gen != o.gen {
			o.p.logger.Printf("session: %s from load %d: %v", event, o.gen, ErrStaleLoad)
			return nil
		}
		fn(t)
		return nil
	})
}

func (o *observer) OnMetadata(d time.Duration) {
	o.dispatch("metadata", func(t *track) { o.p.onMetadata(t, d) })
}

func (o *observer) OnTimeUpdate(pos time.Duration) {
	o.dispatch("timeupdate", func(t *track) { t.position = pos })
}

func (o *observer) OnEnded() {
	o.dispatch("ended", o.p.onEnded)
}

func (o *observer) OnError(err error) {
	o.dispatch("error", func(t *track) { o.p.failLocked(t, err) })
}
