// Package player plays items that the sample decoders cannot handle (video
// and AAC audio) through libVLC. Its elements render on their own output and
// cannot be routed through the effects graph.
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	vlc "github.com/adrg/libvlc-go/v3"

	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/visual"
)

// pollInterval paces parse polling and position reports.
const pollInterval = 250 * time.Millisecond

var errParseFailed = errors.New("libvlc could not parse media")

// Logger is a small logging interface used for non-fatal libVLC errors.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Element is a libVLC player bound to one playlist item.
type Element struct {
	rt     *Runtime
	item   media.Item
	logger Logger
	events *media.Emitter

	p      *vlc.Player
	m      *vlc.Media
	evIDs  []vlc.EventID
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// internal lock for Element fields (not for libVLC)
	mu       sync.Mutex
	visual   visual.Descriptor
	volume   int
	loaded   bool
	started  bool
	playing  bool
	duration time.Duration
	position time.Duration
	closed   bool
}

var _ media.Element = (*Element)(nil)

// NewElement creates a player for it. libVLC is initialised on first use.
func (rt *Runtime) NewElement(it media.Item, logger Logger) (*Element, error) {
	if logger == nil {
		logger = stdLogger{}
	}
	if err := rt.ensure(); err != nil {
		return nil, err
	}
	var p *vlc.Player
	err := rt.call(func() error {
		var err error
		p, err = vlc.NewPlayer()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("new vlc player failed: %w", err)
	}
	return &Element{
		rt:     rt,
		item:   it,
		logger: logger,
		events: media.NewEmitter(),
		p:      p,
		visual: visual.Map(visual.Defaults()),
		volume: 100,
	}, nil
}

func (e *Element) ID() string { return e.item.ID }

func (e *Element) SetObserver(o media.Observer) { e.events.SetObserver(o) }

// mediaOptions returns the per-media options for the item and descriptor.
func mediaOptions(it media.Item, d visual.Descriptor) []string {
	opts := []string{":demux=any"}
	if it.Class != media.Video {
		return append(opts, ":no-video")
	}
	if d.IsIdentity() {
		return opts
	}
	return append(opts, d.VLCOptions()...)
}

// newMediaLocked builds a media object for the item. Callers hold vlcMu.
func (e *Element) newMediaLocked(d visual.Descriptor) (*vlc.Media, error) {
	m, err := vlc.NewMediaFromPath(strings.TrimSpace(e.item.Source.Path()))
	if err != nil {
		return nil, fmt.Errorf("new media from path failed: %w", err)
	}
	if err := m.AddOptions(mediaOptions(e.item, d)...); err != nil {
		m.Release()
		return nil, fmt.Errorf("media options: %w", err)
	}
	if err := e.p.SetMedia(m); err != nil {
		m.Release()
		return nil, fmt.Errorf("set media failed: %w", err)
	}
	return m, nil
}

// Load attaches the media and starts parsing it in the background. Metadata
// is reported once parsing completes.
func (e *Element) Load(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.item.Source == nil || e.item.Source.Released() {
		return media.ErrSourceReleased
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return media.ErrElementClosed
	}
	d := e.visual
	vol := e.volume
	e.mu.Unlock()

	var m *vlc.Media
	err := e.rt.call(func() error {
		var err error
		if m, err = e.newMediaLocked(d); err != nil {
			return err
		}
		_ = e.p.SetVolume(vol)
		e.attachEventsLocked()
		return m.ParseWithOptions(e.rt.parseTimeout, vlc.MediaParseLocal)
	})
	if err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.m = m
	e.cancel = cancel
	e.mu.Unlock()
	e.wg.Add(1)
	go e.watch(wctx, m)
	return nil
}

// attachEventsLocked forwards end and error events. Callbacks run on the
// libVLC event thread and must not block on element state.
func (e *Element) attachEventsLocked() {
	if len(e.evIDs) > 0 {
		return
	}
	em, err := e.p.EventManager()
	if err != nil {
		e.logger.Printf("vlc: event manager: %v", err)
		return
	}
	onEnd := func(vlc.Event, interface{}) {
		go func() {
			e.mu.Lock()
			e.playing = false
			e.position = e.duration
			e.mu.Unlock()
			e.events.Ended()
		}()
	}
	onErr := func(vlc.Event, interface{}) {
		go func() {
			e.mu.Lock()
			e.playing = false
			e.mu.Unlock()
			e.events.Error(fmt.Errorf("libvlc playback error: %w", media.ErrPlaybackFailed))
		}()
	}
	for _, h := range []struct {
		ev vlc.Event
		fn vlc.EventCallback
	}{
		{vlc.MediaPlayerEndReached, onEnd},
		{vlc.MediaPlayerEncounteredError, onErr},
	} {
		id, err := em.Attach(h.ev, h.fn, nil)
		if err != nil {
			e.logger.Printf("vlc: attach event: %v", err)
			continue
		}
		e.evIDs = append(e.evIDs, id)
	}
}

// watch waits for parsing and then reports the position while playing.
func (e *Element) watch(ctx context.Context, m *vlc.Media) {
	defer e.wg.Done()
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	parsed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !parsed {
			var (
				status vlc.MediaParseStatus
				d      time.Duration
			)
			_ = e.rt.call(func() error {
				status, _ = m.ParseStatus()
				if status == vlc.MediaParseDone {
					d, _ = m.Duration()
				}
				return nil
			})
			switch status {
			case vlc.MediaParseDone:
				parsed = true
				e.mu.Lock()
				e.duration = d
				e.loaded = true
				e.mu.Unlock()
				e.events.Metadata(d)
			case vlc.MediaParseFailed, vlc.MediaParseTimeout:
				e.events.Error(fmt.Errorf("%s: %w: %w", e.item.Name, errParseFailed, media.ErrPlaybackFailed))
				return
			}
			continue
		}

		e.mu.Lock()
		playing := e.playing
		e.mu.Unlock()
		if !playing {
			continue
		}
		var ms int
		_ = e.rt.call(func() error {
			ms, _ = e.p.MediaTime()
			return nil
		})
		if ms < 0 {
			continue
		}
		pos := time.Duration(ms) * time.Millisecond
		e.mu.Lock()
		e.position = pos
		e.mu.Unlock()
		e.events.TimeUpdate(pos)
	}
}

func (e *Element) Play(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return media.ErrElementClosed
	}
	if !e.loaded {
		return media.ErrNotLoaded
	}
	resume := e.started
	pos := e.position
	err := e.rt.call(func() error {
		if resume {
			return e.p.SetPause(false)
		}
		if err := e.p.Play(); err != nil {
			return err
		}
		if pos > 0 {
			return e.p.SetMediaTime(int(pos / time.Millisecond))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("play failed: %w", err)
	}
	e.started = true
	e.playing = true
	return nil
}

func (e *Element) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return media.ErrElementClosed
	}
	if !e.playing {
		return nil
	}
	if err := e.rt.call(func() error { return e.p.SetPause(true) }); err != nil {
		return fmt.Errorf("pause failed: %w", err)
	}
	e.playing = false
	return nil
}

// Seek moves playback to pos. Before the first Play it only records pos.
func (e *Element) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return media.ErrElementClosed
	}
	pos = clampDuration(pos, e.duration)
	if e.started {
		if err := e.rt.call(func() error { return e.p.SetMediaTime(int(pos / time.Millisecond)) }); err != nil {
			return fmt.Errorf("seek failed: %w", err)
		}
	}
	e.position = pos
	return nil
}

func clampDuration(pos, max time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if max > 0 && pos > max {
		return max
	}
	return pos
}

func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Element) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// ApplyVisual changes the video adjust options. libVLC reads them when the
// media is opened, so a started element reopens its media at the current
// position.
func (e *Element) ApplyVisual(d visual.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return media.ErrElementClosed
	}
	if e.visual == d {
		return nil
	}
	e.visual = d
	if e.item.Class != media.Video || !e.started {
		if e.m != nil && !e.started {
			return e.rt.call(func() error { return e.m.AddOptions(mediaOptions(e.item, d)...) })
		}
		return nil
	}
	playing := e.playing
	return e.rt.call(func() error {
		ms, _ := e.p.MediaTime()
		_ = e.p.Stop()
		m, err := e.newMediaLocked(d)
		if err != nil {
			return err
		}
		if e.m != nil {
			e.m.Release()
		}
		e.m = m
		if err := e.p.Play(); err != nil {
			return fmt.Errorf("play failed: %w", err)
		}
		if ms > 0 {
			_ = e.p.SetMediaTime(ms)
		}
		if !playing {
			return e.p.SetPause(true)
		}
		return nil
	})
}

// SetRawVolume sets the element's own output level in [0,1]. It is used
// while the effects graph cannot process the element.
func (e *Element) SetRawVolume(level float64) error {
	v := clamp(int(math.Round(level*100)), 0, 100)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.closed {
		return media.ErrElementClosed
	}
	return e.rt.call(func() error { return e.p.SetVolume(v) })
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Close stops playback and frees the player and media. The item's source is
// owned by the playlist and stays open.
func (e *Element) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.playing = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	_ = e.rt.call(func() error {
		if em, err := e.p.EventManager(); err == nil && len(e.evIDs) > 0 {
			em.Detach(e.evIDs...)
		}
		_ = e.p.Stop()
		e.p.Release()
		if e.m != nil {
			e.m.Release()
		}
		return nil
	})
	e.events.Close()
	return nil
}
