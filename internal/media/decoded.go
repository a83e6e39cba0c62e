package media

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/edward-ap/miniplayer/internal/audioout"
)

// DecodeFunc turns an open file into a seekable stream.
type DecodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]DecodeFunc{
	"mp3": mp3.Decode,
	"ogg": vorbis.Decode,
	"wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	"flac": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	},
}

// DecoderFor returns the beep decoder for ext, if any.
func DecoderFor(ext string) (DecodeFunc, bool) {
	d, ok := decoders[ext]
	return d, ok
}

// CanDecode reports whether the item can be played by a Decoded element.
func CanDecode(it Item) bool {
	_, ok := decoders[it.Ext()]
	return ok && it.Class == Audio
}

const defaultTimeUpdate = 250 * time.Millisecond

// Decoded plays an audio item through beep. Its samples normally go to the
// output on a raw channel; Tap reroutes them into a processing graph.
type Decoded struct {
	item     Item
	out      audioout.Output
	decode   DecodeFunc
	interval time.Duration
	events   *Emitter

	mu         sync.Mutex
	stream     beep.StreamSeekCloser
	format     beep.Format
	playing    bool
	closed     bool
	registered bool
	loadCancel context.CancelFunc
	done       chan struct{}
	endSignal  chan struct{}

	// guarded by the output lock
	ctrl     *beep.Ctrl
	render   beep.Streamer
	tapped   bool
	ended    bool
	released bool
}

// DecodedOption customises a Decoded element.
type DecodedOption func(*Decoded)

// WithTimeUpdate sets the position report interval.
func WithTimeUpdate(d time.Duration) DecodedOption {
	return func(e *Decoded) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithDecoder overrides the extension-based decoder.
func WithDecoder(fn DecodeFunc) DecodedOption {
	return func(e *Decoded) { e.decode = fn }
}

// NewDecoded prepares an element for it. Call Load before Play.
func NewDecoded(it Item, out audioout.Output, opts ...DecodedOption) (*Decoded, error) {
	d := &Decoded{
		item:      it,
		out:       out,
		interval:  defaultTimeUpdate,
		events:    NewEmitter(),
		done:      make(chan struct{}),
		endSignal: make(chan struct{}, 1),
	}
	d.decode, _ = DecoderFor(it.Ext())
	for _, o := range opts {
		o(d)
	}
	if d.decode == nil {
		d.events.Close()
		return nil, fmt.Errorf("%s: no decoder: %w", it.Name, ErrUnsupportedType)
	}
	go d.watch()
	return d, nil
}

func (d *Decoded) ID() string { return d.item.ID }

func (d *Decoded) SetObserver(o Observer) { d.events.SetObserver(o) }

// Load opens and decodes the source in the background. Metadata or an error
// event follows.
func (d *Decoded) Load(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrElementClosed
	}
	if d.loadCancel != nil {
		d.loadCancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	d.loadCancel = cancel
	d.mu.Unlock()

	go d.load(lctx)
	return nil
}

func (d *Decoded) load(ctx context.Context) {
	f, err := d.item.Source.Open()
	if err != nil {
		d.events.Error(fmt.Errorf("%s: %v: %w", d.item.Name, err, ErrPlaybackFailed))
		return
	}
	s, format, err := d.decode(f)
	if err != nil {
		_ = f.Close()
		d.events.Error(fmt.Errorf("decode %s: %v: %w", d.item.Name, err, ErrPlaybackFailed))
		return
	}
	if ctx.Err() != nil {
		_ = s.Close()
		return
	}

	ctrl := &beep.Ctrl{Streamer: s, Paused: true}
	var r beep.Streamer = ctrl
	if sr := d.out.SampleRate(); format.SampleRate != sr {
		r = beep.Resample(4, format.SampleRate, sr, ctrl)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		_ = s.Close()
		return
	}
	old := d.stream
	d.out.Lock()
	d.ctrl = ctrl
	d.render = r
	d.ended = false
	d.out.Unlock()
	d.stream = s
	d.format = format
	d.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	d.events.Metadata(format.SampleRate.D(s.Len()))
}

// pull runs under the output lock.
func (d *Decoded) pull(samples [][2]float64) {
	if d.render == nil || d.ended {
		clear(samples)
		return
	}
	n, ok := d.render.Stream(samples)
	clear(samples[n:])
	if !ok {
		d.ended = true
		select {
		case d.endSignal <- struct{}{}:
		default:
		}
	}
}

// rawChannel is the element's own output path, silent while tapped.
type rawChannel struct{ d *Decoded }

func (r rawChannel) Stream(samples [][2]float64) (int, bool) {
	if r.d.released {
		return 0, false
	}
	if r.d.tapped {
		clear(samples)
		return len(samples), true
	}
	r.d.pull(samples)
	return len(samples), true
}

func (r rawChannel) Err() error { return nil }

// Tap hands the sample stream to a graph. Call it under the output lock.
func (d *Decoded) Tap() beep.Streamer {
	d.tapped = true
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if d.released || !d.tapped {
			clear(samples)
			return len(samples), true
		}
		d.pull(samples)
		return len(samples), true
	})
}

// Untap returns the samples to the raw channel. Call it under the output lock.
func (d *Decoded) Untap() { d.tapped = false }

// Play starts or resumes playback. A finished element restarts from zero.
func (d *Decoded) Play(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrElementClosed
	}
	if d.stream == nil {
		return ErrNotLoaded
	}
	if !d.registered {
		if err := d.out.Start(); err != nil {
			return fmt.Errorf("%s: %v: %w", d.item.Name, err, ErrPlaybackFailed)
		}
		d.out.Play(rawChannel{d})
		d.registered = true
	}

	d.out.Lock()
	if d.ended {
		if err := d.stream.Seek(0); err != nil {
			d.out.Unlock()
			return fmt.Errorf("rewind %s: %v: %w", d.item.Name, err, ErrPlaybackFailed)
		}
		d.ended = false
	}
	d.ctrl.Paused = false
	d.out.Unlock()

	d.playing = true
	return nil
}

func (d *Decoded) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrElementClosed
	}
	if d.stream == nil {
		return nil
	}
	d.out.Lock()
	d.ctrl.Paused = true
	d.out.Unlock()
	d.playing = false
	return nil
}

// Seek moves to pos, clamped to the stream bounds.
func (d *Decoded) Seek(pos time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrElementClosed
	}
	if d.stream == nil {
		return ErrNotLoaded
	}
	n := d.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if last := d.stream.Len() - 1; n > last {
		n = max(last, 0)
	}
	d.out.Lock()
	err := d.stream.Seek(n)
	if err == nil {
		d.ended = false
	}
	d.out.Unlock()
	if err != nil {
		return fmt.Errorf("seek %s: %w", d.item.Name, err)
	}
	d.events.TimeUpdate(d.format.SampleRate.D(n))
	return nil
}

func (d *Decoded) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return 0
	}
	d.out.Lock()
	defer d.out.Unlock()
	return d.format.SampleRate.D(d.stream.Position())
}

func (d *Decoded) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return 0
	}
	return d.format.SampleRate.D(d.stream.Len())
}

// watch reports position while playing and turns the render-side end
// signal into events.
func (d *Decoded) watch() {
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-d.endSignal:
			d.finish()
		case <-t.C:
			d.mu.Lock()
			playing := d.playing
			d.mu.Unlock()
			if playing {
				d.events.TimeUpdate(d.Position())
			}
		}
	}
}

func (d *Decoded) finish() {
	d.mu.Lock()
	d.playing = false
	s := d.stream
	d.mu.Unlock()
	if s == nil {
		return
	}
	if err := s.Err(); err != nil {
		d.events.Error(fmt.Errorf("%s: %v: %w", d.item.Name, err, ErrPlaybackFailed))
		return
	}
	d.events.TimeUpdate(d.Duration())
	d.events.Ended()
}

// Close stops playback and frees the decoder. The item's Source is not
// released here; the playlist owns it.
func (d *Decoded) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.playing = false
	if d.loadCancel != nil {
		d.loadCancel()
	}
	s := d.stream
	d.stream = nil
	close(d.done)
	d.mu.Unlock()

	d.events.Close()

	d.out.Lock()
	d.released = true
	d.tapped = false
	d.ctrl = nil
	d.render = nil
	d.out.Unlock()

	if s != nil {
		return s.Close()
	}
	return nil
}
