// Package engine assembles the audio output, effects graph, element factory
// and playback session from the user's configuration.
package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/audiograph/beepgraph"
	"github.com/edward-ap/miniplayer/internal/audioout"
	"github.com/edward-ap/miniplayer/internal/config"
	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/player"
	"github.com/edward-ap/miniplayer/internal/session"
)

// midiStep is the MIDI clock's position report period.
const midiStep = time.Second

// Logger is a small logging interface used for non-fatal engine events.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Factory picks the element for an item: beep decoding for the formats it
// reads, libVLC for video and AAC audio, and a clock for MIDI.
type Factory struct {
	out          audioout.Output
	vlc          *player.Runtime
	timeUpdate   time.Duration
	midiDuration time.Duration
	logger       Logger
}

var _ session.ElementFactory = (*Factory)(nil)

// NewElement implements session.ElementFactory.
func (f *Factory) NewElement(it media.Item) (media.Element, error) {
	switch {
	case it.Class == media.MIDI:
		return media.NewMIDIClock(it.ID, f.midiDuration, midiStep), nil
	case media.CanDecode(it):
		d, err := media.NewDecoded(it, f.out, media.WithTimeUpdate(f.timeUpdate))
		if err != nil {
			return nil, err
		}
		return d, nil
	case f.vlc != nil && it.Class != media.Unknown:
		el, err := f.vlc.NewElement(it, f.logger)
		if err != nil {
			return nil, err
		}
		return el, nil
	}
	return nil, fmt.Errorf("%s: no player for %q: %w", it.Name, it.Ext(), media.ErrUnsupportedType)
}

// Engine owns every long-lived playback resource.
type Engine struct {
	Config  *config.Config
	Output  audioout.Output
	Graph   *audiograph.Controller
	Player  *session.Player
	Factory *Factory

	vlc    *player.Runtime
	logger Logger
}

type options struct {
	out    audioout.Output
	noVLC  bool
	logger Logger
}

// Option customises New.
type Option func(*options)

// WithOutput replaces the system speaker, e.g. with an audioout.Manual.
func WithOutput(out audioout.Output) Option {
	return func(o *options) { o.out = out }
}

// WithoutVLC disables the libVLC element; video items then fail to load.
func WithoutVLC() Option {
	return func(o *options) { o.noVLC = true }
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds an engine from cfg. The speaker is opened lazily on first play.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	o := options{logger: stdLogger{}}
	for _, fn := range opts {
		fn(&o)
	}
	out := o.out
	if out == nil {
		out = audioout.NewSpeaker(beep.SampleRate(cfg.SampleRate), cfg.BufferDuration())
	}

	var open audiograph.ContextFactory
	if cfg.EffectsEnabled {
		open = beepgraph.Factory(out)
	}
	graph := audiograph.NewController(open, equalizer.BandsWithQ(cfg.BandQ),
		audiograph.WithLogger(o.logger),
		audiograph.WithVolume(cfg.Volume),
	)

	var rt *player.Runtime
	if !o.noVLC {
		rt = player.NewRuntime()
	}
	f := &Factory{
		out:          out,
		vlc:          rt,
		timeUpdate:   cfg.TimeUpdateInterval(),
		midiDuration: cfg.MIDIDuration(),
		logger:       o.logger,
	}
	p := session.New(graph, f,
		session.WithLogger(o.logger),
		session.WithProber(media.NewProber(o.logger, cfg.MIDIDuration())),
	)
	if err := p.ApplyPreset(cfg.EQPreset); err != nil {
		o.logger.Printf("engine: %v", err)
	}
	if cfg.Muted {
		p.ToggleMute()
	}
	return &Engine{
		Config:  cfg,
		Output:  out,
		Graph:   graph,
		Player:  p,
		Factory: f,
		vlc:     rt,
		logger:  o.logger,
	}, nil
}

// Remember copies the session's preferences into the config.
func (e *Engine) Remember() {
	s := e.Player.Snapshot()
	e.Config.Muted = s.Muted
	if !s.Muted {
		e.Config.Volume = s.Volume
	}
	if s.Preset != equalizer.PresetManual {
		e.Config.EQPreset = s.Preset
	}
}

// Close stops playback and releases the session, libVLC and the output.
func (e *Engine) Close() error {
	err := e.Player.Close()
	if e.vlc != nil {
		e.vlc.Release()
	}
	e.Output.Close()
	return err
}
