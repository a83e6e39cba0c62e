package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-audio/wav"
)

var errNoDuration = errors.New("duration unavailable")

// Logger is a small logging interface used for non-fatal probe failures.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

const (
	// StrategyWAVHeader reads the RIFF header with go-audio/wav.
	StrategyWAVHeader = "wav-header"
	// StrategyDecoder decodes the stream with beep and counts frames.
	StrategyDecoder = "decoder"
	// StrategyMIDIDefault reports the placeholder clock length.
	StrategyMIDIDefault = "midi-default"
)

// Probed is the result of a successful probe.
type Probed struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Strategy   string
}

type probeStrategy interface {
	name() string
	accepts(it Item) bool
	probe(ctx context.Context, it Item) (Probed, error)
}

// Prober resolves item durations ahead of playback by trying strategies in
// order until one produces a length.
type Prober struct {
	logger     Logger
	strategies []probeStrategy
}

// NewProber builds the default chain: WAV header, beep decoder, MIDI default.
func NewProber(logger Logger, midiDuration time.Duration) *Prober {
	if logger == nil {
		logger = stdLogger{}
	}
	if midiDuration <= 0 {
		midiDuration = DefaultMIDIDuration
	}
	return &Prober{
		logger: logger,
		strategies: []probeStrategy{
			wavHeaderStrategy{},
			decoderStrategy{},
			midiStrategy{duration: midiDuration},
		},
	}
}

// Probe returns the first duration any strategy can determine.
func (p *Prober) Probe(ctx context.Context, it Item) (Probed, error) {
	for _, s := range p.strategies {
		if err := ctx.Err(); err != nil {
			return Probed{}, err
		}
		if !s.accepts(it) {
			continue
		}
		res, err := s.probe(ctx, it)
		if err == nil {
			res.Strategy = s.name()
			return res, nil
		}
		p.logger.Printf("probe %s via %s: %v", it.Name, s.name(), err)
	}
	return Probed{}, fmt.Errorf("%s: %w", it.Name, errNoDuration)
}

type wavHeaderStrategy struct{}

func (wavHeaderStrategy) name() string { return StrategyWAVHeader }

func (wavHeaderStrategy) accepts(it Item) bool { return it.Ext() == "wav" }

func (wavHeaderStrategy) probe(_ context.Context, it Item) (Probed, error) {
	f, err := it.Source.Open()
	if err != nil {
		return Probed{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Probed{}, errors.New("invalid wav header")
	}
	d, err := dec.Duration()
	if err != nil {
		return Probed{}, fmt.Errorf("wav duration: %w", err)
	}
	res := Probed{Duration: d}
	if format := dec.Format(); format != nil {
		res.SampleRate = format.SampleRate
		res.Channels = format.NumChannels
	}
	return res, nil
}

type decoderStrategy struct{}

func (decoderStrategy) name() string { return StrategyDecoder }

func (decoderStrategy) accepts(it Item) bool { return CanDecode(it) }

func (decoderStrategy) probe(_ context.Context, it Item) (Probed, error) {
	decode, ok := DecoderFor(it.Ext())
	if !ok {
		return Probed{}, ErrUnsupportedType
	}
	f, err := it.Source.Open()
	if err != nil {
		return Probed{}, err
	}
	s, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return Probed{}, fmt.Errorf("decode: %w", err)
	}
	defer s.Close()
	return Probed{
		Duration:   format.SampleRate.D(s.Len()),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

type midiStrategy struct {
	duration time.Duration
}

func (midiStrategy) name() string { return StrategyMIDIDefault }

func (midiStrategy) accepts(it Item) bool { return it.Class == MIDI }

func (m midiStrategy) probe(context.Context, Item) (Probed, error) {
	return Probed{Duration: m.duration}, nil
}
