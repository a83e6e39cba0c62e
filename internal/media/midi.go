package media

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMIDIDuration is the length reported for every MIDI item.
	DefaultMIDIDuration = 120 * time.Second
	midiStep            = time.Second
)

// MIDIClock stands in for a MIDI synthesizer: it reports a fixed duration and
// advances a wall clock while playing. It produces no audio and cannot be
// tapped.
type MIDIClock struct {
	id       string
	duration time.Duration
	interval time.Duration
	events   *Emitter

	mu      sync.Mutex
	pos     time.Duration
	loaded  bool
	playing bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewMIDIClock returns a clock for item id. A zero duration uses
// DefaultMIDIDuration; interval is the wall time per one-second step.
func NewMIDIClock(id string, duration, interval time.Duration) *MIDIClock {
	if duration <= 0 {
		duration = DefaultMIDIDuration
	}
	if interval <= 0 {
		interval = midiStep
	}
	return &MIDIClock{id: id, duration: duration, interval: interval, events: NewEmitter()}
}

func (m *MIDIClock) ID() string { return m.id }

func (m *MIDIClock) SetObserver(o Observer) { m.events.SetObserver(o) }

func (m *MIDIClock) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrElementClosed
	}
	m.loaded = true
	m.pos = 0
	m.events.Metadata(m.duration)
	return nil
}

func (m *MIDIClock) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrElementClosed
	}
	if !m.loaded {
		return ErrNotLoaded
	}
	if m.playing {
		return nil
	}
	if m.pos >= m.duration {
		m.pos = 0
	}
	m.playing = true
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.stop)
	return nil
}

func (m *MIDIClock) run(stop chan struct{}) {
	defer m.wg.Done()
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		m.mu.Lock()
		select {
		case <-stop:
			m.mu.Unlock()
			return
		default:
		}
		m.pos += midiStep
		ended := m.pos >= m.duration
		if ended {
			m.pos = m.duration
			m.playing = false
			m.stop = nil
		}
		pos := m.pos
		m.mu.Unlock()

		m.events.TimeUpdate(pos)
		if ended {
			m.events.Ended()
			return
		}
	}
}

// haltLocked stops the ticker goroutine. The caller holds mu.
func (m *MIDIClock) haltLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.playing = false
}

func (m *MIDIClock) Pause() error {
	m.mu.Lock()
	m.haltLocked()
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

func (m *MIDIClock) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrElementClosed
	}
	m.pos = max(0, min(pos, m.duration))
	m.events.TimeUpdate(m.pos)
	return nil
}

func (m *MIDIClock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *MIDIClock) Duration() time.Duration { return m.duration }

func (m *MIDIClock) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.haltLocked()
	m.mu.Unlock()
	m.wg.Wait()
	m.events.Close()
	return nil
}
