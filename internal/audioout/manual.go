package audioout

import (
	"errors"
	"sync"

	"github.com/gopxl/beep/v2"
)

// ErrStartRefused is returned by a Manual output configured to fail Start.
var ErrStartRefused = errors.New("output refused to start")

// Manual is an Output driven by explicit Pull calls. It backs the headless
// "null" device and tests.
type Manual struct {
	mu        sync.Mutex
	sr        beep.SampleRate
	streamers []beep.Streamer
	started   bool
	suspended bool
	closed    bool

	// FailStart makes Start return ErrStartRefused.
	FailStart bool
}

// NewManual returns a Manual output running at sr.
func NewManual(sr beep.SampleRate) *Manual {
	if sr <= 0 {
		sr = 44100
	}
	return &Manual{sr: sr}
}

func (m *Manual) SampleRate() beep.SampleRate { return m.sr }

func (m *Manual) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStart {
		return ErrStartRefused
	}
	m.started = true
	m.closed = false
	return nil
}

func (m *Manual) Play(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = append(m.streamers, s)
}

func (m *Manual) Lock()   { m.mu.Lock() }
func (m *Manual) Unlock() { m.mu.Unlock() }

func (m *Manual) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
	return nil
}

func (m *Manual) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = false
	return nil
}

func (m *Manual) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = nil
	m.started = false
	m.closed = true
}

// Started reports whether Start succeeded and Close has not run since.
func (m *Manual) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Playing reports how many streamers are still attached.
func (m *Manual) Playing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamers)
}

// Pull renders n frames by summing every attached streamer, dropping the
// ones that drained. A suspended or stopped output renders silence.
func (m *Manual) Pull(n int) [][2]float64 {
	out := make([][2]float64, n)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.suspended {
		return out
	}
	buf := make([][2]float64, n)
	live := m.streamers[:0]
	for _, s := range m.streamers {
		got, ok := s.Stream(buf)
		for i := 0; i < got; i++ {
			out[i][0] += buf[i][0]
			out[i][1] += buf[i][1]
		}
		if ok {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(m.streamers); i++ {
		m.streamers[i] = nil
	}
	m.streamers = live
	return out
}
