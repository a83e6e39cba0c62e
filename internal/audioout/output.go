// Package audioout wraps the process-wide sound device. Both the processing
// graph and the raw channel of decoded elements play through one Output.
package audioout

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is a pull-based sink. Lock/Unlock guard every structure the render
// goroutine reads; Play must not be called while holding the lock.
type Output interface {
	SampleRate() beep.SampleRate
	Start() error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Suspend() error
	Resume() error
	Close()
}

// Speaker plays through the system audio device via gopxl/beep. The device
// is opened on the first Start.
type Speaker struct {
	mu        sync.Mutex
	sr        beep.SampleRate
	buffer    time.Duration
	started   bool
	suspended bool
}

// NewSpeaker prepares, but does not open, the device.
func NewSpeaker(sr beep.SampleRate, buffer time.Duration) *Speaker {
	if sr <= 0 {
		sr = 44100
	}
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	return &Speaker{sr: sr, buffer: buffer}
}

func (s *Speaker) SampleRate() beep.SampleRate { return s.sr }

// Start opens the device once. Later calls are no-ops.
func (s *Speaker) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := speaker.Init(s.sr, s.sr.N(s.buffer)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	s.started = true
	return nil
}

func (s *Speaker) Play(st beep.Streamer) {
	if err := s.Start(); err != nil {
		return
	}
	speaker.Play(st)
}

func (s *Speaker) Lock()   { speaker.Lock() }
func (s *Speaker) Unlock() { speaker.Unlock() }

func (s *Speaker) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.suspended {
		return nil
	}
	if err := speaker.Suspend(); err != nil {
		return fmt.Errorf("speaker suspend: %w", err)
	}
	s.suspended = true
	return nil
}

func (s *Speaker) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || !s.suspended {
		return nil
	}
	if err := speaker.Resume(); err != nil {
		return fmt.Errorf("speaker resume: %w", err)
	}
	s.suspended = false
	return nil
}

func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	speaker.Clear()
	speaker.Close()
	s.started = false
	s.suspended = false
}
