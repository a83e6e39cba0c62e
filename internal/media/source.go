package media

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrSourceReleased is returned when opening a source after its release.
var ErrSourceReleased = errors.New("media source released")

// Source is a process-local reference to a selected file. It must be released
// exactly once; later Release calls report false and do nothing.
type Source struct {
	path      string
	onRelease func(string)

	mu       sync.Mutex
	released bool
}

// NewSource wraps path. onRelease, if set, runs on the first Release.
func NewSource(path string, onRelease func(string)) *Source {
	return &Source{path: path, onRelease: onRelease}
}

func (s *Source) Path() string { return s.path }

// Open returns a fresh reader on the underlying file.
func (s *Source) Open() (*os.File, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil, fmt.Errorf("%s: %w", s.path, ErrSourceReleased)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return f, nil
}

// Release marks the source released and reports whether this call did it.
func (s *Source) Release() bool {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return false
	}
	s.released = true
	cb := s.onRelease
	s.mu.Unlock()
	if cb != nil {
		cb(s.path)
	}
	return true
}

func (s *Source) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
