// Package playlist keeps the ordered list of media items and the current
// position in it. It is the only owner of item sources and releases each one
// exactly once.
package playlist

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/edward-ap/miniplayer/internal/media"
)

var (
	ErrIndexOutOfRange = errors.New("playlist index out of range")
	ErrNotFound        = errors.New("playlist item not found")
	ErrDuplicateID     = errors.New("duplicate playlist item id")
	ErrClosed          = errors.New("playlist closed")
)

// Removal describes the effect of RemoveByID.
type Removal struct {
	Item       media.Item
	Index      int
	WasCurrent bool
	// Current is the current index after removal, -1 when nothing is current.
	Current int
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	items   []media.Item
	current int
	seq     uint64
	now     func() time.Time
	closed  bool
}

// New returns an empty store with no current item.
func New() *Store {
	return &Store{current: -1, now: time.Now}
}

// NewID returns an id of the form <unix-millis>-<name>-<seq>. The sequence
// keeps ids unique when the same file is added twice in one millisecond.
func (s *Store) NewID(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + name + "-" + strconv.FormatUint(s.seq, 10)
}

// Add appends items in order. It does not change the current index. On a
// duplicate id nothing is added.
func (s *Store) Add(items ...media.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	seen := make(map[string]struct{}, len(s.items)+len(items))
	for _, it := range s.items {
		seen[it.ID] = struct{}{}
	}
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%s: %w", it.ID, ErrDuplicateID)
		}
		seen[it.ID] = struct{}{}
	}
	s.items = append(s.items, items...)
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// RemoveByID drops the item and releases its source. Removing an item before
// the current one keeps the same logical item current. Removing the current
// item makes the item that shifted into its slot current, or the new last
// item when there is none.
func (s *Store) RemoveByID(id string) (Removal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Removal{Current: s.current}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	it := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)

	r := Removal{Item: it, Index: idx, WasCurrent: idx == s.current}
	switch {
	case len(s.items) == 0:
		s.current = -1
	case idx < s.current:
		s.current--
	case idx == s.current && idx >= len(s.items):
		s.current = len(s.items) - 1
	}
	r.Current = s.current

	if it.Source != nil {
		it.Source.Release()
	}
	return r, nil
}

// CurrentIndex returns -1 when nothing is current.
func (s *Store) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) Current() (media.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.items) {
		return media.Item{}, false
	}
	return s.items[s.current], true
}

// AdvanceToNext moves to the next item, wrapping from the last to the first.
// It is a no-op on an empty store.
func (s *Store) AdvanceToNext() (media.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return media.Item{}, false
	}
	s.current = (s.current + 1) % len(s.items)
	return s.items[s.current], true
}

// SelectIndex makes item i current.
func (s *Store) SelectIndex(i int) (media.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return media.Item{}, fmt.Errorf("index %d of %d: %w", i, len(s.items), ErrIndexOutOfRange)
	}
	s.current = i
	return s.items[i], nil
}

// SelectID makes the item with id current and returns its index.
func (s *Store) SelectID(id string) (media.Item, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return media.Item{}, -1, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.current = idx
	return s.items[idx], idx, nil
}

// Get returns the item with id without changing the selection.
func (s *Store) Get(id string) (media.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.items[idx], true
	}
	return media.Item{}, false
}

// SetDuration records a resolved duration for id.
func (s *Store) SetDuration(id string, d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.items[idx].Duration = d
	return true
}

// Items returns a copy of the list.
func (s *Store) Items() []media.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.Item(nil), s.items...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close releases every remaining source. It is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.current = -1
	s.closed = true
	s.mu.Unlock()
	for _, it := range items {
		if it.Source != nil {
			it.Source.Release()
		}
	}
}
