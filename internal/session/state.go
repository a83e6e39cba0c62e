// Package session drives one track at a time through its playback states and
// exposes the operations the view layer calls.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/edward-ap/miniplayer/internal/media"
)

// State of the current track.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrStaleLoad marks an element event from a superseded load. It is
	// logged and never surfaced.
	ErrStaleLoad = errors.New("stale load discarded")
	// ErrNoItem is returned by operations that need a current item.
	ErrNoItem = errors.New("no current item")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("player closed")
)

// transitions lists the legal next states. Selecting an item moves any state
// to Loading and removing the last item moves any state to Empty.
var transitions = map[State][]State{
	Empty:   {Loading, Empty},
	Loading: {Loading, Ready, Ended, Empty},
	Ready:   {Playing, Loading, Ended, Empty},
	Playing: {Paused, Ended, Loading, Empty},
	Paused:  {Playing, Ended, Loading, Empty},
	Ended:   {Loading, Empty},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// track is the per-item session. It is replaced wholesale on every load.
type track struct {
	gen      uint64
	item     media.Item
	state    State
	position time.Duration
	duration time.Duration
	err      error
	autoplay bool
	element  media.Element
}
