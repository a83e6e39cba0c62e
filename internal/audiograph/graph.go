// Package audiograph owns the lifetime of the audio processing graph attached
// to the playing media element: one source node, a chain of peaking filters
// (one per equalizer band) and a long-lived master gain wired to the output.
//
// Structural changes (Attach, Detach, Teardown) rewire the graph; parametric
// changes (SetBandGain, SetMasterVolume) only touch live node values.
package audiograph

import (
	"context"
	"errors"
	"log"

	"github.com/edward-ap/miniplayer/internal/equalizer"
)

var (
	// ErrGraphUnavailable reports that no processing context could be created
	// or resumed, or that the element cannot be tapped. Playback continues on
	// the element's own channel without effects.
	ErrGraphUnavailable = errors.New("audio graph unavailable")
	// ErrInvalidBandIndex is the equalizer's sentinel, re-exported for callers
	// that only import this package.
	ErrInvalidBandIndex = equalizer.ErrInvalidBandIndex
)

// ContextState mirrors the lifecycle of a processing context.
type ContextState int

const (
	StateSuspended ContextState = iota
	StateRunning
	StateClosed
)

func (s ContextState) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// MediaElement is the non-owning view of a playing element the controller
// needs. Concrete contexts type-assert it to whatever tap they support.
type MediaElement interface {
	ID() string
}

// Node is a vertex of the processing graph. Disconnect and Release are
// idempotent: calling them on a node that is already disconnected or released
// is a no-op, though implementations may report a stale state as an error.
type Node interface {
	Connect(dst Node) error
	Disconnect() error
	Release()
}

// FilterNode is one equalizer stage.
type FilterNode interface {
	Node
	Band() equalizer.Band
	Gain() float64
	SetGain(db float64)
}

// GainNode scales its input by a linear level in [0,1].
type GainNode interface {
	Node
	Level() float64
	SetLevel(level float64)
}

// Context creates nodes and owns the output. Every call that touches live
// nodes must run inside Batch so the render side never observes a partially
// rewired chain.
type Context interface {
	State() ContextState
	Resume(ctx context.Context) error
	Close() error
	Destination() Node
	NewSource(el MediaElement) (Node, error)
	NewPeaking(band equalizer.Band, gainDB float64) (FilterNode, error)
	NewGain(level float64) (GainNode, error)
	Batch(fn func())
}

// ContextFactory lazily produces the process-wide context.
type ContextFactory func() (Context, error)

// PathCounter is implemented by contexts that can report how many inputs
// currently feed the destination.
type PathCounter interface {
	DestinationInputs() int
}

// Logger is a small logging interface used for non-fatal graph warnings.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Topology is a read-only description of the live graph.
type Topology struct {
	Attached         bool
	ElementID        string
	Sources          int
	Filters          int
	FilterGains      []float64
	MasterLevel      float64
	HasMaster        bool
	DestinationPaths int
	ContextState     ContextState
	HasContext       bool
}
