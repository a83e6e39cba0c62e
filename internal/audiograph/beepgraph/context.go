// Package beepgraph implements audiograph.Context on top of gopxl/beep. Every
// node is a beep.Streamer pulling from its inputs; the destination is played
// on an audioout.Output once the context is resumed.
package beepgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/audioout"
	"github.com/edward-ap/miniplayer/internal/equalizer"
)

var (
	errClosed      = errors.New("context closed")
	errNotTappable = errors.New("element does not expose its sample stream")
	errForeignNode = errors.New("node belongs to another context")
)

// Tappable is implemented by elements whose samples can be rerouted into the
// graph. While tapped, the element's own output channel is silent.
type Tappable interface {
	Tap() beep.Streamer
	Untap()
}

// Context is a beep-backed processing context. It starts suspended; the
// first Resume opens the output and starts rendering the destination.
type Context struct {
	mu       sync.Mutex
	resumeMu sync.Mutex
	out      audioout.Output
	state    audiograph.ContextState
	started  bool
	dest     *destination
}

var _ audiograph.Context = (*Context)(nil)
var _ audiograph.PathCounter = (*Context)(nil)

// New returns a suspended context rendering to out.
func New(out audioout.Output) *Context {
	c := &Context{out: out, state: audiograph.StateSuspended}
	c.dest = &destination{node: node{ctx: c}}
	return c
}

// Factory adapts New to audiograph.ContextFactory.
func Factory(out audioout.Output) audiograph.ContextFactory {
	return func() (audiograph.Context, error) {
		if out == nil {
			return nil, errors.New("no audio output")
		}
		return New(out), nil
	}
}

// SampleRate is the rate every node runs at.
func (c *Context) SampleRate() beep.SampleRate { return c.out.SampleRate() }

func (c *Context) State() audiograph.ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume opens the output on first use and starts streaming the destination.
// The state lock is not held while talking to the output: Batch takes the
// output lock first and node constructors read the state.
func (c *Context) Resume(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	c.resumeMu.Lock()
	defer c.resumeMu.Unlock()

	c.mu.Lock()
	state, started := c.state, c.started
	c.mu.Unlock()
	switch state {
	case audiograph.StateClosed:
		return errClosed
	case audiograph.StateRunning:
		return nil
	}
	if err := c.out.Start(); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	if !started {
		c.out.Play(c.dest)
	} else if err := c.out.Resume(); err != nil {
		return fmt.Errorf("resume output: %w", err)
	}

	c.mu.Lock()
	c.started = true
	if c.state != audiograph.StateClosed {
		c.state = audiograph.StateRunning
	}
	c.mu.Unlock()
	return nil
}

// Suspend stops rendering without tearing down nodes.
func (c *Context) Suspend() error {
	c.resumeMu.Lock()
	defer c.resumeMu.Unlock()
	if c.State() != audiograph.StateRunning {
		return nil
	}
	if err := c.out.Suspend(); err != nil {
		return fmt.Errorf("suspend output: %w", err)
	}
	c.mu.Lock()
	c.state = audiograph.StateSuspended
	c.mu.Unlock()
	return nil
}

// Close drains the destination so the output drops it. The output itself is
// shared and stays open.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == audiograph.StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = audiograph.StateClosed
	c.mu.Unlock()

	c.out.Lock()
	c.dest.closed = true
	c.dest.inputs = nil
	c.out.Unlock()
	return nil
}

func (c *Context) Destination() audiograph.Node { return c.dest }

func (c *Context) Batch(fn func()) {
	c.out.Lock()
	defer c.out.Unlock()
	fn()
}

// NewSource taps el. It fails when el cannot hand over its samples.
func (c *Context) NewSource(el audiograph.MediaElement) (audiograph.Node, error) {
	if c.State() == audiograph.StateClosed {
		return nil, errClosed
	}
	t, ok := el.(Tappable)
	if !ok {
		return nil, fmt.Errorf("%s: %w", el.ID(), errNotTappable)
	}
	return &source{node: node{ctx: c}, el: t, stream: t.Tap()}, nil
}

func (c *Context) NewPeaking(band equalizer.Band, gainDB float64) (audiograph.FilterNode, error) {
	if c.State() == audiograph.StateClosed {
		return nil, errClosed
	}
	return newPeaking(c, band, gainDB), nil
}

func (c *Context) NewGain(level float64) (audiograph.GainNode, error) {
	if c.State() == audiograph.StateClosed {
		return nil, errClosed
	}
	return newGain(c, level), nil
}

// DestinationInputs counts the source nodes whose chain currently reaches
// the destination. Call it inside Batch.
func (c *Context) DestinationInputs() int {
	return c.dest.countSources()
}
