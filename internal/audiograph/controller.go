package audiograph

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/edward-ap/miniplayer/internal/equalizer"
)

// graph is the per-track node set. The master gain is not part of it: it
// outlives individual tracks.
type graph struct {
	element MediaElement
	source  Node
	filters []FilterNode
}

// Controller builds, updates and releases the processing graph. It is safe
// for concurrent use, but callers are expected to serialise structural calls
// the way an event loop would.
type Controller struct {
	mu sync.Mutex

	open   ContextFactory
	logger Logger

	bands  []equalizer.Band
	gains  equalizer.Gains
	volume float64

	ctx    Context
	master GainNode
	graph  *graph

	degraded bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger routes non-fatal warnings to l.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVolume sets the initial master volume (clamped).
func WithVolume(level float64) Option {
	return func(c *Controller) { c.volume = clampVolume(level) }
}

// WithGains seeds the gain vector; it is clamped and never resized.
func WithGains(g []float64) Option {
	return func(c *Controller) { c.gains.Assign(g) }
}

// NewController prepares a controller for the given bank. No context is
// created until the first Attach.
func NewController(open ContextFactory, bands []equalizer.Band, opts ...Option) *Controller {
	c := &Controller{
		open:   open,
		logger: stdLogger{},
		bands:  append([]equalizer.Band(nil), bands...),
		gains:  equalizer.NewGains(len(bands)),
		volume: 1,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// clampVolume maps NaN to silence.
func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BandCount reports the number of filter stages per graph.
func (c *Controller) BandCount() int { return len(c.bands) }

// Bands returns a copy of the bank the chain is built from.
func (c *Controller) Bands() []equalizer.Band {
	return append([]equalizer.Band(nil), c.bands...)
}

// Gains returns a copy of the current gain vector.
func (c *Controller) Gains() equalizer.Gains {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gains.Clone()
}

// MasterVolume returns the current master level.
func (c *Controller) MasterVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Degraded reports whether the last attach or resume failed, leaving the
// element on its raw output without effects.
func (c *Controller) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Available reports whether a live graph currently processes the element.
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph != nil && !c.degraded
}

// Attach detaches any previous graph and builds source → filters → master
// gain for el. On failure the controller is degraded and the returned error
// wraps ErrGraphUnavailable.
func (c *Controller) Attach(ctx context.Context, el MediaElement) error {
	if el == nil {
		return fmt.Errorf("attach nil element: %w", ErrGraphUnavailable)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked()

	if err := c.ensureContextLocked(); err != nil {
		c.degraded = true
		return err
	}

	var (
		g     *graph
		err   error
		level = c.volume
	)
	c.ctx.Batch(func() {
		g, err = c.buildLocked(el)
		if err == nil {
			c.master.SetLevel(level)
		}
	})
	if err != nil {
		c.degraded = true
		return fmt.Errorf("attach %s: %w", el.ID(), err)
	}
	c.graph = g
	c.degraded = false
	return nil
}

// ensureContextLocked creates the context and the master gain on first need.
func (c *Controller) ensureContextLocked() error {
	if c.ctx != nil && c.ctx.State() != StateClosed {
		return nil
	}
	c.ctx = nil
	c.master = nil
	if c.open == nil {
		return fmt.Errorf("no context factory: %w", ErrGraphUnavailable)
	}
	pc, err := c.open()
	if err != nil {
		return fmt.Errorf("create context: %v: %w", err, ErrGraphUnavailable)
	}
	if pc == nil {
		return fmt.Errorf("create context: %w", ErrGraphUnavailable)
	}
	var master GainNode
	pc.Batch(func() {
		master, err = pc.NewGain(c.volume)
		if err == nil {
			err = master.Connect(pc.Destination())
		}
	})
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("create master gain: %v: %w", err, ErrGraphUnavailable)
	}
	c.ctx = pc
	c.master = master
	return nil
}

// buildLocked runs inside Batch. Partially built node sets are released
// before returning an error.
func (c *Controller) buildLocked(el MediaElement) (*graph, error) {
	src, err := c.ctx.NewSource(el)
	if err != nil {
		return nil, fmt.Errorf("source: %v: %w", err, ErrGraphUnavailable)
	}
	g := &graph{element: el, source: src, filters: make([]FilterNode, 0, len(c.bands))}

	prev := src
	for i, band := range c.bands {
		f, err := c.ctx.NewPeaking(band, c.gains[i])
		if err != nil {
			c.releaseLocked(g)
			return nil, fmt.Errorf("filter %s: %v: %w", band.Label, err, ErrGraphUnavailable)
		}
		g.filters = append(g.filters, f)
		if err := prev.Connect(f); err != nil {
			c.releaseLocked(g)
			return nil, fmt.Errorf("connect %s: %v: %w", band.Label, err, ErrGraphUnavailable)
		}
		prev = f
	}
	if err := prev.Connect(c.master); err != nil {
		c.releaseLocked(g)
		return nil, fmt.Errorf("connect master: %v: %w", err, ErrGraphUnavailable)
	}
	return g, nil
}

// Detach disconnects and releases the source and every filter node. The
// master gain stays connected. Calling it without a graph is a no-op.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

func (c *Controller) detachLocked() {
	if c.graph == nil {
		return
	}
	g := c.graph
	c.graph = nil
	if c.ctx == nil {
		c.releaseLocked(g)
		return
	}
	c.ctx.Batch(func() { c.releaseLocked(g) })
}

// releaseLocked tolerates nodes left in an unknown connection state by an
// earlier partial failure.
func (c *Controller) releaseLocked(g *graph) {
	if g.source != nil {
		if err := g.source.Disconnect(); err != nil {
			c.logger.Printf("audiograph: disconnect source: %v", err)
		}
		g.source.Release()
	}
	for _, f := range g.filters {
		if err := f.Disconnect(); err != nil {
			c.logger.Printf("audiograph: disconnect filter %s: %v", f.Band().Label, err)
		}
		f.Release()
	}
	g.filters = nil
	g.source = nil
}

// SetBandGain stores a clamped gain for band i and updates the live filter in
// place. Without a graph only the stored value changes.
func (c *Controller) SetBandGain(i int, db float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.gains.Set(i, db)
	if err != nil {
		return err
	}
	if c.graph != nil && i < len(c.graph.filters) {
		f := c.graph.filters[i]
		c.ctx.Batch(func() { f.SetGain(v) })
	}
	return nil
}

// ApplyGains updates every band through the same path as SetBandGain.
func (c *Controller) ApplyGains(g []float64) {
	for i := 0; i < c.BandCount(); i++ {
		v := 0.0
		if i < len(g) {
			v = g[i]
		}
		_ = c.SetBandGain(i, v)
	}
}

// SetMasterVolume clamps level to [0,1], stores it and writes it to the live
// master gain. It returns the stored level.
func (c *Controller) SetMasterVolume(level float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampVolume(level)
	if c.master != nil && c.ctx != nil {
		m, v := c.master, c.volume
		c.ctx.Batch(func() { m.SetLevel(v) })
	}
	return c.volume
}

// Resume wakes a suspended context before playback. A failure detaches the
// graph so the element falls back to its raw output, marks the controller
// degraded and is returned for the caller to report as a warning.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	pc := c.ctx
	c.mu.Unlock()
	if pc == nil || pc.State() != StateSuspended {
		return nil
	}
	if err := pc.Resume(ctx); err != nil {
		c.mu.Lock()
		if c.ctx == pc {
			c.detachLocked()
			c.degraded = true
		}
		c.mu.Unlock()
		return fmt.Errorf("resume context: %v: %w", err, ErrGraphUnavailable)
	}
	return nil
}

// Teardown releases the master gain and closes the context. It is idempotent
// and safe when no context was ever created.
func (c *Controller) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
	if c.ctx == nil {
		return nil
	}
	pc, master := c.ctx, c.master
	c.ctx, c.master = nil, nil
	if master != nil {
		pc.Batch(func() {
			if err := master.Disconnect(); err != nil {
				c.logger.Printf("audiograph: disconnect master gain: %v", err)
			}
			master.Release()
		})
	}
	if pc.State() == StateClosed {
		return nil
	}
	if err := pc.Close(); err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	return nil
}

// Topology describes the live graph.
func (c *Controller) Topology() Topology {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Topology{MasterLevel: c.volume}
	if c.ctx != nil {
		t.HasContext = true
		t.ContextState = c.ctx.State()
		if pc, ok := c.ctx.(PathCounter); ok {
			c.ctx.Batch(func() { t.DestinationPaths = pc.DestinationInputs() })
		}
	}
	if c.master != nil {
		t.HasMaster = true
		t.MasterLevel = c.master.Level()
	}
	if c.graph != nil {
		t.Attached = true
		t.ElementID = c.graph.element.ID()
		t.Sources = 1
		t.Filters = len(c.graph.filters)
		t.FilterGains = make([]float64, len(c.graph.filters))
		for i, f := range c.graph.filters {
			t.FilterGains[i] = f.Gain()
		}
	}
	return t
}
