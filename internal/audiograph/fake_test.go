package audiograph

import (
	"context"
	"errors"
	"sync"

	"github.com/edward-ap/miniplayer/internal/equalizer"
)

type fakeElement struct {
	id       string
	tappable bool
}

func (e fakeElement) ID() string { return e.id }

type fakeNode struct {
	ctx      *fakeContext
	name     string
	out      *fakeNode
	released bool
	gain     float64
	level    float64
	band     equalizer.Band
}

func (n *fakeNode) Connect(dst Node) error {
	d, ok := dst.(*fakeNode)
	if !ok {
		return errors.New("foreign node")
	}
	if n.released {
		return errors.New("released")
	}
	if n.ctx.failConnect == n.name {
		return errors.New("connect refused")
	}
	n.out = d
	return nil
}

func (n *fakeNode) Disconnect() error {
	if n.out == nil {
		return errors.New("not connected")
	}
	n.out = nil
	return nil
}

func (n *fakeNode) Release() {
	n.out = nil
	n.released = true
}

func (n *fakeNode) Band() equalizer.Band { return n.band }
func (n *fakeNode) Gain() float64        { return n.gain }
func (n *fakeNode) SetGain(db float64)   { n.gain = db }
func (n *fakeNode) Level() float64       { return n.level }
func (n *fakeNode) SetLevel(v float64)   { n.level = v }

type fakeContext struct {
	mu          sync.Mutex
	state       ContextState
	dest        *fakeNode
	nodes       []*fakeNode
	resumeErr   error
	failConnect string
	batches     int
	closed      int
}

func newFakeContext() *fakeContext {
	c := &fakeContext{state: StateSuspended}
	c.dest = &fakeNode{ctx: c, name: "destination"}
	return c
}

func (c *fakeContext) State() ContextState { return c.state }

func (c *fakeContext) Resume(context.Context) error {
	if c.resumeErr != nil {
		return c.resumeErr
	}
	c.state = StateRunning
	return nil
}

func (c *fakeContext) Close() error {
	c.closed++
	c.state = StateClosed
	return nil
}

func (c *fakeContext) Destination() Node { return c.dest }

func (c *fakeContext) add(name string) *fakeNode {
	n := &fakeNode{ctx: c, name: name}
	c.nodes = append(c.nodes, n)
	return n
}

func (c *fakeContext) NewSource(el MediaElement) (Node, error) {
	if fe, ok := el.(fakeElement); ok && !fe.tappable {
		return nil, errors.New("element cannot be tapped")
	}
	return c.add("source:" + el.ID()), nil
}

func (c *fakeContext) NewPeaking(band equalizer.Band, gainDB float64) (FilterNode, error) {
	n := c.add("peaking:" + band.Label)
	n.band = band
	n.gain = gainDB
	return n, nil
}

func (c *fakeContext) NewGain(level float64) (GainNode, error) {
	n := c.add("gain")
	n.level = level
	return n, nil
}

func (c *fakeContext) Batch(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	fn()
}

// DestinationInputs counts live source nodes whose chain reaches the
// destination.
func (c *fakeContext) DestinationInputs() int {
	paths := 0
	for _, n := range c.nodes {
		if n.released || len(n.name) < 7 || n.name[:7] != "source:" {
			continue
		}
		cur := n
		for steps := 0; cur != nil && steps < 64; steps++ {
			if cur == c.dest {
				paths++
				break
			}
			cur = cur.out
		}
	}
	return paths
}

func (c *fakeContext) live(prefix string) int {
	count := 0
	for _, n := range c.nodes {
		if !n.released && len(n.name) >= len(prefix) && n.name[:len(prefix)] == prefix {
			count++
		}
	}
	return count
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, format)
}
