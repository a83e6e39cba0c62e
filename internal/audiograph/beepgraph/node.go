package beepgraph

import (
	"github.com/gopxl/beep/v2"

	"github.com/edward-ap/miniplayer/internal/audiograph"
)

// streamNode is the render-side view of every node in this package.
type streamNode interface {
	audiograph.Node
	beep.Streamer
	base() *node
	countSources() int
}

// node holds connection state. Every field is guarded by the output lock.
type node struct {
	ctx      *Context
	inputs   []streamNode
	out      streamNode
	released bool
	scratch  [][2]float64
}

func (n *node) base() *node { return n }

func connect(self streamNode, dst audiograph.Node) error {
	d, ok := dst.(streamNode)
	if !ok || d.base().ctx != self.base().ctx {
		return errForeignNode
	}
	b := self.base()
	if b.released || d.base().released {
		return errClosed
	}
	if b.out == d {
		return nil
	}
	if b.out != nil {
		b.out.base().removeInput(self)
	}
	b.out = d
	d.base().inputs = append(d.base().inputs, self)
	return nil
}

func disconnect(self streamNode) error {
	b := self.base()
	if b.out == nil {
		return nil
	}
	b.out.base().removeInput(self)
	b.out = nil
	return nil
}

func (n *node) removeInput(in streamNode) {
	for i, cur := range n.inputs {
		if cur == in {
			n.inputs = append(n.inputs[:i], n.inputs[i+1:]...)
			return
		}
	}
}

// pull sums every input into samples. Frames an input does not produce are
// silent.
func (n *node) pull(samples [][2]float64) {
	clear(samples)
	switch len(n.inputs) {
	case 0:
		return
	case 1:
		got, _ := n.inputs[0].Stream(samples)
		clear(samples[got:])
		return
	}
	if cap(n.scratch) < len(samples) {
		n.scratch = make([][2]float64, len(samples))
	}
	buf := n.scratch[:len(samples)]
	for _, in := range n.inputs {
		got, _ := in.Stream(buf)
		for i := 0; i < got; i++ {
			samples[i][0] += buf[i][0]
			samples[i][1] += buf[i][1]
		}
	}
}

func (n *node) countSources() int {
	total := 0
	for _, in := range n.inputs {
		total += in.countSources()
	}
	return total
}

func (n *node) Err() error { return nil }

// destination sums its inputs and never drains until the context closes.
type destination struct {
	node
	closed bool
}

func (d *destination) Connect(audiograph.Node) error { return errForeignNode }
func (d *destination) Disconnect() error             { return nil }
func (d *destination) Release()                      {}

func (d *destination) Stream(samples [][2]float64) (int, bool) {
	if d.closed {
		return 0, false
	}
	d.pull(samples)
	return len(samples), true
}

// source reroutes a Tappable element into the graph.
type source struct {
	node
	el     Tappable
	stream beep.Streamer
}

func (s *source) Connect(dst audiograph.Node) error { return connect(s, dst) }
func (s *source) Disconnect() error                 { return disconnect(s) }

// Release hands the element back to its own output channel.
func (s *source) Release() {
	if s.released {
		return
	}
	_ = disconnect(s)
	s.released = true
	s.el.Untap()
	s.stream = nil
}

func (s *source) Stream(samples [][2]float64) (int, bool) {
	if s.released || s.stream == nil {
		clear(samples)
		return len(samples), true
	}
	got, _ := s.stream.Stream(samples)
	clear(samples[got:])
	return len(samples), true
}

func (s *source) countSources() int {
	if s.released {
		return 0
	}
	return 1
}
