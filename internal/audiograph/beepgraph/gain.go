package beepgraph

import (
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/edward-ap/miniplayer/internal/audiograph"
)

// gain scales its summed inputs with beep's volume effect. The linear level
// is mapped to a base-2 exponent; 0 is rendered as silence.
type gain struct {
	node
	level  float64
	volume *effects.Volume
}

func newGain(c *Context, level float64) *gain {
	g := &gain{node: node{ctx: c}}
	g.volume = &effects.Volume{Streamer: beep.StreamerFunc(g.streamInputs), Base: 2}
	g.SetLevel(level)
	return g
}

func (g *gain) streamInputs(samples [][2]float64) (int, bool) {
	g.pull(samples)
	return len(samples), true
}

func (g *gain) Level() float64 { return g.level }

func (g *gain) SetLevel(level float64) {
	switch {
	case level < 0:
		level = 0
	case level > 1:
		level = 1
	}
	g.level = level
	g.volume.Silent = level == 0
	if level > 0 {
		g.volume.Volume = math.Log2(level)
	} else {
		g.volume.Volume = 0
	}
}

func (g *gain) Connect(dst audiograph.Node) error { return connect(g, dst) }
func (g *gain) Disconnect() error                 { return disconnect(g) }

func (g *gain) Release() {
	if g.released {
		return
	}
	_ = disconnect(g)
	g.inputs = nil
	g.released = true
}

func (g *gain) Stream(samples [][2]float64) (int, bool) {
	n, _ := g.volume.Stream(samples)
	clear(samples[n:])
	return len(samples), true
}
