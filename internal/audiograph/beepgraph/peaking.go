package beepgraph

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/equalizer"
)

// peaking is one equalizer stage: a biquad section per stereo channel.
type peaking struct {
	node
	band    equalizer.Band
	gain    float64
	coeffs  biquad.Coefficients
	channel [2]*biquad.Section
}

func newPeaking(c *Context, band equalizer.Band, gainDB float64) *peaking {
	p := &peaking{node: node{ctx: c}, band: band}
	p.channel[0] = biquad.NewSection(biquad.Coefficients{B0: 1})
	p.channel[1] = biquad.NewSection(biquad.Coefficients{B0: 1})
	p.SetGain(gainDB)
	return p
}

// PeakCoefficients designs the section for band at gainDB. Bands at or above
// Nyquist pass through unchanged.
func PeakCoefficients(band equalizer.Band, gainDB, sampleRate float64) biquad.Coefficients {
	q := band.Q
	if q <= 0 {
		q = equalizer.DefaultQ
	}
	c := design.Peak(band.CenterHz, equalizer.ClampGain(gainDB), q, sampleRate)
	if c == (biquad.Coefficients{}) {
		return biquad.Coefficients{B0: 1}
	}
	return c
}

func (p *peaking) Band() equalizer.Band { return p.band }
func (p *peaking) Gain() float64        { return p.gain }

// SetGain recomputes the coefficients in place. The delay state is kept so
// the change does not click.
func (p *peaking) SetGain(db float64) {
	p.gain = equalizer.ClampGain(db)
	p.coeffs = PeakCoefficients(p.band, p.gain, float64(p.ctx.SampleRate()))
	for _, s := range p.channel {
		s.Coefficients = p.coeffs
	}
}

func (p *peaking) Connect(dst audiograph.Node) error { return connect(p, dst) }
func (p *peaking) Disconnect() error                 { return disconnect(p) }

func (p *peaking) Release() {
	if p.released {
		return
	}
	_ = disconnect(p)
	p.inputs = nil
	p.released = true
	for _, s := range p.channel {
		s.Reset()
	}
}

func (p *peaking) Stream(samples [][2]float64) (int, bool) {
	p.pull(samples)
	if p.released {
		return len(samples), true
	}
	l, r := p.channel[0], p.channel[1]
	for i := range samples {
		samples[i][0] = l.ProcessSample(samples[i][0])
		samples[i][1] = r.ProcessSample(samples[i][1])
	}
	return len(samples), true
}
