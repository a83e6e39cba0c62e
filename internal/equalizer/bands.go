// Package equalizer describes the fixed equalizer bank, the per-band gain
// vector and the bundled presets. Nothing here touches live audio nodes; the
// audiograph package builds its filter chain from these values.
package equalizer

import (
	"errors"
	"fmt"
	"math"
)

// FilterKind names the biquad shape of a band.
type FilterKind int

const (
	// Peaking boosts or cuts energy around the center frequency.
	Peaking FilterKind = iota
)

func (k FilterKind) String() string {
	switch k {
	case Peaking:
		return "peaking"
	}
	return fmt.Sprintf("FilterKind(%d)", int(k))
}

const (
	// MinGainDB and MaxGainDB bound every band gain.
	MinGainDB = -12.0
	MaxGainDB = 12.0
	// DefaultQ matches the quality factor browsers give a fresh biquad.
	DefaultQ = 1.0
)

// ErrInvalidBandIndex is returned for a band index outside the bank.
var ErrInvalidBandIndex = errors.New("invalid band index")

// Band is one immutable filter stage of the bank.
type Band struct {
	Kind     FilterKind
	CenterHz float64
	Label    string
	Q        float64
}

// defaultBands is ordered low to high; that order is the signal-chain order.
var defaultBands = []Band{
	{Kind: Peaking, CenterHz: 60, Label: "60Hz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 170, Label: "170Hz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 310, Label: "310Hz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 600, Label: "600Hz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 1000, Label: "1kHz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 3000, Label: "3kHz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 6000, Label: "6kHz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 12000, Label: "12kHz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 14000, Label: "14kHz", Q: DefaultQ},
	{Kind: Peaking, CenterHz: 16000, Label: "16kHz", Q: DefaultQ},
}

// BandCount is the size of the default bank.
var BandCount = len(defaultBands)

// DefaultBands returns a copy of the bundled bank so callers cannot mutate it.
func DefaultBands() []Band {
	out := make([]Band, len(defaultBands))
	copy(out, defaultBands)
	return out
}

// BandsWithQ returns the default bank with every band's Q replaced. Values
// that are not positive keep DefaultQ.
func BandsWithQ(q float64) []Band {
	out := DefaultBands()
	if q <= 0 {
		return out
	}
	for i := range out {
		out[i].Q = q
	}
	return out
}

// HzLabel formats a frequency the way the band labels are written.
func HzLabel(f float64) string {
	if f >= 995 {
		k := math.Round(f/100) / 10
		if k == math.Trunc(k) {
			return fmt.Sprintf("%dkHz", int(k))
		}
		return fmt.Sprintf("%.1fkHz", k)
	}
	return fmt.Sprintf("%dHz", int(f+0.5))
}
