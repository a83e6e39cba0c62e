package equalizer

import (
	"fmt"
	"math"
)

// Gains holds one dB value per band, index-aligned with the bank. Its length
// is fixed at construction.
type Gains []float64

// NewGains returns a flat vector for n bands.
func NewGains(n int) Gains {
	return make(Gains, n)
}

// ClampGain constrains db to [MinGainDB, MaxGainDB]. NaN becomes flat.
func ClampGain(db float64) float64 {
	if math.IsNaN(db) {
		return 0
	}
	if db < MinGainDB {
		return MinGainDB
	}
	if db > MaxGainDB {
		return MaxGainDB
	}
	return db
}

// Set stores a clamped gain at index i and returns the stored value.
func (g Gains) Set(i int, db float64) (float64, error) {
	if i < 0 || i >= len(g) {
		return 0, fmt.Errorf("band %d of %d: %w", i, len(g), ErrInvalidBandIndex)
	}
	v := ClampGain(db)
	g[i] = v
	return v, nil
}

// Clone performs a deep copy.
func (g Gains) Clone() Gains {
	out := make(Gains, len(g))
	copy(out, g)
	return out
}

// Assign copies src into g without resizing; missing entries become 0 dB and
// extra entries are ignored.
func (g Gains) Assign(src []float64) {
	for i := range g {
		v := 0.0
		if i < len(src) {
			v = ClampGain(src[i])
		}
		g[i] = v
	}
}

// IsFlat reports whether every band sits at 0 dB.
func (g Gains) IsFlat() bool {
	for _, v := range g {
		if v != 0 {
			return false
		}
	}
	return true
}
