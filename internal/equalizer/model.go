package equalizer

import "strings"

// PresetManual is reported when the gains no longer match any preset.
const PresetManual = "Manual"

// Preset is a named gain curve, ordered from low to high frequency.
type Preset struct {
	Name  string
	Gains []float64
}

// The curves are simple well-known shapes: flat, bass, treble and vocal tilt.
var defaultPresets = []Preset{
	{
		Name:  "Flat",
		Gains: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	},
	{
		Name:  "Bass Boost",
		Gains: []float64{6, 5, 4, 2, 1, 0, -1, -2, -3, -4},
	},
	{
		Name:  "Treble Boost",
		Gains: []float64{-4, -3, -2, -1, 0, 1, 3, 4, 5, 6},
	},
	{
		Name:  "Vocal Boost",
		Gains: []float64{-3, -2, 1, 3, 4, 3, 1, -1, -2, -3},
	},
}

// DefaultPresets returns a deep copy of the bundled presets.
func DefaultPresets() []Preset {
	out := make([]Preset, len(defaultPresets))
	for i, p := range defaultPresets {
		out[i] = clonePreset(p)
	}
	return out
}

// PresetNames lists the bundled presets in display order.
func PresetNames() []string {
	names := make([]string, 0, len(defaultPresets))
	for _, p := range defaultPresets {
		names = append(names, p.Name)
	}
	return names
}

// FindPreset performs a case-insensitive lookup across the bundled presets.
func FindPreset(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range defaultPresets {
		if strings.EqualFold(p.Name, name) {
			return clonePreset(p), true
		}
	}
	return Preset{}, false
}

// MatchPreset returns the name of the preset equal to g, or PresetManual.
func MatchPreset(g Gains) string {
	for _, p := range defaultPresets {
		if len(p.Gains) != len(g) {
			continue
		}
		same := true
		for i := range g {
			if g[i] != p.Gains[i] {
				same = false
				break
			}
		}
		if same {
			return p.Name
		}
	}
	return PresetManual
}

func clonePreset(p Preset) Preset {
	clone := Preset{
		Name:  p.Name,
		Gains: make([]float64, len(p.Gains)),
	}
	copy(clone.Gains, p.Gains)
	return clone
}
