// Package visual maps the five video sliders to an ordered list of cosmetic
// transforms. Map is pure; renderers turn the result into a CSS filter string
// or libVLC media options.
package visual

import (
	"strconv"
	"strings"
)

// Kind identifies one transform function.
type Kind int

const (
	Brightness Kind = iota
	Contrast
	Saturate
	HueRotate
	Blur
)

// Order is the fixed composition order.
var Order = [...]Kind{Brightness, Contrast, Saturate, HueRotate, Blur}

func (k Kind) String() string {
	switch k {
	case Brightness:
		return "brightness"
	case Contrast:
		return "contrast"
	case Saturate:
		return "saturate"
	case HueRotate:
		return "hue-rotate"
	case Blur:
		return "blur"
	}
	return "unknown"
}

// Range describes a slider.
type Range struct {
	Min, Max, Step, Default float64
	Unit                    string
}

var ranges = [...]Range{
	Brightness: {Min: 50, Max: 150, Step: 1, Default: 100, Unit: "%"},
	Contrast:   {Min: 50, Max: 150, Step: 1, Default: 100, Unit: "%"},
	Saturate:   {Min: 0, Max: 200, Step: 1, Default: 100, Unit: "%"},
	HueRotate:  {Min: -180, Max: 180, Step: 1, Default: 0, Unit: "deg"},
	Blur:       {Min: 0, Max: 10, Step: 0.1, Default: 0, Unit: "px"},
}

// RangeOf returns the slider range for k.
func RangeOf(k Kind) Range {
	if k < 0 || int(k) >= len(ranges) {
		return Range{}
	}
	return ranges[k]
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Settings holds raw slider values.
type Settings struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Hue        float64
	Blur       float64
}

// Defaults is the neutral setting.
func Defaults() Settings {
	return Settings{Brightness: 100, Contrast: 100, Saturation: 100}
}

// Value returns the raw slider value for k.
func (s Settings) Value(k Kind) float64 {
	switch k {
	case Brightness:
		return s.Brightness
	case Contrast:
		return s.Contrast
	case Saturate:
		return s.Saturation
	case HueRotate:
		return s.Hue
	case Blur:
		return s.Blur
	}
	return 0
}

// With returns a copy of s with slider k set to v.
func (s Settings) With(k Kind, v float64) Settings {
	switch k {
	case Brightness:
		s.Brightness = v
	case Contrast:
		s.Contrast = v
	case Saturate:
		s.Saturation = v
	case HueRotate:
		s.Hue = v
	case Blur:
		s.Blur = v
	}
	return s
}

// Transform is one function of the descriptor.
type Transform struct {
	Kind  Kind
	Value float64
	Unit  string
}

func (t Transform) String() string {
	return t.Kind.String() + "(" + formatFloat(t.Value) + t.Unit + ")"
}

// Descriptor is the ordered transform list.
type Descriptor struct {
	Transforms [len(Order)]Transform
}

// Map clamps every slider to its range and lays the transforms out in Order.
func Map(s Settings) Descriptor {
	var d Descriptor
	for i, k := range Order {
		r := ranges[k]
		d.Transforms[i] = Transform{Kind: k, Value: r.clamp(s.Value(k)), Unit: r.Unit}
	}
	return d
}

// Settings returns the clamped slider values d was built from.
func (d Descriptor) Settings() Settings {
	var s Settings
	for _, t := range d.Transforms {
		s = s.With(t.Kind, t.Value)
	}
	return s
}

// IsIdentity reports whether every transform is at its neutral value.
func (d Descriptor) IsIdentity() bool {
	for _, t := range d.Transforms {
		if t.Value != ranges[t.Kind].Default {
			return false
		}
	}
	return true
}

// CSS renders the descriptor as a CSS filter value.
func (d Descriptor) CSS() string {
	parts := make([]string, len(d.Transforms))
	for i, t := range d.Transforms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// VLCOptions renders the descriptor as libVLC media options using the adjust
// and gaussianblur video filters. A neutral descriptor yields no options.
func (d Descriptor) VLCOptions() []string {
	if d.IsIdentity() {
		return nil
	}
	s := d.Settings()
	filters := "adjust"
	if s.Blur > 0 {
		filters += ":gaussianblur"
	}
	opts := []string{
		":video-filter=" + filters,
		":brightness=" + formatFloat(s.Brightness/100),
		":contrast=" + formatFloat(s.Contrast/100),
		":saturation=" + formatFloat(s.Saturation/100),
		":hue=" + formatFloat(s.Hue),
	}
	if s.Blur > 0 {
		opts = append(opts, ":gaussianblur-sigma="+formatFloat(s.Blur))
	}
	return opts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
