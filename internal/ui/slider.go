package ui

import (
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// normalizeSliderValue clamps value to [min, max] and snaps it to the step
// grid anchored at min.
func normalizeSliderValue(min, max, step, value float64) float64 {
	if max <= min {
		return min
	}
	v := clampFloat64(value, min, max)
	if step > 0 {
		n := math.Round((v - min) / step)
		v = clampFloat64(min+n*step, min, max)
	}
	return v
}

// sliderCore holds the state shared by the horizontal and vertical sliders.
type sliderCore struct {
	Min   float64
	Max   float64
	Step  float64
	Value float64

	// OnChanged fires for every value change, including drags.
	OnChanged func(float64)
	// OnChangeEnded fires once when a drag or tap settles.
	OnChangeEnded func(float64)

	dragging bool
	disabled bool
}

// set stores v and reports whether it changed.
func (c *sliderCore) set(v float64) bool {
	if c.Max <= c.Min {
		return false
	}
	v = normalizeSliderValue(c.Min, c.Max, c.Step, v)
	if v == c.Value {
		return false
	}
	c.Value = v
	return true
}

func (c *sliderCore) fromFraction(frac float64) float64 {
	return c.Min + clampFloat64(frac, 0, 1)*(c.Max-c.Min)
}

// MiniThumbSlider is a horizontal slider with a thumb drawn at half the
// usual size. It serves seek, volume and visual effect controls.
type MiniThumbSlider struct {
	widget.BaseWidget
	sliderCore
}

// NewMiniThumbSlider creates a horizontal slider constrained to [min, max].
func NewMiniThumbSlider(min, max, step float64) *MiniThumbSlider {
	s := &MiniThumbSlider{sliderCore: sliderCore{Min: min, Max: max, Step: step, Value: min}}
	s.ExtendBaseWidget(s)
	return s
}

func (s *MiniThumbSlider) CreateRenderer() fyne.WidgetRenderer {
	return newBarRenderer(s, &s.sliderCore, false)
}

// SetValue sets the slider value and fires OnChanged when it moved.
func (s *MiniThumbSlider) SetValue(v float64) {
	if !s.set(v) {
		return
	}
	s.Refresh()
	if s.OnChanged != nil {
		s.OnChanged(s.Value)
	}
}

// Update moves the thumb without firing callbacks. Updates are ignored while
// the user drags, so playback position reports do not fight the pointer.
func (s *MiniThumbSlider) Update(v float64) {
	if s.dragging {
		return
	}
	if s.set(v) {
		s.Refresh()
	}
}

// SetRange changes the bounds, keeping the value inside them.
func (s *MiniThumbSlider) SetRange(min, max float64) {
	s.Min, s.Max = min, max
	s.Value = normalizeSliderValue(min, max, s.Step, s.Value)
	s.Refresh()
}

// Dragging reports whether a drag is in progress.
func (s *MiniThumbSlider) Dragging() bool { return s.dragging }

func (s *MiniThumbSlider) Dragged(e *fyne.DragEvent) {
	s.dragging = true
	if w := s.Size().Width; w > 0 {
		s.SetValue(s.fromFraction(float64(e.Position.X / w)))
	}
}

func (s *MiniThumbSlider) DragEnd() {
	s.dragging = false
	if s.OnChangeEnded != nil {
		s.OnChangeEnded(s.Value)
	}
}

// Tapped moves the thumb to the tapped position.
func (s *MiniThumbSlider) Tapped(e *fyne.PointEvent) {
	if w := s.Size().Width; w > 0 {
		s.SetValue(s.fromFraction(float64(e.Position.X / w)))
	}
	if s.OnChangeEnded != nil {
		s.OnChangeEnded(s.Value)
	}
}

// Scrolled nudges the value by one step per wheel notch.
func (s *MiniThumbSlider) Scrolled(ev *fyne.ScrollEvent) {
	if ev == nil {
		return
	}
	step := s.Step
	if step <= 0 {
		step = (s.Max - s.Min) / 100
	}
	switch {
	case ev.Scrolled.DY > 0:
		s.SetValue(s.Value + step)
	case ev.Scrolled.DY < 0:
		s.SetValue(s.Value - step)
	default:
		return
	}
	if s.OnChangeEnded != nil {
		s.OnChangeEnded(s.Value)
	}
}

func (s *MiniThumbSlider) MinSize() fyne.Size {
	return fyne.NewSize(100, theme.IconInlineSize())
}

// VerticalSlider is a compact vertical slider used for equalizer bands.
type VerticalSlider struct {
	widget.BaseWidget
	sliderCore
}

// NewVerticalSlider creates a vertical slider; top is max.
func NewVerticalSlider(min, max, step float64) *VerticalSlider {
	s := &VerticalSlider{sliderCore: sliderCore{Min: min, Max: max, Step: step}}
	s.Value = normalizeSliderValue(min, max, step, 0)
	s.ExtendBaseWidget(s)
	return s
}

func (s *VerticalSlider) CreateRenderer() fyne.WidgetRenderer {
	return newBarRenderer(s, &s.sliderCore, true)
}

func (s *VerticalSlider) SetValue(v float64) {
	if !s.set(v) {
		return
	}
	s.Refresh()
	if s.OnChanged != nil {
		s.OnChanged(s.Value)
	}
}

// Update moves the thumb without firing callbacks, e.g. after a preset.
func (s *VerticalSlider) Update(v float64) {
	if !s.dragging && s.set(v) {
		s.Refresh()
	}
}

// Disable ignores input and dims the bar until Enable.
func (s *VerticalSlider) Disable() {
	if s.disabled {
		return
	}
	s.disabled = true
	s.dragging = false
	s.Refresh()
}

func (s *VerticalSlider) Enable() {
	if !s.disabled {
		return
	}
	s.disabled = false
	s.Refresh()
}

func (s *VerticalSlider) Disabled() bool { return s.disabled }

// Dragged updates value based on Y position (top=max, bottom=min).
func (s *VerticalSlider) Dragged(e *fyne.DragEvent) {
	if s.disabled {
		return
	}
	s.dragging = true
	if h := s.Size().Height; h > 0 {
		s.SetValue(s.fromFraction(1 - float64(e.Position.Y/h)))
	}
}

func (s *VerticalSlider) DragEnd() {
	if s.disabled {
		return
	}
	s.dragging = false
	if s.OnChangeEnded != nil {
		s.OnChangeEnded(s.Value)
	}
}

func (s *VerticalSlider) Tapped(e *fyne.PointEvent) {
	if s.disabled {
		return
	}
	if h := s.Size().Height; h > 0 {
		s.SetValue(s.fromFraction(1 - float64(e.Position.Y/h)))
	}
}

// DoubleTapped recentres the band.
func (s *VerticalSlider) DoubleTapped(*fyne.PointEvent) {
	if s.disabled {
		return
	}
	s.SetValue(normalizeSliderValue(s.Min, s.Max, s.Step, 0))
}

func (s *VerticalSlider) MinSize() fyne.Size {
	w := theme.IconInlineSize()
	if w < 20 {
		w = 20
	}
	return fyne.NewSize(w, 160)
}

// barRenderer draws a track, a fill from the low end and a small thumb.
// Vertical bars fill from the bottom; horizontal bars from the left.
type barRenderer struct {
	w        fyne.Widget
	c        *sliderCore
	vertical bool
	track    *canvas.Rectangle
	fill     *canvas.Rectangle
	thumb    *canvas.Circle
	objs     []fyne.CanvasObject
}

func newBarRenderer(w fyne.Widget, c *sliderCore, vertical bool) *barRenderer {
	r := &barRenderer{
		w:        w,
		c:        c,
		vertical: vertical,
		track:    canvas.NewRectangle(theme.ShadowColor()),
		fill:     canvas.NewRectangle(theme.PrimaryColor()),
		thumb:    canvas.NewCircle(theme.ForegroundColor()),
	}
	r.objs = []fyne.CanvasObject{r.track, r.fill, r.thumb}
	return r
}

func (r *barRenderer) Layout(sz fyne.Size) {
	const thickness = float32(4)
	frac := fraction(r.c.Value, r.c.Min, r.c.Max)
	thumbR := theme.IconInlineSize() / 4

	if r.vertical {
		x := (sz.Width - thickness) / 2
		r.track.Move(fyne.NewPos(x, 0))
		r.track.Resize(fyne.NewSize(thickness, sz.Height))
		fillH := sz.Height * frac
		r.fill.Move(fyne.NewPos(x, sz.Height-fillH))
		r.fill.Resize(fyne.NewSize(thickness, fillH))
		cy := clampThumb(sz.Height-fillH, thumbR, sz.Height)
		r.thumb.Resize(fyne.NewSize(thumbR*2, thumbR*2))
		r.thumb.Move(fyne.NewPos(sz.Width/2-thumbR, cy-thumbR))
		return
	}

	y := (sz.Height - thickness) / 2
	r.track.Move(fyne.NewPos(0, y))
	r.track.Resize(fyne.NewSize(sz.Width, thickness))
	fillW := sz.Width * frac
	r.fill.Move(fyne.NewPos(0, y))
	r.fill.Resize(fyne.NewSize(fillW, thickness))
	cx := clampThumb(fillW, thumbR, sz.Width)
	r.thumb.Resize(fyne.NewSize(thumbR*2, thumbR*2))
	r.thumb.Move(fyne.NewPos(cx-thumbR, sz.Height/2-thumbR))
}

// clampThumb keeps a thumb of radius r fully inside [0, length].
func clampThumb(centre, r, length float32) float32 {
	if centre < r {
		return r
	}
	if centre > length-r {
		return length - r
	}
	return centre
}

func (r *barRenderer) MinSize() fyne.Size { return r.w.MinSize() }

func (r *barRenderer) Refresh() {
	r.track.FillColor = theme.ShadowColor()
	r.fill.FillColor = theme.PrimaryColor()
	r.thumb.FillColor = theme.ForegroundColor()
	if r.c.disabled {
		r.fill.FillColor = theme.DisabledColor()
		r.thumb.FillColor = theme.DisabledColor()
	}
	r.Layout(r.w.Size())
	canvas.Refresh(r.track)
	canvas.Refresh(r.fill)
	canvas.Refresh(r.thumb)
}

func (r *barRenderer) Destroy() {}

func (r *barRenderer) Objects() []fyne.CanvasObject { return r.objs }
