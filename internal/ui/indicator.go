package ui

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
)

// Activity is what the indicator shows.
type Activity int

const (
	ActivityIdle Activity = iota
	ActivityLoading
	ActivityPlaying
	ActivityPaused
	ActivityError
)

var (
	idleColor   = color.NRGBA{0x80, 0x80, 0x80, 0xFF}
	pausedColor = color.NRGBA{0xE0, 0xA0, 0x30, 0xFF}
	errorColor  = color.NRGBA{0xD0, 0x40, 0x40, 0xFF}
)

// StateIndicator is a tiny circle that breathes through green hues while
// playing and pulses blue while loading. Paused and failed items get a
// steady colour.
type StateIndicator struct {
	wrap   *fyne.Container
	circle *canvas.Circle

	mu       sync.Mutex
	activity Activity
	stop     chan struct{}
	hue      float64 // 0..360
}

// NewStateIndicator constructs an idle indicator with the given diameter.
func NewStateIndicator(diameter float32) *StateIndicator {
	c := canvas.NewCircle(idleColor)
	c.StrokeColor = color.NRGBA{0, 0, 0, 0}
	inner := container.New(layout.NewGridWrapLayout(fyne.NewSize(diameter, diameter)), c)
	return &StateIndicator{wrap: container.NewCenter(inner), circle: c}
}

// CanvasObject returns the fyne object suitable for embedding in layouts.
func (s *StateIndicator) CanvasObject() fyne.CanvasObject { return s.wrap }

// SetActivity switches the indicator; animated activities run until the
// next switch.
func (s *StateIndicator) SetActivity(a Activity) {
	s.mu.Lock()
	if a == s.activity {
		s.mu.Unlock()
		return
	}
	s.activity = a
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	var stop chan struct{}
	if animated(a) {
		stop = make(chan struct{})
		s.stop = stop
		s.hue = startHue(a)
	}
	s.mu.Unlock()

	if stop != nil {
		go s.animate(a, stop)
		return
	}
	s.paint(steadyColor(a))
}

func animated(a Activity) bool { return a == ActivityPlaying || a == ActivityLoading }

func startHue(a Activity) float64 {
	if a == ActivityLoading {
		return 200
	}
	return 90
}

func steadyColor(a Activity) color.NRGBA {
	switch a {
	case ActivityPaused:
		return pausedColor
	case ActivityError:
		return errorColor
	}
	return idleColor
}

func (s *StateIndicator) paint(col color.NRGBA) {
	CallOnMain(func() {
		s.circle.FillColor = col
		s.circle.Refresh()
	})
}

func (s *StateIndicator) animate(a Activity, stop chan struct{}) {
	t := time.NewTicker(90 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		s.mu.Lock()
		s.hue = nextHue(a, s.hue)
		h := s.hue
		s.mu.Unlock()
		s.paint(hsvToNRGBA(h, 0.65, 0.95))
	}
}

// nextHue keeps playing in the green band and loading in the blue band.
func nextHue(a Activity, h float64) float64 {
	lo, hi := 90.0, 150.0
	if a == ActivityLoading {
		lo, hi = 190, 240
	}
	h += 4
	if h >= hi {
		h = lo
	}
	return h
}

// hsvToNRGBA converts HSV (0..360, 0..1, 0..1) to color.NRGBA.
func hsvToNRGBA(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8((r+m)*255 + 0.5),
		G: uint8((g+m)*255 + 0.5),
		B: uint8((b+m)*255 + 0.5),
		A: 0xFF,
	}
}
