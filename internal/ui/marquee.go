package ui

import (
	"context"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"
)

const marqueeWidthEpsilon float32 = 0.5

// marqueeNeedsScroll decides whether the text overflows the viewport.
func marqueeNeedsScroll(textWidth, viewportWidth float32) bool {
	if textWidth <= 0 {
		return false
	}
	if viewportWidth < 0 {
		viewportWidth = 0
	}
	return textWidth-viewportWidth > marqueeWidthEpsilon
}

// rotateRunes shifts text left by offset runes, wrapping around.
func rotateRunes(runes []rune, offset int) string {
	if len(runes) == 0 {
		return ""
	}
	offset %= len(runes)
	if offset == 0 {
		return string(runes)
	}
	return string(runes[offset:]) + string(runes[:offset])
}

// Marquee shows the current title in a label and scrolls it when it does
// not fit. SetText is safe to call from any goroutine.
type Marquee struct {
	lbl    *widget.Label
	parent fyne.CanvasObject // measures the visible width
	bind   binding.String

	mu      sync.Mutex
	cancel  context.CancelFunc
	text    string
	empty   string
	speed   time.Duration
	padding string
}

// NewMarquee binds lbl and measures against parent. empty is shown when the
// text is cleared.
func NewMarquee(lbl *widget.Label, parent fyne.CanvasObject, empty string) *Marquee {
	b := binding.NewString()
	lbl.Bind(b)
	_ = b.Set(empty)
	return &Marquee{
		lbl:     lbl,
		parent:  parent,
		bind:    b,
		empty:   empty,
		speed:   150 * time.Millisecond,
		padding: "    ",
	}
}

// Close stops any scrolling goroutine.
func (m *Marquee) Close() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
}

// SetText shows text, restarting the scroll only when it changed.
func (m *Marquee) SetText(text string) {
	if text == "" {
		text = m.empty
	}
	m.mu.Lock()
	if text == m.text {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.text = text
	m.mu.Unlock()

	_ = m.bind.Set(text)

	textW := measureLabelTextWidth(m.lbl, text)
	if !marqueeNeedsScroll(textW, m.parent.Size().Width) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	go m.scroll(ctx, text, textW)
}

func (m *Marquee) scroll(ctx context.Context, text string, textW float32) {
	runes := []rune(m.padding + text + m.padding)
	t := time.NewTicker(m.speed)
	defer t.Stop()
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !marqueeNeedsScroll(textW, m.parent.Size().Width) {
			_ = m.bind.Set(text)
			return
		}
		offset++
		_ = m.bind.Set(rotateRunes(runes, offset))
	}
}

// measureLabelTextWidth estimates the width the label would need for the text.
func measureLabelTextWidth(lbl *widget.Label, text string) float32 {
	if lbl == nil {
		return 0
	}
	tmp := widget.NewLabel(text)
	tmp.Alignment = lbl.Alignment
	tmp.TextStyle = lbl.TextStyle
	tmp.Importance = lbl.Importance
	tmp.Wrapping = lbl.Wrapping
	tmp.Truncation = lbl.Truncation
	tmp.Refresh()
	return tmp.MinSize().Width
}
