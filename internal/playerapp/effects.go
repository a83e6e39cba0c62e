package playerapp

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/session"
	"github.com/edward-ap/miniplayer/internal/ui"
	"github.com/edward-ap/miniplayer/internal/visual"
)

const eqStep = 0.5 // dB

// eqPanel is a row of vertical band sliders with a preset picker.
type eqPanel struct {
	a       *App
	sliders []*ui.VerticalSlider
	values  []*widget.Label
	preset  *widget.Select
	caption *ui.RotatedLabel
	root    fyne.CanvasObject
}

func gainText(db float64) string {
	if db > 0 {
		return fmt.Sprintf("+%.1f", db)
	}
	return fmt.Sprintf("%.1f", db)
}

func newEQPanel(a *App) *eqPanel {
	p := &eqPanel{a: a}
	bands := a.player.Snapshot().Bands
	cols := make([]fyne.CanvasObject, 0, len(bands))
	for i, b := range bands {
		s := ui.NewVerticalSlider(equalizer.MinGainDB, equalizer.MaxGainDB, eqStep)
		val := widget.NewLabelWithStyle(gainText(0), fyne.TextAlignCenter, fyne.TextStyle{Monospace: true})
		band := i
		s.OnChanged = func(v float64) {
			val.SetText(gainText(v))
			if a.silentUpdating {
				return
			}
			a.report(a.player.SetBandGain(band, v))
		}
		p.sliders = append(p.sliders, s)
		p.values = append(p.values, val)
		cols = append(cols, container.NewBorder(val,
			widget.NewLabelWithStyle(equalizer.HzLabel(b.CenterHz), fyne.TextAlignCenter, fyne.TextStyle{}),
			nil, nil, container.NewCenter(s)))
	}

	options := append(equalizer.PresetNames(), equalizer.PresetManual)
	p.preset = widget.NewSelect(options, func(name string) {
		if a.silentUpdating || name == equalizer.PresetManual {
			return
		}
		a.report(a.player.ApplyPreset(name))
	})
	p.caption = ui.NewRotatedLabel("EQUALIZER")

	grid := container.NewGridWithColumns(len(cols), cols...)
	p.root = container.NewBorder(
		container.NewHBox(widget.NewLabel("Preset"), p.preset),
		nil, p.caption.CanvasObject(), nil,
		grid,
	)
	return p
}

func (p *eqPanel) object() fyne.CanvasObject { return p.root }

func (p *eqPanel) render(s session.Snapshot) {
	for i, sl := range p.sliders {
		if i < len(s.Gains) {
			sl.Update(s.Gains[i])
			p.values[i].SetText(gainText(s.Gains[i]))
		}
	}
	if p.preset.Selected != s.Preset {
		p.preset.SetSelected(s.Preset)
	}
	bypassed := s.HasItem && s.GraphDegraded
	for _, sl := range p.sliders {
		if bypassed {
			sl.Disable()
		} else {
			sl.Enable()
		}
	}
	caption := "EQUALIZER"
	if bypassed {
		caption = "EQ BYPASSED"
		p.preset.Disable()
	} else {
		p.preset.Enable()
	}
	p.caption.SetText(caption)
}

// visualPanel holds one slider per video adjustment, in composition order.
type visualPanel struct {
	a       *App
	sliders [len(visual.Order)]*ui.MiniThumbSlider
	values  [len(visual.Order)]*widget.Label
	reset   *widget.Button
	content *fyne.Container
	hint    *widget.Label
	root    fyne.CanvasObject
}

func visualLabel(k visual.Kind) string {
	switch k {
	case visual.Brightness:
		return "Brightness"
	case visual.Contrast:
		return "Contrast"
	case visual.Saturate:
		return "Saturation"
	case visual.HueRotate:
		return "Hue"
	case visual.Blur:
		return "Blur"
	}
	return k.String()
}

func visualValueText(k visual.Kind, v float64) string {
	r := visual.RangeOf(k)
	if r.Step < 1 {
		return fmt.Sprintf("%.1f%s", v, r.Unit)
	}
	return fmt.Sprintf("%.0f%s", v, r.Unit)
}

func newVisualPanel(a *App) *visualPanel {
	p := &visualPanel{a: a}
	rows := make([]fyne.CanvasObject, 0, len(visual.Order)+1)
	for i, k := range visual.Order {
		r := visual.RangeOf(k)
		s := ui.NewMiniThumbSlider(r.Min, r.Max, r.Step)
		s.Value = r.Default
		val := widget.NewLabel(visualValueText(k, r.Default))
		kind := k
		s.OnChanged = func(v float64) {
			val.SetText(visualValueText(kind, v))
			if a.silentUpdating {
				return
			}
			a.player.SetVisual(a.last.Visual.Settings().With(kind, v))
		}
		p.sliders[i] = s
		p.values[i] = val
		rows = append(rows, container.NewBorder(nil, nil,
			container.NewGridWrap(fyne.NewSize(90, s.MinSize().Height), widget.NewLabel(visualLabel(k))),
			container.NewGridWrap(fyne.NewSize(70, s.MinSize().Height), val),
			s))
	}
	p.reset = widget.NewButton("Reset", func() { a.player.SetVisual(visual.Defaults()) })
	rows = append(rows, container.NewHBox(p.reset))
	p.content = container.NewVBox(rows...)
	p.hint = widget.NewLabel("Visual effects apply to video items.")
	p.root = container.NewStack(p.content, p.hint)
	return p
}

func (p *visualPanel) object() fyne.CanvasObject { return p.root }

// render shows the current settings; the panel only applies to video.
func (p *visualPanel) render(s session.Snapshot) {
	settings := s.Visual.Settings()
	enabled := s.HasItem && s.Item.Class == media.Video
	for i, k := range visual.Order {
		v := settings.Value(k)
		p.sliders[i].Update(v)
		p.values[i].SetText(visualValueText(k, v))
	}
	if enabled {
		p.hint.Hide()
		p.content.Show()
	} else {
		p.content.Hide()
		p.hint.Show()
	}
}
