package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// compactTheme halves the inline icon size, which fyne uses for slider
// thumbs, and tightens padding so the band sliders fit a narrow panel.
type compactTheme struct{ fyne.Theme }

func (t compactTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNameInlineIcon:
		return t.Theme.Size(n) * 0.5
	case theme.SizeNamePadding:
		return t.Theme.Size(n) * 0.75
	}
	return t.Theme.Size(n)
}

// UseCompactTheme applies the theme wrapper to the current app.
func UseCompactTheme() {
	app := fyne.CurrentApp()
	if app == nil {
		return
	}
	app.Settings().SetTheme(compactTheme{Theme: app.Settings().Theme()})
}
