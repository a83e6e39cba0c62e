// Package playerapp wires the engine, configuration and widgets together to
// present the MiniPlayer desktop window.
package playerapp

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/edward-ap/miniplayer/internal/config"
	"github.com/edward-ap/miniplayer/internal/engine"
	"github.com/edward-ap/miniplayer/internal/platform/win/windowpos"
	"github.com/edward-ap/miniplayer/internal/player"
	"github.com/edward-ap/miniplayer/internal/session"
	"github.com/edward-ap/miniplayer/internal/ui"
)

const skipStep = 10 // seconds

// SetTraceLogEnabled toggles verbose libVLC logging. Call it before NewApp.
func SetTraceLogEnabled(b bool) { player.SetTraceLoggingEnabled(b) }

// App owns the fyne application, the main window and the engine. Every
// widget is refreshed from session snapshots; handlers only call the
// session.
type App struct {
	fa     fyne.App
	w      fyne.Window
	eng    *engine.Engine
	player *session.Player
	config *config.Config

	last   session.Snapshot
	cancel func()

	// transport
	playBtn   *widget.Button
	nextBtn   *widget.Button
	backBtn   *widget.Button
	fwdBtn    *widget.Button
	seek      *ui.MiniThumbSlider
	timeLbl   *widget.Label
	volBtn    *widget.Button
	volSlider *ui.MiniThumbSlider
	indicator *ui.StateIndicator
	titleLbl  *widget.Label
	marquee   *ui.Marquee
	titleBg   *canvas.Rectangle

	// status line
	statusLbl *widget.Label
	retryBtn  *widget.Button

	// playlist
	list *widget.List

	// effects
	eq     *eqPanel
	visual *visualPanel

	// set while widgets are updated from a snapshot so their callbacks
	// do not echo back into the session
	silentUpdating bool
}

// NewApp loads the configuration, builds the engine and lays out the window.
func NewApp() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Println("config load error:", err)
		cfg = config.Default()
	}

	fa := app.NewWithID(config.AppID)
	fa.Settings().SetTheme(theme.DarkTheme())
	ui.UseCompactTheme()
	fa.SetIcon(theme.MediaMusicIcon())

	w := fa.NewWindow("MiniPlayer")
	w.SetMaster()
	w.Resize(fyne.NewSize(float32(cfg.WindowW), float32(cfg.WindowH)))

	a := &App{fa: fa, w: w, config: cfg}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Println("engine init error:", err)
		a.w.SetContent(widget.NewLabel(fmt.Sprintf("Cannot start audio engine: %v", err)))
		return a
	}
	a.eng = eng
	a.player = eng.Player

	a.buildUI()
	a.cancel = a.player.Subscribe(func(s session.Snapshot) {
		ui.CallOnMain(func() { a.render(s) })
	})
	a.render(a.player.Snapshot())

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		paths := make([]string, 0, len(uris))
		for _, u := range uris {
			paths = append(paths, u.Path())
		}
		a.addFiles(paths)
	})
	w.SetCloseIntercept(a.shutdown)
	w.Canvas().SetOnTypedKey(a.handleShortcutKey)
	return a
}

// Run enters the fyne event loop.
func (a *App) Run() {
	a.w.Show()
	a.restoreWindowPlacement()
	a.fa.Run()
}

// restoreWindowPlacement moves the window to its saved position when the
// platform supports it.
func (a *App) restoreWindowPlacement() {
	if !a.config.WindowPosValid {
		return
	}
	windowpos.Restore(a.w, windowpos.Point{X: a.config.WindowX, Y: a.config.WindowY}, 10, 150*time.Millisecond)
}

func (a *App) captureWindowPlacement() {
	if p, ok := windowpos.Position(a.w); ok {
		a.config.WindowX, a.config.WindowY = p.X, p.Y
		a.config.WindowPosValid = true
	}
}

// shutdown persists preferences and releases the engine.
func (a *App) shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	sz := a.w.Canvas().Size()
	a.config.WindowW = int(sz.Width)
	a.config.WindowH = int(sz.Height)
	a.captureWindowPlacement()
	if a.eng != nil {
		a.eng.Remember()
	}
	if err := a.config.Save(); err != nil {
		log.Println("config save error:", err)
	}
	if a.marquee != nil {
		a.marquee.Close()
	}
	if a.eng != nil {
		if err := a.eng.Close(); err != nil {
			log.Println("engine close error:", err)
		}
	}
	a.w.Close()
	a.fa.Quit()
}

// buildUI lays out the playlist on the left and the player on the right.
func (a *App) buildUI() {
	a.eq = newEQPanel(a)
	a.visual = newVisualPanel(a)

	right := container.NewBorder(
		a.buildNowPlaying(),
		nil, nil, nil,
		container.NewVBox(
			widget.NewCard("", "Equalizer", a.eq.object()),
			widget.NewCard("", "Visual Effects", a.visual.object()),
		),
	)
	split := container.NewHSplit(a.buildPlaylist(), container.NewVScroll(right))
	split.Offset = 0.34
	a.w.SetContent(split)
}

// buildNowPlaying builds the title strip, transport row and status line.
func (a *App) buildNowPlaying() fyne.CanvasObject {
	a.indicator = ui.NewStateIndicator(10)

	a.titleLbl = widget.NewLabel("")
	a.titleLbl.Truncation = fyne.TextTruncateClip
	a.titleBg = canvas.NewRectangle(color.NRGBA{0x00, 0x99, 0xFF, 0x30})
	titleArea := container.NewStack(a.titleBg, a.titleLbl)
	a.marquee = ui.NewMarquee(a.titleLbl, titleArea, "No media loaded")

	a.playBtn = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), a.togglePlay)
	a.backBtn = widget.NewButtonWithIcon("", theme.MediaFastRewindIcon(), func() { a.skip(-skipStep) })
	a.fwdBtn = widget.NewButtonWithIcon("", theme.MediaFastForwardIcon(), func() { a.skip(skipStep) })
	a.nextBtn = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), a.next)

	a.seek = ui.NewMiniThumbSlider(0, 1, 0)
	a.seek.OnChangeEnded = func(v float64) {
		if a.silentUpdating {
			return
		}
		a.report(a.player.Seek(secondsToDuration(v)))
	}
	a.timeLbl = widget.NewLabel(timeText(0, 0))

	a.volBtn = widget.NewButtonWithIcon("", theme.VolumeUpIcon(), a.toggleMute)
	a.volBtn.Importance = widget.LowImportance
	a.volSlider = ui.NewMiniThumbSlider(0, 1, 0.01)
	a.volSlider.OnChanged = func(v float64) {
		if a.silentUpdating {
			return
		}
		a.player.SetMasterVolume(v)
	}

	a.statusLbl = widget.NewLabel("")
	a.statusLbl.Wrapping = fyne.TextWrapWord
	a.retryBtn = widget.NewButtonWithIcon("Retry", theme.ViewRefreshIcon(), func() {
		a.report(a.player.Retry(context.Background()))
	})
	a.retryBtn.Hide()

	title := container.NewBorder(nil, nil, a.indicator.CanvasObject(), nil, titleArea)
	transport := container.NewBorder(nil, nil,
		container.NewHBox(a.backBtn, a.playBtn, a.fwdBtn, a.nextBtn),
		container.NewHBox(a.timeLbl, a.volBtn, container.NewGridWrap(fyne.NewSize(110, a.volSlider.MinSize().Height), a.volSlider)),
		a.seek,
	)
	status := container.NewBorder(nil, nil, nil, a.retryBtn, a.statusLbl)
	return container.NewVBox(title, transport, status, widget.NewSeparator())
}

// handleShortcutKey centralizes keyboard shortcuts regardless of which widget
// currently owns focus.
func (a *App) handleShortcutKey(ke *fyne.KeyEvent) {
	if ke == nil || a.player == nil {
		return
	}
	switch shortcutFor(ke.Name) {
	case actionToggle:
		a.togglePlay()
	case actionBack:
		a.skip(-skipStep)
	case actionForward:
		a.skip(skipStep)
	case actionVolumeUp:
		a.player.SetMasterVolume(a.last.Volume + 0.1)
	case actionVolumeDown:
		a.player.SetMasterVolume(a.last.Volume - 0.1)
	case actionMute:
		a.toggleMute()
	case actionNext:
		a.next()
	}
}

func (a *App) togglePlay() {
	a.report(a.player.TogglePlay(context.Background()))
}

func (a *App) next() {
	a.report(a.player.Next())
}

func (a *App) skip(seconds int) {
	a.report(a.player.Skip(secondsToDuration(float64(seconds))))
}

func (a *App) toggleMute() {
	a.player.ToggleMute()
}

// report surfaces an operation error on the status line.
func (a *App) report(err error) {
	if err == nil {
		return
	}
	if msg := errorText(err); msg != "" {
		a.statusLbl.SetText(msg)
	}
}

// showError is used for failures outside the session, e.g. file dialogs.
func (a *App) showError(err error) {
	if err != nil {
		dialog.ShowError(err, a.w)
	}
}
