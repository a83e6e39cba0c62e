package playerapp

import (
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/session"
	"github.com/edward-ap/miniplayer/internal/ui"
)

type shortcutAction int

const (
	actionNone shortcutAction = iota
	actionToggle
	actionBack
	actionForward
	actionVolumeUp
	actionVolumeDown
	actionMute
	actionNext
)

func shortcutFor(key fyne.KeyName) shortcutAction {
	switch key {
	case fyne.KeySpace:
		return actionToggle
	case fyne.KeyLeft:
		return actionBack
	case fyne.KeyRight:
		return actionForward
	case fyne.KeyUp, fyne.KeyPlus:
		return actionVolumeUp
	case fyne.KeyDown, fyne.KeyMinus:
		return actionVolumeDown
	case fyne.KeyM, fyne.KeyAsterisk:
		return actionMute
	case fyne.KeyN:
		return actionNext
	}
	return actionNone
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func timeText(pos, dur time.Duration) string {
	return media.FormatTime(pos) + " / " + media.FormatTime(dur)
}

func titleText(s session.Snapshot) string {
	if !s.HasItem {
		return ""
	}
	return fmt.Sprintf("%s · %s", s.Item.Class.Label(), s.Item.Name)
}

func activityFor(s session.Snapshot) ui.Activity {
	switch {
	case s.PlaybackError != nil:
		return ui.ActivityError
	case s.State == session.Loading:
		return ui.ActivityLoading
	case s.State == session.Playing:
		return ui.ActivityPlaying
	case s.State == session.Paused:
		return ui.ActivityPaused
	}
	return ui.ActivityIdle
}

// statusText explains failures and missing effects; it is empty otherwise.
func statusText(s session.Snapshot) string {
	switch {
	case s.PlaybackError != nil:
		return fmt.Sprintf("Cannot play %s. Retry or pick another item.", s.Item.Name)
	case s.State == session.Loading:
		return "Loading…"
	case s.HasItem && s.GraphDegraded:
		return "Equalizer unavailable for this item; playing without effects."
	}
	return ""
}

// errorText maps an operation error to a short status message. Closed
// sessions and missing items are not worth reporting.
func errorText(err error) string {
	switch {
	case err == nil, errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrNoItem):
		return ""
	case errors.Is(err, media.ErrUnsupportedType):
		return "Unsupported file type."
	case errors.Is(err, media.ErrPlaybackFailed):
		return "Playback failed."
	}
	return err.Error()
}

func iconFor(c media.Class) fyne.Resource {
	switch c.Icon() {
	case "video":
		return theme.MediaVideoIcon()
	case "music":
		return theme.MediaMusicIcon()
	case "piano":
		return theme.FileAudioIcon()
	}
	return theme.FileIcon()
}

// render pushes a snapshot into every widget. It runs on the UI thread.
func (a *App) render(s session.Snapshot) {
	a.silentUpdating = true
	defer func() { a.silentUpdating = false }()
	a.last = s

	a.marquee.SetText(titleText(s))
	a.indicator.SetActivity(activityFor(s))

	if s.Playing {
		a.playBtn.SetIcon(theme.MediaPauseIcon())
	} else {
		a.playBtn.SetIcon(theme.MediaPlayIcon())
	}
	for _, b := range []interface{ Enable(); Disable() }{a.playBtn, a.backBtn, a.fwdBtn} {
		if s.HasItem {
			b.Enable()
		} else {
			b.Disable()
		}
	}
	if len(s.Items) > 1 {
		a.nextBtn.Enable()
	} else {
		a.nextBtn.Disable()
	}

	a.seek.SetRange(0, s.Duration.Seconds())
	a.seek.Update(s.Position.Seconds())
	a.timeLbl.SetText(timeText(s.Position, s.Duration))

	a.volSlider.Update(s.Volume)
	if s.Muted || s.Volume == 0 {
		a.volBtn.SetIcon(theme.VolumeMuteIcon())
	} else {
		a.volBtn.SetIcon(theme.VolumeUpIcon())
	}

	a.statusLbl.SetText(statusText(s))
	if s.PlaybackError != nil {
		a.retryBtn.Show()
	} else {
		a.retryBtn.Hide()
	}

	a.renderPlaylist(s)
	a.eq.render(s)
	a.visual.render(s)
}
