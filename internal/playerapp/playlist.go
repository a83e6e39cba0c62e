package playerapp

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/session"
)

// supportedExtensions lists every extension the classifier accepts, with the
// leading dot the file dialog expects.
func supportedExtensions() []string {
	var out []string
	for _, c := range []media.Class{media.Video, media.Audio, media.MIDI} {
		for _, ext := range media.Extensions(c) {
			out = append(out, "."+ext)
		}
	}
	return out
}

// durationText is blank until the duration is known.
func durationText(it media.Item) string {
	if it.Duration <= 0 {
		return ""
	}
	return media.FormatTime(it.Duration)
}

func (a *App) buildPlaylist() fyne.CanvasObject {
	a.list = widget.NewList(
		func() int { return len(a.last.Items) },
		func() fyne.CanvasObject {
			icon := widget.NewIcon(theme.MediaMusicIcon())
			name := widget.NewLabel("")
			name.Truncation = fyne.TextTruncateEllipsis
			dur := widget.NewLabel("")
			remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), nil)
			remove.Importance = widget.LowImportance
			return container.NewBorder(nil, nil, icon, container.NewHBox(dur, remove), name)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(a.last.Items) {
				return
			}
			it := a.last.Items[id]
			row := obj.(*fyne.Container)
			var (
				name  *widget.Label
				icon  *widget.Icon
				right *fyne.Container
			)
			for _, o := range row.Objects {
				switch v := o.(type) {
				case *widget.Label:
					name = v
				case *widget.Icon:
					icon = v
				case *fyne.Container:
					right = v
				}
			}
			if name == nil || icon == nil || right == nil {
				return
			}
			icon.SetResource(iconFor(it.Class))
			name.SetText(it.Name)
			if id == a.last.CurrentIndex {
				name.TextStyle = fyne.TextStyle{Bold: true}
			} else {
				name.TextStyle = fyne.TextStyle{}
			}
			name.Refresh()
			right.Objects[0].(*widget.Label).SetText(durationText(it))
			itemID := it.ID
			right.Objects[1].(*widget.Button).OnTapped = func() {
				a.report(a.player.RemoveItem(itemID))
			}
		},
	)
	a.list.OnSelected = func(id widget.ListItemID) {
		if a.silentUpdating || id < 0 || id >= len(a.last.Items) {
			return
		}
		if id == a.last.CurrentIndex {
			return
		}
		a.report(a.player.SelectItem(a.last.Items[id].ID))
	}

	addBtn := widget.NewButtonWithIcon("Add media", theme.ContentAddIcon(), a.openFileDialog)
	hint := widget.NewLabel("Video: " + strings.Join(media.Extensions(media.Video), ", ") +
		"\nAudio: " + strings.Join(media.Extensions(media.Audio), ", ") +
		"\nMIDI: " + strings.Join(media.Extensions(media.MIDI), ", "))
	hint.Importance = widget.LowImportance
	hint.Wrapping = fyne.TextWrapWord
	return container.NewBorder(
		container.NewVBox(widget.NewLabelWithStyle("Playlist", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), addBtn),
		hint, nil, nil,
		a.list,
	)
}

func (a *App) openFileDialog() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		a.config.LastDir = filepath.Dir(path)
		a.addFiles([]string{path})
	}, a.w)
	d.SetFilter(storage.NewExtensionFileFilter(supportedExtensions()))
	if a.config.LastDir != "" {
		if l, err := storage.ListerForURI(storage.NewFileURI(a.config.LastDir)); err == nil {
			d.SetLocation(l)
		}
	}
	d.Show()
}

func (a *App) addFiles(paths []string) {
	_, rejected := a.player.AddFiles(paths)
	if len(rejected) > 0 {
		a.statusLbl.SetText(fmt.Sprintf("Skipped %d unsupported file(s).", len(rejected)))
	}
}

// renderPlaylist refreshes rows and keeps the selection on the current item.
func (a *App) renderPlaylist(s session.Snapshot) {
	a.list.Refresh()
	if s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Items) {
		a.list.Select(s.CurrentIndex)
	} else {
		a.list.UnselectAll()
	}
}
