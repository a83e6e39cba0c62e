// Package media models playlist items and the elements that play them.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Class is the coarse media type derived from a file extension.
type Class int

const (
	Unknown Class = iota
	Audio
	Video
	MIDI
)

var (
	// ErrUnsupportedType is returned for files whose extension is not in the
	// classification table.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrPlaybackFailed wraps every decode or playback failure of an element.
	ErrPlaybackFailed = errors.New("playback failed")
)

var extClasses = map[string]Class{
	"mp4":  Video,
	"webm": Video,
	"ogv":  Video,
	"mkv":  Video,
	"mov":  Video,
	"avi":  Video,
	"mp3":  Audio,
	"wav":  Audio,
	"ogg":  Audio,
	"aac":  Audio,
	"flac": Audio,
	"m4a":  Audio,
	"mid":  MIDI,
	"midi": MIDI,
}

func (c Class) String() string {
	switch c {
	case Audio:
		return "audio"
	case Video:
		return "video"
	case MIDI:
		return "midi"
	}
	return "unknown"
}

// Label is the human readable type name shown next to an item.
func (c Class) Label() string {
	switch c {
	case Audio:
		return "Audio"
	case Video:
		return "Video"
	case MIDI:
		return "MIDI"
	}
	return "Unknown"
}

// Icon names the glyph the view draws for the class.
func (c Class) Icon() string {
	switch c {
	case Video:
		return "video"
	case MIDI:
		return "piano"
	}
	return "music"
}

// Ext returns the lower-cased extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Classify maps a file name to its class by extension. Anything outside the
// table is Unknown.
func Classify(name string) Class {
	if c, ok := extClasses[Ext(name)]; ok {
		return c
	}
	return Unknown
}

// Extensions lists the accepted extensions of c, sorted. Unknown lists every
// accepted extension.
func Extensions(c Class) []string {
	var out []string
	for ext, cc := range extClasses {
		if c == Unknown || cc == c {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Item is one playlist entry. Duration is zero until metadata resolves.
type Item struct {
	ID       string
	Name     string
	Class    Class
	Source   *Source
	Duration time.Duration
}

// NewItem classifies path and wraps it in a Source. Unknown types are
// rejected with ErrUnsupportedType.
func NewItem(id, path string, onRelease func(string)) (Item, error) {
	name := filepath.Base(path)
	c := Classify(name)
	if c == Unknown {
		return Item{}, fmt.Errorf("%s: %w", name, ErrUnsupportedType)
	}
	return Item{ID: id, Name: name, Class: c, Source: NewSource(path, onRelease)}, nil
}

// Ext is the item's lower-cased extension.
func (it Item) Ext() string { return Ext(it.Name) }

// FormatTime renders d as m:ss, truncating fractions of a second.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
