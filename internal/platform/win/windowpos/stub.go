//go:build !windows

package windowpos

import "fyne.io/fyne/v2"

// Position is unavailable off Windows.
func Position(fyne.Window) (Point, bool) { return Point{}, false }

// Move is unavailable off Windows.
func Move(fyne.Window, Point) bool { return false }
