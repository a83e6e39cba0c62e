// Package windowpos saves and restores the native window position on
// platforms where fyne does not expose it.
package windowpos

import (
	"time"

	"fyne.io/fyne/v2"
)

// Point is a top-left corner in screen pixels.
type Point struct {
	X, Y int
}

// mover is swapped in tests.
var mover = Move

// Restore moves w to p. The native window may not exist right after Show, so
// failed attempts are repeated up to retries times, every interval. The
// returned channel receives the final result and is then closed.
func Restore(w fyne.Window, p Point, retries int, interval time.Duration) <-chan bool {
	res := make(chan bool, 1)
	if mover(w, p) {
		res <- true
		close(res)
		return res
	}
	go func() {
		defer close(res)
		for i := 0; i < retries; i++ {
			time.Sleep(interval)
			if mover(w, p) {
				res <- true
				return
			}
		}
		res <- false
	}()
	return res
}
