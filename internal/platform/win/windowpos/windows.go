//go:build windows

package windowpos

import (
	"sync"
	"syscall"
	"unsafe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
)

var (
	user32            = syscall.NewLazyDLL("user32.dll")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procSetWindowPos  = user32.NewProc("SetWindowPos")
)

type rect struct {
	Left, Top, Right, Bottom int32
}

const (
	swpNoSize     = 0x0001
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
)

// Position reports the top-left corner of w's native window.
func Position(w fyne.Window) (Point, bool) {
	var p Point
	ok := onHWND(w, func(hwnd uintptr) bool {
		var r rect
		if !call(procGetWindowRect, "GetWindowRect", hwnd, uintptr(unsafe.Pointer(&r))) {
			return false
		}
		p = Point{X: int(r.Left), Y: int(r.Top)}
		return true
	})
	return p, ok
}

// Move places w's native window at p, keeping its size and Z-order.
func Move(w fyne.Window, p Point) bool {
	return onHWND(w, func(hwnd uintptr) bool {
		return call(procSetWindowPos, "SetWindowPos", hwnd, 0,
			uintptr(int32(p.X)), uintptr(int32(p.Y)), 0, 0,
			swpNoSize|swpNoZOrder|swpNoActivate)
	})
}

func call(proc *syscall.LazyProc, name string, args ...uintptr) bool {
	ret, _, err := proc.Call(args...)
	if ret != 0 {
		return true
	}
	if err != syscall.Errno(0) {
		fyne.LogError(name+" failed", err)
	}
	return false
}

// onHWND runs fn with the native handle on the GUI thread and waits for it.
func onHWND(w fyne.Window, fn func(hwnd uintptr) bool) bool {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return false
	}
	var (
		done bool
		wg   sync.WaitGroup
	)
	wg.Add(1)
	nw.RunNative(func(ctx any) {
		defer wg.Done()
		wc, ok := ctx.(driver.WindowsWindowContext)
		if !ok || wc.HWND == 0 {
			return
		}
		done = fn(wc.HWND)
	})
	wg.Wait()
	return done
}
