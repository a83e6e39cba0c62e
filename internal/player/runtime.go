package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	vlc "github.com/adrg/libvlc-go/v3"
)

// Runtime owns the process-wide libVLC instance. Every libVLC call made by
// elements created from it goes through the same lock.
type Runtime struct {
	// single lock guarding all C/libVLC invocations
	vlcMu sync.Mutex

	mu           sync.Mutex
	ready        bool
	released     bool
	vlcMajor     int
	parseTimeout int // ms
}

// NewRuntime returns an uninitialised runtime. libVLC is loaded on the first
// element that needs it.
func NewRuntime() *Runtime {
	return &Runtime{parseTimeout: 4000}
}

func parseVlcMajor(ver string) int {
	ver = strings.TrimSpace(ver)
	if ver == "" {
		return 0
	}
	cut := ver
	if i := strings.IndexAny(ver, ". "); i >= 0 {
		cut = ver[:i]
	}
	m, _ := strconv.Atoi(cut)
	return m
}

// initArgs builds the libVLC command line. Trace logging adds file logging.
func initArgs(trace bool) []string {
	args := []string{
		"--no-color",
		"--file-caching=300",
		"--no-video-title-show",
	}
	if trace {
		// --file-logging works without the logger interface plugin.
		args = append(args,
			"--verbose=2",
			"--file-logging",
			"--log-verbose=2",
			"--logfile=vlc.log",
		)
	}
	return args
}

// ensure initialises libVLC once. A failed init is retried on the next call.
func (rt *Runtime) ensure() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.released {
		return fmt.Errorf("libvlc runtime released")
	}
	if rt.ready {
		return nil
	}

	// plugin path goes through the environment, not --plugin-path
	if exe, err := os.Executable(); err == nil {
		plugins := filepath.Join(filepath.Dir(exe), "plugins")
		if st, err := os.Stat(plugins); err == nil && st.IsDir() {
			_ = os.Setenv("VLC_PLUGIN_PATH", plugins)
		}
	}

	rt.vlcMu.Lock()
	err := vlc.Init(initArgs(isTraceLoggingEnabled())...)
	rt.vlcMu.Unlock()
	if err != nil {
		return fmt.Errorf("libvlc init failed: %w", err)
	}
	rt.vlcMajor = parseVlcMajor(vlc.Version().String())
	rt.ready = true
	return nil
}

// Major reports the libVLC major version, or 0 before initialisation.
func (rt *Runtime) Major() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.vlcMajor
}

// Release unloads libVLC. Elements must be closed first.
func (rt *Runtime) Release() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.released {
		return
	}
	rt.released = true
	if !rt.ready {
		return
	}
	rt.vlcMu.Lock()
	_ = vlc.Release()
	rt.vlcMu.Unlock()
}

func (rt *Runtime) call(fn func() error) error {
	rt.vlcMu.Lock()
	defer rt.vlcMu.Unlock()
	return fn()
}
