// Package config defines the MiniPlayer preferences file and helpers for
// loading or saving it to disk.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// AppID is the stable application identifier used by the GUI framework.
	AppID = "miniplayer"
	// AppConfigSubdir is the OS-specific directory that holds the config file.
	AppConfigSubdir = "MiniPlayer"
	// AppConfigName is the JSON file stored on disk.
	AppConfigName = "config.json"

	// DefaultWidth is the preferred window width when no persisted value exists.
	DefaultWidth = 960
	// DefaultHeight is the preferred window height.
	DefaultHeight = 620
	// MinWindowWidth keeps the playlist and the effects panel side by side.
	MinWindowWidth = 720
	// DefaultVolume is the initial master level.
	DefaultVolume = 1.0
	// DefaultSampleRate is the rate the effects graph renders at.
	DefaultSampleRate = 44100
	// DefaultBufferMs sizes the speaker buffer.
	DefaultBufferMs = 100
	// DefaultBandQ is the quality factor of every peaking band.
	DefaultBandQ = 1.0
	// DefaultTimeUpdateMs paces position reports from decoded elements.
	DefaultTimeUpdateMs = 250
	// DefaultMIDIDurationSec is reported for MIDI items, which are not synthesised.
	DefaultMIDIDurationSec = 120
	// DefaultEQPreset is applied on first launch.
	DefaultEQPreset = "Flat"
)

// envPrefix namespaces the environment overrides.
const envPrefix = "MINIPLAYER_"

// Config aggregates every user-facing preference persisted between sessions.
// Playlist and playback state are never stored.
type Config struct {
	SampleRate      int     `json:"sampleRate"`
	BufferMs        int     `json:"bufferMs"`
	Volume          float64 `json:"volume"`
	Muted           bool    `json:"muted"`
	BandQ           float64 `json:"bandQ"`
	EffectsEnabled  bool    `json:"effectsEnabled"`
	EQPreset        string  `json:"eqPreset,omitempty"`
	TimeUpdateMs    int     `json:"timeUpdateMs"`
	MIDIDurationSec int     `json:"midiDurationSec"`
	WindowW         int     `json:"windowW"`
	WindowH         int     `json:"windowH"`
	WindowX         int     `json:"windowX,omitempty"`
	WindowY         int     `json:"windowY,omitempty"`
	WindowPosValid  bool    `json:"windowPosValid,omitempty"`
	LastDir         string  `json:"lastDir,omitempty"`
}

// ConfigDir resolves the writable directory that should contain the config file.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppConfigSubdir), nil
}

// ConfigPath is a helper that returns the full path to config.json.
func ConfigPath() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, AppConfigName), nil
}

// Load reads the config from disk, writing defaults on first run. Environment
// overrides are applied on top and never persisted.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			// Try saving an initial config, but still return defaults even if it fails.
			_ = cfg.Save()
			cfg.applyEnv()
			cfg.applyRuntimeDefaults()
			return cfg, nil
		}
		return nil, err
	}

	cfg := &Config{EffectsEnabled: true}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	cfg.applyEnv()
	cfg.applyRuntimeDefaults()
	return cfg, nil
}

// Save persists the configuration to disk, creating directories as needed.
func (c *Config) Save() error {
	c.applyRuntimeDefaults()
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// AppID returns the stable identifier used by the GUI framework.
func (c *Config) AppID() string { return AppID }

// Default builds an in-memory config populated with safe defaults.
func Default() *Config {
	cfg := &Config{
		SampleRate:      DefaultSampleRate,
		BufferMs:        DefaultBufferMs,
		Volume:          DefaultVolume,
		BandQ:           DefaultBandQ,
		EffectsEnabled:  true,
		EQPreset:        DefaultEQPreset,
		TimeUpdateMs:    DefaultTimeUpdateMs,
		MIDIDurationSec: DefaultMIDIDurationSec,
		WindowW:         DefaultWidth,
		WindowH:         DefaultHeight,
	}
	cfg.applyRuntimeDefaults()
	return cfg
}

// BufferDuration is the speaker buffer length.
func (c *Config) BufferDuration() time.Duration {
	return time.Duration(c.BufferMs) * time.Millisecond
}

// TimeUpdateInterval is the position report period.
func (c *Config) TimeUpdateInterval() time.Duration {
	return time.Duration(c.TimeUpdateMs) * time.Millisecond
}

// MIDIDuration is the nominal length reported for MIDI items.
func (c *Config) MIDIDuration() time.Duration {
	return time.Duration(c.MIDIDurationSec) * time.Second
}

// applyEnv overlays MINIPLAYER_* variables.
func (c *Config) applyEnv() {
	c.SampleRate = envInt(envPrefix+"SAMPLE_RATE", c.SampleRate)
	c.BufferMs = envInt(envPrefix+"BUFFER_MS", c.BufferMs)
	c.Volume = envFloat(envPrefix+"VOLUME", c.Volume)
	c.BandQ = envFloat(envPrefix+"BAND_Q", c.BandQ)
	c.EffectsEnabled = envBool(envPrefix+"EFFECTS", c.EffectsEnabled)
	c.EQPreset = envStr(envPrefix+"EQ_PRESET", c.EQPreset)
	c.TimeUpdateMs = envInt(envPrefix+"TIME_UPDATE_MS", c.TimeUpdateMs)
	c.MIDIDurationSec = envInt(envPrefix+"MIDI_DURATION", c.MIDIDurationSec)
}

// applyRuntimeDefaults normalizes config values after a load or when defaults
// are constructed, ensuring the engine always receives sane inputs.
func (c *Config) applyRuntimeDefaults() {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BufferMs <= 0 {
		c.BufferMs = DefaultBufferMs
	}
	if math.IsNaN(c.Volume) || c.Volume < 0 || c.Volume > 1 {
		c.Volume = DefaultVolume
	}
	if math.IsNaN(c.BandQ) || math.IsInf(c.BandQ, 0) || c.BandQ <= 0 {
		c.BandQ = DefaultBandQ
	}
	if c.TimeUpdateMs <= 0 {
		c.TimeUpdateMs = DefaultTimeUpdateMs
	}
	if c.MIDIDurationSec <= 0 {
		c.MIDIDurationSec = DefaultMIDIDurationSec
	}
	if c.WindowW == 0 {
		c.WindowW = DefaultWidth
	}
	if c.WindowW < MinWindowWidth {
		c.WindowW = MinWindowWidth
	}
	if c.WindowH == 0 {
		c.WindowH = DefaultHeight
	}
	if !c.WindowPosValid && (c.WindowX != 0 || c.WindowY != 0) {
		c.WindowPosValid = true
	}
	if strings.TrimSpace(c.EQPreset) == "" {
		c.EQPreset = DefaultEQPreset
	}
	c.LastDir = strings.TrimSpace(c.LastDir)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
