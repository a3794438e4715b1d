package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SourceKind identifies where EEG samples come from
type SourceKind string

const (
	SourceSynthetic SourceKind = "synthetic"
	SourceMuse      SourceKind = "muse"
	SourceCSV       SourceKind = "csv"
)

// SinkKind identifies where notes and parameters go
type SinkKind string

const (
	SinkOSC  SinkKind = "osc"
	SinkMIDI SinkKind = "midi"
)

// StreamConfig sizes the sampling domain. Durations are in seconds and are
// converted to sample counts with the stream's sample rate.
type StreamConfig struct {
	SampleRate     float64 `json:"sampleRate"`
	Channels       int     `json:"channels"`
	BufferSeconds  float64 `json:"bufferSeconds"`
	EpochSeconds   float64 `json:"epochSeconds"`
	OverlapSeconds float64 `json:"overlapSeconds"`
	SmoothingDepth int     `json:"smoothingDepth"`
	ScalerWindow   int     `json:"scalerWindow"`
	TargetMin      float64 `json:"targetMin"`
	TargetMax      float64 `json:"targetMax"`
	NotchLow       float64 `json:"notchLow"`
	NotchHigh      float64 `json:"notchHigh"`
	NotchOrder     int     `json:"notchOrder"`
	DisableNotch   bool    `json:"disableNotch,omitempty"`
}

// SourceConfig selects and configures the acquisition source
type SourceConfig struct {
	Kind     SourceKind `json:"kind"`
	MuseAddr string     `json:"museAddr,omitempty"`
	CSVPath  string     `json:"csvPath,omitempty"`
	Columns  []string   `json:"columns,omitempty"` // csv channel columns
	Speed    float64    `json:"speed,omitempty"`   // csv replay speed, 0 = as fast as pulled
	Loop     bool       `json:"loop,omitempty"`
	Seed     uint64     `json:"seed,omitempty"`  // synthetic
	Noise    float64    `json:"noise,omitempty"` // synthetic
}

// SinkConfig selects and configures the instrument host
type SinkConfig struct {
	Kind       SinkKind `json:"kind"`
	Host       string   `json:"host,omitempty"`
	SendPort   int      `json:"sendPort,omitempty"`
	ListenPort int      `json:"listenPort,omitempty"`
	MIDIPort   string   `json:"midiPort,omitempty"`
	PacingMs   int      `json:"pacingMs"`
	ClipBars   int      `json:"clipBars"`
	QueueSize  int      `json:"queueSize"`
	PianoTrack int      `json:"pianoTrack"`
	ArpTrack   int      `json:"arpTrack"`
	BassTrack  int      `json:"bassTrack"`
	ClipSlot   int      `json:"clipSlot"`
	StartTempo int      `json:"startTempo,omitempty"` // internal clock, midi sink only
}

// TriggerConfig maps a beat offset within the cycle to a region start
type TriggerConfig struct {
	Offset int `json:"offset"`
	Start  int `json:"start"`
}

// BeatConfig controls when the dispatcher reacts
type BeatConfig struct {
	CycleBeats int             `json:"cycleBeats"`
	Triggers   []TriggerConfig `json:"triggers"`
}

// MusicConfig controls event generation
type MusicConfig struct {
	ModesPath     string  `json:"modesPath,omitempty"` // empty uses the built-in tables
	StartTonic    string  `json:"startTonic"`
	ChordDuration float64 `json:"chordDuration"`
	Seed          uint64  `json:"seed,omitempty"` // 0 seeds from the clock
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette   string `json:"palette,omitempty"` // .gpl file, empty uses the built-in palette
	RefreshMs int    `json:"refreshMs"`
}

// Config is the main configuration structure
type Config struct {
	Stream StreamConfig `json:"stream"`
	Source SourceConfig `json:"source"`
	Sink   SinkConfig   `json:"sink"`
	Beat   BeatConfig   `json:"beat"`
	Music  MusicConfig  `json:"music"`
	UI     UIConfig     `json:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			SampleRate:     256,
			Channels:       4,
			BufferSeconds:  5,
			EpochSeconds:   1,
			OverlapSeconds: 0.8,
			SmoothingDepth: 10,
			ScalerWindow:   100,
			TargetMin:      0,
			TargetMax:      1,
			NotchLow:       55,
			NotchHigh:      65,
			NotchOrder:     4,
		},
		Source: SourceConfig{
			Kind:     SourceSynthetic,
			MuseAddr: "0.0.0.0:5000",
			Speed:    1,
			Noise:    2,
		},
		Sink: SinkConfig{
			Kind:       SinkOSC,
			Host:       "127.0.0.1",
			SendPort:   11000,
			ListenPort: 11001,
			PacingMs:   10,
			ClipBars:   16,
			QueueSize:  256,
			PianoTrack: 0,
			ArpTrack:   1,
			BassTrack:  2,
			ClipSlot:   0,
			StartTempo: 95,
		},
		Beat: BeatConfig{
			CycleBeats: 32,
			Triggers: []TriggerConfig{
				{Offset: 22, Start: 8},
				{Offset: 14, Start: 0},
			},
		},
		Music: MusicConfig{
			StartTonic:    "C",
			ChordDuration: 8,
		},
		UI: UIConfig{
			RefreshMs: 100,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-neuromusic"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing fields keep their defaults and
// a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first inconsistent setting
func (c *Config) Validate() error {
	s := c.Stream
	switch {
	case s.SampleRate <= 0:
		return errors.New("stream.sampleRate must be positive")
	case s.Channels < 1:
		return errors.New("stream.channels must be positive")
	case s.EpochSeconds <= 0:
		return errors.New("stream.epochSeconds must be positive")
	case s.OverlapSeconds < 0 || s.OverlapSeconds >= s.EpochSeconds:
		return fmt.Errorf("stream.overlapSeconds must be in [0, %v)", s.EpochSeconds)
	case s.BufferSeconds < s.EpochSeconds:
		return errors.New("stream.bufferSeconds shorter than epochSeconds")
	case s.SmoothingDepth < 1:
		return errors.New("stream.smoothingDepth must be positive")
	case s.ScalerWindow < 1:
		return errors.New("stream.scalerWindow must be positive")
	case s.TargetMax <= s.TargetMin:
		return errors.New("stream.targetMax must exceed targetMin")
	case !s.DisableNotch && (s.NotchLow <= 0 || s.NotchHigh <= s.NotchLow || s.NotchHigh >= s.SampleRate/2):
		return fmt.Errorf("notch band [%v, %v] must lie inside (0, %v)", s.NotchLow, s.NotchHigh, s.SampleRate/2)
	case !s.DisableNotch && s.NotchOrder < 1:
		return errors.New("stream.notchOrder must be positive")
	}

	switch c.Source.Kind {
	case SourceSynthetic, SourceMuse:
	case SourceCSV:
		if c.Source.CSVPath == "" {
			return errors.New("source.csvPath required for csv source")
		}
		if c.Source.Speed < 0 {
			return errors.New("source.speed must not be negative")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	switch c.Sink.Kind {
	case SinkOSC, SinkMIDI:
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	if c.Sink.PacingMs < 0 || c.Sink.ClipBars < 1 || c.Sink.QueueSize < 1 {
		return errors.New("sink.pacingMs, clipBars and queueSize out of range")
	}

	if c.Beat.CycleBeats < 1 {
		return errors.New("beat.cycleBeats must be positive")
	}
	seen := make(map[int]bool)
	for _, t := range c.Beat.Triggers {
		if t.Offset < 0 || t.Offset >= c.Beat.CycleBeats {
			return fmt.Errorf("trigger offset %d outside cycle of %d", t.Offset, c.Beat.CycleBeats)
		}
		if seen[t.Offset] {
			return fmt.Errorf("duplicate trigger offset %d", t.Offset)
		}
		seen[t.Offset] = true
	}

	if c.Music.ChordDuration <= 0 {
		return errors.New("music.chordDuration must be positive")
	}
	return nil
}

// Samples converts seconds to a sample count at the stream rate, at least 1.
func (s StreamConfig) Samples(seconds float64) int {
	return max(1, int(seconds*s.SampleRate+0.5))
}

// BufferSamples, EpochSamples and ShiftSamples are the sampling-domain sizes.
func (s StreamConfig) BufferSamples() int { return s.Samples(s.BufferSeconds) }
func (s StreamConfig) EpochSamples() int  { return s.Samples(s.EpochSeconds) }
func (s StreamConfig) ShiftSamples() int {
	return s.Samples(s.EpochSeconds - s.OverlapSeconds)
}

// Pacing is the delay between outbound messages
func (s SinkConfig) Pacing() time.Duration {
	return time.Duration(s.PacingMs) * time.Millisecond
}

// Refresh is the status console redraw interval
func (u UIConfig) Refresh() time.Duration {
	if u.RefreshMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(u.RefreshMs) * time.Millisecond
}
