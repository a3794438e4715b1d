package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	s := cfg.Stream
	if s.BufferSamples() != 1280 || s.EpochSamples() != 256 || s.ShiftSamples() != 51 {
		t.Errorf("samples = %d/%d/%d, want 1280/256/51",
			s.BufferSamples(), s.EpochSamples(), s.ShiftSamples())
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sink.Kind != SinkOSC || cfg.Beat.CycleBeats != 32 {
		t.Errorf("Load without file = %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Source.Kind = SourceMuse
	cfg.Sink.Kind = SinkMIDI
	cfg.Sink.MIDIPort = "IAC Driver"
	cfg.Beat.Triggers = []TriggerConfig{{Offset: 4, Start: 0}}
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	path, _ := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Source.Kind != SourceMuse || got.Sink.MIDIPort != "IAC Driver" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Beat.Triggers) != 1 || got.Beat.Triggers[0].Offset != 4 {
		t.Errorf("triggers = %+v", got.Beat.Triggers)
	}
}

func TestLoadFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"stream":{"sampleRate":512}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stream.SampleRate != 512 {
		t.Errorf("sampleRate = %v, want 512", cfg.Stream.SampleRate)
	}
	if cfg.Stream.EpochSeconds != 1 || cfg.Sink.SendPort != 11000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFileLowRateNeedsNotchDisabled(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"notch above nyquist", `{"stream":{"sampleRate":128}}`, true},
		{"notch disabled", `{"stream":{"sampleRate":128,"disableNotch":true}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFile error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Stream.SampleRate != 128 {
				t.Errorf("sampleRate = %v, want 128", cfg.Stream.SampleRate)
			}
		})
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	os.WriteFile(path, []byte(`{"sink":{"kind":"carrier-pigeon"}}`), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected validation error")
	}
	os.WriteFile(path, []byte(`{not json`), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero rate", func(c *Config) { c.Stream.SampleRate = 0 }, false},
		{"overlap equals epoch", func(c *Config) { c.Stream.OverlapSeconds = 1 }, false},
		{"buffer shorter than epoch", func(c *Config) { c.Stream.BufferSeconds = 0.5 }, false},
		{"notch above nyquist", func(c *Config) { c.Stream.SampleRate = 100 }, false},
		{"notch disabled at low rate", func(c *Config) {
			c.Stream.SampleRate = 100
			c.Stream.DisableNotch = true
		}, true},
		{"csv without path", func(c *Config) { c.Source.Kind = SourceCSV }, false},
		{"csv with path", func(c *Config) {
			c.Source.Kind = SourceCSV
			c.Source.CSVPath = "rec.csv"
		}, true},
		{"unknown source", func(c *Config) { c.Source.Kind = "eeg-hat" }, false},
		{"trigger outside cycle", func(c *Config) { c.Beat.Triggers[0].Offset = 32 }, false},
		{"duplicate trigger", func(c *Config) { c.Beat.Triggers[1].Offset = 22 }, false},
		{"zero chord duration", func(c *Config) { c.Music.ChordDuration = 0 }, false},
		{"inverted target", func(c *Config) { c.Stream.TargetMax = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
