package main

import (
	"context"
	"testing"
	"time"

	"go-neuromusic/config"
	"go-neuromusic/sequencer"
	"go-neuromusic/source"
)

func TestPipelineConfigFollowsSource(t *testing.T) {
	st := config.DefaultConfig().Stream
	pcfg, err := pipelineConfig(st, source.Info{SampleRate: 250, Channels: 2})
	if err != nil {
		t.Fatal(err)
	}
	if pcfg.SampleRate != 250 || pcfg.Channels != 2 {
		t.Errorf("rate/channels = %v/%d", pcfg.SampleRate, pcfg.Channels)
	}
	if pcfg.EpochSamples != 250 || pcfg.ShiftSamples != 50 || pcfg.BufferSamples != 1250 {
		t.Errorf("sizes = %d/%d/%d", pcfg.EpochSamples, pcfg.ShiftSamples, pcfg.BufferSamples)
	}
	if pcfg.Notch == nil {
		t.Error("notch not designed")
	}
}

func TestPipelineConfigRejectsLowRateNotch(t *testing.T) {
	st := config.DefaultConfig().Stream
	if _, err := pipelineConfig(st, source.Info{SampleRate: 100, Channels: 1}); err == nil {
		t.Error("notch above Nyquist accepted")
	}
	st.DisableNotch = true
	pcfg, err := pipelineConfig(st, source.Info{SampleRate: 100, Channels: 1})
	if err != nil || pcfg.Notch != nil {
		t.Errorf("disabled notch: %+v, %v", pcfg.Notch, err)
	}
}

func TestNewGeneratorStartTonic(t *testing.T) {
	m := config.DefaultConfig().Music
	m.Seed = 1
	m.StartTonic = "D"
	gen, err := newGenerator(m)
	if err != nil {
		t.Fatal(err)
	}
	if gen.Tonic() != "D" {
		t.Errorf("tonic = %s", gen.Tonic())
	}
	m.StartTonic = "X"
	if _, err := newGenerator(m); err == nil {
		t.Error("unknown start tonic accepted")
	}
	m.StartTonic = ""
	m.ModesPath = "does-not-exist.json"
	if _, err := newGenerator(m); err == nil {
		t.Error("missing modes file accepted")
	}
}

func TestBuildAndStartOSC(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sink.ListenPort = 0
	cfg.Sink.SendPort = 19999
	cfg.Sink.PacingMs = 0
	cfg.Music.Seed = 5

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := build(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer r.close()

	if err := r.start(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if r.dispatcher.State() != sequencer.Listening {
		t.Error("dispatcher not listening after start")
	}

	// A trigger beat generates without waiting for the pipeline.
	r.beats <- 22
	deadline := time.Now().Add(2 * time.Second)
	for r.dispatcher.Status().Generations == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.dispatcher.Status().Generations != 1 {
		t.Fatal("no generation after trigger beat")
	}
}
