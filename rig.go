package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strconv"
	"time"

	"go-neuromusic/affect"
	"go-neuromusic/config"
	"go-neuromusic/debug"
	"go-neuromusic/dsp"
	"go-neuromusic/midi"
	"go-neuromusic/osc"
	"go-neuromusic/sequencer"
	"go-neuromusic/source"
	"go-neuromusic/theory"
)

// rig holds every running part: the sampling side (source, pipeline), the
// musical side (generator, dispatcher, modulator) and the sink with its
// outbound queue and beat source.
type rig struct {
	source     source.Source
	pipeline   *affect.Pipeline
	generator  *theory.Generator
	dispatcher *sequencer.Dispatcher
	modulator  *sequencer.Modulator
	outbox     *sequencer.Outbox
	sink       sequencer.Sink
	sinkName   string
	tracks     sequencer.Tracks
	beats      chan int

	// osc sink
	listener *osc.BeatListener

	// midi sink
	midiOut *midi.Out
	clock   *sequencer.Clock

	cleanup []func()
}

func build(ctx context.Context, cfg *config.Config) (*rig, error) {
	r := &rig{beats: make(chan int, 1)}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	r.source = src
	r.cleanup = append(r.cleanup, func() { src.Close() })

	pcfg, err := pipelineConfig(cfg.Stream, src.Info())
	if err != nil {
		r.close()
		return nil, err
	}
	r.pipeline, err = affect.NewPipeline(pcfg, &affect.Cell{})
	if err != nil {
		r.close()
		return nil, err
	}

	r.generator, err = newGenerator(cfg.Music)
	if err != nil {
		r.close()
		return nil, fmt.Errorf("generator: %w", err)
	}

	if err := r.openSink(cfg.Sink); err != nil {
		r.close()
		return nil, fmt.Errorf("sink: %w", err)
	}

	r.tracks = sequencer.Tracks{
		Piano: cfg.Sink.PianoTrack,
		Arp:   cfg.Sink.ArpTrack,
		Bass:  cfg.Sink.BassTrack,
		Slot:  cfg.Sink.ClipSlot,
	}
	r.outbox = sequencer.NewOutbox(r.sink, cfg.Sink.QueueSize, cfg.Sink.Pacing())

	triggers := make([]sequencer.Trigger, len(cfg.Beat.Triggers))
	for i, t := range cfg.Beat.Triggers {
		triggers[i] = sequencer.Trigger{Beat: t.Offset, Start: t.Start}
	}
	r.dispatcher = sequencer.NewDispatcher(r.generator, r.pipeline.Cell(), r.outbox, r.tracks, cfg.Beat.CycleBeats, triggers)
	r.modulator = sequencer.NewModulator(r.outbox, r.tracks)
	r.pipeline.SetOnUpdate(r.modulator.Apply)
	return r, nil
}

func openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	s, st := cfg.Source, cfg.Stream
	switch s.Kind {
	case config.SourceSynthetic:
		return source.NewSynthetic(source.SyntheticConfig{
			SampleRate: st.SampleRate,
			Channels:   st.Channels,
			Noise:      s.Noise,
			Seed:       s.Seed,
			Realtime:   true,
		}), nil
	case config.SourceMuse:
		return source.ListenMuse(ctx, source.MuseConfig{
			Addr:       s.MuseAddr,
			SampleRate: st.SampleRate,
			Channels:   st.Channels,
		})
	case config.SourceCSV:
		return source.OpenRecording(source.RecordingConfig{
			Path:    s.CSVPath,
			Columns: s.Columns,
			Speed:   s.Speed,
			Loop:    s.Loop,
		})
	}
	return nil, fmt.Errorf("unknown source kind %q", s.Kind)
}

// pipelineConfig sizes the pipeline for the stream the source actually
// delivers, which may differ from the configured rate (recordings).
func pipelineConfig(st config.StreamConfig, info source.Info) (affect.PipelineConfig, error) {
	st.SampleRate = info.SampleRate
	st.Channels = info.Channels

	pcfg := affect.PipelineConfig{
		SampleRate:     st.SampleRate,
		Channels:       st.Channels,
		BufferSamples:  st.BufferSamples(),
		EpochSamples:   st.EpochSamples(),
		ShiftSamples:   st.ShiftSamples(),
		SmoothingDepth: st.SmoothingDepth,
		ScalerWindow:   st.ScalerWindow,
		TargetMin:      st.TargetMin,
		TargetMax:      st.TargetMax,
	}
	if !st.DisableNotch {
		coef, err := dsp.ButterBandStop(st.NotchOrder, st.NotchLow, st.NotchHigh, st.SampleRate)
		if err != nil {
			return affect.PipelineConfig{}, fmt.Errorf("notch filter at %v Hz: %w", st.SampleRate, err)
		}
		pcfg.Notch = &coef
	}
	return pcfg, nil
}

func newGenerator(m config.MusicConfig) (*theory.Generator, error) {
	modes := theory.DefaultModes()
	if m.ModesPath != "" {
		f, err := os.Open(m.ModesPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if modes, err = theory.LoadModes(f); err != nil {
			return nil, fmt.Errorf("%s: %w", m.ModesPath, err)
		}
	}

	seed := m.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))

	gen, err := theory.NewGenerator(modes, rng, m.ChordDuration)
	if err != nil {
		return nil, err
	}
	if m.StartTonic != "" {
		if err := gen.StartAt(theory.Tonic(m.StartTonic)); err != nil {
			return nil, err
		}
	}
	debug.Log("main", "modes %v, seed %d, start %s", modes.Names(), seed, gen.Tonic())
	return gen, nil
}

func (r *rig) openSink(s config.SinkConfig) error {
	switch s.Kind {
	case config.SinkOSC:
		client := osc.NewClient(s.Host, s.SendPort)
		l, err := osc.ListenBeats(net.JoinHostPort("", strconv.Itoa(s.ListenPort)), r.beats)
		if err != nil {
			return err
		}
		r.sink, r.listener = client, l
		r.sinkName = "osc " + client.String()
		r.cleanup = append(r.cleanup, func() { l.Close() })
		return nil

	case config.SinkMIDI:
		out, err := midi.OpenOut(s.MIDIPort)
		r.cleanup = append(r.cleanup, midi.Close)
		if err != nil {
			return err
		}
		r.clock = sequencer.NewClock(float64(s.StartTempo))
		out.OnTempo = r.clock.SetTempo
		r.sink, r.midiOut = out, out
		r.sinkName = "midi " + out.Name()
		return nil
	}
	return fmt.Errorf("unknown sink kind %q", s.Kind)
}

// start prepares the session, subscribes to beats and launches the beat,
// outbound and playback loops. The sampling loop is left to the caller.
func (r *rig) start(ctx context.Context, cfg *config.Config) error {
	if r.listener != nil {
		go func() {
			if err := r.listener.Serve(ctx); err != nil {
				debug.Log("main", "beat listener: %v", err)
			}
		}()
	}

	if err := sequencer.Setup(ctx, r.sink, r.tracks, cfg.Sink.ClipBars, cfg.Sink.Pacing()); err != nil {
		return fmt.Errorf("session setup: %w", err)
	}
	r.dispatcher.Listen()

	go r.outbox.Run(ctx)
	go r.dispatcher.Run(ctx, r.beats)
	if r.midiOut != nil {
		go r.midiOut.Run(ctx, r.clock)
		go r.clock.Run(ctx, r.beats)
	}
	return nil
}

func (r *rig) close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
	r.cleanup = nil
}
