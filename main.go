package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-neuromusic/config"
	"go-neuromusic/debug"
	"go-neuromusic/theme"
	"go-neuromusic/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-neuromusic/config.json)")
	sourceKind := flag.String("source", "", "override source: synthetic, muse or csv")
	sinkKind := flag.String("sink", "", "override sink: osc or midi")
	csvPath := flag.String("csv", "", "recording to replay (implies -source csv)")
	headless := flag.Bool("headless", false, "log status lines instead of running the console")
	debugLog := flag.Bool("debug", false, "write ~/.config/go-neuromusic/debug.log")
	writeConfig := flag.Bool("write-config", false, "save the effective config and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *csvPath != "" {
		cfg.Source.Kind = config.SourceCSV
		cfg.Source.CSVPath = *csvPath
	}
	if *sourceKind != "" {
		cfg.Source.Kind = config.SourceKind(*sourceKind)
	}
	if *sinkKind != "" {
		cfg.Sink.Kind = config.SinkKind(*sinkKind)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if *writeConfig {
		if *configPath != "" {
			err = cfg.SaveFile(*configPath)
		} else {
			err = cfg.Save()
		}
		if err != nil {
			log.Fatalf("save config: %v", err)
		}
		return
	}

	if *debugLog {
		if err := debug.Enable(); err != nil {
			log.Printf("debug log: %v", err)
		}
		defer debug.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer r.close()

	if err := r.start(ctx, cfg); err != nil {
		log.Fatal(err)
	}

	// The pipeline ends on its own only when a recording runs out.
	go func() {
		err := r.pipeline.Run(ctx, r.source)
		if errors.Is(err, io.EOF) {
			log.Printf("recording finished")
			if *headless {
				stop()
			}
		}
	}()

	if *headless {
		runHeadless(ctx, r)
		return
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		log.Printf("palette: %v, using built-in", err)
		palette = theme.Plasma
	}
	m := tui.NewModel(r.pipeline, r.dispatcher, r.outbox, theme.New(palette))
	m.Updates = r.dispatcher.UpdateChan
	m.Source = r.source.Info()
	m.Sink = r.sinkName
	m.Refresh = cfg.UI.Refresh()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// runHeadless prints one status line every few seconds until ctx ends.
func runHeadless(ctx context.Context, r *rig) {
	info := r.source.Info()
	log.Printf("go-neuromusic: %s %.0fHz x%d -> %s", info.Name, info.SampleRate, info.Channels, r.sinkName)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps := r.pipeline.Status()
			ds := r.dispatcher.Status()
			st := r.outbox.Stats()
			metrics := "warming up"
			if snap, ok := r.pipeline.Cell().Load(); ok {
				metrics = fmt.Sprintf("v=%.2f a=%.2f", snap.Metrics.Valence, snap.Metrics.Arousal)
			}
			log.Printf("%s buffer %d/%d published %d | %s beat %d gen %d tonic %s mode %s | sent %d dropped %d failed %d",
				metrics, ps.BufferFilled, ps.BufferRows, ps.Published,
				ds.State, ds.Beat, ds.Generations, ds.Tonic, ds.Mode,
				st.Sent, st.Dropped, st.Failed)
		}
	}
}
