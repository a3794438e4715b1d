package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"go-neuromusic/affect"
)

// TimestampColumn is the recording clock column written by muse-lsl.
const TimestampColumn = "timestamps"

// Recording replays a CSV recording as if it were streaming live.
type Recording struct {
	name    string
	labels  []string
	times   []float64
	rows    [][]float64
	rate    float64
	speed   float64
	loop    bool
	next    int
	start   time.Time
	offset  float64 // recording time of the row played at start
	timeout time.Duration
}

// RecordingConfig configures a replay.
type RecordingConfig struct {
	Path       string
	Columns    []string // channel columns; empty means every non-timestamp column
	SampleRate float64  // 0 infers it from the timestamps
	Speed      float64  // 1 is real time, 0 replays as fast as pulled
	Loop       bool
}

// OpenRecording loads a recording from disk.
func OpenRecording(cfg RecordingConfig) (*Recording, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := ReadRecording(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	return rec, nil
}

// ReadRecording parses a recording with a header row. A timestamps column
// is optional when SampleRate is given.
func ReadRecording(r io.Reader, cfg RecordingConfig) (*Recording, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tsCol := slices.Index(header, TimestampColumn)
	var cols []int
	var labels []string
	if len(cfg.Columns) == 0 {
		for i, h := range header {
			if i != tsCol && h != "" {
				cols = append(cols, i)
				labels = append(labels, h)
			}
		}
	} else {
		for _, c := range cfg.Columns {
			i := slices.Index(header, c)
			if i < 0 {
				return nil, fmt.Errorf("column %q not in header %v", c, header)
			}
			cols = append(cols, i)
			labels = append(labels, c)
		}
	}
	if len(cols) == 0 {
		return nil, errors.New("no channel columns")
	}

	rec := &Recording{
		name:    "recording",
		labels:  labels,
		speed:   cfg.Speed,
		loop:    cfg.Loop,
		timeout: DefaultTimeout,
	}
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, labels[j], err)
			}
			row[j] = v
		}
		rec.rows = append(rec.rows, row)
		if tsCol >= 0 {
			ts, err := strconv.ParseFloat(strings.TrimSpace(fields[tsCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d timestamp: %w", line, err)
			}
			rec.times = append(rec.times, ts)
		}
	}
	if len(rec.rows) == 0 {
		return nil, errors.New("recording has no samples")
	}

	rec.rate = cfg.SampleRate
	if rec.rate <= 0 {
		if len(rec.times) < 2 || rec.times[len(rec.times)-1] <= rec.times[0] {
			return nil, errors.New("cannot infer sample rate without increasing timestamps")
		}
		span := rec.times[len(rec.times)-1] - rec.times[0]
		rec.rate = float64(len(rec.times)-1) / span
	}
	if len(rec.times) == 0 {
		rec.times = make([]float64, len(rec.rows))
		for i := range rec.times {
			rec.times[i] = float64(i) / rec.rate
		}
	}
	return rec, nil
}

func (r *Recording) Info() Info {
	return Info{Name: r.name, SampleRate: r.rate, Channels: len(r.labels), Labels: r.labels}
}

// Len returns the number of samples in the recording.
func (r *Recording) Len() int {
	return len(r.rows)
}

// Pull returns the next rows. With a positive speed only rows whose
// recorded time has passed are returned. At the end it returns io.EOF
// unless looping.
func (r *Recording) Pull(ctx context.Context, limit int) (affect.Chunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	if r.next >= len(r.rows) {
		if !r.loop {
			return nil, io.EOF
		}
		r.next = 0
		r.start = time.Time{}
	}

	end := min(len(r.rows), r.next+limit)
	if r.speed > 0 {
		if r.start.IsZero() {
			r.start = time.Now()
			r.offset = r.times[r.next]
		}
		due := r.dueIndex()
		if due <= r.next {
			wait := r.wallTime(r.times[r.next]).Sub(time.Now())
			if wait > r.timeout {
				if err := sleepCtx(ctx, r.timeout); err != nil {
					return nil, err
				}
				return nil, ErrTimeout
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			due = r.dueIndex()
		}
		end = min(end, max(due, r.next+1))
	}

	out := make(affect.Chunk, 0, end-r.next)
	for _, row := range r.rows[r.next:end] {
		out = append(out, slices.Clone(row))
	}
	r.next = end
	return out, nil
}

// dueIndex is one past the last row whose time has come.
func (r *Recording) dueIndex() int {
	elapsed := time.Since(r.start).Seconds() * r.speed
	limit := r.offset + elapsed
	i, _ := slices.BinarySearch(r.times, limit)
	for i < len(r.times) && r.times[i] <= limit {
		i++
	}
	return i
}

func (r *Recording) wallTime(ts float64) time.Time {
	return r.start.Add(time.Duration((ts - r.offset) / r.speed * float64(time.Second)))
}

func (r *Recording) Close() error {
	return nil
}
