package source

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/affect"
	"go-neuromusic/debug"
	"go-neuromusic/osc"
)

// MuseAddr is the OSC address Muse companion apps stream raw EEG on.
const MuseAddr = "/muse/eeg"

// Muse receives EEG rows streamed over OSC, one message per sample.
type Muse struct {
	conn     net.PacketConn
	rows     chan []float64
	rate     float64
	channels int
	timeout  time.Duration

	received  atomic.Int64
	dropped   atomic.Int64
	malformed atomic.Int64
}

// MuseConfig configures a Muse source.
type MuseConfig struct {
	Addr       string // listen address, e.g. "0.0.0.0:5000"
	SampleRate float64
	Channels   int
	Backlog    int // rows buffered between network and pipeline
}

// ListenMuse binds the OSC port and starts receiving in the background.
func ListenMuse(ctx context.Context, cfg MuseConfig) (*Muse, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 256
	}
	if cfg.Channels <= 0 {
		cfg.Channels = len(MuseLabels)
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = int(cfg.SampleRate) * 4
	}
	conn, err := net.ListenPacket("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("muse: listen on %s: %w", cfg.Addr, err)
	}
	m := &Muse{
		conn:     conn,
		rows:     make(chan []float64, cfg.Backlog),
		rate:     cfg.SampleRate,
		channels: cfg.Channels,
		timeout:  DefaultTimeout,
	}

	// Rows must reach the pipeline in send order.
	go func() {
		err := osc.Receive(conn, MuseAddr, m.handle)
		if ctx.Err() == nil {
			debug.Log("muse", "receiver stopped: %v", err)
		}
	}()
	context.AfterFunc(ctx, func() { conn.Close() })
	debug.Log("muse", "listening on %s", conn.LocalAddr())
	return m, nil
}

// Addr returns the bound address.
func (m *Muse) Addr() net.Addr {
	return m.conn.LocalAddr()
}

func (m *Muse) handle(msg *gosc.Message) {
	if len(msg.Arguments) < m.channels {
		m.malformed.Add(1)
		return
	}
	row := make([]float64, m.channels)
	for i := range row {
		switch v := msg.Arguments[i].(type) {
		case float32:
			row[i] = float64(v)
		case float64:
			row[i] = v
		case int32:
			row[i] = float64(v)
		default:
			m.malformed.Add(1)
			return
		}
	}
	m.received.Add(1)

	// Drop the oldest row rather than stall the network goroutine.
	for {
		select {
		case m.rows <- row:
			return
		default:
		}
		select {
		case <-m.rows:
			m.dropped.Add(1)
		default:
		}
	}
}

func (m *Muse) Info() Info {
	labels := MuseLabels
	if m.channels != len(MuseLabels) {
		labels = nil
	}
	return Info{Name: "muse", SampleRate: m.rate, Channels: m.channels, Labels: labels}
}

// Pull waits up to the timeout for the first row, then takes whatever else
// is already buffered, up to limit rows.
func (m *Muse) Pull(ctx context.Context, limit int) (affect.Chunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	t := time.NewTimer(m.timeout)
	defer t.Stop()

	var out affect.Chunk
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
		return nil, ErrTimeout
	case row := <-m.rows:
		out = append(out, row)
	}
	for len(out) < limit {
		select {
		case row := <-m.rows:
			out = append(out, row)
		default:
			return out, nil
		}
	}
	return out, nil
}

// Stats returns received, dropped and malformed message counts.
func (m *Muse) Stats() (received, dropped, malformed int64) {
	return m.received.Load(), m.dropped.Load(), m.malformed.Load()
}

func (m *Muse) Close() error {
	return m.conn.Close()
}
