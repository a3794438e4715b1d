package osc

import (
	"context"
	"fmt"
	"math"
	"net"
	"sync/atomic"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/debug"
	"go-neuromusic/sequencer"
)

// BeatListener receives beat reports from the host and forwards the beat
// numbers to a channel, latest wins.
type BeatListener struct {
	conn     net.PacketConn
	beats    chan int
	received atomic.Int64
}

// ListenBeats binds addr (for example "127.0.0.1:11001"). A bind failure is
// returned immediately so startup can abort.
func ListenBeats(addr string, beats chan int) (*BeatListener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for beats on %s: %w", addr, err)
	}
	l := &BeatListener{conn: conn, beats: beats}
	debug.Log("osc", "listening for beats on %s", conn.LocalAddr())
	return l, nil
}

// Addr returns the bound address.
func (l *BeatListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Received returns how many beat messages arrived.
func (l *BeatListener) Received() int64 {
	return l.received.Load()
}

// Serve forwards beats in arrival order until ctx is cancelled, then closes
// the socket.
func (l *BeatListener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()

	err := Receive(l.conn, AddrBeat, l.handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the socket without waiting for Serve.
func (l *BeatListener) Close() error {
	return l.conn.Close()
}

func (l *BeatListener) handle(msg *gosc.Message) {
	beat, ok := beatFromArgs(msg.Arguments)
	if !ok {
		debug.Log("osc", "bad beat message: %v", msg.Arguments)
		return
	}
	l.received.Add(1)
	sequencer.OfferBeat(l.beats, beat)
}

// beatFromArgs reads the beat number from the first argument.
func beatFromArgs(args []any) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return floatBeat(float64(v))
	case float64:
		return floatBeat(v)
	}
	return 0, false
}

func floatBeat(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Floor(v)), true
}
