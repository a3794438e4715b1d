package osc

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/theory"
)

func TestBeatFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want int
		ok   bool
	}{
		{"int32", []any{int32(22)}, 22, true},
		{"int64", []any{int64(14)}, 14, true},
		{"float32", []any{float32(7.0)}, 7, true},
		{"float64 fraction", []any{8.75}, 8, true},
		{"extra args", []any{int32(3), "x"}, 3, true},
		{"empty", nil, 0, false},
		{"string", []any{"22"}, 0, false},
		{"nan", []any{math.NaN()}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := beatFromArgs(tt.args)
			if got != tt.want || ok != tt.ok {
				t.Errorf("beatFromArgs(%v) = %d, %v, want %d, %v", tt.args, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func udpPort(t *testing.T, a net.Addr) int {
	t.Helper()
	ua, ok := a.(*net.UDPAddr)
	if !ok {
		t.Fatalf("not a UDP address: %v", a)
	}
	return ua.Port
}

func TestBeatListenerRoundTrip(t *testing.T) {
	beats := make(chan int, 4)
	l, err := ListenBeats("127.0.0.1:0", beats)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	c := NewClient("127.0.0.1", udpPort(t, l.Addr()))
	if err := c.SendBeat(22); err != nil {
		t.Fatal(err)
	}
	select {
	case b := <-beats:
		if b != 22 {
			t.Errorf("beat = %d, want 22", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no beat received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenBeatsBindFailure(t *testing.T) {
	l, err := ListenBeats("127.0.0.1:0", make(chan int, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if _, err := ListenBeats(l.Addr().String(), make(chan int, 1)); err == nil {
		t.Error("second bind on the same port succeeded")
	}
}

// capture collects every message sent to a local port.
func capture(t *testing.T) (*Client, <-chan *gosc.Message) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	msgs := make(chan *gosc.Message, 16)
	go Receive(conn, "", func(m *gosc.Message) { msgs <- m })
	t.Cleanup(func() { conn.Close() })
	return NewClient("127.0.0.1", udpPort(t, conn.LocalAddr())), msgs
}

func receive(t *testing.T, msgs <-chan *gosc.Message) *gosc.Message {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return nil
}

func TestClientAddNotesPacksGroups(t *testing.T) {
	c, msgs := capture(t)
	notes := []theory.Note{
		{Pitch: 60, Start: 0, Duration: 2, Velocity: 80},
		{Pitch: 64, Start: 2, Duration: 2, Velocity: 80, Mute: true},
	}
	if err := c.AddNotes(1, 0, notes); err != nil {
		t.Fatal(err)
	}
	m := receive(t, msgs)
	if m.Address != AddrAddNotes {
		t.Fatalf("address = %s", m.Address)
	}
	if len(m.Arguments) != 2+5*2 {
		t.Fatalf("got %d arguments: %v", len(m.Arguments), m.Arguments)
	}
	if m.Arguments[0] != int32(1) || m.Arguments[2] != int32(60) || m.Arguments[7] != int32(64) {
		t.Errorf("arguments = %v", m.Arguments)
	}
	if m.Arguments[8] != float32(2) || m.Arguments[11] != int32(1) {
		t.Errorf("second note = %v", m.Arguments[7:])
	}
}

func TestClientClearNotes(t *testing.T) {
	c, msgs := capture(t)
	if err := c.ClearNotes(2, 0, 0, 128, 8, 8); err != nil {
		t.Fatal(err)
	}
	m := receive(t, msgs)
	want := []any{int32(2), int32(0), int32(0), int32(128), float32(8), float32(8)}
	if m.Address != AddrRemoveNotes || len(m.Arguments) != len(want) {
		t.Fatalf("message = %s %v", m.Address, m.Arguments)
	}
	for i := range want {
		if m.Arguments[i] != want[i] {
			t.Errorf("arg %d = %v (%T), want %v", i, m.Arguments[i], m.Arguments[i], want[i])
		}
	}
}

func TestClientEmptyAddNotesSendsNothing(t *testing.T) {
	c, msgs := capture(t)
	if err := c.AddNotes(0, 0, nil); err != nil {
		t.Fatal(err)
	}
	c.SetTempo(120)
	if m := receive(t, msgs); m.Address != AddrSetTempo {
		t.Errorf("first message = %s, want tempo", m.Address)
	}
}

func TestReceiveKeepsOrder(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan int32, 512)
	done := make(chan error, 1)
	go func() {
		done <- Receive(conn, "/n", func(m *gosc.Message) { got <- m.Arguments[0].(int32) })
	}()

	c := gosc.NewClient("127.0.0.1", udpPort(t, conn.LocalAddr()))
	const n = 300
	for i := 0; i < n; i++ {
		c.Send(gosc.NewMessage("/other", int32(-1)))
		if err := c.Send(gosc.NewMessage("/n", int32(i))); err != nil {
			t.Fatal(err)
		}
	}

	last, count := int32(-1), 0
	for count < n {
		select {
		case v := <-got:
			if v <= last {
				t.Fatalf("message %d arrived after %d", v, last)
			}
			last = v
			count++
		case <-time.After(500 * time.Millisecond):
			if count == 0 {
				t.Fatal("nothing received")
			}
			count = n
		}
	}

	conn.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Receive after close = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not return after close")
	}
}

func TestDeliverFlattensBundles(t *testing.T) {
	inner := gosc.NewBundle(time.Now())
	inner.Append(gosc.NewMessage(AddrBeat, int32(3)))
	b := gosc.NewBundle(time.Now().Add(time.Hour))
	b.Append(gosc.NewMessage(AddrBeat, int32(1)))
	b.Append(gosc.NewMessage("/live/other", int32(9)))
	b.Append(gosc.NewMessage(AddrBeat, int32(2)))
	b.Append(inner)

	var beats []int32
	deliver(b, AddrBeat, func(m *gosc.Message) { beats = append(beats, m.Arguments[0].(int32)) })
	if len(beats) != 3 || beats[0] != 1 || beats[1] != 2 || beats[2] != 3 {
		t.Errorf("delivered %v, want [1 2 3]", beats)
	}
}
