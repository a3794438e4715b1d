// Package osc talks to a live-performance host over OSC/UDP using the
// AbletonOSC address space.
package osc

import (
	"fmt"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/debug"
	"go-neuromusic/theory"
)

// Default ports of the AbletonOSC remote script.
const (
	DefaultSendPort   = 11000
	DefaultListenPort = 11001
)

// Addresses used by the client and the beat listener.
const (
	AddrCreateClip   = "/live/clip_slot/create_clip"
	AddrRemoveNotes  = "/live/clip/remove/notes"
	AddrAddNotes     = "/live/clip/add/notes"
	AddrSetParameter = "/live/device/set/parameter/value"
	AddrSetTempo     = "/live/song/set/tempo"
	AddrSetVolume    = "/live/track/set/volume"
	AddrSetSend      = "/live/track/set/send"
	AddrStartBeats   = "/live/song/start_listen/beat"
	AddrBeat         = "/live/song/get/beat"
)

// Client sends commands to the host. It satisfies sequencer.Sink.
type Client struct {
	c    *gosc.Client
	host string
	port int
}

// NewClient creates a client for host:port. UDP needs no connection, so
// this never fails.
func NewClient(host string, port int) *Client {
	return &Client{c: gosc.NewClient(host, port), host: host, port: port}
}

// String returns host:port.
func (c *Client) String() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

func (c *Client) send(addr string, args ...any) error {
	msg := gosc.NewMessage(addr, args...)
	if err := c.c.Send(msg); err != nil {
		return fmt.Errorf("osc %s: %w", addr, err)
	}
	debug.LogEvery(25, "osc", "-> %s %v", addr, args)
	return nil
}

func (c *Client) CreateClip(track, slot, bars int) error {
	return c.send(AddrCreateClip, int32(track), int32(slot), float32(bars*4))
}

func (c *Client) ClearNotes(track, slot, pitch, span int, start, length float64) error {
	return c.send(AddrRemoveNotes, int32(track), int32(slot),
		int32(pitch), int32(span), float32(start), float32(length))
}

// AddNotes packs all notes into one message as consecutive
// (pitch, start, duration, velocity, mute) groups.
func (c *Client) AddNotes(track, slot int, notes []theory.Note) error {
	if len(notes) == 0 {
		return nil
	}
	args := make([]any, 0, 2+5*len(notes))
	args = append(args, int32(track), int32(slot))
	for _, n := range notes {
		mute := int32(0)
		if n.Mute {
			mute = 1
		}
		args = append(args, int32(n.Pitch), float32(n.Start), float32(n.Duration), int32(n.Velocity), mute)
	}
	return c.send(AddrAddNotes, args...)
}

func (c *Client) SetParameter(track, device, param int, value float64) error {
	return c.send(AddrSetParameter, int32(track), int32(device), int32(param), float32(value))
}

func (c *Client) SetTempo(bpm float64) error {
	return c.send(AddrSetTempo, float32(bpm))
}

func (c *Client) SetVolume(track int, value float64) error {
	return c.send(AddrSetVolume, int32(track), float32(value))
}

func (c *Client) SetSend(track, send int, value float64) error {
	return c.send(AddrSetSend, int32(track), int32(send), float32(value))
}

func (c *Client) ListenBeats() error {
	return c.send(AddrStartBeats)
}

// SendBeat reports a beat the way the host does. Used by the fake clock.
func (c *Client) SendBeat(beat int) error {
	return c.send(AddrBeat, int32(beat))
}
