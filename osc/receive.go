package osc

import (
	"errors"
	"net"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/debug"
)

// maxPacket is the largest UDP payload.
const maxPacket = 65535

// Receive reads packets from conn one at a time and calls fn for every
// message sent to addr, in arrival order. An empty addr matches every
// message. Bundles are flattened immediately,
// ignoring their time tags. Unlike gosc.Server, fn runs on the calling
// goroutine. It returns nil once conn is closed.
func Receive(conn net.PacketConn, addr string, fn func(*gosc.Message)) error {
	buf := make([]byte, maxPacket)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		pkt, err := gosc.ParsePacket(string(buf[:n]))
		if err != nil {
			debug.LogEvery(100, "osc", "unparseable packet from %s: %v", conn.LocalAddr(), err)
			continue
		}
		deliver(pkt, addr, fn)
	}
}

func deliver(pkt gosc.Packet, addr string, fn func(*gosc.Message)) {
	switch p := pkt.(type) {
	case *gosc.Message:
		if addr == "" || p.Address == addr {
			fn(p)
		}
	case *gosc.Bundle:
		for _, m := range p.Messages {
			deliver(m, addr, fn)
		}
		for _, b := range p.Bundles {
			deliver(b, addr, fn)
		}
	}
}
