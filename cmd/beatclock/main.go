// Command beatclock stands in for the performance host while developing:
// it lists MIDI ports, sends fake beats, or plays a minimal host that logs
// every command it receives and reports beats once asked to.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"

	"go-neuromusic/midi"
	"go-neuromusic/osc"
	"go-neuromusic/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "beats":
		err = sendBeats(ctx, os.Args[2:])
	case "host":
		err = fakeHost(ctx, os.Args[2:])
	default:
		usage()
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("beatclock - development stand-in for the performance host")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list    - List all MIDI ports")
	fmt.Println("  beats   - Send beat numbers over OSC at a fixed tempo")
	fmt.Println("  host    - Print received OSC commands, send beats once subscribed")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		fmt.Println("Fix on macOS: sudo killall coreaudiod midiserver")
		return err
	}
	defer midi.Close()

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ports.In {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range ports.Out {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

// runBeats drives a clock at bpm and reports every beat through c.
func runBeats(ctx context.Context, clock *sequencer.Clock, c *osc.Client, verbose bool) {
	beats := make(chan int, 1)
	go clock.Run(ctx, beats)
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-beats:
			if err := c.SendBeat(b); err != nil {
				fmt.Printf("send beat %d: %v\n", b, err)
				continue
			}
			if verbose {
				fmt.Printf("\rbeat %-6d %5.1f bpm", b, clock.Tempo())
			}
		}
	}
}

func sendBeats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("beats", flag.ExitOnError)
	host := fs.String("host", "127.0.0.1", "receiver host")
	port := fs.Int("port", osc.DefaultListenPort, "receiver port")
	bpm := fs.Float64("bpm", 120, "tempo")
	fs.Parse(args)

	c := osc.NewClient(*host, *port)
	fmt.Printf("Sending beats to %s at %.1f bpm. Ctrl+C to exit.\n", c, *bpm)
	runBeats(ctx, sequencer.NewClock(*bpm), c, true)
	fmt.Println()
	return nil
}

func fakeHost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	listen := fs.String("listen", fmt.Sprintf("127.0.0.1:%d", osc.DefaultSendPort), "address commands arrive on")
	reply := fs.Int("reply", osc.DefaultListenPort, "port beats are sent to")
	bpm := fs.Float64("bpm", 120, "initial tempo")
	fs.Parse(args)

	conn, err := net.ListenPacket("udp", *listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", *listen, err)
	}
	context.AfterFunc(ctx, func() { conn.Close() })

	host, _, err := net.SplitHostPort(*listen)
	if err != nil {
		return err
	}
	client := osc.NewClient(host, *reply)
	clock := sequencer.NewClock(*bpm)
	var once sync.Once

	d := gosc.NewStandardDispatcher()
	d.AddMsgHandler("*", func(msg *gosc.Message) {
		fmt.Printf("[%s] %s %v\n", time.Now().Format("15:04:05.000"), msg.Address, msg.Arguments)
		switch msg.Address {
		case osc.AddrStartBeats:
			once.Do(func() {
				fmt.Printf("  -> reporting beats to %s\n", client)
				go runBeats(ctx, clock, client, false)
			})
		case osc.AddrSetTempo:
			if len(msg.Arguments) > 0 {
				if v, ok := msg.Arguments[0].(float32); ok {
					clock.SetTempo(float64(v))
				}
			}
		}
	})

	fmt.Printf("Fake host on %s. Ctrl+C to exit.\n", conn.LocalAddr())
	server := &gosc.Server{Dispatcher: d}
	err = server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
