package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrScanTimeout means the MIDI driver did not answer in time.
var ErrScanTimeout = errors.New("midi port scan timed out")

// ErrNoPort means no output port matched.
var ErrNoPort = errors.New("no matching midi output port")

// ScanTimeout bounds a port scan (CoreMIDI can hang).
const ScanTimeout = 3 * time.Second

// Ports lists the names of all MIDI inputs and outputs.
type Ports struct {
	In  []string
	Out []string
}

type portsResult struct {
	inPorts  []drivers.In
	outPorts []drivers.Out
}

func scan(timeout time.Duration) (portsResult, error) {
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return portsResult{}, ErrScanTimeout
	}
}

// ListPorts returns the port names currently visible to the driver.
func ListPorts(timeout time.Duration) (Ports, error) {
	r, err := scan(timeout)
	if err != nil {
		return Ports{}, err
	}
	var p Ports
	for _, in := range r.inPorts {
		p.In = append(p.In, in.String())
	}
	for _, out := range r.outPorts {
		p.Out = append(p.Out, out.String())
	}
	return p, nil
}

// findOut returns the first output whose name contains name, ignoring case.
// An empty name picks the first port.
func findOut(name string, timeout time.Duration) (drivers.Out, error) {
	r, err := scan(timeout)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for _, out := range r.outPorts {
		if want == "" || strings.Contains(strings.ToLower(out.String()), want) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNoPort)
}

// Close shuts the driver down. Call once at exit.
func Close() {
	gomidi.CloseDriver()
}
