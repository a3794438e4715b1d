package affect

import (
	"sync/atomic"
	"time"

	"go-neuromusic/dsp"
)

// Snapshot is one published set of metrics. Snapshots are immutable.
type Snapshot struct {
	Version uint64
	Time    time.Time
	Metrics Metrics   // scaled
	Raw     Metrics   // unscaled ratios
	Bands   dsp.Bands // smoothed, channel-averaged
}

// Cell hands the latest snapshot from the sampling loop to any number of
// readers. One writer; readers get copies and never block it.
type Cell struct {
	p atomic.Pointer[Snapshot]
}

// Store publishes s with the next version number and returns that version.
func (c *Cell) Store(s Snapshot) uint64 {
	var version uint64 = 1
	if prev := c.p.Load(); prev != nil {
		version = prev.Version + 1
	}
	s.Version = version
	c.p.Store(&s)
	return version
}

// Load returns a copy of the latest snapshot, or false if none was stored.
func (c *Cell) Load() (Snapshot, bool) {
	s := c.p.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}
