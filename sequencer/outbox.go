package sequencer

import (
	"context"
	"sync/atomic"
	"time"

	"go-neuromusic/debug"
)

// DefaultPacing is the gap between two outbound messages.
const DefaultPacing = 10 * time.Millisecond

// Command is one unit of outbound work.
type Command struct {
	Name  string
	Apply func(Sink) error
}

// OutboxStats counts what happened to enqueued commands.
type OutboxStats struct {
	Sent    int64
	Failed  int64
	Dropped int64
	Pending int
}

// Outbox serializes everything sent to the sink on one goroutine. Note
// commands always go before parameter updates. Enqueueing never blocks.
type Outbox struct {
	sink   Sink
	notes  chan Command
	params chan Command
	pacing time.Duration

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewOutbox creates an outbox whose lanes each hold size commands.
func NewOutbox(sink Sink, size int, pacing time.Duration) *Outbox {
	if size < 1 {
		size = 256
	}
	return &Outbox{
		sink:   sink,
		notes:  make(chan Command, size),
		params: make(chan Command, size),
		pacing: pacing,
	}
}

// EnqueueNotes queues a note command. It reports false if the lane was full.
func (o *Outbox) EnqueueNotes(c Command) bool {
	return o.offer(o.notes, c)
}

// EnqueueParam queues a parameter update. It reports false if the lane was full.
func (o *Outbox) EnqueueParam(c Command) bool {
	return o.offer(o.params, c)
}

func (o *Outbox) offer(lane chan Command, c Command) bool {
	select {
	case lane <- c:
		return true
	default:
		o.dropped.Add(1)
		debug.LogEvery(10, "outbox", "lane full, dropped %s", c.Name)
		return false
	}
}

// Stats returns a snapshot of the counters.
func (o *Outbox) Stats() OutboxStats {
	return OutboxStats{
		Sent:    o.sent.Load(),
		Failed:  o.failed.Load(),
		Dropped: o.dropped.Load(),
		Pending: len(o.notes) + len(o.params),
	}
}

// Run sends queued commands until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	for {
		c, ok := o.next(ctx)
		if !ok {
			return
		}
		o.apply(c)
		if pause(ctx, o.pacing) != nil {
			return
		}
	}
}

// next prefers the note lane and blocks until either lane has work.
func (o *Outbox) next(ctx context.Context) (Command, bool) {
	select {
	case c := <-o.notes:
		return c, true
	default:
	}
	select {
	case <-ctx.Done():
		return Command{}, false
	case c := <-o.notes:
		return c, true
	case c := <-o.params:
		return c, true
	}
}

func (o *Outbox) apply(c Command) {
	if err := c.Apply(o.sink); err != nil {
		o.failed.Add(1)
		debug.Log("outbox", "%s failed: %v", c.Name, err)
		return
	}
	o.sent.Add(1)
}
