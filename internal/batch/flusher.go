package batch

import (
	"time"

	"github.com/benbjohnson/clock"

	"tickgauge/internal/model"
)

// Sender delivers what the flusher drains. Both calls are fire-and-forget:
// they return once the request is issued, never after it completes.
type Sender interface {
	SendBatch(batch model.BatchEventPayload)
	SendHeartbeat()
}

// Trigger says why a flush happened.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerSize
	TriggerInterval
)

func (t Trigger) String() string {
	switch t {
	case TriggerSize:
		return "size"
	case TriggerInterval:
		return "interval"
	}
	return "none"
}

// Flusher
//
// Decides when to drain the buffer while a session is active. It is evaluated
// once per tick:
//  1. buffer length >= batch size: flush now
//  2. flush interval elapsed since the last flush attempt: flush, or send a
//     heartbeat when the buffer is empty
//
// Drained events are never requeued.
type Flusher struct {
	buffer    *Buffer
	sender    Sender
	clock     clock.Clock
	batchSize int
	interval  time.Duration

	lastFlush time.Time
}

func NewFlusher(buf *Buffer, sender Sender, clk clock.Clock, batchSize int, interval time.Duration) *Flusher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Flusher{
		buffer:    buf,
		sender:    sender,
		clock:     clk,
		batchSize: batchSize,
		interval:  interval,
		lastFlush: clk.Now(),
	}
}

// Reset restarts the interval timer, used when the session becomes active.
func (f *Flusher) Reset() {
	f.lastFlush = f.clock.Now()
}

// Due reports whether a flush should happen now and why.
func (f *Flusher) Due() Trigger {
	if f.buffer.Len() >= f.batchSize {
		return TriggerSize
	}
	if f.interval > 0 && f.clock.Now().Sub(f.lastFlush) >= f.interval {
		return TriggerInterval
	}
	return TriggerNone
}

// Tick flushes if a trigger fired and returns the number of events sent.
func (f *Flusher) Tick() (Trigger, int) {
	tr := f.Due()
	if tr == TriggerNone {
		return tr, 0
	}
	return tr, f.Flush()
}

// Flush drains min(len, batchSize) oldest events into one batch. An empty
// buffer sends a heartbeat instead and returns 0.
func (f *Flusher) Flush() int {
	f.lastFlush = f.clock.Now()

	events := f.buffer.Drain(f.batchSize)
	if len(events) == 0 {
		f.sender.SendHeartbeat()
		return 0
	}

	f.sender.SendBatch(model.BatchEventPayload{Events: events})
	return len(events)
}

// FinalFlush sends everything still buffered, one batch per batchSize events,
// and never sends a heartbeat. Used once on session end.
func (f *Flusher) FinalFlush() int {
	f.lastFlush = f.clock.Now()

	total := 0
	for f.buffer.Len() > 0 {
		events := f.buffer.Drain(f.batchSize)
		f.sender.SendBatch(model.BatchEventPayload{Events: events})
		total += len(events)
	}
	return total
}
