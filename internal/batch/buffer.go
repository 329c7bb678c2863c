// Package batch holds validated events until they are delivered and decides
// when to deliver them.
package batch

import "tickgauge/internal/model"

// Buffer is a FIFO of validated events. Insertion order is delivery order.
// It is owned by the tick loop and is not safe for concurrent use; the hard
// cap lives upstream in the ingestion queue.
type Buffer struct {
	events []model.EventPayload
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Push(ev model.EventPayload) {
	b.events = append(b.events, ev)
}

func (b *Buffer) Len() int {
	return len(b.events)
}

// Drain removes and returns up to n of the oldest events.
// The returned slice does not alias the buffer.
func (b *Buffer) Drain(n int) []model.EventPayload {
	if n > len(b.events) {
		n = len(b.events)
	}
	if n <= 0 {
		return nil
	}

	out := make([]model.EventPayload, n)
	copy(out, b.events[:n])

	rest := len(b.events) - n
	copy(b.events, b.events[n:])
	// clear the tail so drained metadata can be collected
	for i := rest; i < len(b.events); i++ {
		b.events[i] = model.EventPayload{}
	}
	b.events = b.events[:rest]

	return out
}

// Snapshot copies the pending events, oldest first.
func (b *Buffer) Snapshot() []model.EventPayload {
	out := make([]model.EventPayload, len(b.events))
	copy(out, b.events)
	return out
}
