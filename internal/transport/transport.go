// Package transport defines the contract the pipeline needs from a network
// client: a non-blocking POST whose outcome is picked up later by the tick
// loop.
package transport

import (
	"net/http"
	"time"
)

// HeaderKey carries the public API key (sessions/start) or the session
// credential (everything else).
const HeaderKey = "X-Tickgauge-Key"

type Request struct {
	Resource string // e.g. "events/batch"; used for logs and dev captures
	URL      string
	Header   http.Header
	Body     []byte
	Timeout  time.Duration
}

type Response struct {
	Status int
	Body   []byte
}

// Success reports a 2xx status.
func (r Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Result is either a Response or a transport-level error.
type Result struct {
	Response Response
	Err      error
}

// Transport issues a POST and returns immediately. Implementations must never
// block the caller on network I/O.
type Transport interface {
	Post(req Request) *Pending
}

// Pending is a one-shot future resolved by the transport and polled by the
// tick loop.
type Pending struct {
	ch chan Result
}

func NewPending() *Pending {
	return &Pending{ch: make(chan Result, 1)}
}

// Resolved returns an already-completed Pending.
func Resolved(res Result) *Pending {
	p := NewPending()
	p.Resolve(res)
	return p
}

// Resolve completes p. Only the first call has an effect.
func (p *Pending) Resolve(res Result) {
	select {
	case p.ch <- res:
	default:
	}
}

// Poll returns the result if it is ready, without waiting.
func (p *Pending) Poll() (Result, bool) {
	select {
	case res := <-p.ch:
		return res, true
	default:
		return Result{}, false
	}
}

// Handlers are the continuations run on the tick loop when a request
// completes. Either may be nil.
type Handlers struct {
	OnResponse func(Response)
	OnError    func(error)
}

type tracked struct {
	pending  *Pending
	handlers Handlers
}

// Inflight keeps pending requests until their results arrive. It is owned by
// the tick loop and not safe for concurrent use.
type Inflight struct {
	items []tracked
}

func (f *Inflight) Track(p *Pending, h Handlers) {
	f.items = append(f.items, tracked{pending: p, handlers: h})
}

func (f *Inflight) Len() int {
	return len(f.items)
}

// Poll runs the continuation of every completed request, in issue order, and
// returns how many completed. Continuations may Track new requests; those are
// first polled on the next call.
func (f *Inflight) Poll() int {
	if len(f.items) == 0 {
		return 0
	}

	type done struct {
		res Result
		h   Handlers
	}
	var completed []done
	remaining := f.items[:0:0]

	for _, it := range f.items {
		if res, ok := it.pending.Poll(); ok {
			completed = append(completed, done{res: res, h: it.handlers})
			continue
		}
		remaining = append(remaining, it)
	}
	f.items = remaining

	for _, d := range completed {
		if d.res.Err != nil {
			if d.h.OnError != nil {
				d.h.OnError(d.res.Err)
			}
			continue
		}
		if d.h.OnResponse != nil {
			d.h.OnResponse(d.res.Response)
		}
	}
	return len(completed)
}
