// Package core holds the state every pipeline component shares: the immutable
// config, the clock collaborator, logging, counters and the set-once session
// start instant.
//
// One Context is built per Client and handed to both the producer-facing API
// and the tick loop. Only the session start instant is mutable, and only once.
package core

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"tickgauge/internal/config"
	"tickgauge/internal/metrics"
	"tickgauge/internal/setonce"
)

type Context struct {
	Config  config.Config
	Clock   clock.Clock
	Log     zerolog.Logger
	Metrics *metrics.Metrics

	start setonce.Cell[time.Time]
}

func New(cfg config.Config, clk clock.Clock, log zerolog.Logger, m *metrics.Metrics) *Context {
	if clk == nil {
		clk = clock.New()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Context{
		Config:  cfg,
		Clock:   clk,
		Log:     log,
		Metrics: m,
	}
}

// MarkStarted sets the session start instant. A second call returns
// setonce.ErrAlreadySet and leaves the first instant in place.
func (c *Context) MarkStarted(t time.Time) error {
	return c.start.Set(t)
}

func (c *Context) Started() bool {
	return c.start.IsSet()
}

func (c *Context) StartInstant() (time.Time, bool) {
	return c.start.Get()
}

// Elapsed is the time since the session start instant.
func (c *Context) Elapsed() (time.Duration, bool) {
	t, ok := c.start.Get()
	if !ok {
		return 0, false
	}
	d := c.Clock.Now().Sub(t)
	if d < 0 {
		d = 0
	}
	return d, true
}

// ElapsedMs is Elapsed in whole milliseconds, 0 before the session starts.
func (c *Context) ElapsedMs() uint64 {
	d, ok := c.Elapsed()
	if !ok {
		return 0
	}
	return uint64(d / time.Millisecond)
}
