// Package setonce provides an explicit "set exactly once" guard.
//
// The session start instant and the producer handle are both initialized at
// most once per process. A second Set is an error the caller reports, never a
// silent overwrite.
package setonce

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrAlreadySet = errors.New("setonce: value already set")

// Cell holds a value that can be set once and read from any goroutine.
// The zero value is an empty cell.
type Cell[T any] struct {
	mu sync.Mutex
	v  atomic.Pointer[T]
}

// Set stores v if the cell is empty, otherwise returns ErrAlreadySet.
func (c *Cell[T]) Set(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.v.Load() != nil {
		return ErrAlreadySet
	}
	c.v.Store(&v)
	return nil
}

// Get returns the stored value and whether it was set.
func (c *Cell[T]) Get() (T, bool) {
	p := c.v.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func (c *Cell[T]) IsSet() bool {
	return c.v.Load() != nil
}
