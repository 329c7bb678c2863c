package setonce

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellSetOnce(t *testing.T) {
	var c Cell[int]

	_, ok := c.Get()
	assert.False(t, ok)
	assert.False(t, c.IsSet())

	require.NoError(t, c.Set(7))
	assert.ErrorIs(t, c.Set(8), ErrAlreadySet)

	v, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestCellConcurrentSetHasSingleWinner(t *testing.T) {
	var c Cell[int]
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.Set(i) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, c.IsSet())
}
