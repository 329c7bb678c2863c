package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentAdd(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				Inc(&m.EventsEnqueuedTotal)
				Add(&m.EventsSentTotal, 2)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8000), Load(&m.EventsEnqueuedTotal))
	assert.Equal(t, int64(16000), Load(&m.EventsSentTotal))
}

func TestStringListsEveryCounter(t *testing.T) {
	m := New()
	Inc(&m.HeartbeatsSentTotal)
	Add(&m.SpoolSizeBytes, 512)

	out := m.String()
	assert.Contains(t, out, "heartbeats_sent_total=1\n")
	assert.Contains(t, out, "spool_size_bytes=512\n")
	assert.Contains(t, out, "ingest_feedback_total=0\n")
	assert.Equal(t, 32, strings.Count(out, "\n"))
}
