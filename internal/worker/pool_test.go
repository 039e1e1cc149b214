package worker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsJobs(t *testing.T) {
	p := New(2, 16, slog.Default())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Submit("count", func() {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	p.Stop()

	assert.Equal(t, int64(20), ran.Load())
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := New(1, 4, slog.Default())

	p.Submit("boom", func() { panic("boom") })

	done := make(chan struct{})
	p.Submit("after", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panicking job")
	}
	p.Stop()
}

func TestStopDrainsQueue(t *testing.T) {
	p := New(1, 8, slog.Default())

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		p.Submit("job", func() { ran.Add(1) })
	}
	p.Stop()

	assert.Equal(t, int64(5), ran.Load())
}
