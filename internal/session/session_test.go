package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenStore(start time.Time) (*Store, *time.Time) {
	s := NewStore()
	now := start
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSetGetClear(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("+911111111111")
	assert.False(t, ok)

	s.Set("+911111111111", AwaitingVoiceModel{Body: "Good morning"})
	sess, ok := s.Get("+911111111111")
	require.True(t, ok)
	state, ok := sess.State.(AwaitingVoiceModel)
	require.True(t, ok)
	assert.Equal(t, "Good morning", state.Body)

	s.Clear("+911111111111")
	_, ok = s.Get("+911111111111")
	assert.False(t, ok)
}

func TestSetReplacesExisting(t *testing.T) {
	s := NewStore()
	s.Set("+911111111111", AwaitingVoiceNote{})
	s.Set("+911111111111", AwaitingTodayTimes{})

	sess, ok := s.Get("+911111111111")
	require.True(t, ok)
	assert.IsType(t, AwaitingTodayTimes{}, sess.State)
	assert.Equal(t, 1, s.Len())
}

func TestTTLBoundary(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s, now := frozenStore(start)
	s.Set("+911111111111", AwaitingVoiceNote{})

	// still live just inside the window
	*now = start.Add(TTL - time.Second)
	_, ok := s.Get("+911111111111")
	assert.True(t, ok)

	// still live at exactly TTL
	*now = start.Add(TTL)
	_, ok = s.Get("+911111111111")
	assert.True(t, ok)

	// gone past it
	*now = start.Add(TTL + time.Second)
	_, ok = s.Get("+911111111111")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired session should be evicted on read")
}

func TestPerIdentityIsolation(t *testing.T) {
	s := NewStore()
	s.Set("+911111111111", AwaitingVoiceNote{})
	s.Set("+922222222222", AwaitingTodayTimes{})

	s.Clear("+911111111111")
	_, ok := s.Get("+922222222222")
	assert.True(t, ok)
}

func TestAcquireSerializesSameIdentity(t *testing.T) {
	s := NewStore()

	var order []int
	var mu sync.Mutex
	release := s.Acquire("+911111111111")

	done := make(chan struct{})
	go func() {
		r := s.Acquire("+911111111111")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		r()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	release()
	<-done

	assert.Equal(t, []int{1, 2}, order)
}

func TestAcquireDifferentIdentitiesIndependent(t *testing.T) {
	s := NewStore()
	release := s.Acquire("+911111111111")
	defer release()

	acquired := make(chan struct{})
	go func() {
		r := s.Acquire("+922222222222")
		r()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock for a different identity should not block")
	}
}

func TestReleasedLocksArePruned(t *testing.T) {
	s := NewStore()

	for i := 0; i < 3; i++ {
		release := s.Acquire("+911111111111")
		release()
	}
	release := s.Acquire("+922222222222")
	release()

	s.mu.Lock()
	remaining := len(s.locks)
	s.mu.Unlock()
	assert.Equal(t, 0, remaining, "released identity locks should not accumulate")
}

func TestPruningKeepsContendedLock(t *testing.T) {
	s := NewStore()
	release := s.Acquire("+911111111111")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := s.Acquire("+911111111111")
			r()
		}()
	}

	// waiters are registered against the same lock entry
	time.Sleep(20 * time.Millisecond)
	s.mu.Lock()
	held := len(s.locks)
	s.mu.Unlock()
	assert.Equal(t, 1, held)

	release()
	wg.Wait()

	s.mu.Lock()
	remaining := len(s.locks)
	s.mu.Unlock()
	assert.Equal(t, 0, remaining)
}
