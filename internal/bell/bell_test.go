package bell

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jothihub/jothi-gateway/internal/config"
)

type fakePlayer struct {
	mu     sync.Mutex
	played []string
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return nil
}

func (f *fakePlayer) playedFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func TestPlayAudio(t *testing.T) {
	p := &fakePlayer{}
	c := NewController(p, "bell.mp3", slog.Default())

	require.NoError(t, c.PlayAudio(context.Background(), "prayer.mp3"))
	assert.Equal(t, []string{"prayer.mp3"}, p.playedFiles())
}

func TestRingScheduleRejectsBadTime(t *testing.T) {
	c := NewController(&fakePlayer{}, "bell.mp3", slog.Default())
	assert.Error(t, c.RingSchedule([]string{"not-a-time"}, false))
}

func TestRingScheduleReplacesActive(t *testing.T) {
	c := NewController(&fakePlayer{}, "bell.mp3", slog.Default())

	require.NoError(t, c.RingSchedule([]string{"08:30", "09:30"}, false))
	first := c.active
	require.NotNil(t, first)

	require.NoError(t, c.RingSchedule([]string{"10:00"}, true))
	assert.NotSame(t, first, c.active)

	c.Stop()
	assert.Nil(t, c.active)
}

func TestRingAssemblyBellStopsAtDuration(t *testing.T) {
	// the player blocks until the context deadline cuts it off
	p := &blockingPlayer{}
	c := NewController(p, "bell.mp3", slog.Default())

	start := time.Now()
	require.NoError(t, c.RingAssemblyBell(1))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

type blockingPlayer struct{}

func (b *blockingPlayer) Play(ctx context.Context, path string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAssemblyToday(t *testing.T) {
	a := NewAssembly(config.AudioConfig{
		AnthemFile: "anthem.mp3",
		Assembly: map[string]config.AssemblyDay{
			"monday": {Label: "English Day", Prayer: "english_prayer.mp3", Birthday: "english_birthday.mp3"},
		},
	})

	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday
	day, ok := a.Today(monday)
	require.True(t, ok)
	assert.Equal(t, "english_prayer.mp3", day.Prayer)

	tuesday := monday.AddDate(0, 0, 1)
	_, ok = a.Today(tuesday)
	assert.False(t, ok)
}
