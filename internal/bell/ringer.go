package bell

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Player plays one audio file, blocking until playback ends
type Player interface {
	Play(ctx context.Context, path string) error
}

// ExecPlayer shells out to an external audio player binary
type ExecPlayer struct {
	Command string
	Logger  *slog.Logger
}

// Play runs the player until the file finishes
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.Command, path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio player failed for %s: %w", path, err)
	}
	return nil
}

// Controller rings the physical bell. An active schedule is a set of
// cron entries, one per HH:MM; starting a new schedule replaces the
// previous one.
type Controller struct {
	mu       sync.Mutex
	active   *cron.Cron
	player   Player
	bellFile string
	logger   *slog.Logger
}

// NewController creates a bell controller
func NewController(player Player, bellFile string, logger *slog.Logger) *Controller {
	return &Controller{
		player:   player,
		bellFile: bellFile,
		logger:   logger,
	}
}

// PlayAudio plays an arbitrary audio file through the bell speakers
func (c *Controller) PlayAudio(ctx context.Context, path string) error {
	return c.player.Play(ctx, path)
}

// RingSchedule arms the bell for the given HH:MM times. With todayOnly
// the entries go quiet after the current day.
func (c *Controller) RingSchedule(times []string, todayOnly bool) error {
	runner := cron.New()
	day := time.Now().YearDay()
	for _, t := range times {
		var hour, minute int
		if _, err := fmt.Sscanf(t, "%d:%d", &hour, &minute); err != nil {
			return fmt.Errorf("bad time %q: %w", t, err)
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := runner.AddFunc(spec, func() {
			if todayOnly && time.Now().YearDay() != day {
				return
			}
			c.logger.Info("Ringing bell", "time", t)
			if err := c.player.Play(context.Background(), c.bellFile); err != nil {
				c.logger.Error("Bell ring failed", "time", t, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", t, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.Stop()
	}
	c.active = runner
	runner.Start()
	c.logger.Info("Bell schedule armed", "times", times, "today_only", todayOnly)
	return nil
}

// RingAssemblyBell rings the bell for roughly the given duration by
// cutting playback off once it elapses
func (c *Controller) RingAssemblyBell(durationSeconds int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(durationSeconds)*time.Second)
	defer cancel()
	err := c.player.Play(ctx, c.bellFile)
	if ctx.Err() == context.DeadlineExceeded {
		return nil
	}
	return err
}

// Stop disarms the active schedule
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.Stop()
		c.active = nil
	}
}
