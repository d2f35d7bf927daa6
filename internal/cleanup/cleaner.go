package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/certificate-studio/internal/sessions"
)

// Sweeper is the part of the session manager the cleaner needs
type Sweeper interface {
	Expired(now time.Time) []*sessions.Session
	EvictIfIdle(profileID string, now time.Time) bool
}

// Cleaner handles periodic eviction of idle sessions
type Cleaner struct {
	sweeper  Sweeper
	interval time.Duration
	now      func() time.Time
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sweeper Sweeper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep evicts idle sessions once and returns how many were dropped
func (c *Cleaner) Sweep() int {
	now := c.now()
	expired := c.sweeper.Expired(now)
	if len(expired) == 0 {
		slog.Debug("no idle sessions found")
		return 0
	}

	evicted := 0
	for _, s := range expired {
		// touched since Expired ran
		if !c.sweeper.EvictIfIdle(s.ProfileID, now) {
			continue
		}
		evicted++
		slog.Debug("idle session evicted",
			"profile", s.ProfileID,
			"last_seen", s.LastSeen(),
		)
	}

	slog.Info("idle sessions evicted", "count", evicted)
	return evicted
}
