package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/formlead/survey-engine/internal/questionnaire"
)

// Cleaner periodically deactivates expired questionnaire links. Resolution
// checks expiry on its own, so this worker only keeps link listings honest.
type Cleaner struct {
	manager  questionnaire.Manager
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(manager questionnaire.Manager, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		manager:  manager,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("link cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("link cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup flips active links past their expiry to inactive
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running link cleanup cycle")

	count, err := c.manager.DeactivateExpiredLinks(ctx)
	if err != nil {
		slog.Error("failed to deactivate expired links", "error", err)
		return
	}

	if count == 0 {
		slog.Debug("no expired links found")
		return
	}

	slog.Info("expired links deactivated", "count", count)
}
