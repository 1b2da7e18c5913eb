package alerting

import (
	"context"
	"time"

	"github.com/listeverything/finder/internal/logger"
)

const (
	// cleanupTimeout is the context deadline for the periodic history deletion.
	cleanupTimeout = 5 * time.Second
	// cleanupInterval is how often the history cleanup goroutine runs.
	cleanupInterval = 1 * time.Hour
)

// StartHistoryCleanup starts a background goroutine that deletes firing
// history older than retentionDays, once immediately and then hourly.
// A value of 0 disables cleanup.
func (s *Scheduler) StartHistoryCleanup(retentionDays int) {
	if retentionDays <= 0 || s.repo == nil {
		return
	}
	s.stopCleanup()
	s.mu.Lock()
	s.cleanupStop = make(chan struct{})
	stopCh := s.cleanupStop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			s.cleanupHistory(retentionDays)
			select {
			case <-ticker.C:
			case <-stopCh:
				return
			}
		}
	}()
}

func (s *Scheduler) cleanupHistory(retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	deleted, err := s.repo.DeleteHistoryBefore(ctx, cutoff)
	switch {
	case err != nil:
		s.log.Error("alert history cleanup failed", logger.Error(err))
	case deleted > 0:
		s.log.Info("alert history cleanup completed",
			logger.Int64("deleted", deleted),
			logger.Int("retention_days", retentionDays))
	}
}

// stopCleanup makes the nil-check-then-close atomic so Stop and
// StartHistoryCleanup cannot double-close.
func (s *Scheduler) stopCleanup() {
	s.mu.Lock()
	ch := s.cleanupStop
	s.cleanupStop = nil
	s.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// Stop shuts down background goroutines.
func (s *Scheduler) Stop() {
	s.stopCleanup()
}
