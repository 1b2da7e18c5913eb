package alerting

import (
	"context"
	"fmt"

	"github.com/listeverything/finder/internal/datastore/entities"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
)

// toEntity encodes an alert row. The tree column holds the portable form.
// Callers hold s.mu.
func (s *Scheduler) toEntity(a *Alert) (*entities.SavedAlert, error) {
	data, err := filter.MarshalPortableJSON(filter.ToPortable(a.Reference))
	if err != nil {
		return nil, err
	}
	set := a.Reference.Alert
	return &entities.SavedAlert{
		ContextKey:   a.ContextKey,
		Name:         a.Name,
		Tree:         string(data),
		Priority:     string(set.Priority),
		SustainTicks: set.SustainTicks,
		Threshold:    set.Threshold,
		Comparison:   string(set.Comparison),
		MaxCulprits:  s.maxCulprits,
		State:        string(a.State),
		SinceTick:    a.SinceTick,
		ClockTick:    s.clock(),
		RunningCount: a.RunningCount,
	}, nil
}

// Snapshot writes every alert, including timer state, to the repository.
func (s *Scheduler) Snapshot(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	rows := make([]entities.SavedAlert, 0, len(s.alerts))
	for _, a := range s.sorted() {
		row, err := s.toEntity(a)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to encode alert %q: %w", a.Name, err)
		}
		rows = append(rows, *row)
	}
	s.mu.Unlock()

	if err := s.repo.ReplaceAlerts(ctx, rows); err != nil {
		return fmt.Errorf("failed to snapshot alerts: %w", err)
	}
	return nil
}

// Restore replaces the in-memory alerts with those stored in the repository.
// Rows whose tree cannot be decoded are skipped and logged; nodes of unknown
// kinds are dropped from otherwise valid trees. Timers keep the ticks they had
// accumulated when saved, rebased onto the current clock.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	rows, err := s.repo.ListAlerts(ctx, repository.AlertFilter{})
	if err != nil {
		return fmt.Errorf("failed to restore alerts: %w", err)
	}

	s.mu.Lock()
	start := s.clock()
	s.mu.Unlock()

	alerts := make(map[alertKey]*Alert, len(rows))
	for i := range rows {
		row := &rows[i]
		p, err := filter.UnmarshalPortableJSON([]byte(row.Tree))
		if err != nil {
			s.log.Error("skipping unreadable alert",
				logger.String("alert", row.Name),
				logger.String("context", row.ContextKey),
				logger.Error(err))
			continue
		}
		ref, _ := filter.FromPortable(p, s.catalog, s.log)
		ref.Name = row.Name
		ref.AllContexts = row.ContextKey == ""
		ref.Alert = filter.AlertSettings{
			Priority:     filter.Priority(row.Priority),
			SustainTicks: row.SustainTicks,
			Threshold:    row.Threshold,
			Comparison:   filter.Comparison(row.Comparison),
		}
		normalizeSettings(&ref.Alert)

		state := State(row.State)
		switch state {
		case StateIdle, StatePending, StateFiring:
		default:
			state = StateIdle
		}
		a := &Alert{
			Name:         row.Name,
			ContextKey:   row.ContextKey,
			Reference:    ref,
			RunningCount: row.RunningCount,
			SinceTick:    start - max(row.ClockTick-row.SinceTick, 0),
			State:        state,
		}
		s.bind(a)
		alerts[alertKey{row.ContextKey, row.Name}] = a
	}

	s.mu.Lock()
	s.alerts = alerts
	s.mu.Unlock()

	s.log.Info("alerts restored", logger.Int("count", len(alerts)))
	return nil
}
