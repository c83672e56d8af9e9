package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/storage"
)

// Delay before the startup reminder check runs, leaving the UI time to
// settle first.
const reminderDelay = 2 * time.Second

// CheckDailyReminder reports whether the daily reminder is due. It fires
// at most once per calendar day: the day it last fired is persisted, so
// re-checking on the same day is a no-op.
func (s *TrackerService) CheckDailyReminder(ctx context.Context) (bool, error) {
	s.mu.Lock()
	enabled := s.ledger.Root().Settings.DailyReminder
	now := s.now()
	s.mu.Unlock()

	if !enabled {
		return false, nil
	}

	today := now.Format("2006-01-02")
	last, err := s.store.ReadMarker(ctx, storage.MarkerLastReminder)
	if err != nil {
		return false, fmt.Errorf("read reminder marker: %w", err)
	}
	if last == today {
		return false, nil
	}
	if err := s.store.WriteMarker(ctx, storage.MarkerLastReminder, today); err != nil {
		return false, fmt.Errorf("write reminder marker: %w", err)
	}
	return true, nil
}

// RunReminder is the one-shot deferred check run after startup. It needs
// no cancellation beyond the context and is safe to re-run.
func (s *TrackerService) RunReminder(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(reminderDelay):
	}

	due, err := s.CheckDailyReminder(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Daily reminder check failed", "error", err)
		return nil
	}
	if due {
		slog.InfoContext(ctx, "Daily reminder: record today's expenses")
	}
	return nil
}
