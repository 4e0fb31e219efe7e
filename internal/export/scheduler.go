package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler writes the previous month's report to a directory shortly after
// each month starts.
type Scheduler struct {
	reporter *Reporter
	dir      string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewScheduler(reporter *Reporter, dir string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		reporter: reporter,
		dir:      dir,
		logger:   logger.With().Str("component", "export").Logger(),
		now:      time.Now,
	}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	next := s.nextRun()
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	s.logger.Info().Time("next_run", next).Msg("Next export scheduled")

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			prev := s.now().AddDate(0, -1, 0)
			if _, err := s.ExportMonth(ctx, prev.Year(), prev.Month()); err != nil {
				s.logger.Error().Err(err).Msg("Failed to export reservations")
			}
			next = s.nextRun()
			timer.Reset(time.Until(next))
			s.logger.Info().Time("next_run", next).Msg("Next export scheduled")
		}
	}
}

// ExportMonth writes one month's workbook into the directory and returns its path.
func (s *Scheduler) ExportMonth(ctx context.Context, year int, month time.Month) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(s.dir, Filename(year, month))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows, err := s.reporter.WriteMonth(ctx, year, month, f)
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	s.logger.Info().Str("path", path).Int("rows", rows).Msg("Reservations exported")
	return path, nil
}

// nextRun is 00:01 on the first day of next month.
func (s *Scheduler) nextRun() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}
