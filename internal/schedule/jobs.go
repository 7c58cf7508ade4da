package schedule

import (
	"context"

	"markcal/internal/config"
)

// Job names.
const (
	JobHolidayRefresh = "holidays.refresh"
	JobExportSnapshot = "export.snapshot"
)

// Calendar is the part of the controller the jobs drive.
type Calendar interface {
	RefreshHolidays(ctx context.Context) error
	ExportFile(ctx context.Context, dir string) (string, error)
}

// Register adds the configured jobs for cal.
func Register(s *Scheduler, cfg *config.Config, cal Calendar) error {
	if err := s.Add(JobHolidayRefresh, cfg.Holidays.Refresh, cal.RefreshHolidays); err != nil {
		return err
	}

	dir := cfg.Export.Dir
	return s.Add(JobExportSnapshot, cfg.Export.Cron, func(ctx context.Context) error {
		_, err := cal.ExportFile(ctx, dir)
		return err
	})
}
