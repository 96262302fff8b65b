package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"woordjes/internal/log"
	"woordjes/internal/services"
)

// DefaultExportInterval is how often unexported sessions are swept.
const DefaultExportInterval = 10 * time.Minute

// MedalAwarder awards every period that has closed.
type MedalAwarder interface {
	AwardClosedPeriods(ctx context.Context) ([]services.Award, error)
}

// PendingExporter sweeps sessions that were never exported.
type PendingExporter interface {
	ExportPending(ctx context.Context) (int, error)
}

// Scheduler runs the worker's periodic jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	medals    MedalAwarder
	exports   PendingExporter
	logger    *log.Logger
}

func NewScheduler(medals MedalAwarder, exports PendingExporter, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		medals:    medals,
		exports:   exports,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Start schedules medal awarding daily at medalHour UTC and, when an
// exporter is set, the pending-export sweep every exportEvery.
func (s *Scheduler) Start(ctx context.Context, medalHour int, exportEvery time.Duration) error {
	if medalHour < 0 || medalHour > 23 {
		return fmt.Errorf("medal hour must be between 0 and 23, got %d", medalHour)
	}

	if s.medals != nil {
		at := fmt.Sprintf("%02d:00", medalHour)
		if _, err := s.scheduler.Every(1).Day().At(at).Do(s.AwardMedals, ctx); err != nil {
			return fmt.Errorf("schedule medal job: %w", err)
		}
		s.logger.InfoContext(ctx, "Scheduled medal awarding", "at_utc", at)
	}

	if s.exports != nil {
		if exportEvery <= 0 {
			exportEvery = DefaultExportInterval
		}
		// The caller sweeps once at startup; the first scheduled run waits
		// a full interval.
		if _, err := s.scheduler.Every(exportEvery).WaitForSchedule().Do(s.ExportPending, ctx); err != nil {
			return fmt.Errorf("schedule export sweep: %w", err)
		}
		s.logger.InfoContext(ctx, "Scheduled export sweep", "every", exportEvery.String())
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// AwardMedals awards every closed period, logging instead of failing.
func (s *Scheduler) AwardMedals(ctx context.Context) {
	awards, err := s.medals.AwardClosedPeriods(ctx)
	for _, a := range awards {
		s.logger.InfoContext(ctx, "Medal job finished period",
			log.FieldMedalKind, string(a.Kind),
			log.FieldPeriodStart, a.PeriodStart.Format(time.DateOnly),
			"inserted", a.Inserted)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Medal job failed", log.FieldError, err)
	}
}

// ExportPending runs one export sweep, logging instead of failing.
func (s *Scheduler) ExportPending(ctx context.Context) {
	n, err := s.exports.ExportPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Export sweep failed", log.FieldError, err, "exported", n)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Export sweep finished", "exported", n)
	}
}
