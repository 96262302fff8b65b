package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"woordjes/internal/core"
	"woordjes/internal/log"
)

// RecentPodiums is how many past periods the medals screen shows.
const RecentPodiums = 4

var ErrPeriodOpen = errors.New("period has not ended yet")

// Award is the outcome of awarding one period.
type Award struct {
	Kind        core.MedalKind
	PeriodStart time.Time
	Medals      []core.Medal
	// Inserted counts medals stored by this call; zero on a re-run.
	Inserted int
}

// MedalsView is the medals screen.
type MedalsView struct {
	Mine    []core.Medal
	Counts  core.MedalCounts
	Weekly  []core.Medal
	Monthly []core.Medal
}

type MedalService struct {
	scores SessionScoreSource
	medals MedalStore
	events EventPublisher
	logger *log.Logger
	now    func() time.Time
}

func NewMedalService(scores SessionScoreSource, medals MedalStore, events EventPublisher, logger *log.Logger) *MedalService {
	return &MedalService{
		scores: scores,
		medals: medals,
		events: events,
		logger: componentLogger(logger, log.ComponentMedals),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AwardPeriod ranks the closed period of kind containing periodStart by
// total score and stores its podium. Running it again is harmless.
func (s *MedalService) AwardPeriod(ctx context.Context, kind core.MedalKind, periodStart time.Time) (Award, error) {
	if _, err := core.ParseMedalKind(string(kind)); err != nil {
		return Award{}, newError(err, http.StatusBadRequest, "Medal kind must be weekly or monthly")
	}

	start, end := core.PeriodBounds(kind, periodStart)
	if end.After(s.now()) {
		return Award{}, newError(ErrPeriodOpen, http.StatusBadRequest,
			"The %s period starting %s has not ended yet", kind, start.Format("2006-01-02"))
	}

	rows, err := s.scores.SessionScoresSince(ctx, start, end)
	if err != nil {
		return Award{}, newError(err, http.StatusInternalServerError, "Could not load session scores")
	}
	medals := core.AwardMedals(kind, start, core.RankSessions(rows, core.MetricTotal, 0))

	inserted, err := s.medals.InsertMedals(ctx, kind, medals)
	if err != nil {
		return Award{}, newError(err, http.StatusInternalServerError, "Could not store medals")
	}

	award := Award{Kind: kind, PeriodStart: start, Medals: medals, Inserted: inserted}
	s.logger.InfoContext(ctx, "Period awarded",
		log.FieldOperation, log.OpAward,
		log.FieldMedalKind, string(kind),
		log.FieldPeriodStart, start.Format("2006-01-02"),
		"sessions", len(rows),
		"medals", len(medals),
		"inserted", inserted)

	if inserted > 0 && s.events != nil {
		if err := s.events.PublishMedalAwarded(ctx, string(kind), start, inserted); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish medal awarded", log.FieldError, err)
		}
	}
	return award, nil
}

// AwardClosedPeriods awards the last closed week and month. It is meant to
// run daily; periods already awarded are left as they are, so a missed run
// is caught up by the next one.
func (s *MedalService) AwardClosedPeriods(ctx context.Context) ([]Award, error) {
	now := s.now()
	var (
		awards []Award
		errs   []error
	)
	for _, kind := range []core.MedalKind{core.Weekly, core.Monthly} {
		a, err := s.AwardPeriod(ctx, kind, core.PreviousPeriod(kind, now))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		awards = append(awards, a)
	}
	return awards, errors.Join(errs...)
}

func (s *MedalService) Overview(ctx context.Context, userID string) (MedalsView, error) {
	mine, err := s.medals.ListMedals(ctx, userID)
	if err != nil {
		return MedalsView{}, newError(err, http.StatusInternalServerError, "Could not load your medals")
	}
	weekly, err := s.medals.RecentMedals(ctx, core.Weekly, RecentPodiums)
	if err != nil {
		return MedalsView{}, newError(err, http.StatusInternalServerError, "Could not load recent medals")
	}
	monthly, err := s.medals.RecentMedals(ctx, core.Monthly, RecentPodiums)
	if err != nil {
		return MedalsView{}, newError(err, http.StatusInternalServerError, "Could not load recent medals")
	}
	return MedalsView{
		Mine:    mine,
		Counts:  core.CountMedals(mine),
		Weekly:  weekly,
		Monthly: monthly,
	}, nil
}
