package core

import (
	"errors"
	"time"
)

var ErrInvalidMedalKind = errors.New("medal kind must be weekly or monthly")

// podium maps finishing positions to medals.
var podium = []MedalType{Gold, Silver, Bronze}

func ParseMedalKind(s string) (MedalKind, error) {
	switch k := MedalKind(s); k {
	case Weekly, Monthly:
		return k, nil
	}
	return "", ErrInvalidMedalKind
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month at 00:00 UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodBounds returns [start, end) of the period of kind containing t.
func PeriodBounds(kind MedalKind, t time.Time) (start, end time.Time) {
	if kind == Monthly {
		start = MonthStart(t)
		return start, start.AddDate(0, 1, 0)
	}
	start = WeekStart(t)
	return start, start.AddDate(0, 0, 7)
}

// PreviousPeriod returns the start of the last fully closed period.
func PreviousPeriod(kind MedalKind, now time.Time) time.Time {
	if kind == Monthly {
		return MonthStart(now).AddDate(0, -1, 0)
	}
	return WeekStart(now).AddDate(0, 0, -7)
}

// AwardMedals hands gold, silver and bronze to the first three entries with
// a positive score. Entries must already be ranked.
func AwardMedals(kind MedalKind, periodStart time.Time, entries []LeaderboardEntry) []Medal {
	out := make([]Medal, 0, len(podium))
	for _, e := range entries {
		if len(out) == len(podium) {
			break
		}
		if e.Value <= 0 {
			break
		}
		out = append(out, Medal{
			UserID:      e.UserID,
			Username:    e.Username,
			Kind:        kind,
			Type:        podium[len(out)],
			PeriodStart: periodStart,
			Score:       e.Value,
		})
	}
	return out
}

// MedalCounts tallies medals by type.
type MedalCounts struct {
	Gold   int
	Silver int
	Bronze int
}

func (c MedalCounts) Total() int { return c.Gold + c.Silver + c.Bronze }

func CountMedals(medals []Medal) MedalCounts {
	var c MedalCounts
	for _, m := range medals {
		switch m.Type {
		case Gold:
			c.Gold++
		case Silver:
			c.Silver++
		case Bronze:
			c.Bronze++
		}
	}
	return c
}
