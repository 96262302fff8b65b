package core

import "time"

// MasteryThreshold is the number of correct answers after which a word
// counts as mastered.
const MasteryThreshold = 10

// Tier is a named rank earned by mastering words.
type Tier struct {
	Name string
	Min  int
}

// Tiers are ordered by ascending Min; the first starts at zero.
var Tiers = []Tier{
	{Name: "Beginner", Min: 0},
	{Name: "Elementary", Min: 10},
	{Name: "Intermediate", Min: 50},
	{Name: "Advanced", Min: 150},
	{Name: "Expert", Min: 300},
	{Name: "Master", Min: 500},
}

// TierFor maps a mastered-word count onto its tier.
func TierFor(mastered int) Tier {
	t := Tiers[0]
	for _, candidate := range Tiers {
		if mastered < candidate.Min {
			break
		}
		t = candidate
	}
	return t
}

// NextTier returns the tier after the one reached with mastered words.
// ok is false at the top tier.
func NextTier(mastered int) (next Tier, ok bool) {
	for _, candidate := range Tiers {
		if mastered < candidate.Min {
			return candidate, true
		}
	}
	return Tier{}, false
}

// ProgressToNext is the percentage of the way from the current tier to the
// next one. It is 100 at the top tier.
func ProgressToNext(mastered int) int {
	next, ok := NextTier(mastered)
	if !ok {
		return 100
	}
	cur := TierFor(mastered)
	return Percent(mastered-cur.Min, next.Min-cur.Min)
}

// Record applies one answer to the progress counters. Mastered is sticky.
func (p *Progress) Record(correct bool, at time.Time) {
	if correct {
		p.CorrectCount++
	} else {
		p.IncorrectCount++
	}
	if p.CorrectCount >= MasteryThreshold {
		p.Mastered = true
	}
	p.LastPracticedAt = at
}
