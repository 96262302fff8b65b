package core

// StreakBonusFrom is the streak length at which answers earn a bonus.
const StreakBonusFrom = 3

const (
	pointsPerDifficulty = 10
	streakBonus         = 5
)

// Points awards a correct answer. streak includes the answer being scored.
func Points(difficulty, streak int) int {
	if difficulty < 1 {
		difficulty = 1
	}
	pts := pointsPerDifficulty * difficulty
	if streak >= StreakBonusFrom {
		pts += streakBonus
	}
	return pts
}

// Percent returns part/total as a whole percentage rounded half up,
// clamped to [0, 100]. A non-positive total yields 0.
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := (part*100*2 + total) / (total * 2)
	if p > 100 {
		return 100
	}
	return p
}

// CategoryStat summarises a player's progress within one category.
type CategoryStat struct {
	Category string
	Total    int
	Mastered int
	Practice int // words answered at least once
}

func (c CategoryStat) MasteredPercent() int {
	return Percent(c.Mastered, c.Total)
}
