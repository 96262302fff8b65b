package google

import (
	"fmt"
	"strings"
	"time"

	ports "woordjes/internal/sheets"
)

// Header is written above exported sessions.
var Header = []any{"Session", "Player", "Level", "Score", "Correct", "Total", "Played at"}

func sessionValues(row ports.SessionRow) []any {
	return []any{
		row.SessionID,
		row.Username,
		row.Level,
		row.Score,
		row.Correct,
		row.Total,
		row.PlayedAt.UTC().Format(time.DateTime),
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// toRows converts a values matrix, dropping rows with no content.
func toRows(values [][]any) [][]string {
	out := make([][]string, 0, len(values))
	for _, v := range values {
		row := toStrings(v)
		empty := true
		for _, cell := range row {
			if cell != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}
