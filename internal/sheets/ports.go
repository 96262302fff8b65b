package sheets

import (
	"context"
	"time"
)

// SessionRow is one finished game as written to the export sheet.
type SessionRow struct {
	SessionID int64
	Username  string
	Level     string
	Score     int
	Correct   int
	Total     int
	PlayedAt  time.Time
}

// Ports for outbound adapters.
type (
	SessionExporter interface {
		AppendSession(ctx context.Context, row SessionRow) (rowRef string, err error)
	}

	// WordSource reads raw cell rows, header included, from a sheet range
	// such as "Words!A:G".
	WordSource interface {
		ReadRows(ctx context.Context, rng string) ([][]string, error)
	}
)
