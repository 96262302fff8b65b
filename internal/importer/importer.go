// Package importer loads vocabulary into the word table from spreadsheets.
//
// Input rows start with a header naming the columns; english and dutch are
// required, category defaults to "general" and difficulty to 1.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"woordjes/internal/core"
	"woordjes/internal/log"
)

const defaultCategory = "general"

var ErrMissingHeader = errors.New("header must name at least the english and dutch columns")

// headerAliases maps accepted header spellings onto fields.
var headerAliases = map[string]string{
	"english":         "english",
	"en":              "english",
	"dutch":           "dutch",
	"nl":              "dutch",
	"nederlands":      "dutch",
	"category":        "category",
	"topic":           "category",
	"difficulty":      "difficulty",
	"level":           "difficulty",
	"example_english": "example_english",
	"example english": "example_english",
	"example_en":      "example_english",
	"example_dutch":   "example_dutch",
	"example dutch":   "example_dutch",
	"example_nl":      "example_dutch",
}

// Row is a parsed word with the 1-based line it came from.
type Row struct {
	Line int
	Word core.Word
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

type Result struct {
	Created int
	Updated int
	Errors  []RowError
}

func (r Result) Failed() int { return len(r.Errors) }

// Parse turns raw rows into words. Blank lines are skipped; malformed lines
// are reported and skipped.
func Parse(rows [][]string) ([]Row, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, ErrMissingHeader
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["english"]; !ok {
		return nil, nil, ErrMissingHeader
	}
	if _, ok := cols["dutch"]; !ok {
		return nil, nil, ErrMissingHeader
	}

	cell := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		out  []Row
		errs []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}

		w := core.Word{
			English:        cell(row, "english"),
			Dutch:          cell(row, "dutch"),
			Category:       strings.ToLower(cell(row, "category")),
			Difficulty:     1,
			ExampleEnglish: cell(row, "example_english"),
			ExampleDutch:   cell(row, "example_dutch"),
		}
		if w.Category == "" {
			w.Category = defaultCategory
		}
		if d := cell(row, "difficulty"); d != "" {
			n, err := strconv.Atoi(d)
			if err != nil {
				errs = append(errs, RowError{Line: line, Err: fmt.Errorf("difficulty %q is not a number", d)})
				continue
			}
			w.Difficulty = n
		}
		if err := w.Validate(); err != nil {
			errs = append(errs, RowError{Line: line, Err: err})
			continue
		}
		out = append(out, Row{Line: line, Word: w})
	}
	return out, errs, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type WordStore interface {
	UpsertWord(ctx context.Context, w core.Word) (core.Word, bool, error)
}

type Importer struct {
	store  WordStore
	logger *log.Logger
}

func New(store WordStore, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Importer{store: store, logger: logger.WithComponent(log.ComponentImport)}
}

// Import upserts rows one by one, collecting per-row failures. onRow, if
// set, is called after every row. Only a cancelled context aborts early.
func (im *Importer) Import(ctx context.Context, rows []Row, onRow func()) (Result, error) {
	var res Result
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, created, err := im.store.UpsertWord(ctx, r.Word)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, RowError{Line: r.Line, Err: err})
		case created:
			res.Created++
		default:
			res.Updated++
		}
		if onRow != nil {
			onRow()
		}
	}

	im.logger.InfoContext(ctx, "Words imported",
		log.FieldOperation, log.OpImport,
		"created", res.Created,
		"updated", res.Updated,
		"failed", res.Failed())
	return res, nil
}
