// Package memory provides in-process sheet adapters for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ports "woordjes/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	rows   []ports.SessionRow
	ranges map[string][][]string
}

var (
	_ ports.SessionExporter = (*Store)(nil)
	_ ports.WordSource      = (*Store)(nil)
)

func New() *Store {
	return &Store{ranges: make(map[string][][]string)}
}

// SetRows seeds the rows returned for a sheet. Reads of any range on that
// sheet return them.
func (s *Store) SetRows(sheet string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[sheet] = rows
}

// AppendSession stores the row and returns a synthetic row reference.
func (s *Store) AppendSession(_ context.Context, row ports.SessionRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Sessions returns the exported rows in append order.
func (s *Store) Sessions() []ports.SessionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.SessionRow(nil), s.rows...)
}

func (s *Store) ReadRows(_ context.Context, rng string) ([][]string, error) {
	sheet, _, _ := strings.Cut(rng, "!")
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.ranges[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}
