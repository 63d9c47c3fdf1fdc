package memory

import (
	"context"
	"fmt"
	"sync"

	"drivertrack/internal/core"
	ports "drivertrack/internal/sheets"
)

var (
	_ ports.SummaryWriter = (*Store)(nil)
	_ ports.SummaryReader = (*Store)(nil)
)

type row struct {
	label   string
	summary core.MonthSummary
}

// Store keeps written summary rows in memory, keyed by year and month.
type Store struct {
	mu     sync.Mutex
	rows   map[int]map[int]row
	writes int
}

func New() *Store {
	return &Store{rows: map[int]map[int]row{}}
}

// WriteMonth stores the row and returns a synthetic reference.
func (s *Store) WriteMonth(_ context.Context, year, month int, label string, sum core.MonthSummary) (string, error) {
	if err := core.ValidateMonth(month); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[year] == nil {
		s.rows[year] = map[int]row{}
	}
	s.rows[year][month] = row{label: label, summary: sum}
	s.writes++
	return fmt.Sprintf("mem:%d:%d", year, ports.RowNumber(month)), nil
}

func (s *Store) ReadMonth(_ context.Context, year, month int) (core.MonthSummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[year][month]
	return r.summary, ok, nil
}

// Label returns the label written for a month.
func (s *Store) Label(year, month int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[year][month].label
}

// Writes counts every WriteMonth call.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
