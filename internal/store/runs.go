package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
)

// Run is a stored budget run.
type Run struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Total     decimal.Decimal
	Entries   int
}

// SaveRun stores entries as a new run in a single transaction and returns
// the run id.
func (s *Store) SaveRun(source string, entries []budget.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	total := budget.Summarize(entries).Grand

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO runs (id, source, created_at, total) VALUES (?, ?, ?, ?)",
		id, source, time.Now().UnixMilli(), total.String(),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO entries (run_id, seq, project, task, resource, category, subcategory, day, amount)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(id, i, e.Project, e.Task, e.Resource, e.Category, e.Subcategory,
			calendar.Format(e.Date), e.Amount); err != nil {
			return "", fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	s.logger.Info().Str("run_id", id).Int("entries", len(entries)).Str("total", total.StringFixed(2)).Msg("run saved")
	return id, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT r.id, r.source, r.created_at, r.total, COUNT(e.seq)
	FROM runs r LEFT JOIN entries e ON e.run_id = r.id
	GROUP BY r.id
	ORDER BY r.created_at DESC, r.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			created int64
			total   string
		)
		if err := rows.Scan(&r.ID, &r.Source, &created, &total, &r.Entries); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		if r.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("run %s total %q: %w", r.ID, total, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Entries returns the rows of a run in their saved order.
func (s *Store) Entries(runID string) ([]budget.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&n); err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}
	if n == 0 {
		return nil, &planerr.RefError{Kind: "run", Target: runID}
	}

	rows, err := s.db.Query(`
	SELECT project, task, resource, category, subcategory, day, amount
	FROM entries WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []budget.Entry
	for rows.Next() {
		var (
			e   budget.Entry
			day string
		)
		if err := rows.Scan(&e.Project, &e.Task, &e.Resource, &e.Category, &e.Subcategory, &day, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Date, err = calendar.Parse(day); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
