package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleEntries() []budget.Entry {
	return []budget.Entry{
		{Project: "Test1", Task: "goals", Resource: "Martin", Date: calendar.Date(2022, 9, 6), Amount: 137.5},
		{Project: "Test1", Task: "Env setup", Resource: "Martin", Date: calendar.Date(2022, 9, 7), Amount: 550},
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	s, _ := newTestStore(t)

	for _, table := range []string{"runs", "entries", "meta"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	var version string
	require.NoError(t, s.db.QueryRow("SELECT value FROM meta WHERE key='schema_version'").Scan(&version))
	assert.Equal(t, "2", version)
}

func TestOpen_Reopen(t *testing.T) {
	s, path := newTestStore(t)
	id, err := s.SaveRun("plan.yaml", sampleEntries())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer again.Close()

	entries, err := again.Entries(id)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpen_ForeignKeys(t *testing.T) {
	s, _ := newTestStore(t)
	id, err := s.SaveRun("plan.yaml", sampleEntries())
	require.NoError(t, err)

	var on int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)

	_, err = s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	require.NoError(t, err)
	var left int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM entries WHERE run_id = ?", id).Scan(&left))
	assert.Zero(t, left)
}

func TestOpen_MissingDir(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope", "ledger.db"), zerolog.Nop())
	require.Error(t, err)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.SaveRun("plan.yaml", sampleEntries())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Entries(id)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), got)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "plan.yaml", runs[0].Source)
	assert.Equal(t, 2, runs[0].Entries)
	assert.Equal(t, "687.50", runs[0].Total.StringFixed(2))
}

func TestSaveRun_Empty(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.SaveRun("", nil)
	require.NoError(t, err)

	got, err := s.Entries(id)
	require.NoError(t, err)
	assert.Empty(t, got)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Total.IsZero())
	assert.Equal(t, 0, runs[0].Entries)
}

func TestRuns_NewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.SaveRun("a.yaml", sampleEntries())
	require.NoError(t, err)
	second, err := s.SaveRun("b.yaml", sampleEntries()[:1])
	require.NoError(t, err)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, "137.50", runs[0].Total.StringFixed(2))
}

func TestEntries_UnknownRun(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Entries("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, planerr.ErrReference))
}
