package store

import "fmt"

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		project TEXT NOT NULL,
		task TEXT NOT NULL,
		resource TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		subcategory TEXT NOT NULL DEFAULT '',
		day TEXT NOT NULL,
		amount REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_entries_task ON entries(run_id, task);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("v1 schema: %w", err)
	}
	return nil
}

// migrateV2 adds the decimal run total. Older databases get the column
// backfilled from their entries.
func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	if err == nil && version >= "2" {
		return nil
	}

	var cols int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = 'total'").Scan(&cols); err != nil {
		return fmt.Errorf("v2 inspect: %w", err)
	}
	if cols == 0 {
		if _, err := s.db.Exec("ALTER TABLE runs ADD COLUMN total TEXT NOT NULL DEFAULT '0'"); err != nil {
			return fmt.Errorf("v2 add total: %w", err)
		}
	}
	if _, err := s.db.Exec(`
		UPDATE runs SET total = COALESCE((SELECT printf('%.2f', SUM(amount)) FROM entries WHERE entries.run_id = runs.id), '0')
		WHERE total = '0'`); err != nil {
		return fmt.Errorf("v2 backfill: %w", err)
	}
	if _, err := s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', '2')"); err != nil {
		return fmt.Errorf("v2 version: %w", err)
	}
	return nil
}
