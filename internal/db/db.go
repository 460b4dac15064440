package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle used for triage run persistence.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the run database at path and ensures the base
// schema exists. Use ":memory:" for an ephemeral database in tests.
// Schema changes beyond the base tables are applied through the migrate
// helpers against db/migrations.
func NewDB(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	_, err = handle.Exec(`
		CREATE TABLE IF NOT EXISTS triage_runs (
			run_id            TEXT PRIMARY KEY,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			scene_source      TEXT,
			mode              TEXT,
			params_json       TEXT,
			preset_json       TEXT,
			status            TEXT,
			error             TEXT,
			elapsed_ms        BIGINT,
			objects_total     BIGINT,
			objects_valid     BIGINT,
			objects_skipped   BIGINT,
			collect_count     BIGINT,
			keep_count        BIGINT,
			coarse_rays       BIGINT,
			fine_rays         BIGINT,
			early_exits       BIGINT
		);
		CREATE TABLE IF NOT EXISTS triage_run_objects (
			run_id            TEXT NOT NULL,
			object_id         TEXT NOT NULL,
			name              TEXT,
			volume            DOUBLE,
			valid             INTEGER,
			reason            TEXT,
			verdict           TEXT,
			occlusion_fraction DOUBLE,
			occlusion_class   TEXT,
			rays_tested       BIGINT,
			PRIMARY KEY (run_id, object_id),
			FOREIGN KEY (run_id) REFERENCES triage_runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_run_objects_verdict
			ON triage_run_objects(run_id, verdict);
	`)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to create base schema: %w", err)
	}

	return &DB{handle}, nil
}
