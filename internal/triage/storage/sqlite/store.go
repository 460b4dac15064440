// Package sqlite persists triage runs and their per-object results.
// Every completed run carries its full parameter JSON so any stored run
// can be replayed with identical settings.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Per-object verdicts.
const (
	VerdictCollect = "collect"
	VerdictKeep    = "keep"
	VerdictSkipped = "skipped"
)

// TriageRun is one persisted analysis session.
type TriageRun struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	SceneSource string    `json:"scene_source"`
	Mode        string    `json:"mode"`
	ParamsJSON  string    `json:"params_json"`
	PresetJSON  string    `json:"preset_json,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`

	ObjectsTotal   int `json:"objects_total"`
	ObjectsValid   int `json:"objects_valid"`
	ObjectsSkipped int `json:"objects_skipped"`
	CollectCount   int `json:"collect_count"`
	KeepCount      int `json:"keep_count"`
	CoarseRays     int `json:"coarse_rays"`
	FineRays       int `json:"fine_rays"`
	EarlyExits     int `json:"early_exits"`
}

// RunObject is one object's outcome within a run.
type RunObject struct {
	RunID             string  `json:"run_id"`
	ObjectID          string  `json:"object_id"`
	Name              string  `json:"name"`
	Volume            float64 `json:"volume"`
	Valid             bool    `json:"valid"`
	Reason            string  `json:"reason,omitempty"`
	Verdict           string  `json:"verdict"`
	OcclusionFraction float64 `json:"occlusion_fraction,omitempty"`
	OcclusionClass    string  `json:"occlusion_class,omitempty"`
	RaysTested        int     `json:"rays_tested,omitempty"`
}

// TriageRunStore manages persistence for triage runs and run objects.
type TriageRunStore struct {
	db *sql.DB
}

// NewTriageRunStore creates a store backed by the given database.
func NewTriageRunStore(db *sql.DB) *TriageRunStore {
	return &TriageRunStore{db: db}
}

// InsertRun records a new run, normally in StatusRunning.
func (s *TriageRunStore) InsertRun(run *TriageRun) error {
	_, err := s.db.Exec(`
		INSERT INTO triage_runs (
			run_id, created_at, scene_source, mode, params_json, preset_json, status
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt, run.SceneSource, run.Mode,
		run.ParamsJSON, run.PresetJSON, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}
	return nil
}

// CompleteRun marks a run complete and stores its summary counters.
func (s *TriageRunStore) CompleteRun(run *TriageRun) error {
	res, err := s.db.Exec(`
		UPDATE triage_runs SET
			status = ?, elapsed_ms = ?,
			objects_total = ?, objects_valid = ?, objects_skipped = ?,
			collect_count = ?, keep_count = ?,
			coarse_rays = ?, fine_rays = ?, early_exits = ?
		WHERE run_id = ?`,
		StatusComplete, run.ElapsedMs,
		run.ObjectsTotal, run.ObjectsValid, run.ObjectsSkipped,
		run.CollectCount, run.KeepCount,
		run.CoarseRays, run.FineRays, run.EarlyExits,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", run.RunID, err)
	}
	return requireOneRow(res, run.RunID)
}

// MarkRunFailed records a run failure with its reason.
func (s *TriageRunStore) MarkRunFailed(runID, reason string) error {
	res, err := s.db.Exec(
		`UPDATE triage_runs SET status = ?, error = ? WHERE run_id = ?`,
		StatusFailed, reason, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	return requireOneRow(res, runID)
}

func requireOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// InsertRunObjects stores the per-object outcomes for a run in one
// transaction.
func (s *TriageRunStore) InsertRunObjects(objects []RunObject) error {
	if len(objects) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO triage_run_objects (
			run_id, object_id, name, volume, valid, reason,
			verdict, occlusion_fraction, occlusion_class, rays_tested
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range objects {
		if _, err := stmt.Exec(
			o.RunID, o.ObjectID, o.Name, o.Volume, o.Valid, o.Reason,
			o.Verdict, o.OcclusionFraction, o.OcclusionClass, o.RaysTested,
		); err != nil {
			return fmt.Errorf("failed to insert object %s for run %s: %w", o.ObjectID, o.RunID, err)
		}
	}

	return tx.Commit()
}

const runColumns = `
	run_id, created_at, scene_source, mode, params_json,
	COALESCE(preset_json, ''), status, COALESCE(error, ''),
	COALESCE(elapsed_ms, 0),
	COALESCE(objects_total, 0), COALESCE(objects_valid, 0), COALESCE(objects_skipped, 0),
	COALESCE(collect_count, 0), COALESCE(keep_count, 0),
	COALESCE(coarse_rays, 0), COALESCE(fine_rays, 0), COALESCE(early_exits, 0)`

func scanRun(row interface{ Scan(...any) error }) (*TriageRun, error) {
	var run TriageRun
	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.SceneSource, &run.Mode, &run.ParamsJSON,
		&run.PresetJSON, &run.Status, &run.Error,
		&run.ElapsedMs,
		&run.ObjectsTotal, &run.ObjectsValid, &run.ObjectsSkipped,
		&run.CollectCount, &run.KeepCount,
		&run.CoarseRays, &run.FineRays, &run.EarlyExits,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches one run by ID.
func (s *TriageRunStore) GetRun(runID string) (*TriageRun, error) {
	run, err := scanRun(s.db.QueryRow(
		`SELECT `+runColumns+` FROM triage_runs WHERE run_id = ?`, runID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *TriageRunStore) ListRuns(limit int) ([]TriageRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM triage_runs ORDER BY created_at DESC, run_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []TriageRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListRunObjects returns every object outcome for a run, collect-set
// first, then ascending volume within each verdict.
func (s *TriageRunStore) ListRunObjects(runID string) ([]RunObject, error) {
	rows, err := s.db.Query(`
		SELECT run_id, object_id, COALESCE(name, ''), COALESCE(volume, 0),
			valid, COALESCE(reason, ''), verdict,
			COALESCE(occlusion_fraction, 0), COALESCE(occlusion_class, ''),
			COALESCE(rays_tested, 0)
		FROM triage_run_objects
		WHERE run_id = ?
		ORDER BY verdict, volume, object_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for run %s: %w", runID, err)
	}
	defer rows.Close()

	var objects []RunObject
	for rows.Next() {
		var o RunObject
		if err := rows.Scan(
			&o.RunID, &o.ObjectID, &o.Name, &o.Volume,
			&o.Valid, &o.Reason, &o.Verdict,
			&o.OcclusionFraction, &o.OcclusionClass, &o.RaysTested,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run object: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}
