package triage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/parts.report/internal/monitoring"
	storage "github.com/banshee-data/parts.report/internal/triage/storage/sqlite"
)

// RunManager coordinates triage run lifecycle and persistence. It is safe
// for concurrent use; each Execute call is an independent run. A nil
// database disables persistence without changing run behavior.
type RunManager struct {
	mu     sync.Mutex
	store  *storage.TriageRunStore
	engine *Engine
}

// NewRunManager creates a manager for the given engine. db may be nil.
func NewRunManager(db *sql.DB, engine *Engine) *RunManager {
	m := &RunManager{engine: engine}
	if db != nil {
		m.store = storage.NewTriageRunStore(db)
	}
	return m
}

// Engine returns the wrapped engine.
func (m *RunManager) Engine() *Engine { return m.engine }

// Execute runs one triage pass and persists its parameters and outcome.
// The run ID is recorded before the pass starts so failed and cancelled
// runs stay visible in history with their failure reason.
func (m *RunManager) Execute(ctx context.Context, req TriageRequest) (string, *TriageResult, error) {
	runID := uuid.New().String()

	if m.store != nil {
		params, err := req.ToJSON()
		if err != nil {
			return "", nil, err
		}
		m.mu.Lock()
		err = m.store.InsertRun(&storage.TriageRun{
			RunID:       runID,
			CreatedAt:   time.Now().UTC(),
			SceneSource: m.engine.Scene().Source,
			Mode:        string(req.normalizedMode()),
			ParamsJSON:  params,
			PresetJSON:  string(req.Preset),
			Status:      storage.StatusRunning,
		})
		m.mu.Unlock()
		if err != nil {
			return "", nil, err
		}
	}

	res, err := m.engine.Run(ctx, req)
	if err != nil {
		if m.store != nil {
			if ferr := m.store.MarkRunFailed(runID, err.Error()); ferr != nil {
				monitoring.Logf("failed to record run failure for %s: %v", runID, ferr)
			}
		}
		return runID, nil, err
	}

	if m.store != nil {
		if err := m.persistResult(runID, res); err != nil {
			// The partition itself is sound; a persistence failure is
			// reported but does not invalidate the run.
			monitoring.Logf("failed to persist run %s: %v", runID, err)
		}
	}
	return runID, res, nil
}

func (m *RunManager) persistResult(runID string, res *TriageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	occlusionByID := make(map[string]OcclusionResult, len(res.Occlusion))
	for _, oc := range res.Occlusion {
		occlusionByID[oc.ObjectID] = oc
	}
	volumeByID := make(map[string]float64, res.Stats.ValidObjects)
	for _, rec := range res.Stats.Records() {
		volumeByID[rec.Object.ID] = rec.Volume
	}

	var objects []storage.RunObject
	appendSet := func(objs []*SceneObject, verdict string) {
		for _, o := range objs {
			row := storage.RunObject{
				RunID:    runID,
				ObjectID: o.ID,
				Name:     o.Name,
				Volume:   volumeByID[o.ID],
				Valid:    true,
				Verdict:  verdict,
			}
			if oc, ok := occlusionByID[o.ID]; ok {
				row.OcclusionFraction = oc.Fraction
				row.OcclusionClass = oc.ClassName
				row.RaysTested = oc.RaysTested()
			}
			objects = append(objects, row)
		}
	}
	appendSet(res.Partition.Collect, storage.VerdictCollect)
	appendSet(res.Partition.Keep, storage.VerdictKeep)
	for _, skipped := range res.Partition.Skipped {
		objects = append(objects, storage.RunObject{
			RunID:    runID,
			ObjectID: skipped.ObjectID,
			Reason:   skipped.Reason,
			Verdict:  storage.VerdictSkipped,
		})
	}
	if err := m.store.InsertRunObjects(objects); err != nil {
		return err
	}

	return m.store.CompleteRun(&storage.TriageRun{
		RunID:          runID,
		ElapsedMs:      res.Summary.Elapsed.Milliseconds(),
		ObjectsTotal:   res.Summary.ObjectsTotal,
		ObjectsValid:   res.Summary.ObjectsValid,
		ObjectsSkipped: res.Summary.ObjectsSkipped,
		CollectCount:   res.Summary.CollectCount,
		KeepCount:      res.Summary.KeepCount,
		CoarseRays:     res.Summary.CoarseRays,
		FineRays:       res.Summary.FineRays,
		EarlyExits:     res.Summary.EarlyExits,
	})
}

// Store exposes the underlying run store for history queries; nil when
// persistence is disabled.
func (m *RunManager) Store() *storage.TriageRunStore { return m.store }
