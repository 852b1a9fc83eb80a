package outcome

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/33prime/aios-req-engine-sub007/entity"
	"github.com/33prime/aios-req-engine-sub007/metrics"
)

// Store is the persistence surface the engine needs.
type Store interface {
	GetOutcome(ctx context.Context, id string) (*entity.Outcome, error)
	UpdateOutcome(ctx context.Context, o *entity.Outcome) error
	InsertMeasurement(ctx context.Context, m *entity.Measurement) error
	ListMeasurements(ctx context.Context, outcomeID string) ([]*entity.Measurement, error)
	ListHorizons(ctx context.Context, projectID string) ([]*entity.Horizon, error)
	GetHorizon(ctx context.Context, id string) (*entity.Horizon, error)
	UpdateHorizon(ctx context.Context, h *entity.Horizon) error
	InsertHorizon(ctx context.Context, h *entity.Horizon) error
	ListOutcomesByHorizon(ctx context.Context, horizonID string) ([]*entity.Outcome, error)
}

// Engine runs measurement recording and horizon promotion.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates an outcome engine.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// RecordMeasurement appends a measurement to an outcome and recomputes the
// outcome's progress, trend, and status, then refreshes the parent horizon's
// readiness. The readiness refresh is best-effort: its failure never
// downgrades a successfully recorded measurement.
func (e *Engine) RecordMeasurement(ctx context.Context, outcomeID, value string, isBaseline bool, source, note string) (*entity.Outcome, error) {
	o, err := e.store.GetOutcome(ctx, outcomeID)
	if err != nil {
		return nil, fmt.Errorf("load outcome %s: %w", outcomeID, err)
	}

	m := &entity.Measurement{
		OutcomeID:  o.ID,
		ProjectID:  o.ProjectID,
		Value:      value,
		IsBaseline: isBaseline,
		Source:     source,
		Note:       note,
	}
	if err := e.store.InsertMeasurement(ctx, m); err != nil {
		return nil, fmt.Errorf("store measurement: %w", err)
	}

	o.CurrentValue = value
	if isBaseline || o.BaselineValue == "" {
		o.BaselineValue = value
	}

	progress := ComputeProgress(o.ThresholdType, o.BaselineValue, o.CurrentValue, o.ThresholdValue)
	o.ProgressPct = progress.Pct
	o.ProgressError = progress.ParseError

	measurements, err := e.store.ListMeasurements(ctx, o.ID)
	if err != nil {
		// Trend is derived data; a failed listing degrades it to unknown.
		e.logger.Debug("Failed to list measurements for trend", "outcome_id", o.ID, "error", err)
		o.Trend = entity.TrendUnknown
	} else {
		o.Trend = ComputeTrend(measurements)
	}

	o.Status = deriveStatus(o)

	if err := e.store.UpdateOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("update outcome: %w", err)
	}

	e.refreshHorizonReadiness(ctx, o.HorizonID)

	return o, nil
}

// deriveStatus maps progress and trend onto the outcome status.
func deriveStatus(o *entity.Outcome) entity.OutcomeStatus {
	if o.ProgressPct >= 100 {
		return entity.OutcomeAchieved
	}
	if o.Trend == entity.TrendDeclining {
		return entity.OutcomeAtRisk
	}
	return entity.OutcomeTracking
}

// refreshHorizonReadiness recomputes and persists the parent horizon's
// readiness percent. Failures are logged and swallowed.
func (e *Engine) refreshHorizonReadiness(ctx context.Context, horizonID string) {
	if horizonID == "" {
		return
	}
	h, err := e.store.GetHorizon(ctx, horizonID)
	if err != nil {
		e.logger.Warn("Failed to load horizon for readiness refresh",
			"horizon_id", horizonID, "error", err)
		return
	}
	outcomes, err := e.store.ListOutcomesByHorizon(ctx, horizonID)
	if err != nil {
		e.logger.Warn("Failed to list outcomes for readiness refresh",
			"horizon_id", horizonID, "error", err)
		return
	}
	h.ReadinessPct = HorizonReadiness(outcomes)
	if err := e.store.UpdateHorizon(ctx, h); err != nil {
		e.logger.Warn("Failed to persist horizon readiness",
			"horizon_id", horizonID, "error", err)
	}
}

// ShiftResult reports the horizon renumbering performed by a shift.
type ShiftResult struct {
	ArchivedHorizonID string `json:"archived_horizon_id"`
	PromotedHorizonID string `json:"promoted_horizon_id,omitempty"`
	MidTermHorizonID  string `json:"mid_term_horizon_id,omitempty"`
	NewHorizonID      string `json:"new_horizon_id"`
}

// CheckHorizonShift fires the horizon promotion when every blocking outcome
// under the active near-term horizon has been achieved. On fire, H1 is
// archived, H2 becomes the new H1 (recording where it originated), H3
// becomes H2, and a fresh long-term stub is created.
//
// With zero blocking outcomes the shift never fires. The gate is the only
// re-entry guard: calling this twice while the gate still holds would
// double-shift, so callers must invoke it once per achievement event.
func (e *Engine) CheckHorizonShift(ctx context.Context, projectID string) (*ShiftResult, error) {
	horizons, err := e.store.ListHorizons(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list horizons: %w", err)
	}

	var h1, h2, h3 *entity.Horizon
	for _, h := range horizons {
		if h.Status != entity.HorizonActive {
			continue
		}
		switch h.HorizonNumber {
		case 1:
			h1 = h
		case 2:
			h2 = h
		case 3:
			h3 = h
		}
	}
	if h1 == nil {
		return nil, nil
	}

	outcomes, err := e.store.ListOutcomesByHorizon(ctx, h1.ID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes for horizon %s: %w", h1.ID, err)
	}

	blocking := 0
	for _, o := range outcomes {
		if !o.IsBlocking {
			continue
		}
		blocking++
		if o.Status != entity.OutcomeAchieved {
			return nil, nil
		}
	}
	if blocking == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	h1.Status = entity.HorizonAchieved
	h1.AchievedAt = &now
	if err := e.store.UpdateHorizon(ctx, h1); err != nil {
		return nil, fmt.Errorf("archive horizon %s: %w", h1.ID, err)
	}

	result := &ShiftResult{ArchivedHorizonID: h1.ID}

	if h2 != nil {
		h2.HorizonNumber = 1
		h2.OriginatedFrom = h1.ID
		if err := e.store.UpdateHorizon(ctx, h2); err != nil {
			return nil, fmt.Errorf("promote horizon %s: %w", h2.ID, err)
		}
		result.PromotedHorizonID = h2.ID
	}
	if h3 != nil {
		h3.HorizonNumber = 2
		if err := e.store.UpdateHorizon(ctx, h3); err != nil {
			return nil, fmt.Errorf("renumber horizon %s: %w", h3.ID, err)
		}
		result.MidTermHorizonID = h3.ID
	}

	stub := &entity.Horizon{
		ProjectID:     projectID,
		HorizonNumber: 3,
		Title:         "Long-term",
		Status:        entity.HorizonActive,
	}
	if err := e.store.InsertHorizon(ctx, stub); err != nil {
		return nil, fmt.Errorf("create long-term stub: %w", err)
	}
	result.NewHorizonID = stub.ID

	metrics.HorizonShifts.Inc()

	e.logger.Info("Horizon shift completed",
		"project_id", projectID,
		"archived", result.ArchivedHorizonID,
		"promoted", result.PromotedHorizonID,
		"new_stub", result.NewHorizonID)

	return result, nil
}
