// Package orchestrator runs the sync pipeline per supplier and merges the
// per-supplier results. Config and logging are set up by the caller; this
// package only drives pipelines.
package orchestrator

import (
	"context"
	"time"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
	"github.com/promoforge/catsync/pkg/logger"
)

// Orchestrator drives one pipeline per configured supplier, sequentially.
// Component instances are built fresh per run and never shared.
type Orchestrator struct {
	cfg      *config.Config
	registry *etl.Registry
	metrics  *etl.Metrics
}

func New(cfg *config.Config, registry *etl.Registry) *Orchestrator {
	return &Orchestrator{cfg: cfg, registry: registry}
}

// WithMetrics attaches a metrics bundle to every pipeline the orchestrator
// builds.
func (o *Orchestrator) WithMetrics(m *etl.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// RunFullSync syncs one supplier, or all configured suppliers when
// supplierID is empty. A supplier that cannot be built or run still yields a
// failed Result and never stops the others.
func (o *Orchestrator) RunFullSync(ctx context.Context, supplierID string) map[string]*etl.Result {
	return o.runAll(ctx, supplierID, func(p *etl.Pipeline) *etl.Result {
		return p.RunFullSync(ctx)
	})
}

// RunIncrementalSync syncs records changed since the given time; pipelines
// without incremental support fall back to a full sync.
func (o *Orchestrator) RunIncrementalSync(ctx context.Context, supplierID string, since time.Time) map[string]*etl.Result {
	return o.runAll(ctx, supplierID, func(p *etl.Pipeline) *etl.Result {
		return p.RunIncrementalSync(ctx, since)
	})
}

func (o *Orchestrator) runAll(ctx context.Context, supplierID string, run func(*etl.Pipeline) *etl.Result) map[string]*etl.Result {
	results := make(map[string]*etl.Result)

	for _, sid := range o.supplierIDs(supplierID) {
		supplierCfg, ok := o.cfg.Suppliers[sid]
		if !ok {
			logger.Errorf("no configuration found for supplier %s", sid)
			results[sid] = failedResult("no configuration found for supplier " + sid)
			continue
		}

		pipeline, err := o.buildPipeline(ctx, supplierCfg)
		if err != nil {
			logger.Errorf("failed to build pipeline for supplier %s: %v", sid, err)
			results[sid] = failedResult(err.Error())
			continue
		}

		result := run(pipeline)
		_ = pipeline.Loader.Close(ctx)
		results[sid] = result

		logger.Infow("supplier sync completed",
			"supplier", sid,
			"status", string(result.Status),
			"processed", result.ProcessedCount,
			"success", result.SuccessCount,
			"errors", result.ErrorCount,
			"duration", result.Duration().String(),
		)
	}
	return results
}

// ValidateAllConnections probes every configured supplier's extractor and
// the loader without moving any data.
func (o *Orchestrator) ValidateAllConnections(ctx context.Context) map[string]bool {
	results := make(map[string]bool)

	for _, sid := range o.supplierIDs("") {
		pipeline, err := o.buildPipeline(ctx, o.cfg.Suppliers[sid])
		if err != nil {
			logger.Errorf("failed to build pipeline for supplier %s: %v", sid, err)
			results[sid] = false
			continue
		}
		results[sid] = pipeline.Extractor.ValidateConnection(ctx) && pipeline.Loader.ValidateConnection(ctx)
		_ = pipeline.Loader.Close(ctx)
	}
	return results
}

// Status reports supplier connectivity plus collection stats when the
// document store is reachable.
func (o *Orchestrator) Status(ctx context.Context) map[string]any {
	status := map[string]any{
		"timestamp": time.Now().UTC(),
		"suppliers": o.ValidateAllConnections(ctx),
	}

	loader, err := etl.NewMongoLoader(ctx, o.cfg.Database)
	if err != nil {
		status["database"] = map[string]any{"connected": false, "error": err.Error()}
		return status
	}
	defer loader.Close(ctx)

	stats, err := loader.CollectionStats(ctx)
	if err != nil {
		status["database"] = map[string]any{"connected": true, "error": err.Error()}
		return status
	}
	status["database"] = map[string]any{"connected": true, "stats": stats}
	return status
}

func (o *Orchestrator) buildPipeline(ctx context.Context, supplierCfg config.SupplierConfig) (*etl.Pipeline, error) {
	batchSize := supplierCfg.BatchSize
	if batchSize <= 0 {
		batchSize = etl.DefaultBatchSize
	}

	pipeline, err := o.registry.CreatePipeline(ctx, supplierCfg, o.cfg.Database, batchSize)
	if err != nil {
		return nil, err
	}
	pipeline.Metrics = o.metrics
	return pipeline, nil
}

func (o *Orchestrator) supplierIDs(only string) []string {
	if only != "" {
		return []string{only}
	}
	ids := make([]string, 0, len(o.cfg.Suppliers))
	for id := range o.cfg.Suppliers {
		ids = append(ids, id)
	}
	return ids
}

func failedResult(msg string) *etl.Result {
	result := etl.NewResult()
	result.Status = etl.StatusFailed
	result.AddError(msg)
	result.Finalize()
	return result
}
