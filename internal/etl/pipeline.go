package etl

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/catsync/pkg/logger"
)

const DefaultBatchSize = 100

// Pipeline wires one extractor, one transformer, and one loader, and drives
// extraction in fixed-size batches with per-batch failure isolation. A
// Pipeline is single-use per run and must not be shared across concurrent
// runs.
type Pipeline struct {
	Extractor   Extractor
	Transformer Transformer
	Loader      Loader
	BatchSize   int

	SupplierID string
	Metrics    *Metrics
}

// NewPipeline builds a pipeline, normalizing a non-positive batch size to the
// default.
func NewPipeline(ex Extractor, tr Transformer, ld Loader, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		Extractor:   ex,
		Transformer: tr,
		Loader:      ld,
		BatchSize:   batchSize,
	}
}

// RunFullSync streams all records from the extractor through transform and
// load. Every exit path, including panics, yields a finalized Result;
// nothing escapes the pipeline boundary.
func (p *Pipeline) RunFullSync(ctx context.Context) *Result {
	return p.run(ctx, p.Extractor.ExtractProducts(ctx))
}

// RunIncrementalSync syncs records changed since the given time. When the
// extractor has no incremental support it falls back to a full sync.
func (p *Pipeline) RunIncrementalSync(ctx context.Context, since time.Time) *Result {
	inc, ok := p.Extractor.(IncrementalExtractor)
	if !ok {
		logger.Warnf("supplier %s: incremental sync not supported, running full sync", p.SupplierID)
		return p.RunFullSync(ctx)
	}
	return p.run(ctx, inc.ExtractProductsSince(ctx, since))
}

func (p *Pipeline) run(ctx context.Context, stream iter.Seq2[RawRecord, error]) (result *Result) {
	result = NewResult()
	result.Metadata["run_id"] = uuid.NewString()
	result.Metadata["supplier_id"] = p.SupplierID
	result.Metadata["batch_size"] = p.BatchSize

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("supplier %s: sync panicked: %v", p.SupplierID, r)
			result.Status = StatusFailed
			result.Errors = append(result.Errors, fmt.Sprintf("unexpected failure: %v", r))
		}
		result.Finalize()
		p.Metrics.IncSync(p.SupplierID, result.Status)
	}()

	logger.Infow("sync starting",
		"supplier", p.SupplierID,
		"batch_size", p.BatchSize,
		"run_id", result.Metadata["run_id"],
	)

	if err := p.validateConnections(ctx); err != nil {
		result.Status = StatusFailed
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	batch := make([]RawRecord, 0, p.BatchSize)
	var streamErr error

	for raw, err := range stream {
		if err != nil {
			streamErr = err
			break
		}
		result.ProcessedCount++
		p.Metrics.AddRecords(p.SupplierID, 1)

		batch = append(batch, raw)
		if len(batch) >= p.BatchSize {
			p.processBatch(ctx, batch, result)
			batch = batch[:0]
		}
	}

	if streamErr != nil {
		// An extraction failure aborts remaining batches; counts so far are
		// preserved.
		logger.Errorf("supplier %s: extraction failed after %d records: %v",
			p.SupplierID, result.ProcessedCount, streamErr)
		result.Status = StatusFailed
		result.Errors = append(result.Errors, fmt.Sprintf("extraction failed: %v", streamErr))
		return result
	}

	if len(batch) > 0 {
		p.processBatch(ctx, batch, result)
	}

	result.DecideStatus()

	logger.Infow("sync finished",
		"supplier", p.SupplierID,
		"status", string(result.Status),
		"processed", result.ProcessedCount,
		"success", result.SuccessCount,
		"errors", result.ErrorCount,
	)
	return result
}

// processBatch transforms then loads one batch. A failure of the whole batch
// is counted against every record in it and never aborts later batches.
func (p *Pipeline) processBatch(ctx context.Context, batch []RawRecord, result *Result) {
	start := time.Now()
	p.Metrics.IncBatch(p.SupplierID)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("supplier %s: batch of %d failed: %v", p.SupplierID, len(batch), r)
			result.ErrorCount += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("batch processing error: %v", r))
			p.Metrics.IncBatchFailure(p.SupplierID)
		}
		p.Metrics.ObserveBatch(time.Since(start))
	}()

	products := p.Transformer.TransformBatch(batch)
	loadResult := p.Loader.LoadProducts(ctx, products)

	// Records dropped by the transformer never reached the loader; count
	// them as errors here so the batch still accounts for every record.
	if dropped := len(batch) - len(products); dropped > 0 {
		result.ErrorCount += dropped
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d of %d records failed transformation", dropped, len(batch)))
	}

	result.Merge(loadResult)
	p.Metrics.AddLoadErrors(p.SupplierID, loadResult.ErrorCount)
}

func (p *Pipeline) validateConnections(ctx context.Context) error {
	if !p.Extractor.ValidateConnection(ctx) {
		logger.Errorf("supplier %s: extractor connection validation failed", p.SupplierID)
		return &ConnectionError{Component: "extractor"}
	}
	if !p.Loader.ValidateConnection(ctx) {
		logger.Errorf("supplier %s: loader connection validation failed", p.SupplierID)
		return &ConnectionError{Component: "loader"}
	}
	return nil
}
