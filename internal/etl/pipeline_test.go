package etl

import (
	"context"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/catsync/pkg/models"
)

type stubExtractor struct {
	records []RawRecord
	failAt  int // yield an error instead of the record at this index, -1 to disable
	valid   bool
}

func newStubExtractor(n int) *stubExtractor {
	records := make([]RawRecord, n)
	for i := range records {
		records[i] = RawRecord{"master_code": fmt.Sprintf("P%03d", i), "product_name": "Product"}
	}
	return &stubExtractor{records: records, failAt: -1, valid: true}
}

func (s *stubExtractor) ExtractProducts(context.Context) iter.Seq2[RawRecord, error] {
	return func(yield func(RawRecord, error) bool) {
		for i, rec := range s.records {
			if i == s.failAt {
				yield(nil, fmt.Errorf("gateway timeout"))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *stubExtractor) ExtractPricing(context.Context, []string) iter.Seq2[RawRecord, error] {
	return func(func(RawRecord, error) bool) {}
}

func (s *stubExtractor) ExtractStock(context.Context, []string) iter.Seq2[RawRecord, error] {
	return func(func(RawRecord, error) bool) {}
}

func (s *stubExtractor) ValidateConnection(context.Context) bool { return s.valid }

// incrementalStubExtractor additionally records the since argument.
type incrementalStubExtractor struct {
	*stubExtractor
	since time.Time
}

func (s *incrementalStubExtractor) ExtractProductsSince(ctx context.Context, since time.Time) iter.Seq2[RawRecord, error] {
	s.since = since
	return s.ExtractProducts(ctx)
}

type stubTransformer struct {
	rejectCodes map[string]bool
}

func (s *stubTransformer) TransformProduct(raw RawRecord) (*models.Product, error) {
	code, _ := raw["master_code"].(string)
	if s.rejectCodes[code] {
		return nil, &TransformationError{RecordID: code, Err: fmt.Errorf("missing name")}
	}
	return &models.Product{
		ProductID: "test_" + code,
		Supplier:  models.Supplier{ID: "test"},
		Name:      "Product",
	}, nil
}

func (s *stubTransformer) TransformBatch(raws []RawRecord) []*models.Product {
	products := make([]*models.Product, 0, len(raws))
	for _, raw := range raws {
		if p, err := s.TransformProduct(raw); err == nil {
			products = append(products, p)
		}
	}
	return products
}

func (s *stubTransformer) CreateSupplierInfo() models.Supplier {
	return models.Supplier{ID: "test", Name: "Test Supplier"}
}

type stubLoader struct {
	batches      [][]*models.Product
	panicBatches map[int]bool // panic on the nth LoadProducts call
	calls        int
	valid        bool
	closed       bool
}

func newStubLoader() *stubLoader {
	return &stubLoader{valid: true, panicBatches: map[int]bool{}}
}

func (s *stubLoader) LoadProducts(_ context.Context, products []*models.Product) *Result {
	call := s.calls
	s.calls++
	if s.panicBatches[call] {
		panic("database connection reset")
	}
	s.batches = append(s.batches, products)

	r := NewResult()
	r.SuccessCount = len(products)
	r.DecideStatus()
	r.Finalize()
	return r
}

func (s *stubLoader) UpsertProduct(context.Context, *models.Product) (bool, error) {
	return true, nil
}

func (s *stubLoader) DeleteProducts(context.Context, []string) (int64, error) { return 0, nil }
func (s *stubLoader) SetupDatabase(context.Context) error                     { return nil }
func (s *stubLoader) ValidateConnection(context.Context) bool                 { return s.valid }
func (s *stubLoader) Close(context.Context) error                             { s.closed = true; return nil }

func (s *stubLoader) loadedTotal() int {
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestNewPipelineNormalizesBatchSize(t *testing.T) {
	p := NewPipeline(newStubExtractor(0), &stubTransformer{}, newStubLoader(), 0)
	assert.Equal(t, DefaultBatchSize, p.BatchSize)

	p = NewPipeline(newStubExtractor(0), &stubTransformer{}, newStubLoader(), -5)
	assert.Equal(t, DefaultBatchSize, p.BatchSize)

	p = NewPipeline(newStubExtractor(0), &stubTransformer{}, newStubLoader(), 25)
	assert.Equal(t, 25, p.BatchSize)
}

func TestRunFullSyncCountsEveryRecord(t *testing.T) {
	for _, batchSize := range []int{1, 7, 10, 100} {
		t.Run(fmt.Sprintf("batch_size_%d", batchSize), func(t *testing.T) {
			loader := newStubLoader()
			p := NewPipeline(newStubExtractor(25), &stubTransformer{}, loader, batchSize)

			result := p.RunFullSync(context.Background())

			assert.Equal(t, StatusSuccess, result.Status)
			assert.Equal(t, 25, result.ProcessedCount)
			assert.Equal(t, 25, result.SuccessCount)
			assert.Equal(t, 0, result.ErrorCount)
			assert.Equal(t, 25, loader.loadedTotal())
			assert.False(t, result.EndTime.IsZero())
		})
	}
}

func TestEmptySourceIsSuccess(t *testing.T) {
	loader := newStubLoader()
	p := NewPipeline(newStubExtractor(0), &stubTransformer{}, loader, 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Zero(t, result.ProcessedCount)
	assert.Empty(t, loader.batches)
}

func TestTransformFailureYieldsPartialSuccess(t *testing.T) {
	loader := newStubLoader()
	tr := &stubTransformer{rejectCodes: map[string]bool{"P001": true}}
	p := NewPipeline(newStubExtractor(3), tr, loader, 100)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusPartialSuccess, result.Status)
	assert.Equal(t, 3, result.ProcessedCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "failed transformation")
}

func TestExtractorConnectionFailureShortCircuits(t *testing.T) {
	ex := newStubExtractor(10)
	ex.valid = false
	loader := newStubLoader()
	p := NewPipeline(ex, &stubTransformer{}, loader, 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Zero(t, result.ProcessedCount)
	assert.Empty(t, loader.batches, "no record may reach the loader")
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "extractor")
	assert.False(t, result.EndTime.IsZero())
}

func TestLoaderConnectionFailureShortCircuits(t *testing.T) {
	loader := newStubLoader()
	loader.valid = false
	p := NewPipeline(newStubExtractor(10), &stubTransformer{}, loader, 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Zero(t, result.ProcessedCount)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "loader")
}

func TestMidStreamExtractionErrorAbortsRemainder(t *testing.T) {
	ex := newStubExtractor(5)
	ex.failAt = 3
	loader := newStubLoader()
	p := NewPipeline(ex, &stubTransformer{}, loader, 2)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 3, result.ProcessedCount, "counts up to the failure are preserved")
	assert.Equal(t, 2, loader.loadedTotal(), "the half-full buffer must not be flushed")
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "extraction failed")
	assert.False(t, result.EndTime.IsZero())
}

func TestBatchPanicIsIsolated(t *testing.T) {
	loader := newStubLoader()
	loader.panicBatches[0] = true
	p := NewPipeline(newStubExtractor(20), &stubTransformer{}, loader, 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusPartialSuccess, result.Status)
	assert.Equal(t, 20, result.ProcessedCount)
	assert.Equal(t, 10, result.SuccessCount, "the second batch still loads")
	assert.Equal(t, 10, result.ErrorCount, "every record of the failed batch counts")
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "batch processing error")
}

func TestAllBatchesPanicIsFailed(t *testing.T) {
	loader := newStubLoader()
	loader.panicBatches[0] = true
	loader.panicBatches[1] = true
	p := NewPipeline(newStubExtractor(20), &stubTransformer{}, loader, 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 20, result.ErrorCount)
	assert.Zero(t, result.SuccessCount)
}

type panickingExtractor struct{ stubExtractor }

func (p *panickingExtractor) ExtractProducts(context.Context) iter.Seq2[RawRecord, error] {
	return func(func(RawRecord, error) bool) {
		panic("broken stream")
	}
}

func TestRunSurvivesPanicWithFinalizedResult(t *testing.T) {
	ex := &panickingExtractor{stubExtractor{failAt: -1, valid: true}}
	p := NewPipeline(ex, &stubTransformer{}, newStubLoader(), 10)

	result := p.RunFullSync(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "unexpected failure")
	assert.False(t, result.EndTime.IsZero())
}

func TestIncrementalSyncFallsBackToFull(t *testing.T) {
	loader := newStubLoader()
	p := NewPipeline(newStubExtractor(5), &stubTransformer{}, loader, 10)

	result := p.RunIncrementalSync(context.Background(), time.Now().Add(-24*time.Hour))

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 5, result.ProcessedCount)
}

func TestIncrementalSyncPassesSince(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	ex := &incrementalStubExtractor{stubExtractor: newStubExtractor(4)}
	p := NewPipeline(ex, &stubTransformer{}, newStubLoader(), 10)

	result := p.RunIncrementalSync(context.Background(), since)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, since, ex.since)
}

func TestRunStampsMetadata(t *testing.T) {
	p := NewPipeline(newStubExtractor(1), &stubTransformer{}, newStubLoader(), 10)
	p.SupplierID = "test"

	result := p.RunFullSync(context.Background())

	assert.NotEmpty(t, result.Metadata["run_id"])
	assert.Equal(t, "test", result.Metadata["supplier_id"])
	assert.Equal(t, 10, result.Metadata["batch_size"])
}

func TestMetricsAreOptional(t *testing.T) {
	p := NewPipeline(newStubExtractor(5), &stubTransformer{}, newStubLoader(), 2)
	require.Nil(t, p.Metrics)

	// Must not panic without a metrics bundle attached.
	result := p.RunFullSync(context.Background())
	assert.Equal(t, StatusSuccess, result.Status)
}
