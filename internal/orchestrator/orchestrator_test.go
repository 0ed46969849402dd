package orchestrator

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
	"github.com/promoforge/catsync/pkg/models"
)

type fakeExtractor struct {
	n     int
	valid bool
}

func (f *fakeExtractor) ExtractProducts(context.Context) iter.Seq2[etl.RawRecord, error] {
	return func(yield func(etl.RawRecord, error) bool) {
		for i := 0; i < f.n; i++ {
			if !yield(etl.RawRecord{"id": i}, nil) {
				return
			}
		}
	}
}

func (f *fakeExtractor) ExtractPricing(context.Context, []string) iter.Seq2[etl.RawRecord, error] {
	return func(func(etl.RawRecord, error) bool) {}
}

func (f *fakeExtractor) ExtractStock(context.Context, []string) iter.Seq2[etl.RawRecord, error] {
	return func(func(etl.RawRecord, error) bool) {}
}

func (f *fakeExtractor) ValidateConnection(context.Context) bool { return f.valid }

type fakeTransformer struct{}

func (fakeTransformer) TransformProduct(raw etl.RawRecord) (*models.Product, error) {
	return &models.Product{
		ProductID: "fake_1",
		Supplier:  models.Supplier{ID: "fake"},
		Name:      "Fake",
	}, nil
}

func (f fakeTransformer) TransformBatch(raws []etl.RawRecord) []*models.Product {
	products := make([]*models.Product, 0, len(raws))
	for _, raw := range raws {
		p, _ := f.TransformProduct(raw)
		products = append(products, p)
	}
	return products
}

func (fakeTransformer) CreateSupplierInfo() models.Supplier {
	return models.Supplier{ID: "fake"}
}

type fakeLoader struct {
	loaded int
	valid  bool
	closed bool
}

func (f *fakeLoader) LoadProducts(_ context.Context, products []*models.Product) *etl.Result {
	f.loaded += len(products)
	r := etl.NewResult()
	r.SuccessCount = len(products)
	r.DecideStatus()
	r.Finalize()
	return r
}

func (f *fakeLoader) UpsertProduct(context.Context, *models.Product) (bool, error) {
	return true, nil
}

func (f *fakeLoader) DeleteProducts(context.Context, []string) (int64, error) { return 0, nil }
func (f *fakeLoader) SetupDatabase(context.Context) error                     { return nil }
func (f *fakeLoader) ValidateConnection(context.Context) bool                 { return f.valid }
func (f *fakeLoader) Close(context.Context) error                             { f.closed = true; return nil }

func fakeSetup(supplierIDs ...string) (*config.Config, *etl.Registry, map[string]*fakeLoader) {
	cfg := &config.Config{
		Database:  config.DatabaseConfig{Type: "document-store"},
		Suppliers: map[string]config.SupplierConfig{},
	}
	reg := etl.NewRegistry()
	loaders := map[string]*fakeLoader{}

	for _, sid := range supplierIDs {
		sid := sid
		cfg.Suppliers[sid] = config.SupplierConfig{SupplierID: sid, BatchSize: 10}

		loader := &fakeLoader{valid: true}
		loaders[sid] = loader

		reg.RegisterExtractor(sid, func(config.SupplierConfig) (etl.Extractor, error) {
			return &fakeExtractor{n: 5, valid: true}, nil
		})
		reg.RegisterTransformer(sid, func(config.SupplierConfig) (etl.Transformer, error) {
			return fakeTransformer{}, nil
		})
		reg.RegisterLoader("document-store", func(context.Context, config.DatabaseConfig) (etl.Loader, error) {
			return loader, nil
		})
	}
	return cfg, reg, loaders
}

func TestRunFullSyncAllSuppliers(t *testing.T) {
	cfg, reg, loaders := fakeSetup("alpha")
	cfg.Suppliers["beta"] = config.SupplierConfig{SupplierID: "beta"}
	reg.RegisterExtractor("beta", func(config.SupplierConfig) (etl.Extractor, error) {
		return &fakeExtractor{n: 3, valid: true}, nil
	})
	reg.RegisterTransformer("beta", func(config.SupplierConfig) (etl.Transformer, error) {
		return fakeTransformer{}, nil
	})

	results := New(cfg, reg).RunFullSync(context.Background(), "")

	require.Len(t, results, 2)
	assert.Equal(t, etl.StatusSuccess, results["alpha"].Status)
	assert.Equal(t, etl.StatusSuccess, results["beta"].Status)
	assert.Equal(t, 5, results["alpha"].ProcessedCount)
	assert.Equal(t, 3, results["beta"].ProcessedCount)
	assert.True(t, loaders["alpha"].closed, "loader must be released after the run")
}

func TestRunFullSyncSingleSupplier(t *testing.T) {
	cfg, reg, _ := fakeSetup("alpha", "beta")

	results := New(cfg, reg).RunFullSync(context.Background(), "alpha")

	require.Len(t, results, 1)
	require.Contains(t, results, "alpha")
}

func TestRunFullSyncUnknownSupplier(t *testing.T) {
	cfg, reg, _ := fakeSetup("alpha")

	results := New(cfg, reg).RunFullSync(context.Background(), "ghost")

	require.Len(t, results, 1)
	result := results["ghost"]
	require.NotNil(t, result)
	assert.Equal(t, etl.StatusFailed, result.Status)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "no configuration found")
	assert.False(t, result.EndTime.IsZero())
}

func TestBuildFailureIsolatedPerSupplier(t *testing.T) {
	cfg, reg, _ := fakeSetup("alpha")
	// beta is configured but has no registered components.
	cfg.Suppliers["beta"] = config.SupplierConfig{SupplierID: "beta"}

	results := New(cfg, reg).RunFullSync(context.Background(), "")

	require.Len(t, results, 2)
	assert.Equal(t, etl.StatusSuccess, results["alpha"].Status, "one bad supplier must not stop the rest")
	assert.Equal(t, etl.StatusFailed, results["beta"].Status)
	require.NotEmpty(t, results["beta"].Errors)
	assert.Contains(t, results["beta"].Errors[0], "no extractor registered")
}

func TestValidateAllConnections(t *testing.T) {
	cfg, reg, loaders := fakeSetup("alpha")

	statuses := New(cfg, reg).ValidateAllConnections(context.Background())
	assert.Equal(t, map[string]bool{"alpha": true}, statuses)
	assert.True(t, loaders["alpha"].closed)
}

func TestValidateAllConnectionsReportsFailure(t *testing.T) {
	cfg, reg, loaders := fakeSetup("alpha")
	loaders["alpha"].valid = false

	statuses := New(cfg, reg).ValidateAllConnections(context.Background())
	assert.Equal(t, map[string]bool{"alpha": false}, statuses)
}
