package etl

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/promoforge/catsync/internal/config"
)

// DefaultLoaderType is used when a loader config does not name one.
const DefaultLoaderType = "document-store"

type (
	ExtractorFactory   func(cfg config.SupplierConfig) (Extractor, error)
	TransformerFactory func(cfg config.SupplierConfig) (Transformer, error)
	LoaderFactory      func(ctx context.Context, cfg config.DatabaseConfig) (Loader, error)
)

// Registry maps supplier identifiers to extractor/transformer factories and
// loader-type identifiers to loader factories. It is populated by explicit
// registration calls at process start and read-only afterwards; lookups are
// safe for concurrent use. There is no removal operation.
type Registry struct {
	mu           sync.RWMutex
	extractors   map[string]ExtractorFactory
	transformers map[string]TransformerFactory
	loaders      map[string]LoaderFactory
}

func NewRegistry() *Registry {
	return &Registry{
		extractors:   make(map[string]ExtractorFactory),
		transformers: make(map[string]TransformerFactory),
		loaders:      make(map[string]LoaderFactory),
	}
}

// RegisterExtractor binds a supplier id to an extractor factory. The last
// registration for an id wins.
func (r *Registry) RegisterExtractor(supplierID string, fn ExtractorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[supplierID] = fn
}

func (r *Registry) RegisterTransformer(supplierID string, fn TransformerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[supplierID] = fn
}

func (r *Registry) RegisterLoader(loaderType string, fn LoaderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[loaderType] = fn
}

// CreatePipeline resolves and constructs all three components for a supplier
// and returns a fully wired Pipeline. Any lookup miss fails with a
// *ConfigurationError naming the missing identifier, and nothing is
// constructed. Transformers implementing Primer are primed with auxiliary
// extractor data before the pipeline is handed back.
func (r *Registry) CreatePipeline(ctx context.Context, supplierCfg config.SupplierConfig, loaderCfg config.DatabaseConfig, batchSize int) (*Pipeline, error) {
	loaderType := loaderCfg.Type
	if loaderType == "" {
		loaderType = DefaultLoaderType
	}

	r.mu.RLock()
	exFn, exOK := r.extractors[supplierCfg.SupplierID]
	trFn, trOK := r.transformers[supplierCfg.SupplierID]
	ldFn, ldOK := r.loaders[loaderType]
	r.mu.RUnlock()

	if !exOK {
		return nil, &ConfigurationError{Kind: "extractor", Identifier: supplierCfg.SupplierID}
	}
	if !trOK {
		return nil, &ConfigurationError{Kind: "transformer", Identifier: supplierCfg.SupplierID}
	}
	if !ldOK {
		return nil, &ConfigurationError{Kind: "loader", Identifier: loaderType}
	}

	ex, err := exFn(supplierCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing extractor for %s", supplierCfg.SupplierID)
	}
	tr, err := trFn(supplierCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing transformer for %s", supplierCfg.SupplierID)
	}
	ld, err := ldFn(ctx, loaderCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing %s loader", loaderType)
	}

	// Cross-endpoint data must be in place before the first batch is
	// transformed.
	if primer, ok := tr.(Primer); ok {
		if err := primer.Prime(ctx, ex); err != nil {
			_ = ld.Close(ctx)
			return nil, errors.Wrapf(err, "priming transformer for %s", supplierCfg.SupplierID)
		}
	}

	p := NewPipeline(ex, tr, ld, batchSize)
	p.SupplierID = supplierCfg.SupplierID
	return p, nil
}
