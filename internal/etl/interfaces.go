package etl

import (
	"context"
	"iter"
	"time"

	"github.com/promoforge/catsync/pkg/models"
)

// RawRecord is a supplier-native data item; its shape is defined by the
// supplier, not by this package.
type RawRecord = map[string]any

// Extractor produces lazy record streams from a supplier source. Iteration
// stops at the first yielded error. Implementations may cache auxiliary
// lookups for the lifetime of the instance; they are not safe for concurrent
// use across pipeline runs.
type Extractor interface {
	ExtractProducts(ctx context.Context) iter.Seq2[RawRecord, error]
	ExtractPricing(ctx context.Context, productCodes []string) iter.Seq2[RawRecord, error]
	// ExtractStock may legitimately yield nothing when the supplier has no
	// stock feed.
	ExtractStock(ctx context.Context, productCodes []string) iter.Seq2[RawRecord, error]
	// ValidateConnection performs a cheap probe and returns false on any
	// failure instead of propagating it.
	ValidateConnection(ctx context.Context) bool
}

// IncrementalExtractor is implemented by extractors that can stream only the
// records changed since a point in time.
type IncrementalExtractor interface {
	ExtractProductsSince(ctx context.Context, since time.Time) iter.Seq2[RawRecord, error]
}

// Transformer maps supplier-native records onto the unified schema.
type Transformer interface {
	// TransformProduct returns a *TransformationError when required fields
	// are unmappable.
	TransformProduct(raw RawRecord) (*models.Product, error)
	// TransformBatch maps records independently; a failing record is logged
	// and dropped, never aborting the rest of the batch.
	TransformBatch(raws []RawRecord) []*models.Product
	// CreateSupplierInfo is pure and side-effect-free.
	CreateSupplierInfo() models.Supplier
}

// Primer is implemented by transformers that need cross-endpoint auxiliary
// data (pricing tables, print data) injected before the first batch. The
// registry runs it during pipeline construction.
type Primer interface {
	Prime(ctx context.Context, ex Extractor) error
}

// Loader persists normalized products. The connection it owns must be
// released with Close when the loader is discarded.
type Loader interface {
	LoadProducts(ctx context.Context, products []*models.Product) *Result
	// UpsertProduct reports true iff a document was created or changed.
	UpsertProduct(ctx context.Context, product *models.Product) (bool, error)
	DeleteProducts(ctx context.Context, productIDs []string) (int64, error)
	// SetupDatabase idempotently ensures required indexes exist.
	SetupDatabase(ctx context.Context) error
	// ValidateConnection attempts a live round-trip plus schema setup and
	// returns false on any failure.
	ValidateConnection(ctx context.Context) bool
	Close(ctx context.Context) error
}
