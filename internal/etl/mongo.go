package etl

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/pkg/database"
	"github.com/promoforge/catsync/pkg/logger"
	"github.com/promoforge/catsync/pkg/models"
)

// MongoLoader persists normalized products into a MongoDB collection, one
// document per product keyed by product_id. It owns its client exclusively
// and must be closed when discarded.
type MongoLoader struct {
	client     *mongo.Client
	database   string
	collection string
	batchSize  int
}

// NewMongoLoader connects to the configured MongoDB target.
func NewMongoLoader(ctx context.Context, cfg config.DatabaseConfig) (*MongoLoader, error) {
	client, err := database.ConnectMongo(ctx, cfg.ConnectionString)
	if err != nil {
		return nil, &ConnectionError{Component: "loader", Err: err}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = "product_catalog"
	}
	collName := cfg.Collection
	if collName == "" {
		collName = "products"
	}

	logger.Infof("connected to MongoDB: %s.%s", dbName, collName)
	return &MongoLoader{
		client:     client,
		database:   dbName,
		collection: collName,
		batchSize:  batchSize,
	}, nil
}

func (m *MongoLoader) coll() *mongo.Collection {
	return m.client.Database(m.database).Collection(m.collection)
}

// productIndexes is the index set every deployment needs. CreateMany is
// idempotent for identical specs, so SetupDatabase can run on every start.
func productIndexes() []mongo.IndexModel {
	unique := options.Index().SetUnique(true)
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "product_id", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "supplier.id", Value: 1}}},
		{Keys: bson.D{{Key: "supplier_product_code", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: "text"}}},
		{Keys: bson.D{{Key: "categories.name", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: 1}}},
		{Keys: bson.D{{Key: "variants.sku", Value: 1}}},
		{Keys: bson.D{{Key: "is_printable", Value: 1}}},
		{Keys: bson.D{{Key: "minimum_order_quantity", Value: 1}}},
		{Keys: bson.D{{Key: "supplier.id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "categories.name", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "is_printable", Value: 1}, {Key: "status", Value: 1}}},
	}
}

// SetupDatabase ensures all required indexes exist. An index that already
// exists is not an error.
func (m *MongoLoader) SetupDatabase(ctx context.Context) error {
	_, err := m.coll().Indexes().CreateMany(ctx, productIndexes())
	if err != nil && !isIndexExistsError(err) {
		return errors.Wrap(err, "creating indexes")
	}
	return nil
}

func isIndexExistsError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 85 IndexOptionsConflict, 86 IndexKeySpecsConflict
		if cmdErr.Code == 85 || cmdErr.Code == 86 {
			return true
		}
	}
	return strings.Contains(err.Error(), "already exists")
}

// LoadProducts bulk-upserts a batch. Writes are unordered so one rejected
// document never blocks the rest, and the batch is chunked to the configured
// size to bound request size.
func (m *MongoLoader) LoadProducts(ctx context.Context, products []*models.Product) *Result {
	result := NewResult()
	defer result.Finalize()

	if len(products) == 0 {
		result.Status = StatusSuccess
		return result
	}

	var writes []mongo.WriteModel
	now := time.Now().UTC()

	for _, product := range products {
		if err := product.Validate(); err != nil {
			result.AddError(err.Error())
			continue
		}
		product.UpdatedAt = now

		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"product_id": product.ProductID}).
			SetReplacement(product).
			SetUpsert(true))
	}

	for chunk := range chunked(writes, m.batchSize) {
		bulkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		res, err := m.coll().BulkWrite(bulkCtx, chunk, options.BulkWrite().SetOrdered(false))
		cancel()

		if err != nil {
			applyBulkWriteError(result, err, len(chunk))
			continue
		}
		// Matched-but-unchanged documents count as success: re-upserting an
		// identical product is the idempotent happy path, not an error.
		result.SuccessCount += int(res.UpsertedCount + res.MatchedCount)
		logger.Debugf("bulk write: upserted=%d modified=%d matched=%d",
			res.UpsertedCount, res.ModifiedCount, res.MatchedCount)
	}

	result.DecideStatus()
	return result
}

// chunked yields writes in slices of at most size.
func chunked(writes []mongo.WriteModel, size int) iter.Seq[[]mongo.WriteModel] {
	return func(yield func([]mongo.WriteModel) bool) {
		for i := 0; i < len(writes); i += size {
			end := min(i+size, len(writes))
			if !yield(writes[i:end]) {
				return
			}
		}
	}
}

// applyBulkWriteError folds a partial bulk-write failure into the result:
// rejected documents become per-document errors, everything the server
// acknowledged still counts as success.
func applyBulkWriteError(result *Result, err error, chunkLen int) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		// Whole chunk lost (network, context). Every document counts as an
		// error under one synthesized message.
		result.ErrorCount += chunkLen
		result.Errors = append(result.Errors, fmt.Sprintf("bulk write failed for %d documents: %v", chunkLen, err))
		return
	}

	for _, we := range bwe.WriteErrors {
		result.AddError(fmt.Sprintf("bulk write error: %s", we.Message))
	}
	if bwe.WriteConcernError != nil {
		result.AddError(fmt.Sprintf("write concern error: %s", bwe.WriteConcernError.Message))
	}

	succeeded := chunkLen - len(bwe.WriteErrors)
	if succeeded > 0 {
		result.SuccessCount += succeeded
	}
	logger.Warnf("bulk write partial failure: %d errors in chunk of %d", len(bwe.WriteErrors), chunkLen)
}

// UpsertProduct inserts or fully replaces one product document. Returns true
// iff a document was created or changed.
func (m *MongoLoader) UpsertProduct(ctx context.Context, product *models.Product) (bool, error) {
	if err := product.Validate(); err != nil {
		return false, err
	}
	product.UpdatedAt = time.Now().UTC()

	res, err := m.coll().ReplaceOne(ctx,
		bson.M{"product_id": product.ProductID},
		product,
		options.Replace().SetUpsert(true))
	if err != nil {
		return false, errors.Wrapf(err, "upserting product %s", product.ProductID)
	}
	return res.UpsertedCount > 0 || res.ModifiedCount > 0, nil
}

// DeleteProducts removes products by id and returns the count removed.
func (m *MongoLoader) DeleteProducts(ctx context.Context, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res, err := m.coll().DeleteMany(ctx, bson.M{"product_id": bson.M{"$in": productIDs}})
	if err != nil {
		return 0, errors.Wrap(err, "deleting products")
	}
	return res.DeletedCount, nil
}

// GetProduct retrieves a single document by product id, nil when absent.
func (m *MongoLoader) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := m.coll().FindOne(ctx, bson.M{"product_id": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching product %s", productID)
	}
	return &product, nil
}

// GetProductsBySupplier retrieves all documents for one supplier.
func (m *MongoLoader) GetProductsBySupplier(ctx context.Context, supplierID string) ([]*models.Product, error) {
	cursor, err := m.coll().Find(ctx, bson.M{"supplier.id": supplierID})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching products for supplier %s", supplierID)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, errors.Wrap(err, "decoding products")
	}
	return products, nil
}

// CollectionStats reports document counts, total and grouped by supplier and
// by status. Read-only.
func (m *MongoLoader) CollectionStats(ctx context.Context) (map[string]any, error) {
	total, err := m.coll().EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting documents")
	}

	bySupplier, err := m.groupCounts(ctx, "$supplier.id")
	if err != nil {
		return nil, err
	}
	byStatus, err := m.groupCounts(ctx, "$status")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"total_documents": total,
		"supplier_counts": bySupplier,
		"status_counts":   byStatus,
		"last_updated":    time.Now().UTC(),
	}, nil
}

func (m *MongoLoader) groupCounts(ctx context.Context, field string) (map[string]int64, error) {
	cursor, err := m.coll().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "aggregating counts by %s", field)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, errors.Wrap(err, "decoding count row")
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}

// CreateBackup duplicates the full collection under a timestamped name.
// Destructive-adjacent and never triggered implicitly by a sync.
func (m *MongoLoader) CreateBackup(ctx context.Context) (string, error) {
	backupName := fmt.Sprintf("%s_backup_%s", m.collection, time.Now().UTC().Format("20060102_150405"))

	cursor, err := m.coll().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$out", Value: backupName}},
	})
	if err != nil {
		return "", errors.Wrap(err, "creating backup collection")
	}
	cursor.Close(ctx)

	logger.Infof("created backup collection %s", backupName)
	return backupName, nil
}

// CleanupOldProducts removes documents whose updated_at is older than the
// cutoff, optionally restricted to one supplier. Irreversible; only ever
// called explicitly.
func (m *MongoLoader) CleanupOldProducts(ctx context.Context, supplierID string, cutoff time.Time) (int64, error) {
	filter := bson.M{"updated_at": bson.M{"$lt": cutoff}}
	if supplierID != "" {
		filter["supplier.id"] = supplierID
	}

	res, err := m.coll().DeleteMany(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "cleaning up products for supplier %s", supplierID)
	}
	logger.Infof("cleaned up %d stale products for supplier %s", res.DeletedCount, supplierID)
	return res.DeletedCount, nil
}

// ValidateConnection pings the server and runs schema setup; any failure
// yields false.
func (m *MongoLoader) ValidateConnection(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.client.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Errorf("MongoDB ping failed: %v", err)
		return false
	}
	if err := m.SetupDatabase(ctx); err != nil {
		logger.Errorf("MongoDB setup failed: %v", err)
		return false
	}
	return true
}

// Close releases the client.
func (m *MongoLoader) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
