package etl

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/pkg/database"
	"github.com/promoforge/catsync/pkg/logger"
	"github.com/promoforge/catsync/pkg/models"
)

// SQLLoader persists normalized products into a SQL Server table, one JSON
// document per row keyed by product_id. It exists for deployments without a
// MongoDB target and is registered under the "sql-store" loader type.
type SQLLoader struct {
	db    *sql.DB
	table string
}

func NewSQLLoader(ctx context.Context, cfg config.DatabaseConfig) (*SQLLoader, error) {
	db, err := database.ConnectSQL(ctx, cfg.ConnectionString)
	if err != nil {
		return nil, &ConnectionError{Component: "loader", Err: err}
	}

	table := cfg.Collection
	if table == "" {
		table = "products"
	}
	return &SQLLoader{db: db, table: table}, nil
}

// SetupDatabase creates the products table and its supplier index when they
// do not exist yet. Safe to run on every start.
func (l *SQLLoader) SetupDatabase(ctx context.Context) error {
	createTable := `
IF OBJECT_ID(N'` + l.table + `', N'U') IS NULL
CREATE TABLE ` + l.table + ` (
    product_id  NVARCHAR(128) NOT NULL PRIMARY KEY,
    supplier_id NVARCHAR(64)  NOT NULL,
    status      NVARCHAR(32)  NOT NULL,
    document    NVARCHAR(MAX) NOT NULL,
    updated_at  DATETIME2     NOT NULL
)`
	if _, err := l.db.ExecContext(ctx, createTable); err != nil {
		return errors.Wrap(err, "creating products table")
	}

	createIndex := `
IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'ix_` + l.table + `_supplier' AND object_id = OBJECT_ID(N'` + l.table + `'))
CREATE INDEX ix_` + l.table + `_supplier ON ` + l.table + ` (supplier_id, status)`
	if _, err := l.db.ExecContext(ctx, createIndex); err != nil {
		return errors.Wrap(err, "creating supplier index")
	}
	return nil
}

// LoadProducts upserts a batch row by row. Row failures are isolated and
// enumerated; the rest of the batch continues.
func (l *SQLLoader) LoadProducts(ctx context.Context, products []*models.Product) *Result {
	result := NewResult()
	defer result.Finalize()

	for _, product := range products {
		if _, err := l.UpsertProduct(ctx, product); err != nil {
			result.AddError(err.Error())
			continue
		}
		result.SuccessCount++
	}

	result.DecideStatus()
	return result
}

// UpsertProduct merges one product row. Returns true iff a row was inserted
// or updated.
func (l *SQLLoader) UpsertProduct(ctx context.Context, product *models.Product) (bool, error) {
	if err := product.Validate(); err != nil {
		return false, err
	}
	product.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(product)
	if err != nil {
		return false, errors.Wrapf(err, "encoding product %s", product.ProductID)
	}

	query := `
MERGE ` + l.table + ` AS target
USING (SELECT @p1 AS product_id) AS src
ON target.product_id = src.product_id
WHEN MATCHED THEN
    UPDATE SET supplier_id = @p2, status = @p3, document = @p4, updated_at = @p5
WHEN NOT MATCHED THEN
    INSERT (product_id, supplier_id, status, document, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5);`

	res, err := l.db.ExecContext(ctx, query,
		product.ProductID,
		product.Supplier.ID,
		string(product.Status),
		string(doc),
		product.UpdatedAt,
	)
	if err != nil {
		return false, errors.Wrapf(err, "upserting product %s", product.ProductID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading rows affected")
	}
	return affected > 0, nil
}

// DeleteProducts removes rows by product id and returns the count removed.
func (l *SQLLoader) DeleteProducts(ctx context.Context, productIDs []string) (int64, error) {
	var total int64
	for _, id := range productIDs {
		res, err := l.db.ExecContext(ctx, `DELETE FROM `+l.table+` WHERE product_id = @p1`, id)
		if err != nil {
			return total, errors.Wrapf(err, "deleting product %s", id)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// GetProduct retrieves one product document, nil when absent.
func (l *SQLLoader) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var doc string
	err := l.db.QueryRowContext(ctx,
		`SELECT document FROM `+l.table+` WHERE product_id = @p1`, productID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching product %s", productID)
	}

	var product models.Product
	if err := json.Unmarshal([]byte(doc), &product); err != nil {
		return nil, errors.Wrapf(err, "decoding product %s", productID)
	}
	return &product, nil
}

// ValidateConnection pings the server and runs schema setup; any failure
// yields false.
func (l *SQLLoader) ValidateConnection(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := l.db.PingContext(pingCtx); err != nil {
		logger.Errorf("SQL ping failed: %v", err)
		return false
	}
	if err := l.SetupDatabase(ctx); err != nil {
		logger.Errorf("SQL setup failed: %v", err)
		return false
	}
	return true
}

// Close releases the connection pool.
func (l *SQLLoader) Close(context.Context) error {
	return l.db.Close()
}
