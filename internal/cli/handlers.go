package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/promoforge/catsync/internal/config"
	"github.com/promoforge/catsync/internal/etl"
	"github.com/promoforge/catsync/internal/orchestrator"
	"github.com/promoforge/catsync/internal/suppliers/midocean"
	"github.com/promoforge/catsync/pkg/logger"
	"github.com/promoforge/catsync/pkg/utils"
)

// setup loads configuration, initializes logging, and builds the component
// registry. Every command handler starts here.
func setup(root *RootOptions) (*config.Config, *etl.Registry, error) {
	cfg, err := config.Load(root.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(cfg.Logging.File, root.Debug || cfg.Logging.Debug); err != nil {
		return nil, nil, errors.Wrap(err, "initializing logger")
	}

	return cfg, buildRegistry(), nil
}

// buildRegistry wires every known supplier and loader type. New suppliers
// register here.
func buildRegistry() *etl.Registry {
	reg := etl.NewRegistry()

	reg.RegisterExtractor("midocean", func(cfg config.SupplierConfig) (etl.Extractor, error) {
		return midocean.NewExtractor(cfg)
	})
	reg.RegisterTransformer("midocean", func(cfg config.SupplierConfig) (etl.Transformer, error) {
		return midocean.NewTransformer(cfg)
	})

	reg.RegisterLoader("document-store", func(ctx context.Context, cfg config.DatabaseConfig) (etl.Loader, error) {
		return etl.NewMongoLoader(ctx, cfg)
	})
	reg.RegisterLoader("sql-store", func(ctx context.Context, cfg config.DatabaseConfig) (etl.Loader, error) {
		return etl.NewSQLLoader(ctx, cfg)
	})

	return reg
}

func runSync(ctx context.Context, opts *SyncOptions, incremental bool) error {
	cfg, reg, err := setup(opts.RootOptions)
	if err != nil {
		return err
	}

	if opts.BatchSize > 0 {
		for id, sc := range cfg.Suppliers {
			sc.BatchSize = opts.BatchSize
			cfg.Suppliers[id] = sc
		}
	}

	orch := orchestrator.New(cfg, reg).WithMetrics(etl.NewMetrics())

	var results map[string]*etl.Result
	if incremental {
		since, ok := utils.ParseDate(opts.Since)
		if !ok {
			return errors.Newf("cannot parse --since value %q", opts.Since)
		}
		results = orch.RunIncrementalSync(ctx, opts.Supplier, since)
	} else {
		results = orch.RunFullSync(ctx, opts.Supplier)
	}

	return printResults(results)
}

func printResults(results map[string]*etl.Result) error {
	var failed []string
	for supplier, result := range results {
		fmt.Printf("%s: %s (processed=%d success=%d errors=%d in %s)\n",
			supplier, result.Status, result.ProcessedCount, result.SuccessCount,
			result.ErrorCount, result.Duration().Round(time.Millisecond))
		for _, msg := range result.Errors {
			fmt.Printf("  - %s\n", msg)
		}
		if result.Status == etl.StatusFailed {
			failed = append(failed, supplier)
		}
	}
	if len(failed) > 0 {
		return errors.Newf("sync failed for %v", failed)
	}
	return nil
}

func runValidate(ctx context.Context, root *RootOptions) error {
	cfg, reg, err := setup(root)
	if err != nil {
		return err
	}

	statuses := orchestrator.New(cfg, reg).ValidateAllConnections(ctx)

	failures := 0
	for name, ok := range statuses {
		state := "ok"
		if !ok {
			state = "FAILED"
			failures++
		}
		fmt.Printf("%-20s %s\n", name, state)
	}
	if failures > 0 {
		return errors.Newf("%d connection(s) failed validation", failures)
	}
	return nil
}

func runStatus(ctx context.Context, root *RootOptions) error {
	cfg, reg, err := setup(root)
	if err != nil {
		return err
	}

	status := orchestrator.New(cfg, reg).Status(ctx)
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runSetup(ctx context.Context, root *RootOptions) error {
	cfg, _, err := setup(root)
	if err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	if err := loader.SetupDatabase(ctx); err != nil {
		return err
	}
	fmt.Println("Database setup complete.")
	return nil
}

func runBackup(ctx context.Context, root *RootOptions) error {
	cfg, _, err := setup(root)
	if err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	mongoLoader, ok := loader.(*etl.MongoLoader)
	if !ok {
		return errors.Newf("backup is only supported for the document-store loader, not %q", cfg.Database.Type)
	}

	name, err := mongoLoader.CreateBackup(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backup created: %s\n", name)
	return nil
}

func runCleanup(ctx context.Context, root *RootOptions, supplier string, days int) error {
	cfg, _, err := setup(root)
	if err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	mongoLoader, ok := loader.(*etl.MongoLoader)
	if !ok {
		return errors.Newf("cleanup is only supported for the document-store loader, not %q", cfg.Database.Type)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := mongoLoader.CleanupOldProducts(ctx, supplier, cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d stale product(s) older than %s.\n", deleted, cutoff.Format("2006-01-02"))
	return nil
}

func runInitConfig(root *RootOptions) error {
	if err := config.WriteSample(root.ConfigFile); err != nil {
		return err
	}
	fmt.Printf("Wrote sample config to %s\n", root.ConfigFile)
	return nil
}

// openLoader constructs the configured loader directly, outside any pipeline.
func openLoader(ctx context.Context, cfg *config.Config) (etl.Loader, error) {
	switch cfg.Database.Type {
	case "", "document-store":
		return etl.NewMongoLoader(ctx, cfg.Database)
	case "sql-store":
		return etl.NewSQLLoader(ctx, cfg.Database)
	default:
		return nil, &etl.ConfigurationError{Kind: "loader", Identifier: cfg.Database.Type}
	}
}
