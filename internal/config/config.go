// Package config handles loading and parsing of configuration for the sync
// tool: a JSON config file for the database target and the supplier map,
// with connection strings overridable from the environment.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// DatabaseConfig describes the load target. Passed by value into loader
// constructors and never mutated after construction.
type DatabaseConfig struct {
	Type             string `json:"type"`
	ConnectionString string `json:"connection_string"`
	Database         string `json:"database"`
	Collection       string `json:"collection"`
	BatchSize        int    `json:"batch_size"`
}

// APIConfig holds a supplier's API credentials and data-source toggle.
type APIConfig struct {
	APIKey         string `json:"api_key"`
	Language       string `json:"language"`
	UseSampleData  bool   `json:"use_sample_data"`
	SampleDataPath string `json:"sample_data_path"`
}

// SupplierConfig is one entry of the suppliers map. SupplierID is filled in
// from the map key when the file is loaded.
type SupplierConfig struct {
	SupplierID   string    `json:"-"`
	SupplierName string    `json:"supplier_name"`
	API          APIConfig `json:"api"`
	BatchSize    int       `json:"batch_size"`
}

type LoggingConfig struct {
	File  string `json:"file"`
	Debug bool   `json:"debug"`
}

type Config struct {
	Database  DatabaseConfig            `json:"database"`
	Suppliers map[string]SupplierConfig `json:"suppliers"`
	Logging   LoggingConfig             `json:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:             "document-store",
			ConnectionString: "mongodb://localhost:27017/",
			Database:         "product_catalog",
			Collection:       "products",
			BatchSize:        1000,
		},
		Suppliers: map[string]SupplierConfig{
			"midocean": {
				SupplierID:   "midocean",
				SupplierName: "MidOcean",
				API: APIConfig{
					Language:       "en",
					UseSampleData:  true,
					SampleDataPath: "internal/suppliers/midocean/testdata/midocean_sample.json",
				},
				BatchSize: 100,
			},
		},
		Logging: LoggingConfig{File: "logs/etl.log"},
	}
}

// Load reads a JSON config file, applies environment overrides, and stamps
// each supplier entry with its map key. A missing file falls back to
// Default; a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	for id, sc := range cfg.Suppliers {
		sc.SupplierID = id
		cfg.Suppliers[id] = sc
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv lets deployment environments supply credentials without writing
// them into the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MONGO_CONNECTION_STRING"); v != "" && c.Database.Type != "sql-store" {
		c.Database.ConnectionString = v
	}
	if v := os.Getenv("SQL_CONNECTION_STRING"); v != "" && c.Database.Type == "sql-store" {
		c.Database.ConnectionString = v
	}
}

// WriteSample writes the default configuration to path, creating parent
// directories as needed.
func WriteSample(path string) error {
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
