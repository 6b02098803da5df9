// Package abra wires the personal memory system together: the governed
// binding store, the ingestion pipelines, and the CRM sink for contact PII.
package abra

import (
	"context"
	"log/slog"
	"os"

	"github.com/coboxhq/abra/pkg/config"
	"github.com/coboxhq/abra/pkg/crm"
	"github.com/coboxhq/abra/pkg/ingest"
	"github.com/coboxhq/abra/pkg/metrics"
	"github.com/coboxhq/abra/pkg/store"
)

// Config holds configuration for an Abra instance.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string

	// Scope is the default binding scope.
	Scope string

	// CRM configures the external contact sink. Leave zero to run without
	// one; identity imports will then refuse to run.
	CRM crm.Config

	// Logger receives structured logs. Defaults to a text handler on stderr.
	Logger *slog.Logger

	// Metrics receives operation counters. Defaults to a no-op collector.
	Metrics metrics.Collector
}

// FromFile builds a Config from a sources.yaml file.
func FromFile(path string) (Config, error) {
	fc, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	return Config{
		DBPath: fc.Store.Path,
		Scope:  fc.Scope,
		CRM:    fc.Sinks.CRM,
	}, nil
}

// Abra is the main entry point for the memory system.
type Abra struct {
	config   Config
	store    *store.Store
	importer *ingest.Importer
	sink     crm.Connector
}

// New creates a new Abra instance, opening (and if needed initializing)
// the backing database.
func New(cfg Config) (*Abra, error) {
	// Apply defaults
	if cfg.Scope == "" {
		cfg.Scope = "golda"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}

	s, err := store.Open(cfg.DBPath, store.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	importer := ingest.NewImporter(s, cfg.Logger)
	importer.Metrics = cfg.Metrics

	if counts, err := s.Count(); err == nil {
		ctx := context.Background()
		cfg.Metrics.SetStorageCount(ctx, "catcodes", counts.Catcodes)
		cfg.Metrics.SetStorageCount(ctx, "content", counts.Content)
		cfg.Metrics.SetStorageCount(ctx, "bindings", counts.Bindings)
	}

	var sink crm.Connector = crm.NullConnector{}
	if cfg.CRM.Ready() {
		sink = crm.NewOdoo(cfg.CRM)
	}

	return &Abra{
		config:   cfg,
		store:    s,
		importer: importer,
		sink:     sink,
	}, nil
}

// Close releases the backing database.
func (a *Abra) Close() error {
	return a.store.Close()
}

// Scope returns the configured default binding scope.
func (a *Abra) Scope() string {
	return a.config.Scope
}

// GetStore returns the governed binding store.
func (a *Abra) GetStore() *store.Store {
	return a.store
}

// GetImporter returns the ingestion pipelines.
func (a *Abra) GetImporter() *ingest.Importer {
	return a.importer
}

// GetSink returns the configured CRM connector. When no CRM is configured
// this is a NullConnector that refuses identity imports.
func (a *Abra) GetSink() crm.Connector {
	return a.sink
}
