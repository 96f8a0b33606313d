package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/charmbracelet/log"
	"google.golang.org/api/option"

	"github.com/yurifrl/gastos/pkg/categorize"
	"github.com/yurifrl/gastos/pkg/config"
	"github.com/yurifrl/gastos/pkg/events"
	"github.com/yurifrl/gastos/pkg/events/kafka"
	"github.com/yurifrl/gastos/pkg/parser"
	storepkg "github.com/yurifrl/gastos/pkg/storage"
	"github.com/yurifrl/gastos/pkg/storage/csvfile"
	"github.com/yurifrl/gastos/pkg/storage/gcs"
	"github.com/yurifrl/gastos/pkg/storage/memory"
	"github.com/yurifrl/gastos/pkg/storage/sqlstore"
)

// FromConfig builds a processor with the store, rules and event sink named by
// cfg. The returned close function releases connections and must be called.
func FromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Processor, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	engine, err := LoadEngine(cfg.RulesFile)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	var publisher events.Publisher = events.LogPublisher{Logger: logger}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, kp.Close)
		publisher = kp
		logger.Debug("publishing ledger events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	p := New(Options{
		Ledgers:  store,
		Mappings: store,
		Engine:   engine,
		Parser:   parser.New(logger),
		Events:   publisher,
		Logger:   logger,
	})
	return p, closeAll, nil
}

// OpenStore returns the configured backend. The close function is nil for
// backends holding no connection.
func OpenStore(ctx context.Context, cfg *config.Config) (storepkg.Store, func() error, error) {
	switch cfg.Store {
	case "memory":
		return memory.New(), nil, nil
	case "csv":
		return csvfile.New(cfg.DataDir), nil, nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir, "gastos.db")
		}
		s, err := sqlstore.Open(sqlstore.SQLite, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := sqlstore.Open(sqlstore.Postgres, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "gcs":
		var opts []option.ClientOption
		if cfg.GCS.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return gcs.New(client, cfg.GCS.Bucket, cfg.GCS.Prefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// LoadEngine reads category rules from path, or uses the built-in rules when
// path is empty.
func LoadEngine(path string) (*categorize.Engine, error) {
	if path == "" {
		return categorize.New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	rules, err := categorize.LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}
	return categorize.New(rules...), nil
}
