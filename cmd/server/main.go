package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/yurifrl/gastos/pkg/config"
	"github.com/yurifrl/gastos/pkg/server"
	"github.com/yurifrl/gastos/pkg/service"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "gastos-server",
	})

	flags := flag.NewFlagSet("gastos-server", flag.ExitOnError)
	cfgFile := flags.StringP("config", "c", "", "Config file (default is config.yaml)")
	flags.String("addr", "0.0.0.0:3000", "Listen address")
	flags.String("data-dir", ".", "Directory holding data/ and config/")
	flags.String("store", "csv", "Ledger store: csv, sqlite, postgres, gcs or memory")
	flags.String("dsn", "", "Database connection string")
	flags.String("gcs-bucket", "", "GCS bucket for the gcs store")
	flags.String("rules", "", "YAML file with category rules")
	flags.String("log-level", "info", "Log level")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	processor, closeFn, err := service.FromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", "err", err)
	}
	defer closeFn()

	srv := server.New(processor, logger)
	logger.Info("starting server", "addr", cfg.Addr, "store", cfg.Store)
	if err := srv.Start(cfg.Addr); err != nil {
		logger.Error("server error", "err", err)
	}
}
