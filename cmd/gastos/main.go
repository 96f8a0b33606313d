package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/yurifrl/gastos/pkg/config"
	"github.com/yurifrl/gastos/pkg/service"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "gastos",
	})

	flags := flag.NewFlagSet("gastos", flag.ExitOnError)
	profile := flags.StringP("profile", "p", "", "Profile whose ledger receives the statements")
	cfgFile := flags.StringP("config", "c", "", "Config file (default is config.yaml)")
	flags.String("data-dir", ".", "Directory holding data/ and config/")
	flags.String("store", "csv", "Ledger store: csv, sqlite, postgres, gcs or memory")
	flags.String("log-level", "info", "Log level")
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) != 1 || *profile == "" {
		logger.Error("invalid usage", "args", args)
		fmt.Fprintf(os.Stderr, "Usage: gastos -p <profile> [--store csv] <directory>\n")
		os.Exit(1)
	}

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()
	processor, closeFn, err := service.FromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", "error", err)
	}
	defer closeFn()

	results, err := processor.ProcessDirectory(ctx, *profile, args[0])
	if err != nil {
		logger.Fatal("processing failed", "error", err)
	}

	imported := 0
	for _, r := range results {
		imported += r.Report.NewCount()
	}
	logger.Info("done", "files", len(results), "new_transactions", imported)
}
