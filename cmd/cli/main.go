package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/gastos/pkg/config"
	"github.com/yurifrl/gastos/pkg/csv"
	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/parser"
	"github.com/yurifrl/gastos/pkg/plan"
	"github.com/yurifrl/gastos/pkg/reconcile"
	"github.com/yurifrl/gastos/pkg/service"
	"github.com/yurifrl/gastos/pkg/ynab"
)

var (
	cliFilters filters
	cfgFile    string
)

// app is what every command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	processor *service.Processor
	close     func() error
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "gastos-cli",
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}

	processor, closeFn, err := service.FromConfig(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, processor: processor, close: closeFn}, nil
}

// run wraps a command body with setup and teardown.
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				a.logger.Warn("failed to close store", "err", err)
			}
		}()
		return fn(cmd.Context(), a, cmd, args)
	}
}

var rootCmd = &cobra.Command{
	Use:          "gastos-cli",
	Short:        "Import, categorize and reconcile bank statements",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var importCmd = &cobra.Command{
	Use:   "import [flags] <profile> <input_path>...",
	Short: "Import statements into a profile ledger",
	Args:  cobra.MinimumNArgs(2),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		profile := args[0]
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		files, err := expand(args[1:])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				a.logger.Warn("failed to read file", "error", err, "file", file)
				continue
			}
			name := filepath.Base(file)

			if dryRun {
				report, err := dryRunReport(ctx, a, profile, name, data)
				if err != nil {
					a.logger.Warn("failed to process file", "error", err, "file", file)
					continue
				}
				fmt.Fprintf(out, "Plan preview for %s\n", file)
				printReport(out, report)
				continue
			}

			result, err := a.processor.Import(ctx, profile, name, data)
			if err != nil {
				a.logger.Warn("failed to import file", "error", err, "file", file)
				continue
			}
			fmt.Fprintf(out, "%s: %d new, %d duplicate, %d updated (ledger %d)\n",
				name, result.Report.NewCount(), result.Report.DuplicateCount(), result.Report.UpdatedCount(), len(result.Report.Ledger))
		}
		return nil
	}),
}

func dryRunReport(ctx context.Context, a *app, profile, filename string, data []byte) (*reconcile.Report, error) {
	txs, err := a.processor.Preview(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	ledger, err := a.processor.Ledger(ctx, profile)
	if err != nil {
		return nil, err
	}
	return reconcile.Merge(ledger, txs), nil
}

// expand resolves globs and directories into the supported statement files.
func expand(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files found matching pattern %s", pattern)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				files = append(files, match)
				continue
			}
			entries, err := os.ReadDir(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read directory: %w", err)
			}
			for _, e := range entries {
				if !e.IsDir() && parser.Supported(e.Name()) {
					files = append(files, filepath.Join(match, e.Name()))
				}
			}
		}
	}
	return files, nil
}

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <file>",
	Short: "Print a statement as normalized, categorized CSV",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		txs, err := a.processor.Preview(ctx, filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		filter, err := cliFilters.toFilterFunc()
		if err != nil {
			return err
		}

		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			pp.Println(csv.Apply(txs, filter))
			return nil
		}
		_, err = cmd.OutOrStdout().Write(csv.Create(txs, filter))
		return err
	}),
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger [flags] <profile>",
	Short: "Show the stored ledger of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ledger, err := a.processor.Ledger(ctx, args[0])
		if err != nil {
			return err
		}
		filter, err := cliFilters.toFilterFunc()
		if err != nil {
			return err
		}
		if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
			_, err = cmd.OutOrStdout().Write(csv.Create(ledger, filter))
			return err
		}
		printLedger(cmd.OutOrStdout(), csv.Apply(ledger, filter), false)
		return nil
	}),
}

var reviewCmd = &cobra.Command{
	Use:   "review <profile>",
	Short: "List outflows still waiting for a category",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		txs, err := a.processor.Review(ctx, args[0])
		if err != nil {
			return err
		}
		printLedger(cmd.OutOrStdout(), txs, true)
		fmt.Fprintf(cmd.OutOrStdout(), "Categories: %s\n", strings.Join(a.processor.Categories(), ", "))
		return nil
	}),
}

var monthsCmd = &cobra.Command{
	Use:   "months <profile>",
	Short: "List the months present in a ledger",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		months, err := a.processor.Months(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range months {
			fmt.Fprintln(out, m)
		}
		if from, to, ok, err := a.processor.DateRange(ctx, args[0]); err != nil {
			return err
		} else if ok {
			fmt.Fprintf(out, "\nfrom %s to %s\n", from.Format(models.DateLayout), to.Format(models.DateLayout))
		}
		return nil
	}),
}

var learnCmd = &cobra.Command{
	Use:   "learn <concept> <category>",
	Short: "Teach the categorizer a concept",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		corrections := models.NewMappings()
		corrections.Set(args[0], args[1])
		n, err := a.processor.Learn(ctx, corrections)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "learned %d mapping(s)\n", n)
		return nil
	}),
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize <profile> <fingerprint> <category>",
	Short: "Set the category of a stored transaction",
	Args:  cobra.ExactArgs(3),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		tx, err := a.processor.SetCategory(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatLine(tx))
		return nil
	}),
}

var applyCmd = &cobra.Command{
	Use:   "apply [flags] <plan_file>",
	Short: "Import every statement of a YAML plan",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		export, _ := cmd.Flags().GetBool("export")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Plan %s\n", args[0])
		p.Print(out)

		var exporter *ynab.Exporter
		for _, st := range p.Statements {
			files, err := p.Files(st)
			if err != nil {
				a.logger.Warn("skipping statement", "file", st.File, "error", err)
				continue
			}
			for _, file := range files {
				data, err := os.ReadFile(file)
				if err != nil {
					a.logger.Warn("failed to read file", "error", err, "file", file)
					continue
				}
				if dryRun {
					report, err := dryRunReport(ctx, a, st.Profile, filepath.Base(file), data)
					if err != nil {
						a.logger.Warn("failed to process file", "error", err, "file", file)
						continue
					}
					fmt.Fprintf(out, "\n%s -> %s\n", file, st.Profile)
					printReport(out, report)
					continue
				}
				result, err := a.processor.Import(ctx, st.Profile, filepath.Base(file), data)
				if err != nil {
					a.logger.Warn("failed to import file", "error", err, "file", file)
					continue
				}
				fmt.Fprintf(out, "%s -> %s: %d new, %d duplicate\n", file, st.Profile, result.Report.NewCount(), result.Report.DuplicateCount())
			}

			if !export || dryRun || st.Account == "" {
				continue
			}
			if exporter == nil {
				exporter, err = newExporter(a, p.YNAB.TokenEnv)
				if err != nil {
					return err
				}
			}
			budget := p.YNAB.BudgetID
			if budget == "" {
				budget = a.cfg.YNAB.BudgetID
			}
			ledger, err := a.processor.Ledger(ctx, st.Profile)
			if err != nil {
				return err
			}
			n, err := exporter.Export(budget, st.Account, ledger)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "exported %d transaction(s) of %s to YNAB\n", n, st.Profile)
		}
		return nil
	}),
}

func newExporter(a *app, tokenEnv string) (*ynab.Exporter, error) {
	if tokenEnv == "" {
		tokenEnv = a.cfg.YNAB.TokenEnv
	}
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("YNAB token not set in %s", tokenEnv)
	}
	return ynab.NewExporter(ynab.New(token).Transaction(), a.logger), nil
}

var exportCmd = &cobra.Command{
	Use:   "export-ynab [flags] <profile>",
	Short: "Create the ledger transactions missing from a YNAB account",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		account, _ := cmd.Flags().GetString("account")
		if account == "" {
			return errors.New("--account is required")
		}
		if a.cfg.YNAB.BudgetID == "" {
			return errors.New("--budget is required")
		}

		ledger, err := a.processor.Ledger(ctx, args[0])
		if err != nil {
			return err
		}
		filter, err := cliFilters.toFilterFunc()
		if err != nil {
			return err
		}
		ledger = csv.Apply(ledger, filter)

		exporter, err := newExporter(a, "")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			payloads, err := exporter.Plan(a.cfg.YNAB.BudgetID, account, ledger)
			if err != nil {
				return err
			}
			for _, p := range payloads {
				fmt.Fprintln(out, newStyle.Render(fmt.Sprintf("+ %s | %-30s | %d", p.Date.Format(models.DateLayout), *p.PayeeName, p.Amount)))
			}
			fmt.Fprintf(out, "\nPlan: %d transaction(s) will be created\n", len(payloads))
			return nil
		}

		n, err := exporter.Export(a.cfg.YNAB.BudgetID, account, ledger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %d transaction(s)\n", n)
		return nil
	}),
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	pf.String("data-dir", ".", "Directory holding data/ and config/")
	pf.String("store", "csv", "Ledger store: csv, sqlite, postgres, gcs or memory")
	pf.String("dsn", "", "Database connection string")
	pf.String("rules", "", "YAML file with category rules")
	pf.String("log-level", "info", "Log level")

	// Filter flags (global)
	pf.StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	pf.StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	pf.StringVar(&cliFilters.minAmount, "min", "", "Minimum amount")
	pf.StringVar(&cliFilters.maxAmount, "max", "", "Maximum amount")
	pf.StringVar(&cliFilters.concept, "concept", "", "Filter by concept (case insensitive)")
	pf.StringVar(&cliFilters.category, "category", "", "Filter by category")

	importCmd.Flags().Bool("dry-run", false, "Show what would be merged without saving")
	previewCmd.Flags().Bool("dump", false, "Pretty-print the parsed transactions")
	ledgerCmd.Flags().Bool("csv", false, "Print as CSV")
	applyCmd.Flags().Bool("dry-run", false, "Show what would be merged without saving")
	applyCmd.Flags().Bool("export", false, "Export each profile to its YNAB account after importing")
	exportCmd.Flags().String("account", "", "YNAB account id")
	exportCmd.Flags().String("budget", "", "YNAB budget id")
	exportCmd.Flags().Bool("dry-run", false, "Show what would be created")

	rootCmd.AddCommand(importCmd, previewCmd, ledgerCmd, reviewCmd, monthsCmd,
		learnCmd, categorizeCmd, applyCmd, exportCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
