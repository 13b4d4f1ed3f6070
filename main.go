package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nonsonwune/meritlist/config"
	"github.com/nonsonwune/meritlist/importer"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/nlquery"
	"github.com/nonsonwune/meritlist/store"
)

// flags overrides settings from the config file and environment
type flags struct {
	configFile   string
	dataset      string
	vacancies    string
	source       string
	dsn          string
	format       string
	reconcile    bool
	verbose      bool
	showWarnings bool
}

var opts flags

var rootCmd = &cobra.Command{
	Use:   "meritlist",
	Short: "Estimate cutoffs and selection chances for reservation-based recruitment",
	Long: `meritlist ranks the candidates of a recruitment results sheet, estimates the
cutoff marks of every caste category for selection and document verification,
and estimates each candidate's chance of selection.

Results are read from a CSV sheet or from a postgres/sqlite results table;
vacancies come from a JSON or YAML vacancy file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "settings file (YAML)")
	pf.StringVarP(&opts.dataset, "dataset", "d", "", "results CSV file")
	pf.StringVar(&opts.vacancies, "vacancies", "", "vacancy file (JSON or YAML)")
	pf.StringVar(&opts.source, "source", "", "data source: csv, postgres or sqlite")
	pf.StringVar(&opts.dsn, "dsn", "", "database connection string")
	pf.StringVarP(&opts.format, "format", "o", "", "output format: table, json or yaml")
	pf.BoolVar(&opts.reconcile, "reconcile", false, "adjust vacancies to the expected reservation percentages")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	pf.BoolVar(&opts.showWarnings, "warnings", false, "list data quality warnings")

	rootCmd.AddCommand(cutoffsCmd, checkCmd, statsCmd, validateCmd, importCmd, askCmd, menuCmd)
}

var cutoffsCmd = &cobra.Command{
	Use:   "cutoffs",
	Short: "Show the estimated cutoff table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := renderCutoffs(os.Stdout, a.cfg.Format, a.table); err != nil {
			return err
		}
		a.printWarnings()
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <roll-no>",
	Short: "Show a candidate's ranks, cutoffs and chances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		report, err := a.evaluator.Analyze(strings.TrimSpace(args[0]), a.table)
		if err != nil {
			return err
		}
		return renderReport(os.Stdout, a.cfg.Format, report)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := renderSummary(os.Stdout, a.cfg.Format, a.summary); err != nil {
			return err
		}
		a.printWarnings()
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [results.csv]",
	Short: "Check a results sheet and the vacancy file without computing cutoffs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.DatasetPath = args[0]
		}
		return runValidate(cmd.Context(), cfg, newLogger())
	},
}

var importCmd = &cobra.Command{
	Use:   "import <results.csv>",
	Short: "Import a results sheet into the results table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runImport(cmd.Context(), cfg, newLogger(), args[0])
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question such as \"cutoff for sc women\" or \"chances of 1234\"",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		answer, err := nlquery.NewEngine(a.evaluator, a.table, a.summary).Ask(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return renderAnswer(os.Stdout, a.cfg.Format, answer)
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive menu",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		runMenu(a)
		return nil
	},
}

func runValidate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	color.Yellow("\nValidating %s", cfg.DatasetPath)
	imp := importer.NewDataImporter(importer.ImportConfig{
		WorkerCount: cfg.WorkerCount,
		BatchSize:   cfg.BatchSize,
		FailedDir:   cfg.FailedDir,
		Logger:      logger,
	})
	res, err := imp.LoadFile(ctx, cfg.DatasetPath)
	if err != nil {
		return err
	}
	res.Stats.PrintSummary()
	if _, err := importer.SaveFailedRecords(cfg.FailedDir, res.Headers, res.Failed); err != nil {
		return err
	}

	color.Yellow("\nValidating %s", cfg.VacanciesPath)
	q, err := config.LoadQuotas(cfg.VacanciesPath)
	if err != nil {
		return err
	}
	_, quotaWarnings := config.PrepareQuotas(q, cfg.Heuristics.QuotaPolicy(), false, logger)

	warnings := append(res.Warnings, quotaWarnings...)
	renderWarnings(os.Stdout, warnings)
	if len(res.Failed) == 0 && len(warnings) == 0 {
		color.Green("No problems found")
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string) error {
	if cfg.Source == config.SourceCSV {
		return &models.ConfigurationError{Field: "source", Reason: "import needs a postgres or sqlite source"}
	}

	imp := importer.NewDataImporter(importer.ImportConfig{
		WorkerCount: cfg.WorkerCount,
		BatchSize:   cfg.BatchSize,
		FailedDir:   cfg.FailedDir,
		Logger:      logger,
	})
	fmt.Printf("\nUsing %d workers for parallel processing\n", cfg.WorkerCount)

	res, err := imp.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	if _, err := importer.SaveFailedRecords(cfg.FailedDir, res.Headers, res.Failed); err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Source, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := imp.ImportToDB(ctx, db, res.Candidates)
	if err != nil {
		if result != nil {
			for _, e := range result.Errors {
				log.Printf("- %v", e)
			}
		}
		return errors.Wrap(err, "error importing data")
	}
	res.Stats.PrintSummary()
	if len(result.Warnings) > 0 {
		color.Yellow("Skipped %d duplicate roll numbers", len(result.Warnings))
	}
	color.Green("Imported %d candidates (batch %s)", result.SuccessCount, result.BatchID)
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads settings and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.dataset != "" {
		cfg.DatasetPath = opts.dataset
	}
	if opts.vacancies != "" {
		cfg.VacanciesPath = opts.vacancies
	}
	if opts.source != "" {
		cfg.Source = strings.ToLower(opts.source)
	}
	if opts.dsn != "" {
		cfg.DSN = opts.dsn
	}
	if opts.format != "" {
		cfg.Format = opts.format
	}
	if opts.reconcile {
		cfg.ReconcileQuotas = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
