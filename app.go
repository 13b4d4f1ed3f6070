package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/nonsonwune/meritlist/config"
	"github.com/nonsonwune/meritlist/cutoff"
	"github.com/nonsonwune/meritlist/eligibility"
	"github.com/nonsonwune/meritlist/importer"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
	"github.com/nonsonwune/meritlist/stats"
	"github.com/nonsonwune/meritlist/store"
)

// app holds everything computed once per run. The ranking context is never
// mutated, so every command answers from the same snapshot.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	quotas    models.QuotaConfig
	rc        *ranking.Context
	table     models.CutoffTable
	evaluator *eligibility.Evaluator
	summary   stats.Summary
	warnings  []models.Warning
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, newLogger())
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	q, err := config.LoadQuotas(cfg.VacanciesPath)
	if err != nil {
		return nil, err
	}
	var quotaWarnings []models.Warning
	a.quotas, quotaWarnings = config.PrepareQuotas(q, cfg.Heuristics.QuotaPolicy(), cfg.ReconcileQuotas, logger)

	candidates, loadWarnings, err := loadCandidates(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.rc = ranking.NewContext(candidates, logger)

	var cutoffWarnings []models.Warning
	a.table, cutoffWarnings, err = cutoff.NewEngine(a.rc, a.quotas, cfg.Heuristics.CutoffOptions(), logger).Compute()
	if err != nil {
		return nil, err
	}

	ev, err := eligibility.NewEvaluator(a.rc, a.quotas, cfg.Heuristics.Eligibility(), logger)
	if err != nil {
		return nil, err
	}
	sel, dv := cfg.Variants()
	a.evaluator = ev.WithVariants(sel, dv)
	a.summary = stats.Summarize(a.rc, a.quotas, nil)

	a.warnings = append(a.warnings, quotaWarnings...)
	a.warnings = append(a.warnings, loadWarnings...)
	a.warnings = append(a.warnings, a.rc.Warnings()...)
	a.warnings = append(a.warnings, cutoffWarnings...)
	return a, nil
}

// loadCandidates reads the dataset from the configured source
func loadCandidates(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]models.Candidate, []models.Warning, error) {
	switch cfg.Source {
	case config.SourcePostgres, config.SourceSQLite:
		db, err := store.Open(ctx, cfg.Source, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		defer db.Close()
		return store.LoadCandidates(ctx, db, logger)
	default:
		imp := importer.NewDataImporter(importer.ImportConfig{
			WorkerCount: cfg.WorkerCount,
			BatchSize:   cfg.BatchSize,
			FailedDir:   cfg.FailedDir,
			Logger:      logger,
		})
		res, err := imp.LoadFile(ctx, cfg.DatasetPath)
		if err != nil {
			return nil, nil, err
		}
		if _, err := importer.SaveFailedRecords(cfg.FailedDir, res.Headers, res.Failed); err != nil {
			logger.Warn("could not save failed records", "error", err)
		}
		return res.Candidates, res.Warnings, nil
	}
}

// printWarnings goes to stderr so that json and yaml output stay parseable
func (a *app) printWarnings() {
	if len(a.warnings) == 0 {
		return
	}
	if !opts.showWarnings {
		color.New(color.FgYellow).Fprintf(os.Stderr, "\n%d data quality warnings, use --warnings to list them\n", len(a.warnings))
		return
	}
	renderWarnings(os.Stderr, a.warnings)
}
