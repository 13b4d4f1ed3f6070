package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nonsonwune/meritlist/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MERITLIST_DATASET", "MERITLIST_VACANCIES", "MERITLIST_SOURCE", "MERITLIST_DSN",
		"MERITLIST_FORMAT", "MERITLIST_FAILED_DIR", "MERITLIST_BATCH_SIZE", "WORKER_COUNT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DatasetPath != DefaultDatasetPath || cfg.VacanciesPath != DefaultVacanciesPath {
		t.Errorf("unexpected paths %s and %s", cfg.DatasetPath, cfg.VacanciesPath)
	}
	if cfg.Source != SourceCSV || cfg.WorkerCount != DefaultWorkerCount {
		t.Errorf("unexpected source %s or worker count %d", cfg.Source, cfg.WorkerCount)
	}
	if cfg.Heuristics.DVMultiplier != 1.5 || cfg.Heuristics.PHMaleShare != 0.67 {
		t.Errorf("unexpected heuristics %+v", cfg.Heuristics)
	}
	sel, dv := cfg.Variants()
	if sel.Bands.MeritOverCategory != 95 || dv.Bands.MeritOverCategory != 98 || dv.IntakeMultiplier != 1.5 {
		t.Errorf("unexpected variants %+v and %+v", sel, dv)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "meritlist.yaml", `
dataset: data/results.csv
vacancies: data/vacancies.yaml
worker_count: 8
batch_size: 250
source: SQLite
dsn: results.db
format: json
failed_dir: rejects
reconcile_quotas: true
heuristics:
  dv_multiplier: 2
  ph_male_share: 0.5
  category_shares:
    SC: 0.16
bands:
  selection:
    floor: 3
`)
	t.Setenv("MERITLIST_DATASET", "env.csv")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"env beats file", cfg.DatasetPath, "env.csv"},
		{"file beats default", cfg.VacanciesPath, "data/vacancies.yaml"},
		{"worker count", cfg.WorkerCount, 8},
		{"batch size", cfg.BatchSize, 250},
		{"source lowercased", cfg.Source, SourceSQLite},
		{"dsn", cfg.DSN, "results.db"},
		{"format", cfg.Format, "json"},
		{"failed dir", cfg.FailedDir, "rejects"},
		{"reconcile", cfg.ReconcileQuotas, true},
		{"dv multiplier", cfg.Heuristics.DVMultiplier, 2.0},
		{"ph share", cfg.Heuristics.PHMaleShare, 0.5},
		{"untouched share", cfg.Heuristics.ExServicemenMaleShare, 0.9},
		{"SC share", cfg.Heuristics.CategoryShares[models.CategorySC], 0.16},
		{"General share kept", cfg.Heuristics.CategoryShares[models.CategoryGeneral], 0.41},
		{"band override", cfg.SelectionBands.Floor, 3},
		{"band kept", cfg.SelectionBands.GeneralHigh, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"database without dsn", "source: postgres\n", nil},
		{"unknown source", "source: excel\n", nil},
		{"share above one", "heuristics:\n  women_share: 1.5\n", nil},
		{"bad worker env", "", map[string]string{"WORKER_COUNT": "many"}},
		{"bad worker count in file", "worker_count: many\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeFile(t, "meritlist.yaml", tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing settings file")
	}
}
