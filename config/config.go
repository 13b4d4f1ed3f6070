// Package config loads application settings and the vacancy file.
// Settings come from an optional YAML file with environment variables taking
// precedence; the vacancy file is read as YAML (JSON parses as YAML too).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/nonsonwune/meritlist/cutoff"
	"github.com/nonsonwune/meritlist/eligibility"
	"github.com/nonsonwune/meritlist/models"
)

// Data sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Defaults for settings absent from both file and environment
const (
	DefaultDatasetPath   = "result.csv"
	DefaultVacanciesPath = "vacancies.json"
	DefaultSource        = SourceCSV
	DefaultWorkerCount   = 4
	DefaultBatchSize     = 1000
	DefaultFormat        = "table"
	DefaultFailedDir     = "failed_imports"
)

// Config holds the application settings
type Config struct {
	DatasetPath     string `koanf:"dataset"`
	VacanciesPath   string `koanf:"vacancies"`
	Source          string `koanf:"source"`
	DSN             string `koanf:"dsn"`
	WorkerCount     int    `koanf:"worker_count"`
	BatchSize       int    `koanf:"batch_size"`
	Format          string `koanf:"format"`
	FailedDir       string `koanf:"failed_dir"`
	ReconcileQuotas bool   `koanf:"reconcile_quotas"`

	// read key by key in Load so unset values keep their defaults
	Heuristics        Heuristics        `koanf:"-"`
	SelectionBands    eligibility.Bands `koanf:"-"`
	VerificationBands eligibility.Bands `koanf:"-"`
}

// Heuristics are the tunable constants of the engine and the quota audit
type Heuristics struct {
	DVMultiplier          float64
	ConfidentThreshold    int
	PHMaleShare           float64
	ExServicemenMaleShare float64
	ReconcileTolerance    int
	WomenShare            float64
	HorizontalShare       float64
	CategoryShares        map[models.Category]float64
}

// DefaultHeuristics mirrors the engine defaults
func DefaultHeuristics() Heuristics {
	e := eligibility.DefaultHeuristics()
	p := models.DefaultQuotaPolicy()
	return Heuristics{
		DVMultiplier:          cutoff.DefaultDVMultiplier,
		ConfidentThreshold:    e.ConfidentThreshold,
		PHMaleShare:           e.PHMaleShare,
		ExServicemenMaleShare: e.ExServicemenMaleShare,
		ReconcileTolerance:    p.Tolerance,
		WomenShare:            p.WomenShare,
		HorizontalShare:       p.HorizontalShare,
		CategoryShares:        p.CategoryShares,
	}
}

// Eligibility returns the evaluator heuristics
func (h Heuristics) Eligibility() eligibility.Heuristics {
	return eligibility.Heuristics{
		ConfidentThreshold:    h.ConfidentThreshold,
		PHMaleShare:           h.PHMaleShare,
		ExServicemenMaleShare: h.ExServicemenMaleShare,
	}
}

// CutoffOptions returns the cutoff engine options
func (h Heuristics) CutoffOptions() cutoff.Options {
	return cutoff.Options{DVMultiplier: h.DVMultiplier}
}

// QuotaPolicy returns the policy quotas are audited against
func (h Heuristics) QuotaPolicy() models.QuotaPolicy {
	return models.QuotaPolicy{
		CategoryShares:  h.CategoryShares,
		WomenShare:      h.WomenShare,
		HorizontalShare: h.HorizontalShare,
		Tolerance:       h.ReconcileTolerance,
	}
}

// Variants returns the selection and document verification variants with
// any configured band overrides applied
func (c *Config) Variants() (eligibility.Variant, eligibility.Variant) {
	sel := eligibility.Selection
	sel.Bands = c.SelectionBands
	dv := eligibility.DocumentVerification
	dv.Bands = c.VerificationBands
	dv.IntakeMultiplier = c.Heuristics.DVMultiplier
	return sel, dv
}

// Load reads the settings file, if any, and applies environment overrides.
// A missing settings path is not an error; an unreadable file is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	cfg := &Config{
		Heuristics:        DefaultHeuristics(),
		SelectionBands:    eligibility.Selection.Bands,
		VerificationBands: eligibility.DocumentVerification.Bands,
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}

	var err error
	if cfg.WorkerCount, err = getEnvIntOrDefault("WORKER_COUNT", cfg.WorkerCount, DefaultWorkerCount); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getEnvIntOrDefault("MERITLIST_BATCH_SIZE", cfg.BatchSize, DefaultBatchSize); err != nil {
		return nil, err
	}
	cfg.DatasetPath = getEnvOrDefault("MERITLIST_DATASET", cfg.DatasetPath, DefaultDatasetPath)
	cfg.VacanciesPath = getEnvOrDefault("MERITLIST_VACANCIES", cfg.VacanciesPath, DefaultVacanciesPath)
	cfg.Source = strings.ToLower(getEnvOrDefault("MERITLIST_SOURCE", cfg.Source, DefaultSource))
	cfg.DSN = getEnvOrDefault("MERITLIST_DSN", cfg.DSN, "")
	cfg.Format = getEnvOrDefault("MERITLIST_FORMAT", cfg.Format, DefaultFormat)
	cfg.FailedDir = getEnvOrDefault("MERITLIST_FAILED_DIR", cfg.FailedDir, DefaultFailedDir)

	h := &cfg.Heuristics
	if k.Exists("heuristics.dv_multiplier") {
		h.DVMultiplier = k.Float64("heuristics.dv_multiplier")
	}
	if k.Exists("heuristics.confident_threshold") {
		h.ConfidentThreshold = k.Int("heuristics.confident_threshold")
	}
	if k.Exists("heuristics.ph_male_share") {
		h.PHMaleShare = k.Float64("heuristics.ph_male_share")
	}
	if k.Exists("heuristics.ex_servicemen_male_share") {
		h.ExServicemenMaleShare = k.Float64("heuristics.ex_servicemen_male_share")
	}
	if k.Exists("heuristics.reconcile_tolerance") {
		h.ReconcileTolerance = k.Int("heuristics.reconcile_tolerance")
	}
	if k.Exists("heuristics.women_share") {
		h.WomenShare = k.Float64("heuristics.women_share")
	}
	if k.Exists("heuristics.horizontal_share") {
		h.HorizontalShare = k.Float64("heuristics.horizontal_share")
	}
	if k.Exists("heuristics.category_shares") {
		shares := make(map[models.Category]float64, len(models.Categories))
		for _, c := range models.Categories {
			shares[c] = h.CategoryShares[c]
			if key := "heuristics.category_shares." + string(c); k.Exists(key) {
				shares[c] = k.Float64(key)
			}
		}
		h.CategoryShares = shares
	}

	if k.Exists("bands.selection") {
		if err := k.Unmarshal("bands.selection", &cfg.SelectionBands); err != nil {
			return nil, errors.Wrap(err, "invalid bands.selection")
		}
	}
	if k.Exists("bands.document_verification") {
		if err := k.Unmarshal("bands.document_verification", &cfg.VerificationBands); err != nil {
			return nil, errors.Wrap(err, "invalid bands.document_verification")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV:
	case SourcePostgres, SourceSQLite:
		if c.DSN == "" {
			return &models.ConfigurationError{Field: "dsn", Reason: "required for source " + c.Source}
		}
	default:
		return &models.ConfigurationError{Field: "source", Reason: "must be csv, postgres or sqlite, got " + c.Source}
	}
	if c.WorkerCount <= 0 {
		return &models.ConfigurationError{Field: "worker_count", Reason: "must be positive"}
	}
	h := c.Heuristics
	if h.DVMultiplier < 1 {
		return &models.ConfigurationError{Field: "heuristics.dv_multiplier", Reason: "must be at least 1"}
	}
	if h.ConfidentThreshold < 0 || h.ConfidentThreshold > 100 {
		return &models.ConfigurationError{Field: "heuristics.confident_threshold", Reason: "must be between 0 and 100"}
	}
	for field, share := range map[string]float64{
		"heuristics.ph_male_share":            h.PHMaleShare,
		"heuristics.ex_servicemen_male_share": h.ExServicemenMaleShare,
		"heuristics.women_share":              h.WomenShare,
		"heuristics.horizontal_share":         h.HorizontalShare,
	} {
		if share < 0 || share > 1 {
			return &models.ConfigurationError{Field: field, Reason: "must be between 0 and 1"}
		}
	}
	return nil
}

// getEnvOrDefault returns the environment variable if set, otherwise the file value, or the default
func getEnvOrDefault(envKey, fileVal, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return defaultVal
}

// getEnvIntOrDefault is getEnvOrDefault for integers. A set but unparsable
// environment variable is an error.
func getEnvIntOrDefault(envKey string, fileVal, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, errors.Wrapf(err, "%s must be a valid integer", envKey)
		}
		return i, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return defaultVal, nil
}
