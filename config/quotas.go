package config

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/nonsonwune/meritlist/models"
)

// Vacancy file keys
const (
	keyTotalVacancies = "total_vacancies"
	keyPHTotal        = "reserved_quotas.PH.total"
	keyExServicemen   = "reserved_quotas.ExServicemen_3percent.total"
)

// LoadQuotas reads a vacancy file of the form
//
//	total_vacancies: 100
//	categories:
//	  General: {total: 41, women: 14}
//	  ...
//	reserved_quotas:
//	  PH: {total: 3}
//	  ExServicemen_3percent: {total: 3}
//
// Every key is required. A missing or non-numeric value is reported as a
// ConfigurationError rather than read as zero.
func LoadQuotas(path string) (models.QuotaConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return models.QuotaConfig{}, errors.Wrapf(err, "failed to load vacancies file %s", path)
	}
	return quotasFrom(k)
}

func quotasFrom(k *koanf.Koanf) (models.QuotaConfig, error) {
	var q models.QuotaConfig
	var err error

	if q.TotalVacancies, err = intField(k, keyTotalVacancies); err != nil {
		return q, err
	}
	q.Categories = make(map[models.Category]models.CategoryQuota, len(models.Categories))
	for _, c := range models.Categories {
		var cq models.CategoryQuota
		if cq.Total, err = intField(k, fmt.Sprintf("categories.%s.total", c)); err != nil {
			return q, err
		}
		if cq.Women, err = intField(k, fmt.Sprintf("categories.%s.women", c)); err != nil {
			return q, err
		}
		q.Categories[c] = cq
	}
	if q.PHTotal, err = intField(k, keyPHTotal); err != nil {
		return q, err
	}
	if q.ExServicemenTotal, err = intField(k, keyExServicemen); err != nil {
		return q, err
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

// intField reads a whole number. koanf.Int would turn a missing key or a
// string into 0, which is indistinguishable from a real zero.
func intField(k *koanf.Koanf, key string) (int, error) {
	if !k.Exists(key) {
		return 0, &models.ConfigurationError{Field: key, Reason: "missing"}
	}
	switch v := k.Get(key).(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, &models.ConfigurationError{Field: key, Reason: fmt.Sprintf("expected a whole number, got %v", k.Get(key))}
}

// PrepareQuotas audits q against the policy. The audit warnings are always
// returned; when reconcile is set the returned configuration is an adjusted
// copy, otherwise it is q unchanged.
func PrepareQuotas(q models.QuotaConfig, policy models.QuotaPolicy, reconcile bool, logger *slog.Logger) (models.QuotaConfig, []models.Warning) {
	if logger == nil {
		logger = slog.Default()
	}
	warnings := models.AuditQuotas(q, policy)
	for _, w := range warnings {
		logger.Warn("quota deviation", "code", w.Code, "detail", w.Detail)
	}
	if !reconcile || len(warnings) == 0 {
		return q, warnings
	}
	adjusted := models.Reconcile(q, policy)
	logger.Info("quotas reconciled to policy", "ph_total", adjusted.PHTotal, "ex_servicemen_total", adjusted.ExServicemenTotal)
	return adjusted, warnings
}
