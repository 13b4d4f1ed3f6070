package models

import (
	"fmt"
	"math"
)

// CategoryQuota holds the vacancies of one category
type CategoryQuota struct {
	Total int `json:"total" yaml:"total"`
	Women int `json:"women" yaml:"women"`
}

// QuotaConfig is the vacancy and reservation configuration of a recruitment
type QuotaConfig struct {
	TotalVacancies    int                        `json:"total_vacancies" yaml:"total_vacancies"`
	Categories        map[Category]CategoryQuota `json:"categories" yaml:"categories"`
	PHTotal           int                        `json:"ph_total" yaml:"ph_total"`
	ExServicemenTotal int                        `json:"ex_servicemen_total" yaml:"ex_servicemen_total"`
}

// Validate fails closed on a configuration the engine cannot compute on.
// A category sum that differs from the total is only a warning, see AuditQuotas.
func (q QuotaConfig) Validate() error {
	if q.TotalVacancies <= 0 {
		return &ConfigurationError{Field: "total_vacancies", Reason: "must be a positive number"}
	}
	if q.PHTotal < 0 {
		return &ConfigurationError{Field: "reserved_quotas.PH.total", Reason: "must not be negative"}
	}
	if q.ExServicemenTotal < 0 {
		return &ConfigurationError{Field: "reserved_quotas.ExServicemen_3percent.total", Reason: "must not be negative"}
	}
	for _, c := range Categories {
		cq, ok := q.Categories[c]
		if !ok {
			return &ConfigurationError{Field: "categories." + string(c), Reason: "missing"}
		}
		if cq.Total < 0 || cq.Women < 0 {
			return &ConfigurationError{Field: "categories." + string(c), Reason: "vacancies must not be negative"}
		}
		if cq.Women > cq.Total {
			return &ConfigurationError{
				Field:  "categories." + string(c) + ".women",
				Reason: fmt.Sprintf("women vacancies %d exceed category total %d", cq.Women, cq.Total),
			}
		}
	}
	return nil
}

// CategoryVacancies returns the total vacancies of a category
func (q QuotaConfig) CategoryVacancies(c Category) int {
	return q.Categories[c].Total
}

// WomenVacancies returns the women's sub-quota of a category
func (q QuotaConfig) WomenVacancies(c Category) int {
	return q.Categories[c].Women
}

// MaleVacancies returns the category vacancies left after the women's sub-quota
func (q QuotaConfig) MaleVacancies(c Category) int {
	cq := q.Categories[c]
	return cq.Total - cq.Women
}

// GenderVacancies returns MaleVacancies or WomenVacancies for g, zero for an unknown gender
func (q QuotaConfig) GenderVacancies(c Category, g Gender) int {
	switch g {
	case GenderMale:
		return q.MaleVacancies(c)
	case GenderFemale:
		return q.WomenVacancies(c)
	default:
		return 0
	}
}

// PHVacancies distributes the PH quota across categories by category size
func (q QuotaConfig) PHVacancies(c Category) int {
	return q.horizontalVacancies(c, q.PHTotal)
}

// ExServicemenVacancies distributes the ex-servicemen quota across categories by category size
func (q QuotaConfig) ExServicemenVacancies(c Category) int {
	return q.horizontalVacancies(c, q.ExServicemenTotal)
}

func (q QuotaConfig) horizontalVacancies(c Category, horizontalTotal int) int {
	if q.TotalVacancies <= 0 {
		return 0
	}
	share := float64(q.CategoryVacancies(c)) / float64(q.TotalVacancies)
	return RoundHalfUp(share * float64(horizontalTotal))
}

// Clone returns a deep copy so callers can adjust quotas without touching the original
func (q QuotaConfig) Clone() QuotaConfig {
	out := q
	out.Categories = make(map[Category]CategoryQuota, len(q.Categories))
	for c, cq := range q.Categories {
		out.Categories[c] = cq
	}
	return out
}

// RoundHalfUp rounds x to the nearest integer, halves away from zero for
// the non-negative inputs used here
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// QuotaPolicy holds the reservation percentages a configuration is audited against
type QuotaPolicy struct {
	CategoryShares  map[Category]float64
	WomenShare      float64
	HorizontalShare float64
	Tolerance       int
}

// DefaultQuotaPolicy returns the statutory reservation shares
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{
		CategoryShares: map[Category]float64{
			CategoryGeneral: 0.41,
			CategoryEWS:     0.10,
			CategorySEBC:    0.27,
			CategorySC:      0.07,
			CategoryST:      0.15,
		},
		WomenShare:      0.33,
		HorizontalShare: 0.03,
		Tolerance:       2,
	}
}

// AuditQuotas compares q against the reservation policy and reports every
// deviation larger than the policy tolerance. q is not modified.
func AuditQuotas(q QuotaConfig, p QuotaPolicy) []Warning {
	var warnings []Warning

	sum := 0
	for _, c := range Categories {
		sum += q.CategoryVacancies(c)
	}
	if sum != q.TotalVacancies {
		warnings = append(warnings, Warning{
			Code:   WarnQuotaSumMismatch,
			Detail: fmt.Sprintf("category totals add up to %d, total vacancies is %d", sum, q.TotalVacancies),
		})
	}

	for _, c := range Categories {
		share, ok := p.CategoryShares[c]
		if !ok {
			continue
		}
		expected := RoundHalfUp(float64(q.TotalVacancies) * share)
		if actual := q.CategoryVacancies(c); absInt(actual-expected) > p.Tolerance {
			warnings = append(warnings, Warning{
				Code:   WarnQuotaDeviation,
				Detail: fmt.Sprintf("%s vacancies %d, expected %d (%.0f%%)", c, actual, expected, share*100),
			})
		}
	}

	for _, c := range Categories {
		expected := RoundHalfUp(float64(q.CategoryVacancies(c)) * p.WomenShare)
		if actual := q.WomenVacancies(c); absInt(actual-expected) > p.Tolerance {
			warnings = append(warnings, Warning{
				Code:   WarnQuotaDeviation,
				Detail: fmt.Sprintf("%s women vacancies %d, expected %d", c, actual, expected),
			})
		}
	}

	expectedHorizontal := RoundHalfUp(float64(q.TotalVacancies) * p.HorizontalShare)
	if absInt(q.PHTotal-expectedHorizontal) > p.Tolerance {
		warnings = append(warnings, Warning{
			Code:   WarnQuotaDeviation,
			Detail: fmt.Sprintf("PH vacancies %d, expected %d", q.PHTotal, expectedHorizontal),
		})
	}
	if absInt(q.ExServicemenTotal-expectedHorizontal) > p.Tolerance {
		warnings = append(warnings, Warning{
			Code:   WarnQuotaDeviation,
			Detail: fmt.Sprintf("ex-servicemen vacancies %d, expected %d", q.ExServicemenTotal, expectedHorizontal),
		})
	}

	return warnings
}

// Reconcile returns a copy of q with the women and horizontal quotas moved to
// the policy values wherever they deviate by more than the tolerance.
// Category totals are never touched.
func Reconcile(q QuotaConfig, p QuotaPolicy) QuotaConfig {
	out := q.Clone()
	for c, cq := range out.Categories {
		expected := RoundHalfUp(float64(cq.Total) * p.WomenShare)
		if absInt(cq.Women-expected) > p.Tolerance {
			cq.Women = expected
			out.Categories[c] = cq
		}
	}
	expectedHorizontal := RoundHalfUp(float64(q.TotalVacancies) * p.HorizontalShare)
	if absInt(out.PHTotal-expectedHorizontal) > p.Tolerance {
		out.PHTotal = expectedHorizontal
	}
	if absInt(out.ExServicemenTotal-expectedHorizontal) > p.Tolerance {
		out.ExServicemenTotal = expectedHorizontal
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
