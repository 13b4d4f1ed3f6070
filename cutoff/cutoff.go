// Package cutoff derives the final selection and document verification
// cutoff marks for every reservation category.
//
// The steps run in a fixed order because reserved-category pools exclude the
// candidates who already clear the General cutoff of their gender
// (merit over category):
//
//  1. General male cutoff over all male candidates
//  2. General female cutoff over all female candidates
//  3. Reserved category cutoffs per gender, after the merit shift
//  4. PH and ex-servicemen cutoffs per category
//  5. A zero verification cutoff is replaced by the final cutoff
package cutoff

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

// DefaultDVMultiplier is how many candidates per vacancy are called for document verification
const DefaultDVMultiplier = 1.5

// Options tunes the cutoff computation
type Options struct {
	DVMultiplier float64
}

// DefaultOptions returns the standard verification intake
func DefaultOptions() Options {
	return Options{DVMultiplier: DefaultDVMultiplier}
}

// Engine computes a CutoffTable from a ranking snapshot and quotas
type Engine struct {
	rc     *ranking.Context
	quotas models.QuotaConfig
	opts   Options
	logger *slog.Logger
}

// NewEngine creates a cutoff engine. A zero DVMultiplier uses the default.
func NewEngine(rc *ranking.Context, quotas models.QuotaConfig, opts Options, logger *slog.Logger) *Engine {
	if opts.DVMultiplier <= 0 {
		opts.DVMultiplier = DefaultDVMultiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rc: rc, quotas: quotas, opts: opts, logger: logger}
}

// Compute runs the five steps and returns the table with the empty-pool
// warnings met on the way. It is a pure function of the engine inputs, so
// calling it twice yields identical tables.
func (e *Engine) Compute() (models.CutoffTable, []models.Warning, error) {
	if err := e.quotas.Validate(); err != nil {
		return nil, nil, err
	}

	table := models.NewCutoffTable()
	var warnings []models.Warning
	emptyPool := func(name string) {
		e.logger.Warn("empty eligibility pool", "pool", name)
		warnings = append(warnings, models.Warning{
			Code:   models.WarnEmptyPool,
			Detail: fmt.Sprintf("%s pool is empty, cutoff not applicable", name),
		})
	}

	// Steps 1 and 2: General, over every candidate of the gender.
	general := table[models.CategoryGeneral]
	malePool := e.rc.GenderPool(models.GenderMale)
	if len(malePool) == 0 {
		emptyPool("General male")
	}
	general.FinalCutOff, general.DVCutOff = e.poolCutoffs(malePool, e.quotas.MaleVacancies(models.CategoryGeneral))

	femalePool := e.rc.GenderPool(models.GenderFemale)
	if len(femalePool) == 0 {
		emptyPool("General female")
	}
	general.WomenCutOff, general.WomenDVCutOff = e.poolCutoffs(femalePool, e.quotas.WomenVacancies(models.CategoryGeneral))
	table[models.CategoryGeneral] = general

	// Step 3: reserved categories after the merit shift.
	for _, cat := range models.ReservedCategories {
		entry := table[cat]

		malePool := e.rc.CategoryGenderPool(cat, models.GenderMale)
		if len(malePool) == 0 {
			emptyPool(string(cat) + " male")
		}
		entry.FinalCutOff, entry.DVCutOff = e.reservedCutoffs(malePool, general.FinalCutOff, e.quotas.MaleVacancies(cat))

		femalePool := e.rc.CategoryGenderPool(cat, models.GenderFemale)
		if len(femalePool) == 0 {
			emptyPool(string(cat) + " female")
		}
		entry.WomenCutOff, entry.WomenDVCutOff = e.reservedCutoffs(femalePool, general.WomenCutOff, e.quotas.WomenVacancies(cat))

		table[cat] = entry
	}

	// Step 4: horizontal reservations, no gender split and no merit shift.
	for _, cat := range models.Categories {
		entry := table[cat]
		categoryPool := e.rc.CategoryPool(cat)
		entry.PHCutOff = horizontalCutoff(categoryPool.Filter(ranking.IsPH), e.quotas.PHVacancies(cat))
		entry.ExServicemenCutOff = horizontalCutoff(categoryPool.Filter(ranking.IsExServiceman), e.quotas.ExServicemenVacancies(cat))
		table[cat] = entry
	}

	// Step 5: zero is never a meaningful verification cutoff.
	for cat, entry := range table {
		if v, ok := entry.DVCutOff.Get(); ok && v == 0 {
			entry.DVCutOff = entry.FinalCutOff
		}
		if v, ok := entry.WomenDVCutOff.Get(); ok && v == 0 {
			entry.WomenDVCutOff = entry.WomenCutOff
		}
		table[cat] = entry
	}

	return table, warnings, nil
}

// poolCutoffs returns the final and verification cutoffs of a pool with the given seats
func (e *Engine) poolCutoffs(pool ranking.Pool, vacancies int) (models.Mark, models.Mark) {
	final := SelectionCutoff(pool, vacancies)
	if !final.Valid {
		return final, final
	}
	return final, VerificationCutoff(pool, vacancies, e.opts.DVMultiplier, final)
}

// reservedCutoffs applies the merit shift: candidates at or above the General
// cutoff of their gender are presumed to hold General seats.
func (e *Engine) reservedCutoffs(pool ranking.Pool, generalCutoff models.Mark, vacancies int) (models.Mark, models.Mark) {
	eligible := pool.Filter(ranking.MarksBelow(generalCutoff))
	switch {
	case len(eligible) > 0 && vacancies > 0:
		return e.poolCutoffs(eligible, vacancies)
	case len(eligible) > 0:
		low := eligible.LowestMark()
		return low, low
	case len(pool) > 0:
		// everyone cleared the General cutoff
		low := pool.LowestMark()
		return low, low
	default:
		return models.NoMark(), models.NoMark()
	}
}

func horizontalCutoff(pool ranking.Pool, vacancies int) models.Mark {
	if len(pool) == 0 {
		return models.NoMark()
	}
	if m := SelectionCutoff(pool, vacancies); m.Valid {
		return m
	}
	return pool.LowestMark()
}

// SelectionCutoff is the mark of the last candidate inside the vacancies.
// With fewer candidates than vacancies it is the weakest available mark; with
// no vacancies or no candidates it is not applicable.
func SelectionCutoff(pool ranking.Pool, vacancies int) models.Mark {
	return pool.MarkAtRank(vacancies)
}

// VerificationCutoff is the mark at rank floor(vacancies * multiplier). When
// no candidate holds that rank, or the mark there is zero, the final cutoff is used.
func VerificationCutoff(pool ranking.Pool, vacancies int, multiplier float64, final models.Mark) models.Mark {
	rank := int(math.Floor(float64(vacancies) * multiplier))
	if !pool.HasRank(rank) {
		return final
	}
	m := pool.MarkAtRank(rank)
	if v, _ := m.Get(); v <= 0 {
		return final
	}
	return m
}

// GeneralCutoff returns the General cutoff for gender g when intake seats are
// filled from every candidate of that gender
func GeneralCutoff(rc *ranking.Context, g models.Gender, intake int) models.Mark {
	return SelectionCutoff(rc.GenderPool(g), intake)
}
