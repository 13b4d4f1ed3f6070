package ranking

import (
	"fmt"
	"log/slog"

	"github.com/nonsonwune/meritlist/models"
)

type categoryGender struct {
	category models.Category
	gender   models.Gender
}

// Context is the immutable ranking snapshot of one dataset load. It is built
// once and shared by the cutoff engine and the evaluator; nothing mutates it
// after NewContext returns, and the pools it hands out must be treated as
// read-only.
type Context struct {
	candidates          []models.Candidate
	byRollNo            map[string]int
	ranked              Pool
	overallRank         map[string]int
	genderPools         map[models.Gender]Pool
	categoryPools       map[models.Category]Pool
	categoryGenderPools map[categoryGender]Pool
	warnings            []models.Warning
}

// NewContext ranks the dataset and builds the lookup maps.
// Duplicate roll numbers keep their first occurrence.
func NewContext(candidates []models.Candidate, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &Context{
		candidates:          make([]models.Candidate, 0, len(candidates)),
		byRollNo:            make(map[string]int, len(candidates)),
		genderPools:         make(map[models.Gender]Pool),
		categoryPools:       make(map[models.Category]Pool),
		categoryGenderPools: make(map[categoryGender]Pool),
	}

	unranked := 0
	for _, c := range candidates {
		if _, seen := rc.byRollNo[c.RollNo]; seen {
			logger.Warn("duplicate roll number ignored", "roll_no", c.RollNo)
			rc.warnings = append(rc.warnings, models.Warning{
				Code:   models.WarnDuplicateRollNo,
				RollNo: c.RollNo,
				Detail: "later occurrence ignored",
			})
			continue
		}
		rc.byRollNo[c.RollNo] = len(rc.candidates)
		rc.candidates = append(rc.candidates, c)
		if !c.Ranked() {
			unranked++
		}
	}
	if unranked > 0 {
		logger.Warn("candidates excluded from ranking", "count", unranked, "reason", "zero or invalid marks")
		rc.warnings = append(rc.warnings, models.Warning{
			Code:   models.WarnInvalidMarks,
			Detail: fmt.Sprintf("%d candidates with zero or invalid marks excluded from ranking", unranked),
		})
	}

	rc.ranked = Rank(rc.candidates, HasMarks)
	rc.overallRank = make(map[string]int, len(rc.ranked))
	for i, c := range rc.ranked {
		rc.overallRank[c.RollNo] = i + 1
	}

	for _, g := range models.Genders {
		rc.genderPools[g] = rc.ranked.Filter(GenderIs(g))
	}
	for _, cat := range models.Categories {
		pool := rc.ranked.Filter(CategoryIs(cat))
		rc.categoryPools[cat] = pool
		for _, g := range models.Genders {
			rc.categoryGenderPools[categoryGender{cat, g}] = pool.Filter(GenderIs(g))
		}
	}

	return rc
}

// Len returns the number of distinct candidates, ranked or not
func (rc *Context) Len() int {
	return len(rc.candidates)
}

// Candidates returns a copy of the dataset in input order
func (rc *Context) Candidates() []models.Candidate {
	out := make([]models.Candidate, len(rc.candidates))
	copy(out, rc.candidates)
	return out
}

// Lookup finds a candidate by roll number
func (rc *Context) Lookup(rollNo string) (models.Candidate, bool) {
	idx, ok := rc.byRollNo[rollNo]
	if !ok {
		return models.Candidate{}, false
	}
	return rc.candidates[idx], true
}

// Ranked returns every candidate with valid marks, best first
func (rc *Context) Ranked() Pool {
	return rc.ranked
}

// OverallRank returns the rank among all ranked candidates, 0 when unranked or absent
func (rc *Context) OverallRank(rollNo string) int {
	return rc.overallRank[rollNo]
}

// GenderPool returns the ranked candidates of gender g across all categories
func (rc *Context) GenderPool(g models.Gender) Pool {
	return rc.genderPools[g]
}

// CategoryPool returns the ranked candidates of one category
func (rc *Context) CategoryPool(cat models.Category) Pool {
	return rc.categoryPools[cat]
}

// CategoryGenderPool returns the ranked candidates of one category and gender
func (rc *Context) CategoryGenderPool(cat models.Category, g models.Gender) Pool {
	return rc.categoryGenderPools[categoryGender{cat, g}]
}

// Warnings returns the data quality issues found while building the context
func (rc *Context) Warnings() []models.Warning {
	out := make([]models.Warning, len(rc.warnings))
	copy(out, rc.warnings)
	return out
}
