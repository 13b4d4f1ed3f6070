// Package stats summarizes a loaded dataset: candidate counts per category
// and gender, mark averages and a histogram of marks per category.
package stats

import (
	"fmt"

	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

// OtherRange collects valid marks outside every configured range
const OtherRange = "Other"

// MarksRange is a half-open interval [Min, Max)
type MarksRange struct {
	Min   float64
	Max   float64
	Label string
}

// DefaultRanges covers 80 to 170 in steps of ten
var DefaultRanges = buildRanges(80, 170, 10)

func buildRanges(from, to, step int) []MarksRange {
	var out []MarksRange
	for lo := from; lo < to; lo += step {
		out = append(out, MarksRange{
			Min:   float64(lo),
			Max:   float64(lo + step),
			Label: fmt.Sprintf("%d-%d", lo, lo+step),
		})
	}
	return out
}

// CategoryStats counts one category
type CategoryStats struct {
	Total        int     `json:"total" yaml:"total"`
	Male         int     `json:"male" yaml:"male"`
	Female       int     `json:"female" yaml:"female"`
	Ranked       int     `json:"ranked" yaml:"ranked"`
	AverageMarks float64 `json:"average_marks" yaml:"average_marks"`
	Vacancies    int     `json:"vacancies" yaml:"vacancies"`
}

// RangeCount is one histogram bucket split by category
type RangeCount struct {
	Label      string                  `json:"label" yaml:"label"`
	Total      int                     `json:"total" yaml:"total"`
	ByCategory map[models.Category]int `json:"by_category" yaml:"by_category"`
}

// Summary describes a dataset
type Summary struct {
	TotalCandidates  int                               `json:"total_candidates" yaml:"total_candidates"`
	RankedCandidates int                               `json:"ranked_candidates" yaml:"ranked_candidates"`
	TotalVacancies   int                               `json:"total_vacancies" yaml:"total_vacancies"`
	AverageMarks     float64                           `json:"average_marks" yaml:"average_marks"`
	MinMarks         models.Mark                       `json:"min_marks" yaml:"min_marks"`
	MaxMarks         models.Mark                       `json:"max_marks" yaml:"max_marks"`
	Categories       map[models.Category]CategoryStats `json:"categories" yaml:"categories"`
	Ranges           []RangeCount                      `json:"ranges" yaml:"ranges"`
}

// Summarize computes the dataset summary. Averages, extremes and the
// histogram only consider candidates with valid marks; counts include everyone.
func Summarize(rc *ranking.Context, q models.QuotaConfig, ranges []MarksRange) Summary {
	if ranges == nil {
		ranges = DefaultRanges
	}

	s := Summary{
		TotalCandidates: rc.Len(),
		TotalVacancies:  q.TotalVacancies,
		Categories:      make(map[models.Category]CategoryStats, len(models.Categories)),
		Ranges:          make([]RangeCount, len(ranges)+1),
	}
	for i, r := range ranges {
		s.Ranges[i] = RangeCount{Label: r.Label, ByCategory: map[models.Category]int{}}
	}
	other := len(ranges)
	s.Ranges[other] = RangeCount{Label: OtherRange, ByCategory: map[models.Category]int{}}

	sums := make(map[models.Category]float64, len(models.Categories))
	for _, c := range rc.Candidates() {
		cs := s.Categories[c.Category]
		cs.Total++
		switch c.Gender {
		case models.GenderMale:
			cs.Male++
		case models.GenderFemale:
			cs.Female++
		}
		if c.Ranked() {
			cs.Ranked++
			sums[c.Category] += c.Marks
			idx := bucket(ranges, c.Marks)
			if idx < 0 {
				idx = other
			}
			s.Ranges[idx].Total++
			s.Ranges[idx].ByCategory[c.Category]++
		}
		s.Categories[c.Category] = cs
	}

	total := 0.0
	for _, cat := range models.Categories {
		cs := s.Categories[cat]
		if cs.Ranked > 0 {
			cs.AverageMarks = sums[cat] / float64(cs.Ranked)
		}
		cs.Vacancies = q.CategoryVacancies(cat)
		s.Categories[cat] = cs
		total += sums[cat]
	}

	ranked := rc.Ranked()
	s.RankedCandidates = len(ranked)
	if len(ranked) > 0 {
		s.AverageMarks = total / float64(len(ranked))
		s.MaxMarks = ranked.MarkAtRank(1)
		s.MinMarks = ranked.LowestMark()
	}

	return s
}

func bucket(ranges []MarksRange, marks float64) int {
	for i, r := range ranges {
		if marks >= r.Min && marks < r.Max {
			return i
		}
	}
	return -1
}
