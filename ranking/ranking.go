// Package ranking orders candidates by marks and answers rank lookups.
//
// A Pool is always sorted by descending marks with ties kept in original
// input order, so filtering a Pool yields another valid Pool.
package ranking

import (
	"sort"

	"github.com/nonsonwune/meritlist/models"
)

// Predicate selects candidates for a pool
type Predicate func(models.Candidate) bool

// Pool is a ranked, read-only sequence of candidates
type Pool []models.Candidate

// Rank filters candidates by pred and orders them by descending marks.
// The sort is stable, so equal marks keep their input order.
func Rank(candidates []models.Candidate, pred Predicate) Pool {
	pool := make(Pool, 0, len(candidates))
	for _, c := range candidates {
		if pred == nil || pred(c) {
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Marks > pool[j].Marks
	})
	return pool
}

// Filter keeps the candidates matching pred without reordering
func (p Pool) Filter(pred Predicate) Pool {
	out := make(Pool, 0, len(p))
	for _, c := range p {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// FindRank returns the 1-based position of rollNo, or 0 when it is not in the pool
func (p Pool) FindRank(rollNo string) int {
	for i, c := range p {
		if c.RollNo == rollNo {
			return i + 1
		}
	}
	return 0
}

// MarkAtRank returns the marks of the candidate holding the given 1-based rank.
//
// Boundary behaviour:
//   - empty pool or rank < 1: not applicable
//   - rank beyond the pool size: the weakest available mark
func (p Pool) MarkAtRank(rank int) models.Mark {
	if len(p) == 0 || rank < 1 {
		return models.NoMark()
	}
	if rank > len(p) {
		rank = len(p)
	}
	return models.MarkOf(p[rank-1].Marks)
}

// HasRank reports whether a candidate occupies the given 1-based rank
func (p Pool) HasRank(rank int) bool {
	return rank >= 1 && rank <= len(p)
}

// LowestMark returns the weakest mark in the pool
func (p Pool) LowestMark() models.Mark {
	if len(p) == 0 {
		return models.NoMark()
	}
	return models.MarkOf(p[len(p)-1].Marks)
}

// Count returns how many candidates in the pool match pred
func (p Pool) Count(pred Predicate) int {
	n := 0
	for _, c := range p {
		if pred(c) {
			n++
		}
	}
	return n
}

// Ahead returns the candidates ranked above the given 1-based rank
func (p Pool) Ahead(rank int) Pool {
	if rank <= 1 {
		return Pool{}
	}
	if rank > len(p)+1 {
		rank = len(p) + 1
	}
	return p[:rank-1]
}

// HasMarks selects candidates that take part in ranking
func HasMarks(c models.Candidate) bool {
	return c.Ranked()
}

// GenderIs selects candidates of gender g
func GenderIs(g models.Gender) Predicate {
	return func(c models.Candidate) bool {
		return c.Gender == g
	}
}

// CategoryIs selects candidates of category cat
func CategoryIs(cat models.Category) Predicate {
	return func(c models.Candidate) bool {
		return c.Category == cat
	}
}

// IsPH selects PH candidates
func IsPH(c models.Candidate) bool {
	return c.IsPH
}

// IsExServiceman selects ex-servicemen
func IsExServiceman(c models.Candidate) bool {
	return c.IsExServiceman
}

// MarksBelow selects candidates with marks strictly below m.
// A not applicable mark excludes nobody.
func MarksBelow(m models.Mark) Predicate {
	v, ok := m.Get()
	return func(c models.Candidate) bool {
		return !ok || c.Marks < v
	}
}

// MarksAbove selects candidates with marks strictly above v
func MarksAbove(v float64) Predicate {
	return func(c models.Candidate) bool {
		return c.Marks > v
	}
}

// And combines predicates
func And(preds ...Predicate) Predicate {
	return func(c models.Candidate) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}
}
