package eligibility

import (
	"fmt"

	"github.com/nonsonwune/meritlist/cutoff"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

// PeerCounts splits a number of candidates by gender
type PeerCounts struct {
	Total  int `json:"total" yaml:"total"`
	Male   int `json:"male" yaml:"male"`
	Female int `json:"female" yaml:"female"`
}

func countPeers(pool ranking.Pool) PeerCounts {
	return PeerCounts{
		Total:  len(pool),
		Male:   pool.Count(ranking.GenderIs(models.GenderMale)),
		Female: pool.Count(ranking.GenderIs(models.GenderFemale)),
	}
}

// StatusKind names a special eligibility route
type StatusKind string

const (
	StatusMeritOverCategory StatusKind = "MERIT_OVER_CATEGORY"
	StatusWomen             StatusKind = "WOMEN_QUOTA"
	StatusPH                StatusKind = "PH_QUOTA"
	StatusExServicemen      StatusKind = "EX_SERVICEMEN_QUOTA"
)

// SpecialStatus reports one special route the candidate can use
type SpecialStatus struct {
	Kind         StatusKind  `json:"kind" yaml:"kind"`
	Eligible     bool        `json:"eligible" yaml:"eligible"`
	OverallRank  int         `json:"overall_rank,omitempty" yaml:"overall_rank,omitempty"`
	CategoryRank int         `json:"category_rank" yaml:"category_rank"`
	Vacancies    int         `json:"vacancies" yaml:"vacancies"`
	Cutoff       models.Mark `json:"cutoff" yaml:"cutoff"`
	Narrative    string      `json:"narrative" yaml:"narrative"`
}

// Report is everything known about one candidate
type Report struct {
	Candidate       models.Candidate               `json:"candidate" yaml:"candidate"`
	OverallRank     int                            `json:"overall_rank" yaml:"overall_rank"`
	CategoryRank    int                            `json:"category_rank" yaml:"category_rank"`
	RankedTotal     int                            `json:"ranked_total" yaml:"ranked_total"`
	CategoryTotal   int                            `json:"category_total" yaml:"category_total"`
	AheadOverall    PeerCounts                     `json:"ahead_overall" yaml:"ahead_overall"`
	AheadInCategory PeerCounts                     `json:"ahead_in_category" yaml:"ahead_in_category"`
	AheadByCategory map[models.Category]PeerCounts `json:"ahead_by_category" yaml:"ahead_by_category"`
	Selection       Outcome                        `json:"selection" yaml:"selection"`
	Verification    Outcome                        `json:"document_verification" yaml:"document_verification"`
	Statuses        []SpecialStatus                `json:"special_statuses" yaml:"special_statuses"`
	Cutoffs         models.CutoffEntry             `json:"cutoffs" yaml:"cutoffs"`
}

// Analyze builds the full report for rollNo. The cutoff table supplies the
// category cutoffs shown next to the candidate's outcomes.
func (e *Evaluator) Analyze(rollNo string, table models.CutoffTable) (*Report, error) {
	c, ok := e.rc.Lookup(rollNo)
	if !ok {
		return nil, &models.NotFoundError{RollNo: rollNo}
	}

	ranked := e.rc.Ranked()
	categoryPool := e.rc.CategoryPool(c.Category)
	r := &Report{
		Candidate:       c,
		OverallRank:     e.rc.OverallRank(c.RollNo),
		CategoryRank:    categoryPool.FindRank(c.RollNo),
		RankedTotal:     len(ranked),
		CategoryTotal:   len(categoryPool),
		AheadByCategory: make(map[models.Category]PeerCounts, len(models.Categories)),
		Selection:       e.evaluate(c, e.selection),
		Verification:    e.evaluate(c, e.verification),
		Cutoffs:         table[c.Category],
	}

	if c.Ranked() {
		r.AheadOverall = countPeers(ranked.Ahead(r.OverallRank))
		r.AheadInCategory = countPeers(categoryPool.Ahead(r.CategoryRank))
	} else {
		r.AheadOverall = countPeers(ranked)
		r.AheadInCategory = countPeers(categoryPool)
	}
	for _, cat := range models.Categories {
		r.AheadByCategory[cat] = countPeers(e.rc.CategoryPool(cat).Filter(ranking.MarksAbove(c.Marks)))
	}

	if c.Ranked() {
		r.Statuses = e.specialStatuses(c, categoryPool)
	}
	return r, nil
}

func (e *Evaluator) specialStatuses(c models.Candidate, categoryPool ranking.Pool) []SpecialStatus {
	var statuses []SpecialStatus

	if c.Category.Reserved() {
		vacancies := e.quotas.GenderVacancies(models.CategoryGeneral, c.Gender)
		genderPool := e.rc.GenderPool(c.Gender)
		generalCutoff := cutoff.GeneralCutoff(e.rc, c.Gender, vacancies)
		cut, ok := generalCutoff.Get()
		s := SpecialStatus{
			Kind:         StatusMeritOverCategory,
			Eligible:     ok && c.Marks >= cut,
			OverallRank:  genderPool.FindRank(c.RollNo),
			CategoryRank: categoryPool.FindRank(c.RollNo),
			Vacancies:    vacancies,
			Cutoff:       generalCutoff,
		}
		if s.Eligible {
			s.Narrative = fmt.Sprintf("Marks %.2f reach the General %s cutoff %s: eligible for a General seat on merit",
				c.Marks, c.Gender.Label(), generalCutoff)
		} else {
			s.Narrative = fmt.Sprintf("Marks %.2f are below the General %s cutoff %s: competing for %s seats",
				c.Marks, c.Gender.Label(), generalCutoff, c.Category)
		}
		statuses = append(statuses, s)
	}

	if c.Gender == models.GenderFemale {
		pool := e.rc.CategoryGenderPool(c.Category, models.GenderFemale)
		vacancies := e.quotas.WomenVacancies(c.Category)
		statuses = append(statuses, rankStatus(StatusWomen, "women", c, 0, pool.FindRank(c.RollNo), vacancies, cutoff.SelectionCutoff(pool, vacancies)))
	}

	if c.IsPH {
		pool := categoryPool.Filter(ranking.IsPH)
		vacancies := e.quotas.PHVacancies(c.Category)
		overall := e.rc.Ranked().Filter(ranking.IsPH).FindRank(c.RollNo)
		statuses = append(statuses, rankStatus(StatusPH, "PH", c, overall, pool.FindRank(c.RollNo), vacancies, cutoff.SelectionCutoff(pool, vacancies)))
	}

	if c.IsExServiceman {
		pool := categoryPool.Filter(ranking.IsExServiceman)
		vacancies := e.quotas.ExServicemenVacancies(c.Category)
		overall := e.rc.Ranked().Filter(ranking.IsExServiceman).FindRank(c.RollNo)
		statuses = append(statuses, rankStatus(StatusExServicemen, "ex-servicemen", c, overall, pool.FindRank(c.RollNo), vacancies, cutoff.SelectionCutoff(pool, vacancies)))
	}

	return statuses
}

func rankStatus(kind StatusKind, label string, c models.Candidate, overall, rank, vacancies int, cut models.Mark) SpecialStatus {
	s := SpecialStatus{
		Kind:         kind,
		Eligible:     rank > 0 && rank <= vacancies,
		OverallRank:  overall,
		CategoryRank: rank,
		Vacancies:    vacancies,
		Cutoff:       cut,
	}
	if s.Eligible {
		s.Narrative = fmt.Sprintf("Rank %d among %s %s candidates, within %d seats", rank, c.Category, label, vacancies)
	} else {
		s.Narrative = fmt.Sprintf("Rank %d among %s %s candidates, outside %d seats", rank, c.Category, label, vacancies)
	}
	return s
}
