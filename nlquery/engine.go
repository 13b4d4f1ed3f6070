package nlquery

import (
	"fmt"
	"strings"

	"github.com/nonsonwune/meritlist/eligibility"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/stats"
)

// Answer is the result of one question. Exactly one of Cutoffs, Report or
// Summary is set, matching the query intent.
type Answer struct {
	Query   Query
	Text    string
	Cutoffs models.CutoffTable
	Report  *eligibility.Report
	Summary *stats.Summary
}

// Engine answers parsed questions from precomputed results
type Engine struct {
	evaluator *eligibility.Evaluator
	table     models.CutoffTable
	summary   stats.Summary
}

func NewEngine(evaluator *eligibility.Evaluator, table models.CutoffTable, summary stats.Summary) *Engine {
	return &Engine{evaluator: evaluator, table: table, summary: summary}
}

// Ask parses and answers a question
func (e *Engine) Ask(question string) (*Answer, error) {
	q, err := Parse(question)
	if err != nil {
		return nil, err
	}
	return e.Answer(q)
}

// Answer answers a parsed query
func (e *Engine) Answer(q Query) (*Answer, error) {
	switch q.Intent {
	case IntentCutoff:
		return e.answerCutoff(q), nil
	case IntentChances:
		report, err := e.evaluator.Analyze(q.RollNo, e.table)
		// roll numbers are usually printed in upper case
		if upper := strings.ToUpper(q.RollNo); models.IsNotFound(err) && upper != q.RollNo {
			if report, err = e.evaluator.Analyze(upper, e.table); err == nil {
				q.RollNo = upper
			}
		}
		if err != nil {
			return nil, err
		}
		outcome := report.Selection
		if q.Verification {
			outcome = report.Verification
		}
		text := fmt.Sprintf("Roll number %s (%s, %s, %.2f marks): %d%% chance at %s. %s",
			report.Candidate.RollNo, report.Candidate.Category, report.Candidate.Gender.Label(),
			report.Candidate.Marks, outcome.Probability, stageLabel(q.Verification), outcome.Narrative)
		return &Answer{Query: q, Text: text, Report: report}, nil
	case IntentStats:
		s := e.summary
		text := fmt.Sprintf("%d candidates, %d with valid marks, %d vacancies. Marks range %s to %s, average %.2f.",
			s.TotalCandidates, s.RankedCandidates, s.TotalVacancies, s.MinMarks, s.MaxMarks, s.AverageMarks)
		return &Answer{Query: q, Text: text, Summary: &s}, nil
	default:
		return nil, ErrNotUnderstood
	}
}

func (e *Engine) answerCutoff(q Query) *Answer {
	categories := models.Categories
	if q.Category != "" {
		categories = []models.Category{q.Category}
	}

	subset := make(models.CutoffTable, len(categories))
	lines := make([]string, 0, len(categories))
	for _, c := range categories {
		entry := e.table[c]
		subset[c] = entry
		lines = append(lines, fmt.Sprintf("%s %s: %s", c, cutoffLabel(q), pickCutoff(entry, q)))
	}
	return &Answer{Query: q, Text: strings.Join(lines, "\n"), Cutoffs: subset}
}

// pickCutoff selects the cutoff a query names. Horizontal quotas have no
// gender or verification split; men share the final cutoff.
func pickCutoff(entry models.CutoffEntry, q Query) models.Mark {
	switch {
	case q.Horizontal == HorizontalPH:
		return entry.PHCutOff
	case q.Horizontal == HorizontalExServicemen:
		return entry.ExServicemenCutOff
	case q.Gender == models.GenderFemale && q.Verification:
		return entry.WomenDVCutOff
	case q.Gender == models.GenderFemale:
		return entry.WomenCutOff
	case q.Verification:
		return entry.DVCutOff
	default:
		return entry.FinalCutOff
	}
}

func cutoffLabel(q Query) string {
	switch {
	case q.Horizontal == HorizontalPH:
		return "PH cutoff"
	case q.Horizontal == HorizontalExServicemen:
		return "ex-servicemen cutoff"
	case q.Gender == models.GenderFemale && q.Verification:
		return "women document verification cutoff"
	case q.Gender == models.GenderFemale:
		return "women cutoff"
	case q.Verification:
		return "document verification cutoff"
	default:
		return "cutoff"
	}
}

func stageLabel(verification bool) string {
	if verification {
		return "document verification"
	}
	return "selection"
}
