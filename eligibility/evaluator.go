// Package eligibility classifies one candidate into a selection path and
// scores the chance of a document verification call and of final selection.
//
// A single Evaluator serves both stages; the Variant passed to Evaluate
// supplies the intake multiplier and the probability bands. Paths are tried
// in order and the first one that places the candidate wins:
//
//	merit over category -> General merit -> category seat -> PH / ex-servicemen quota -> floor
//
// The scores are heuristics, not calibrated probabilities.
package eligibility

import (
	"fmt"
	"log/slog"

	"github.com/nonsonwune/meritlist/cutoff"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

// Reason names the path that decided an outcome
type Reason string

const (
	ReasonMeritOverCategory Reason = "MERIT_OVER_CATEGORY"
	ReasonGeneralMerit      Reason = "GENERAL_MERIT"
	ReasonCategory          Reason = "CATEGORY"
	ReasonPHQuota           Reason = "PH_QUOTA"
	ReasonExServicemenQuota Reason = "EX_SERVICEMEN_QUOTA"
	ReasonBelowCutoffs      Reason = "BELOW_CUTOFFS"
	ReasonUnranked          Reason = "UNRANKED"
)

// Band labels
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
	BandFloor  = "floor"
	BandNone   = "none"
)

// Outcome is the result of evaluating one candidate for one stage
type Outcome struct {
	Variant     string      `json:"variant" yaml:"variant"`
	Probability int         `json:"probability" yaml:"probability"`
	Reason      Reason      `json:"reason" yaml:"reason"`
	Band        string      `json:"band" yaml:"band"`
	Narrative   string      `json:"narrative" yaml:"narrative"`
	Rank        int         `json:"rank" yaml:"rank"`
	Vacancies   int         `json:"vacancies" yaml:"vacancies"`
	Cutoff      models.Mark `json:"cutoff" yaml:"cutoff"`
}

// Evaluator scores candidates against an immutable ranking snapshot
type Evaluator struct {
	rc           *ranking.Context
	quotas       models.QuotaConfig
	heuristics   Heuristics
	selection    Variant
	verification Variant
	logger       *slog.Logger
}

// NewEvaluator validates the quotas up front so that no evaluation runs on
// an incomplete configuration
func NewEvaluator(rc *ranking.Context, quotas models.QuotaConfig, h Heuristics, logger *slog.Logger) (*Evaluator, error) {
	if err := quotas.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		rc:           rc,
		quotas:       quotas,
		heuristics:   h,
		selection:    Selection,
		verification: DocumentVerification,
		logger:       logger,
	}, nil
}

// WithVariants returns a copy of e whose reports use the given selection
// and document verification variants
func (e *Evaluator) WithVariants(selection, verification Variant) *Evaluator {
	cp := *e
	cp.selection = selection
	cp.verification = verification
	return &cp
}

// Evaluate scores the candidate holding rollNo. An absent roll number
// yields a NotFoundError, never a zero probability.
func (e *Evaluator) Evaluate(rollNo string, v Variant) (Outcome, error) {
	c, ok := e.rc.Lookup(rollNo)
	if !ok {
		return Outcome{}, &models.NotFoundError{RollNo: rollNo}
	}
	return e.evaluate(c, v), nil
}

func (e *Evaluator) evaluate(c models.Candidate, v Variant) Outcome {
	if !c.Ranked() {
		return Outcome{
			Variant:   v.Name,
			Reason:    ReasonUnranked,
			Band:      BandNone,
			Narrative: "Zero or invalid marks, not part of any merit list",
			Cutoff:    models.NoMark(),
		}
	}

	b := v.Bands
	generalVacancies := e.intake(e.quotas.GenderVacancies(models.CategoryGeneral, c.Gender), v)
	genderPool := e.rc.GenderPool(c.Gender)
	generalCutoff := cutoff.SelectionCutoff(genderPool, generalVacancies)

	var out Outcome
	if moc, ok := e.meritOverCategory(c, v, genderPool, generalCutoff, generalVacancies); ok {
		out = moc
	} else if c.Category == models.CategoryGeneral {
		rank := genderPool.FindRank(c.RollNo)
		out = Outcome{Reason: ReasonGeneralMerit, Rank: rank, Vacancies: generalVacancies, Cutoff: generalCutoff}
		out.Probability, out.Band = score(rank, generalVacancies, b.GeneralMargin, b.GeneralHigh, b.GeneralMedium, b.GeneralLow)
		out.Narrative = fmt.Sprintf("Rank %d among %s candidates for %d General seats",
			rank, c.Gender.Label(), generalVacancies)
	} else {
		vacancies := e.intake(e.quotas.GenderVacancies(c.Category, c.Gender), v)
		pool := e.rc.CategoryGenderPool(c.Category, c.Gender).Filter(ranking.MarksBelow(generalCutoff))
		rank := pool.FindRank(c.RollNo)
		out = Outcome{Reason: ReasonCategory, Rank: rank, Vacancies: vacancies, Cutoff: cutoff.SelectionCutoff(pool, vacancies)}
		out.Probability, out.Band = score(rank, vacancies, b.CategoryMargin, b.CategoryHigh, b.CategoryMedium, b.CategoryLow)
		out.Narrative = fmt.Sprintf("Rank %d among %s %s candidates below the General cutoff for %d seats",
			rank, c.Category, c.Gender.Label(), vacancies)
	}

	if out.Probability < e.heuristics.ConfidentThreshold && c.IsPH {
		if h, ok := e.horizontal(c, v, ranking.IsPH, e.quotas.PHVacancies(c.Category), e.heuristics.PHMaleShare, generalCutoff); ok {
			h.Reason = ReasonPHQuota
			h.Narrative = fmt.Sprintf("Rank %d among %s PH candidates for an estimated %d PH seats", h.Rank, c.Category, h.Vacancies)
			out = h
		}
	}
	if out.Probability < e.heuristics.ConfidentThreshold && c.IsExServiceman {
		if h, ok := e.horizontal(c, v, ranking.IsExServiceman, e.quotas.ExServicemenVacancies(c.Category), e.heuristics.ExServicemenMaleShare, generalCutoff); ok {
			h.Reason = ReasonExServicemenQuota
			h.Narrative = fmt.Sprintf("Rank %d among %s ex-servicemen for an estimated %d ex-servicemen seats", h.Rank, c.Category, h.Vacancies)
			out = h
		}
	}

	if out.Probability == 0 {
		out.Probability = b.Floor
		out.Band = BandFloor
		out.Reason = ReasonBelowCutoffs
		out.Narrative = "Below all estimated cutoffs"
	}

	out.Variant = v.Name
	e.logger.Debug("candidate evaluated",
		"roll_no", c.RollNo, "variant", v.Name, "reason", out.Reason, "probability", out.Probability)
	return out
}

// meritOverCategory places a reserved candidate on a General seat when their
// marks reach the General cutoff of their gender and their rank in that pool
// is inside the General vacancies
func (e *Evaluator) meritOverCategory(c models.Candidate, v Variant, genderPool ranking.Pool, generalCutoff models.Mark, vacancies int) (Outcome, bool) {
	cut, ok := generalCutoff.Get()
	if !c.Category.Reserved() || !ok || c.Marks < cut {
		return Outcome{}, false
	}
	rank := genderPool.FindRank(c.RollNo)
	if rank == 0 || rank > vacancies {
		return Outcome{}, false
	}
	return Outcome{
		Probability: v.Bands.MeritOverCategory,
		Reason:      ReasonMeritOverCategory,
		Band:        BandHigh,
		Rank:        rank,
		Vacancies:   vacancies,
		Cutoff:      generalCutoff,
		Narrative: fmt.Sprintf("Marks %.2f reach the General %s cutoff %s, rank %d for %d General seats",
			c.Marks, c.Gender.Label(), generalCutoff, rank, vacancies),
	}, true
}

// horizontal ranks the candidate among flagged peers of their category and
// gender, excluding merit over category qualifiers, against the gender share
// of the category's horizontal seats
func (e *Evaluator) horizontal(c models.Candidate, v Variant, flag ranking.Predicate, categorySeats int, maleShare float64, generalCutoff models.Mark) (Outcome, bool) {
	if categorySeats <= 0 {
		return Outcome{}, false
	}
	share := maleShare
	if c.Gender != models.GenderMale {
		share = 1 - maleShare
	}
	seats := models.RoundHalfUp(float64(e.intake(categorySeats, v)) * share)
	if seats < 1 {
		seats = 1
	}

	pool := e.rc.CategoryGenderPool(c.Category, c.Gender).Filter(ranking.And(flag, ranking.MarksBelow(generalCutoff)))
	rank := pool.FindRank(c.RollNo)
	if rank == 0 || rank > seats {
		return Outcome{}, false
	}
	return Outcome{
		Probability: v.Bands.Horizontal,
		Band:        BandHigh,
		Rank:        rank,
		Vacancies:   seats,
		Cutoff:      cutoff.SelectionCutoff(pool, seats),
	}, true
}

func (e *Evaluator) intake(vacancies int, v Variant) int {
	if v.IntakeMultiplier == 1 {
		return vacancies
	}
	return models.RoundHalfUp(float64(vacancies) * v.IntakeMultiplier)
}

// score maps a rank against the vacancies onto the high, medium and low bands.
// A rank of zero means the candidate is not in the pool.
func score(rank, vacancies int, margin float64, high, medium, low int) (int, string) {
	switch {
	case rank > 0 && rank <= vacancies:
		return high, BandHigh
	case rank > 0 && float64(rank) <= float64(vacancies)*margin:
		return medium, BandMedium
	default:
		return low, BandLow
	}
}
