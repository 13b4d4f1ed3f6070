package eligibility

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nonsonwune/meritlist/cutoff"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

func testQuotas() models.QuotaConfig {
	return models.QuotaConfig{
		TotalVacancies: 10,
		Categories: map[models.Category]models.CategoryQuota{
			models.CategoryGeneral: {Total: 3, Women: 1},
			models.CategoryEWS:     {Total: 1, Women: 0},
			models.CategorySEBC:    {Total: 3, Women: 1},
			models.CategorySC:      {Total: 2, Women: 1},
			models.CategoryST:      {Total: 1, Women: 0},
		},
		PHTotal:           1,
		ExServicemenTotal: 1,
	}
}

// Ten candidates ranked overall as G1 G2 S1 F1 G3 G4 S2 S3 F2 E1
func testCandidates() []models.Candidate {
	return []models.Candidate{
		{RollNo: "G1", Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 180},
		{RollNo: "G2", Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 170},
		{RollNo: "S1", Gender: models.GenderMale, Category: models.CategorySC, Marks: 165},
		{RollNo: "G3", Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 160},
		{RollNo: "G4", Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 150},
		{RollNo: "S2", Gender: models.GenderMale, Category: models.CategorySC, Marks: 140},
		{RollNo: "S3", Gender: models.GenderMale, Category: models.CategorySC, Marks: 130},
		{RollNo: "F1", Gender: models.GenderFemale, Category: models.CategoryGeneral, Marks: 165},
		{RollNo: "F2", Gender: models.GenderFemale, Category: models.CategorySC, Marks: 120},
		{RollNo: "E1", Gender: models.GenderMale, Category: models.CategorySEBC, Marks: 110, IsPH: true},
	}
}

func newEvaluator(t *testing.T, candidates []models.Candidate, q models.QuotaConfig) (*Evaluator, *ranking.Context) {
	t.Helper()
	rc := ranking.NewContext(candidates, nil)
	e, err := NewEvaluator(rc, q, DefaultHeuristics(), nil)
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	return e, rc
}

func evaluate(t *testing.T, e *Evaluator, rollNo string, v Variant) Outcome {
	t.Helper()
	out, err := e.Evaluate(rollNo, v)
	if err != nil {
		t.Fatalf("Evaluate(%s) failed: %v", rollNo, err)
	}
	return out
}

func TestEvaluateSecondGeneralMan(t *testing.T) {
	e, rc := newEvaluator(t, testCandidates(), testQuotas())

	table, _, err := cutoff.NewEngine(rc, testQuotas(), cutoff.DefaultOptions(), nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got, _ := table[models.CategoryGeneral].FinalCutOff.Get(); got != 170 {
		t.Errorf("expected General cutoff at the second man's marks 170, got %v", got)
	}

	out := evaluate(t, e, "G2", Selection)
	if out.Reason != ReasonGeneralMerit || out.Band != BandHigh || out.Probability != 90 {
		t.Errorf("expected high General merit band, got %+v", out)
	}
	if out.Rank != 2 || out.Vacancies != 2 {
		t.Errorf("expected rank 2 of 2, got %d of %d", out.Rank, out.Vacancies)
	}
}

func TestEvaluateMeritOverCategory(t *testing.T) {
	candidates := testCandidates()
	// S1 tops the male list despite being SC
	candidates[2].Marks = 185
	e, _ := newEvaluator(t, candidates, testQuotas())

	tests := []struct {
		variant Variant
		want    int
	}{
		{Selection, 95},
		{DocumentVerification, 98},
	}
	for _, tt := range tests {
		t.Run(tt.variant.Name, func(t *testing.T) {
			out := evaluate(t, e, "S1", tt.variant)
			if out.Reason != ReasonMeritOverCategory {
				t.Fatalf("expected merit over category, got %s", out.Reason)
			}
			if out.Probability != tt.want {
				t.Errorf("expected probability %d, got %d", tt.want, out.Probability)
			}
		})
	}
}

func TestEvaluateReservedCandidates(t *testing.T) {
	e, _ := newEvaluator(t, testCandidates(), testQuotas())

	tests := []struct {
		name        string
		rollNo      string
		variant     Variant
		reason      Reason
		probability int
	}{
		{"first SC man below General", "S1", Selection, ReasonCategory, 85},
		{"second SC man outside one seat", "S2", Selection, ReasonBelowCutoffs, 10},
		{"second SC man inside verification intake", "S2", DocumentVerification, ReasonCategory, 90},
		{"third SC man inside verification intake", "S3", DocumentVerification, ReasonCategory, 90},
		{"SC man reaching the wider General cutoff", "S1", DocumentVerification, ReasonMeritOverCategory, 98},
		{"only SC woman", "F2", Selection, ReasonCategory, 85},
		{"General man beyond the margin", "G4", Selection, ReasonGeneralMerit, 15},
		{"General man beyond verification margin", "G3", DocumentVerification, ReasonGeneralMerit, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluate(t, e, tt.rollNo, tt.variant)
			if out.Reason != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, out.Reason)
			}
			if out.Probability != tt.probability {
				t.Errorf("expected probability %d, got %d", tt.probability, out.Probability)
			}
		})
	}
}

func TestEvaluatePHUpgrade(t *testing.T) {
	candidates := testCandidates()
	candidates[6].IsPH = true // S3, third SC man
	q := testQuotas()
	q.PHTotal = 5

	e, _ := newEvaluator(t, candidates, q)

	sel := evaluate(t, e, "S3", Selection)
	if sel.Reason != ReasonPHQuota || sel.Probability != 80 {
		t.Errorf("expected PH quota upgrade to 80, got %+v", sel)
	}
	// two verification seats already cover the third SC man
	dv := evaluate(t, e, "S3", DocumentVerification)
	if dv.Reason != ReasonCategory || dv.Probability != 90 {
		t.Errorf("expected category seat in verification, got %+v", dv)
	}
}

func TestEvaluatePHUpgradeInVerification(t *testing.T) {
	candidates := append(testCandidates(),
		models.Candidate{RollNo: "S4", Gender: models.GenderMale, Category: models.CategorySC, Marks: 128},
		models.Candidate{RollNo: "S5", Gender: models.GenderMale, Category: models.CategorySC, Marks: 125, IsPH: true},
	)
	q := testQuotas()
	q.PHTotal = 5

	e, _ := newEvaluator(t, candidates, q)

	// fourth SC man below the verification General cutoff, beyond 1.1 x 2 seats
	dv := evaluate(t, e, "S5", DocumentVerification)
	if dv.Reason != ReasonPHQuota || dv.Probability != 85 {
		t.Errorf("expected PH quota upgrade to 85, got %+v", dv)
	}
	if dv.Vacancies != 1 || dv.Rank != 1 {
		t.Errorf("expected rank 1 of 1 estimated PH seat, got %d of %d", dv.Rank, dv.Vacancies)
	}
}

func TestEvaluateNoHorizontalSeats(t *testing.T) {
	candidates := testCandidates()
	candidates[6].IsPH = true
	// round(2/10 * 1) = 0 PH seats for SC
	e, _ := newEvaluator(t, candidates, testQuotas())

	out := evaluate(t, e, "S3", Selection)
	if out.Reason != ReasonBelowCutoffs || out.Probability != Selection.Bands.Floor {
		t.Errorf("expected the floor without PH seats, got %+v", out)
	}
}

func TestEvaluateExServicemanUpgrade(t *testing.T) {
	candidates := testCandidates()
	candidates[5].IsExServiceman = true // S2
	q := testQuotas()
	q.ExServicemenTotal = 5

	e, _ := newEvaluator(t, candidates, q)

	out := evaluate(t, e, "S2", Selection)
	if out.Reason != ReasonExServicemenQuota || out.Probability != 80 {
		t.Errorf("expected ex-servicemen upgrade to 80, got %+v", out)
	}
}

func TestEvaluateNotFound(t *testing.T) {
	e, _ := newEvaluator(t, testCandidates(), testQuotas())

	_, err := e.Evaluate("missing", Selection)
	if !models.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	if _, err := e.Analyze("missing", models.NewCutoffTable()); !models.IsNotFound(err) {
		t.Errorf("expected not found error from Analyze, got %v", err)
	}
}

func TestEvaluateUnranked(t *testing.T) {
	candidates := append(testCandidates(), models.Candidate{
		RollNo: "Z1", Gender: models.GenderMale, Category: models.CategoryGeneral,
	})
	e, _ := newEvaluator(t, candidates, testQuotas())

	out := evaluate(t, e, "Z1", Selection)
	if out.Reason != ReasonUnranked || out.Probability != 0 {
		t.Errorf("expected unranked outcome, got %+v", out)
	}
}

func TestNewEvaluatorRejectsBadConfiguration(t *testing.T) {
	rc := ranking.NewContext(testCandidates(), nil)
	q := testQuotas()
	delete(q.Categories, models.CategorySEBC)

	if _, err := NewEvaluator(rc, q, DefaultHeuristics(), nil); !models.IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestMeritOverCategoryNeverBelowGeneralCutoff(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var candidates []models.Candidate
	for i := 0; i < 400; i++ {
		g := models.GenderMale
		if rng.Intn(3) == 0 {
			g = models.GenderFemale
		}
		candidates = append(candidates, models.Candidate{
			RollNo:   fmt.Sprintf("R%04d", i),
			Gender:   g,
			Category: models.Categories[rng.Intn(len(models.Categories))],
			Marks:    float64(80 + rng.Intn(90)),
			IsPH:     rng.Intn(15) == 0,
		})
	}
	q := testQuotas()
	q.TotalVacancies = 60
	q.Categories = map[models.Category]models.CategoryQuota{
		models.CategoryGeneral: {Total: 25, Women: 8},
		models.CategoryEWS:     {Total: 6, Women: 2},
		models.CategorySEBC:    {Total: 16, Women: 5},
		models.CategorySC:      {Total: 4, Women: 1},
		models.CategoryST:      {Total: 9, Women: 3},
	}

	e, rc := newEvaluator(t, candidates, q)
	table, _, err := cutoff.NewEngine(rc, q, cutoff.DefaultOptions(), nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	general := table[models.CategoryGeneral]

	for _, c := range candidates {
		out := evaluate(t, e, c.RollNo, Selection)
		if out.Probability < 0 || out.Probability > 100 {
			t.Errorf("%s: probability %d out of range", c.RollNo, out.Probability)
		}
		if out.Reason != ReasonMeritOverCategory {
			continue
		}
		cut := general.FinalCutOff
		if c.Gender == models.GenderFemale {
			cut = general.WomenCutOff
		}
		if v, _ := cut.Get(); c.Marks < v {
			t.Errorf("%s: merit over category with marks %v below General cutoff %v", c.RollNo, c.Marks, v)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		rank      int
		vacancies int
		want      string
	}{
		{"inside", 5, 5, BandHigh},
		{"inside margin", 6, 5, BandMedium},
		{"outside margin", 7, 5, BandLow},
		{"not in pool", 0, 5, BandLow},
		{"no seats", 1, 0, BandLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := score(tt.rank, tt.vacancies, 1.2, 90, 40, 15); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
