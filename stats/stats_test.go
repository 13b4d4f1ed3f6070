package stats

import (
	"math"
	"testing"

	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/ranking"
)

func TestSummarize(t *testing.T) {
	candidates := []models.Candidate{
		{RollNo: "1", Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 165},
		{RollNo: "2", Gender: models.GenderFemale, Category: models.CategoryGeneral, Marks: 155.5},
		{RollNo: "3", Gender: models.GenderMale, Category: models.CategorySC, Marks: 90},
		{RollNo: "4", Gender: models.GenderFemale, Category: models.CategorySC, Marks: 0},
		{RollNo: "5", Gender: models.GenderMale, Category: models.CategoryST, Marks: 175},
		{RollNo: "6", Gender: models.GenderUnknown, Category: models.CategoryEWS, Marks: 79.5},
	}
	q := models.QuotaConfig{
		TotalVacancies: 20,
		Categories: map[models.Category]models.CategoryQuota{
			models.CategoryGeneral: {Total: 8, Women: 3},
			models.CategoryEWS:     {Total: 2},
			models.CategorySEBC:    {Total: 5, Women: 2},
			models.CategorySC:      {Total: 2},
			models.CategoryST:      {Total: 3, Women: 1},
		},
	}

	s := Summarize(ranking.NewContext(candidates, nil), q, nil)

	if s.TotalCandidates != 6 || s.RankedCandidates != 5 {
		t.Errorf("expected 6 candidates with 5 ranked, got %d and %d", s.TotalCandidates, s.RankedCandidates)
	}
	if s.TotalVacancies != 20 {
		t.Errorf("expected 20 vacancies, got %d", s.TotalVacancies)
	}
	wantAvg := (165 + 155.5 + 90 + 175 + 79.5) / 5
	if math.Abs(s.AverageMarks-wantAvg) > 1e-9 {
		t.Errorf("expected average %v, got %v", wantAvg, s.AverageMarks)
	}
	if s.MaxMarks.String() != "175.00" || s.MinMarks.String() != "79.50" {
		t.Errorf("expected marks between 79.50 and 175.00, got %s and %s", s.MinMarks, s.MaxMarks)
	}

	sc := s.Categories[models.CategorySC]
	if sc.Total != 2 || sc.Male != 1 || sc.Female != 1 || sc.Ranked != 1 {
		t.Errorf("unexpected SC counts %+v", sc)
	}
	if sc.AverageMarks != 90 {
		t.Errorf("expected SC average over ranked candidates only, got %v", sc.AverageMarks)
	}
	if ews := s.Categories[models.CategoryEWS]; ews.Male != 0 || ews.Female != 0 || ews.Total != 1 {
		t.Errorf("unknown gender should only count towards the total, got %+v", ews)
	}
	if s.Categories[models.CategorySEBC].Vacancies != 5 {
		t.Errorf("expected SEBC vacancies 5, got %d", s.Categories[models.CategorySEBC].Vacancies)
	}

	counts := map[string]int{}
	for _, r := range s.Ranges {
		counts[r.Label] = r.Total
	}
	tests := []struct {
		label string
		want  int
	}{
		{"90-100", 1},
		{"150-160", 1},
		{"160-170", 1},
		{"80-90", 0},
		{OtherRange, 2},
	}
	for _, tt := range tests {
		if counts[tt.label] != tt.want {
			t.Errorf("range %s: expected %d, got %d", tt.label, tt.want, counts[tt.label])
		}
	}
	if last := s.Ranges[len(s.Ranges)-1]; last.Label != OtherRange || last.ByCategory[models.CategoryST] != 1 {
		t.Errorf("expected the ST topper in the last bucket, got %+v", last)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(ranking.NewContext(nil, nil), models.QuotaConfig{}, nil)
	if s.AverageMarks != 0 || s.MaxMarks.Valid {
		t.Errorf("expected empty summary, got %+v", s)
	}
	if len(s.Ranges) != len(DefaultRanges)+1 {
		t.Errorf("expected %d buckets, got %d", len(DefaultRanges)+1, len(s.Ranges))
	}
}
