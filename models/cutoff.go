package models

import (
	"database/sql"
	"encoding/json"
	"strconv"
)

// NotApplicable is how a missing cutoff is displayed
const NotApplicable = "N/A"

// Mark is a cutoff mark that may be not applicable (empty pool or no seats)
type Mark struct {
	sql.NullFloat64
}

// MarkOf wraps a real mark value
func MarkOf(v float64) Mark {
	return Mark{sql.NullFloat64{Float64: v, Valid: true}}
}

// NoMark is the "not applicable" sentinel
func NoMark() Mark {
	return Mark{}
}

// Get returns the mark and whether it is applicable
func (m Mark) Get() (float64, bool) {
	return m.Float64, m.Valid
}

func (m Mark) String() string {
	if !m.Valid {
		return NotApplicable
	}
	return strconv.FormatFloat(m.Float64, 'f', 2, 64)
}

// MarshalJSON writes the mark as a number or "N/A"
func (m Mark) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(NotApplicable)
	}
	return json.Marshal(m.Float64)
}

// MarshalYAML writes the mark as a number or "N/A"
func (m Mark) MarshalYAML() (interface{}, error) {
	if !m.Valid {
		return NotApplicable, nil
	}
	return m.Float64, nil
}

// CutoffEntry holds the cutoffs derived for one category
type CutoffEntry struct {
	FinalCutOff        Mark `json:"finalCutOff" yaml:"final_cut_off"`
	DVCutOff           Mark `json:"dvCutOff" yaml:"dv_cut_off"`
	WomenCutOff        Mark `json:"womenCutOff" yaml:"women_cut_off"`
	WomenDVCutOff      Mark `json:"womenDvCutOff" yaml:"women_dv_cut_off"`
	PHCutOff           Mark `json:"phCutOff" yaml:"ph_cut_off"`
	ExServicemenCutOff Mark `json:"exServicemenCutOff" yaml:"ex_servicemen_cut_off"`
}

// CutoffTable maps every category to its cutoffs
type CutoffTable map[Category]CutoffEntry

// NewCutoffTable returns a table with every category set to "not applicable"
func NewCutoffTable() CutoffTable {
	t := make(CutoffTable, len(Categories))
	for _, c := range Categories {
		t[c] = CutoffEntry{}
	}
	return t
}
