package models

import "strings"

// Gender of a candidate as recorded in the results sheet
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = ""
)

// Genders lists the genders that own a vacancy split
var Genders = []Gender{GenderMale, GenderFemale}

// Label returns the human readable gender name
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "Unknown"
	}
}

// Category is a caste reservation category
type Category string

const (
	CategoryGeneral Category = "General"
	CategoryEWS     Category = "EWS"
	CategorySEBC    Category = "SEBC"
	CategorySC      Category = "SC"
	CategoryST      Category = "ST"
)

// Categories lists every category in display order
var Categories = []Category{CategoryGeneral, CategoryEWS, CategorySEBC, CategorySC, CategoryST}

// ReservedCategories lists the categories that hold reserved seats
var ReservedCategories = []Category{CategoryEWS, CategorySEBC, CategorySC, CategoryST}

// categoryLookup maps the raw caste category strings of the results sheet
var categoryLookup = map[string]Category{
	"General":      CategoryGeneral,
	"General(EWS)": CategoryEWS,
	"SEBC":         CategorySEBC,
	"SC":           CategorySC,
	"ST":           CategoryST,
}

// Reserved reports whether the category holds reserved seats
func (c Category) Reserved() bool {
	return c != CategoryGeneral
}

// Candidate represents one row of the results sheet after normalization
type Candidate struct {
	RollNo         string   `db:"roll_no" json:"roll_no" yaml:"roll_no"`
	Seq            int      `db:"seq" json:"seq" yaml:"seq"`
	Gender         Gender   `db:"gender" json:"gender" yaml:"gender"`
	Category       Category `db:"caste_category" json:"category" yaml:"category"`
	RawCategory    string   `db:"-" json:"raw_category,omitempty" yaml:"raw_category,omitempty"`
	Marks          float64  `db:"marks" json:"marks" yaml:"marks"`
	IsPH           bool     `db:"is_ph" json:"is_ph" yaml:"is_ph"`
	IsExServiceman bool     `db:"is_ex_serviceman" json:"is_ex_serviceman" yaml:"is_ex_serviceman"`
}

// Ranked reports whether the candidate takes part in ranking.
// Zero or invalid marks are kept in the dataset but never ranked.
func (c Candidate) Ranked() bool {
	return c.Marks > 0
}

// NormalizeCategory maps a raw caste category string to a Category.
// "General(EWS)" is tried before the plain "General" substring. Unknown
// strings fall back to General and report ok=false.
func NormalizeCategory(raw string) (Category, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.Contains(s, "General(EWS)"):
		return CategoryEWS, true
	case strings.Contains(s, "General"):
		return CategoryGeneral, true
	}
	if c, ok := categoryLookup[s]; ok {
		return c, true
	}
	return CategoryGeneral, false
}

// NormalizeGender maps M/MALE/F/FEMALE (any case) to a Gender
func NormalizeGender(raw string) (Gender, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return GenderMale, true
	case "F", "FEMALE":
		return GenderFemale, true
	default:
		return GenderUnknown, false
	}
}

// ParsePH treats exactly "YES" as PH status, like the results sheet does
func ParsePH(raw string) bool {
	return strings.TrimSpace(raw) == "YES"
}

// ParseExServiceman treats exactly "Yes" as ex-serviceman status
func ParseExServiceman(raw string) bool {
	return strings.TrimSpace(raw) == "Yes"
}

// ParseCategory parses an already normalized category name such as "SC"
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return "", false
}
