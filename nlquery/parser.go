// Package nlquery answers plain-language questions about the merit list,
// such as "cutoff for sc women" or "what are the chances of 1234 in dv".
// Questions are matched against keyword lists; nothing leaves the process.
package nlquery

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/nonsonwune/meritlist/models"
)

// Intent is what a question asks for
type Intent string

const (
	IntentCutoff  Intent = "cutoff"
	IntentChances Intent = "chances"
	IntentStats   Intent = "stats"
)

// Horizontal reservation a cutoff question is about
type Horizontal string

const (
	HorizontalNone         Horizontal = ""
	HorizontalPH           Horizontal = "ph"
	HorizontalExServicemen Horizontal = "ex_servicemen"
)

// Query is a parsed question
type Query struct {
	Intent       Intent
	Category     models.Category // empty means every category
	Gender       models.Gender   // unknown means both
	Horizontal   Horizontal
	RollNo       string
	Verification bool // document verification rather than selection
}

// ErrNotUnderstood is returned for questions no keyword list matches
var ErrNotUnderstood = errors.New("could not understand the question; try \"cutoff for sc women\", \"chances of <roll no>\" or \"statistics\"")

// Keyword lists per concept, single words matched against tokens and
// phrases matched against the normalized question
var (
	categoryKeywords = map[models.Category][]string{
		models.CategoryGeneral: {"general", "gen", "open", "unreserved", "ur"},
		models.CategoryEWS:     {"ews", "economically weaker", "general(ews)"},
		models.CategorySEBC:    {"sebc", "obc", "backward", "backward class"},
		models.CategorySC:      {"sc", "scheduled caste"},
		models.CategoryST:      {"st", "scheduled tribe"},
	}
	femaleKeywords       = []string{"women", "woman", "female", "females", "girls", "girl", "ladies", "f"}
	maleKeywords         = []string{"men", "man", "male", "males", "boys", "boy", "m"}
	phKeywords           = []string{"ph", "pwd", "disabled", "disability", "handicapped"}
	exServicemenKeywords = []string{"ex-servicemen", "exservicemen", "ex-serviceman", "exserviceman", "ex servicemen", "ex serviceman", "ex-army", "veteran", "veterans"}
	verificationKeywords = []string{"dv", "verification", "document verification", "documents"}
	cutoffKeywords       = []string{"cutoff", "cutoffs", "cut-off", "cut off", "cut-offs", "merit", "minimum"}
	chancesKeywords      = []string{"chance", "chances", "probability", "eligible", "eligibility", "selected", "selection", "rank", "check", "status"}
	statsKeywords        = []string{"stats", "statistics", "summary", "overview", "how many", "average", "distribution", "histogram", "count", "total"}
)

// Parse interprets a question. A token containing a digit is taken as a
// roll number and turns the question into a chances query.
func Parse(question string) (Query, error) {
	words := splitWords(question)
	tokens := tokenize(words)
	normalized := " " + strings.Join(tokens, " ") + " "

	var q Query
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			q.RollNo = w
			break
		}
	}

	for _, c := range models.Categories {
		if matchesAny(normalized, categoryKeywords[c]) {
			q.Category = c
			// General(EWS) mentions general too; the more specific match wins.
			if c != models.CategoryGeneral {
				break
			}
		}
	}

	switch {
	case matchesAny(normalized, femaleKeywords):
		q.Gender = models.GenderFemale
	case matchesAny(normalized, maleKeywords):
		q.Gender = models.GenderMale
	}

	switch {
	case matchesAny(normalized, exServicemenKeywords):
		q.Horizontal = HorizontalExServicemen
	case matchesAny(normalized, phKeywords):
		q.Horizontal = HorizontalPH
	}

	q.Verification = matchesAny(normalized, verificationKeywords)

	switch {
	case q.RollNo != "":
		q.Intent = IntentChances
	case matchesAny(normalized, cutoffKeywords):
		q.Intent = IntentCutoff
	case matchesAny(normalized, statsKeywords):
		q.Intent = IntentStats
	case matchesAny(normalized, chancesKeywords):
		return q, errors.New("which roll number should be checked?")
	case q.Category != "" || q.Gender != models.GenderUnknown || q.Horizontal != HorizontalNone:
		q.Intent = IntentCutoff
	default:
		return q, ErrNotUnderstood
	}
	return q, nil
}

// splitWords splits the question on anything that cannot be part of a word,
// a roll number or a category such as "general(ews)"
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '(' && r != ')' && r != '/'
	})
}

func tokenize(words []string) []string {
	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = strings.ToLower(w)
	}
	return tokens
}

// matchesAny reports whether any keyword occurs as whole words in the
// space-padded normalized question
func matchesAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, " "+kw+" ") {
			return true
		}
	}
	return false
}
