package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nonsonwune/meritlist/eligibility"
	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/nlquery"
	"github.com/nonsonwune/meritlist/stats"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	fair    = color.New(color.FgYellow)
	poor    = color.New(color.FgRed)
)

// encode writes v as JSON or YAML. It reports false for the table format so
// the caller renders tables instead.
func encode(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case formatTable, "":
		return false, nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, errors.Wrap(enc.Encode(v), "error encoding json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, errors.Wrap(err, "error encoding yaml")
		}
		return true, errors.Wrap(enc.Close(), "error encoding yaml")
	default:
		return true, &models.ConfigurationError{Field: "format", Reason: "must be table, json or yaml, got " + format}
	}
}

func renderCutoffs(w io.Writer, format string, table models.CutoffTable) error {
	if done, err := encode(w, format, table); done {
		return err
	}

	heading.Fprintln(w, "\nEstimated Cutoffs")
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Category", "Final", "DV", "Women", "Women DV", "PH", "Ex-Servicemen"})
	for _, c := range models.Categories {
		e := table[c]
		t.Append([]string{
			string(c),
			e.FinalCutOff.String(),
			e.DVCutOff.String(),
			e.WomenCutOff.String(),
			e.WomenDVCutOff.String(),
			e.PHCutOff.String(),
			e.ExServicemenCutOff.String(),
		})
	}
	t.Render()
	return nil
}

func renderReport(w io.Writer, format string, r *eligibility.Report) error {
	if done, err := encode(w, format, r); done {
		return err
	}

	c := r.Candidate
	heading.Fprintf(w, "\nRoll Number %s\n", c.RollNo)
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Field", "Value"})
	t.Append([]string{"Gender", c.Gender.Label()})
	t.Append([]string{"Caste Category", string(c.Category)})
	t.Append([]string{"Marks", strconv.FormatFloat(c.Marks, 'f', 2, 64)})
	t.Append([]string{"PH", yesNo(c.IsPH)})
	t.Append([]string{"Ex-Serviceman", yesNo(c.IsExServiceman)})
	t.Append([]string{"Overall Rank", rankOf(r.OverallRank, r.RankedTotal)})
	t.Append([]string{"Category Rank", rankOf(r.CategoryRank, r.CategoryTotal)})
	t.Append([]string{"Ahead Overall", peers(r.AheadOverall)})
	t.Append([]string{"Ahead In Category", peers(r.AheadInCategory)})
	t.Render()

	heading.Fprintln(w, "\nChances")
	t = tablewriter.NewWriter(w)
	t.SetHeader([]string{"Stage", "Probability", "Route", "Rank", "Seats", "Cutoff"})
	for _, o := range []eligibility.Outcome{r.Selection, r.Verification} {
		t.Append([]string{
			o.Variant,
			bandColor(o.Band).Sprintf("%d%%", o.Probability),
			string(o.Reason),
			strconv.Itoa(o.Rank),
			strconv.Itoa(o.Vacancies),
			o.Cutoff.String(),
		})
	}
	t.Render()
	for _, o := range []eligibility.Outcome{r.Selection, r.Verification} {
		bandColor(o.Band).Fprintf(w, "%s: %s\n", o.Variant, o.Narrative)
	}

	heading.Fprintf(w, "\n%s Cutoffs\n", c.Category)
	t = tablewriter.NewWriter(w)
	t.SetHeader([]string{"Final", "DV", "Women", "Women DV", "PH", "Ex-Servicemen"})
	e := r.Cutoffs
	t.Append([]string{
		e.FinalCutOff.String(), e.DVCutOff.String(), e.WomenCutOff.String(),
		e.WomenDVCutOff.String(), e.PHCutOff.String(), e.ExServicemenCutOff.String(),
	})
	t.Render()

	heading.Fprintln(w, "\nCandidates With Higher Marks")
	t = tablewriter.NewWriter(w)
	t.SetHeader([]string{"Category", "Total", "Male", "Female"})
	for _, cat := range models.Categories {
		p := r.AheadByCategory[cat]
		t.Append([]string{string(cat), strconv.Itoa(p.Total), strconv.Itoa(p.Male), strconv.Itoa(p.Female)})
	}
	t.Render()

	if len(r.Statuses) > 0 {
		heading.Fprintln(w, "\nSpecial Status")
		t = tablewriter.NewWriter(w)
		t.SetHeader([]string{"Route", "Eligible", "Rank", "Seats", "Cutoff"})
		for _, s := range r.Statuses {
			eligible := poor.Sprint("No")
			if s.Eligible {
				eligible = good.Sprint("Yes")
			}
			t.Append([]string{string(s.Kind), eligible, strconv.Itoa(s.CategoryRank), strconv.Itoa(s.Vacancies), s.Cutoff.String()})
		}
		t.Render()
		for _, s := range r.Statuses {
			fmt.Fprintf(w, "- %s\n", s.Narrative)
		}
	}
	return nil
}

func renderSummary(w io.Writer, format string, s stats.Summary) error {
	if done, err := encode(w, format, s); done {
		return err
	}

	heading.Fprintln(w, "\nDataset Overview")
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Metric", "Value"})
	t.Append([]string{"Total Candidates", strconv.Itoa(s.TotalCandidates)})
	t.Append([]string{"With Valid Marks", strconv.Itoa(s.RankedCandidates)})
	t.Append([]string{"Total Vacancies", strconv.Itoa(s.TotalVacancies)})
	t.Append([]string{"Average Marks", fmt.Sprintf("%.2f", s.AverageMarks)})
	t.Append([]string{"Lowest Marks", s.MinMarks.String()})
	t.Append([]string{"Highest Marks", s.MaxMarks.String()})
	t.Render()

	heading.Fprintln(w, "\nCategory Distribution")
	t = tablewriter.NewWriter(w)
	t.SetHeader([]string{"Category", "Total", "Male", "Female", "Valid Marks", "Average", "Vacancies"})
	for _, c := range models.Categories {
		cs := s.Categories[c]
		t.Append([]string{
			string(c),
			strconv.Itoa(cs.Total),
			strconv.Itoa(cs.Male),
			strconv.Itoa(cs.Female),
			strconv.Itoa(cs.Ranked),
			fmt.Sprintf("%.2f", cs.AverageMarks),
			strconv.Itoa(cs.Vacancies),
		})
	}
	t.Render()

	heading.Fprintln(w, "\nMarks Distribution")
	t = tablewriter.NewWriter(w)
	header := []string{"Range", "Total"}
	for _, c := range models.Categories {
		header = append(header, string(c))
	}
	t.SetHeader(header)
	for _, rc := range s.Ranges {
		row := []string{rc.Label, strconv.Itoa(rc.Total)}
		for _, c := range models.Categories {
			row = append(row, strconv.Itoa(rc.ByCategory[c]))
		}
		t.Append(row)
	}
	t.Render()
	return nil
}

func renderAnswer(w io.Writer, format string, a *nlquery.Answer) error {
	switch {
	case a.Report != nil:
		if format == formatTable || format == "" {
			fmt.Fprintln(w, a.Text)
		}
		return renderReport(w, format, a.Report)
	case a.Summary != nil:
		if done, err := encode(w, format, a.Summary); done {
			return err
		}
	case a.Cutoffs != nil:
		if done, err := encode(w, format, a.Cutoffs); done {
			return err
		}
	}
	fair.Fprintln(w, a.Text)
	return nil
}

func renderWarnings(w io.Writer, warnings []models.Warning) {
	if len(warnings) == 0 {
		return
	}
	fair.Fprintf(w, "\n%d Data Quality Warnings\n", len(warnings))
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Code", "Roll No", "Detail"})
	for _, wn := range warnings {
		t.Append([]string{string(wn.Code), wn.RollNo, wn.Detail})
	}
	t.Render()
}

func bandColor(band string) *color.Color {
	switch band {
	case eligibility.BandHigh:
		return good
	case eligibility.BandMedium:
		return fair
	default:
		return poor
	}
}

func rankOf(rank, total int) string {
	if rank == 0 {
		return "Not ranked"
	}
	return fmt.Sprintf("%d of %d", rank, total)
}

func peers(p eligibility.PeerCounts) string {
	return fmt.Sprintf("%d (%d male, %d female)", p.Total, p.Male, p.Female)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
