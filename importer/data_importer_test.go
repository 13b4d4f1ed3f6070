package importer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/nonsonwune/meritlist/migrations"
	"github.com/nonsonwune/meritlist/models"
)

const resultsCSV = `RollNo,Gender,Caste Category,Obtain Marks,PH,Ex-Serviceman
1001,M,General,180,NO,No
1002,FEMALE,General(EWS),150.5,YES,No
1003,X,OBC,abc,,Yes
,M,SC,120,,
1005,F,"SC",110,,
`

func TestLoad(t *testing.T) {
	d := NewDataImporter(ImportConfig{WorkerCount: 2})
	res, err := d.Load(context.Background(), strings.NewReader(resultsCSV))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	want := []models.Candidate{
		{RollNo: "1001", Seq: 0, Gender: models.GenderMale, Category: models.CategoryGeneral, RawCategory: "General", Marks: 180},
		{RollNo: "1002", Seq: 1, Gender: models.GenderFemale, Category: models.CategoryEWS, RawCategory: "General(EWS)", Marks: 150.5, IsPH: true},
		{RollNo: "1003", Seq: 2, Gender: models.GenderUnknown, Category: models.CategoryGeneral, RawCategory: "OBC", IsExServiceman: true},
		{RollNo: "1005", Seq: 4, Gender: models.GenderFemale, Category: models.CategorySC, RawCategory: "SC", Marks: 110},
	}
	if len(res.Candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(res.Candidates))
	}
	for i, w := range want {
		if res.Candidates[i] != w {
			t.Errorf("candidate %d: expected %+v, got %+v", i, w, res.Candidates[i])
		}
	}

	codes := make(map[models.WarningCode]int)
	for _, w := range res.Warnings {
		codes[w.Code]++
	}
	for _, code := range []models.WarningCode{models.WarnInvalidMarks, models.WarnUnknownCategory, models.WarnUnknownGender, models.WarnIncompleteRow} {
		if codes[code] != 1 {
			t.Errorf("expected one %s warning, got %d", code, codes[code])
		}
	}

	if len(res.Failed) != 1 || res.Failed[0].RowNumber != 5 {
		t.Fatalf("expected row 5 to fail, got %+v", res.Failed)
	}
	if res.Stats.TotalProcessed != 5 || res.Stats.ValidRecords != 4 || res.Stats.SkippedRecords != 1 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
}

func TestTransformMarks(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"180", 180, false},
		{"150.5", 150.5, false},
		{"0", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-5", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"-Inf", 0, true},
		{"+inf", 0, true},
		{"1e400", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := transformMarks(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoadRejectsNonFiniteMarks(t *testing.T) {
	d := NewDataImporter(ImportConfig{})
	res, err := d.Load(context.Background(), strings.NewReader(`RollNo,Gender,Caste Category,Obtain Marks,PH,Ex-Serviceman
A1,M,General,Inf,,
A2,M,General,NaN,,
A3,M,General,140,,
`))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(res.Candidates) != 3 || res.Candidates[0].Marks != 0 || res.Candidates[1].Marks != 0 {
		t.Fatalf("expected non-finite marks to become 0, got %+v", res.Candidates)
	}
	invalid := 0
	for _, w := range res.Warnings {
		if w.Code == models.WarnInvalidMarks {
			invalid++
		}
	}
	if invalid != 2 {
		t.Errorf("expected 2 invalid marks warnings, got %d", invalid)
	}
}

func TestLoadPreservesOrderAcrossWorkers(t *testing.T) {
	var b strings.Builder
	b.WriteString("RollNo,Gender,Caste Category,Obtain Marks,PH,Ex-Serviceman\n")
	const rows = 103
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "R%03d,M,SC,%d,,\n", i, 100+i%7)
	}

	for _, workers := range []int{1, 4, 7, 200} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			d := NewDataImporter(ImportConfig{WorkerCount: workers})
			res, err := d.Load(context.Background(), strings.NewReader(b.String()))
			if err != nil {
				t.Fatalf("Load() returned error: %v", err)
			}
			if len(res.Candidates) != rows {
				t.Fatalf("expected %d candidates, got %d", rows, len(res.Candidates))
			}
			for i, c := range res.Candidates {
				if c.Seq != i || c.RollNo != fmt.Sprintf("R%03d", i) {
					t.Fatalf("position %d holds %s (seq %d)", i, c.RollNo, c.Seq)
				}
			}
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    map[string]int
		wantErr bool
	}{
		{
			name:    "exact ignoring case and separators",
			headers: []string{"roll_no", "GENDER", "caste_category", "obtain marks", "ph", "Ex Serviceman"},
			want:    map[string]int{ColRollNo: 0, ColGender: 1, ColCategory: 2, ColMarks: 3, ColPH: 4, ColExServiceman: 5},
		},
		{
			name:    "fuzzy",
			headers: []string{"Obtained Marks", "Caste Categry", "RollNo"},
			want:    map[string]int{ColRollNo: 2, ColCategory: 1, ColMarks: 0},
		},
		{
			name:    "missing critical column",
			headers: []string{"Name", "Gender", "Obtain Marks"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDataImporter(ImportConfig{})
			err := d.ResolveHeaders(tt.headers)
			if tt.wantErr {
				var ie *ImportError
				if !errors.As(err, &ie) || ie.Code != "MISSING_COLUMNS" {
					t.Fatalf("expected MISSING_COLUMNS error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveHeaders() returned error: %v", err)
			}
			for col, idx := range tt.want {
				if got, ok := d.columnMapping[col]; !ok || got != idx {
					t.Errorf("column %s: expected index %d, got %d (found %v)", col, idx, got, ok)
				}
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"castecategory", "castecategory", 0},
		{"castecategory", "castecategry", 1},
		{"obtainmarks", "obtainedmarks", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSaveFailedRecords(t *testing.T) {
	d := NewDataImporter(ImportConfig{})
	res, err := d.Load(context.Background(), strings.NewReader(resultsCSV))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "failed")
	path, err := SaveFailedRecords(dir, res.Headers, res.Failed)
	if err != nil {
		t.Fatalf("SaveFailedRecords() returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", data)
	}
	if !strings.HasSuffix(lines[0], ",Row,Error") || !strings.Contains(lines[1], ",5,") {
		t.Errorf("unexpected failed records file %q", data)
	}

	if path, err := SaveFailedRecords(dir, res.Headers, nil); err != nil || path != "" {
		t.Errorf("expected no file for no failures, got %q, %v", path, err)
	}
}

func TestImportToDB(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()
	if err := migrations.InitSchema(ctx, db, "sqlite"); err != nil {
		t.Fatalf("InitSchema() returned error: %v", err)
	}

	d := NewDataImporter(ImportConfig{BatchSize: 2})
	res, err := d.Load(ctx, strings.NewReader(resultsCSV))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	first, err := d.ImportToDB(ctx, db, res.Candidates)
	if err != nil {
		t.Fatalf("ImportToDB() returned error: %v", err)
	}
	if first.SuccessCount != 4 || first.BatchID == "" {
		t.Fatalf("unexpected result %+v", first)
	}

	// Re-importing updates rows in place.
	res.Candidates[0].Marks = 175
	second, err := d.ImportToDB(ctx, db, res.Candidates[:1])
	if err != nil {
		t.Fatalf("second ImportToDB() returned error: %v", err)
	}
	if second.BatchID == first.BatchID {
		t.Error("expected a new batch id per import")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 rows, got %d", count)
	}

	var marks float64
	var batch string
	if err := db.QueryRowContext(ctx, "SELECT marks, batch_id FROM results WHERE roll_no = $1", "1001").Scan(&marks, &batch); err != nil {
		t.Fatalf("marks query failed: %v", err)
	}
	if marks != 175 || batch != second.BatchID {
		t.Errorf("expected upserted marks 175 in batch %s, got %v in %s", second.BatchID, marks, batch)
	}
}

func openResultsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.InitSchema(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("InitSchema() returned error: %v", err)
	}
	return db
}

func TestImportToDBKeepsFirstDuplicate(t *testing.T) {
	ctx := context.Background()
	db := openResultsDB(t)

	d := NewDataImporter(ImportConfig{})
	res, err := d.Load(ctx, strings.NewReader(`RollNo,Gender,Caste Category,Obtain Marks,PH,Ex-Serviceman
7,M,General,180,,
8,M,General,170,,
7,M,SC,100,,
`))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	result, err := d.ImportToDB(ctx, db, res.Candidates)
	if err != nil {
		t.Fatalf("ImportToDB() returned error: %v", err)
	}
	if result.SuccessCount != 2 || len(result.Warnings) != 1 || result.Warnings[0].Code != models.WarnDuplicateRollNo {
		t.Fatalf("unexpected result %+v", result)
	}

	var category string
	var marks float64
	var seq int
	if err := db.QueryRowContext(ctx, "SELECT caste_category, marks, seq FROM results WHERE roll_no = $1", "7").
		Scan(&category, &marks, &seq); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if category != "General" || marks != 180 || seq != 0 {
		t.Errorf("expected the first occurrence (General, 180, seq 0), got (%s, %v, seq %d)", category, marks, seq)
	}
}

func TestImportToDBRollsBackFailedRows(t *testing.T) {
	ctx := context.Background()
	db := openResultsDB(t)
	if _, err := db.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON results
		WHEN NEW.roll_no = 'BAD' BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	d := NewDataImporter(ImportConfig{BatchSize: 2})
	result, err := d.ImportToDB(ctx, db, []models.Candidate{
		{RollNo: "A1", Seq: 0, Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 150},
		{RollNo: "BAD", Seq: 1, Gender: models.GenderMale, Category: models.CategoryGeneral, Marks: 140},
		{RollNo: "A3", Seq: 2, Gender: models.GenderFemale, Category: models.CategorySC, Marks: 130},
	})
	if err == nil {
		t.Fatal("expected an error for the rejected row")
	}
	// rows after the failure still go through on the same transaction
	if result == nil || result.FailedCount != 1 || result.SuccessCount != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.Errors[0].Error(), "BAD") {
		t.Errorf("expected the error to name the roll number, got %v", result.Errors[0])
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected nothing committed, got %d rows", count)
	}
}
