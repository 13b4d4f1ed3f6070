package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nonsonwune/meritlist/models"
)

// resultColumns is the column order of the results table insert
var resultColumns = []string{
	"roll_no", "seq", "gender", "caste_category", "marks",
	"is_ph", "is_ex_serviceman", "batch_id", "imported_at",
}

// DBImportResult summarizes one ImportToDB run
type DBImportResult struct {
	BatchID      string
	SuccessCount int
	FailedCount  int
	Errors       []error
	Warnings     []models.Warning
}

// ImportToDB upserts candidates into the results table inside a single
// transaction. Every row is stamped with a fresh batch id. A roll number
// repeated in candidates keeps its first occurrence, as ranking does. Rows
// that keep failing after MaxRetries attempts are reported and the
// transaction is rolled back.
func (d *DataImporter) ImportToDB(ctx context.Context, db *sql.DB, candidates []models.Candidate) (*DBImportResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error starting transaction")
	}
	defer tx.Rollback()

	stmt, err := prepareInsertStatement(ctx, tx)
	if err != nil {
		return nil, errors.Wrap(err, "error preparing statement")
	}
	defer stmt.Close()

	result := &DBImportResult{BatchID: uuid.New().String()}
	importedAt := time.Now().UTC()
	candidates, result.Warnings = d.dropDuplicates(candidates)

	for start := 0; start < len(candidates); start += d.config.BatchSize {
		end := min(start+d.config.BatchSize, len(candidates))
		for _, c := range candidates[start:end] {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			if err := d.insertWithRetry(ctx, tx, stmt, candidateValues(c, result.BatchID, importedAt)); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, errors.Wrapf(err, "roll number %s", c.RollNo))
				continue
			}
			result.SuccessCount++
		}
		d.logger.Info("batch imported", "batch_id", result.BatchID, "rows", end, "of", len(candidates))
	}

	if result.FailedCount > 0 {
		return result, errors.Errorf("import failed for %d rows, nothing committed", result.FailedCount)
	}
	if err := tx.Commit(); err != nil {
		return result, errors.Wrap(err, "error committing transaction")
	}
	return result, nil
}

// dropDuplicates keeps the first occurrence of every roll number
func (d *DataImporter) dropDuplicates(candidates []models.Candidate) ([]models.Candidate, []models.Warning) {
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]models.Candidate, 0, len(candidates))
	var warnings []models.Warning
	for _, c := range candidates {
		if _, ok := seen[c.RollNo]; ok {
			d.logger.Warn("duplicate roll number not imported", "roll_no", c.RollNo, "seq", c.Seq)
			warnings = append(warnings, models.Warning{
				Code:   models.WarnDuplicateRollNo,
				RollNo: c.RollNo,
				Detail: "later occurrence not imported",
			})
			continue
		}
		seen[c.RollNo] = struct{}{}
		unique = append(unique, c)
	}
	return unique, warnings
}

// insertWithRetry runs each attempt inside a savepoint. A failed statement
// aborts the whole transaction on postgres until it is rolled back to the
// savepoint.
func (d *DataImporter) insertWithRetry(ctx context.Context, tx *sql.Tx, stmt *sql.Stmt, values []interface{}) error {
	var err error
	for i := 0; i < MaxRetries; i++ {
		if _, serr := tx.ExecContext(ctx, "SAVEPOINT import_row"); serr != nil {
			return errors.Wrap(serr, "error creating savepoint")
		}
		if err = executeInsert(ctx, stmt, values); err == nil {
			if _, serr := tx.ExecContext(ctx, "RELEASE SAVEPOINT import_row"); serr != nil {
				return errors.Wrap(serr, "error releasing savepoint")
			}
			return nil
		}
		if _, serr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT import_row"); serr != nil {
			return errors.Wrap(serr, "error rolling back to savepoint")
		}
		if _, serr := tx.ExecContext(ctx, "RELEASE SAVEPOINT import_row"); serr != nil {
			return errors.Wrap(serr, "error releasing savepoint")
		}
		if i < MaxRetries-1 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return err
}

func executeInsert(ctx context.Context, stmt *sql.Stmt, values []interface{}) error {
	if _, err := stmt.ExecContext(ctx, values...); err != nil {
		return &ImportError{
			Code:      "INSERT_FAILED",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Context: map[string]string{
				"values": fmt.Sprintf("%v", values),
			},
		}
	}
	return nil
}

func candidateValues(c models.Candidate, batchID string, importedAt time.Time) []interface{} {
	return []interface{}{
		c.RollNo, c.Seq, string(c.Gender), string(c.Category), c.Marks,
		c.IsPH, c.IsExServiceman, batchID, importedAt,
	}
}

func prepareInsertStatement(ctx context.Context, tx *sql.Tx) (*sql.Stmt, error) {
	placeholders := make([]string, len(resultColumns))
	for i := range resultColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO results (%s) VALUES (%s) ON CONFLICT (roll_no) DO UPDATE SET %s",
		strings.Join(resultColumns, ", "),
		strings.Join(placeholders, ", "),
		buildUpdateClause(resultColumns))

	return tx.PrepareContext(ctx, query)
}

// buildUpdateClause sets every non-key column from the conflicting row
func buildUpdateClause(columns []string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == "roll_no" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return strings.Join(updates, ", ")
}
