// Package store reads the results dataset from a SQL database.
package store

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq" // driver: postgres
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/nonsonwune/meritlist/migrations"
	"github.com/nonsonwune/meritlist/models"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open opens the database, checks the connection and ensures the results
// table exists.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}
	if dsn == "" {
		return nil, &models.ConfigurationError{Field: "dsn", Reason: "required for driver " + driver}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s database", driver)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error connecting to database")
	}
	if err := migrations.InitSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// LoadCandidates reads every stored result in original input order. The
// stored gender and category are normalized again so rows written by other
// tools get the same treatment as CSV rows.
func LoadCandidates(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]models.Candidate, []models.Warning, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows, err := db.QueryContext(ctx, `
		SELECT roll_no, seq, gender, caste_category, marks, is_ph, is_ex_serviceman
		FROM results
		ORDER BY seq, roll_no`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error querying results")
	}
	defer rows.Close()

	var candidates []models.Candidate
	var warnings []models.Warning
	for rows.Next() {
		var c models.Candidate
		var gender, category string
		var marks sql.NullFloat64
		if err := rows.Scan(&c.RollNo, &c.Seq, &gender, &category, &marks, &c.IsPH, &c.IsExServiceman); err != nil {
			return nil, nil, errors.Wrap(err, "error scanning result row")
		}

		c.RawCategory = category
		if marks.Valid && marks.Float64 > 0 {
			c.Marks = marks.Float64
		} else if !marks.Valid || marks.Float64 < 0 {
			warnings = append(warnings, models.Warning{Code: models.WarnInvalidMarks, RollNo: c.RollNo, Detail: "stored marks invalid, set to 0"})
		}

		var ok bool
		if c.Category, ok = models.NormalizeCategory(category); !ok {
			if parsed, known := models.ParseCategory(category); known {
				c.Category = parsed
			} else {
				warnings = append(warnings, models.Warning{Code: models.WarnUnknownCategory, RollNo: c.RollNo, Detail: "unknown caste category " + category + " treated as General"})
			}
		}
		if c.Gender, ok = models.NormalizeGender(gender); !ok {
			warnings = append(warnings, models.Warning{Code: models.WarnUnknownGender, RollNo: c.RollNo, Detail: "unknown gender " + gender})
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "error iterating results")
	}

	for _, w := range warnings {
		logger.Warn("data quality", "code", w.Code, "roll_no", w.RollNo, "detail", w.Detail)
	}
	logger.Info("results loaded", "rows", len(candidates))
	return candidates, warnings, nil
}
