package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nonsonwune/meritlist/models"
)

// Constants for configuration
const (
	DefaultBatchSize   = 1000
	DefaultWorkerCount = 4
	MaxRetries         = 3
)

// Results sheet columns
const (
	ColRollNo        = "RollNo"
	ColGender        = "Gender"
	ColCategory      = "Caste Category"
	ColMarks         = "Obtain Marks"
	ColPH            = "PH"
	ColExServiceman  = "Ex-Serviceman"
	fuzzyMatchCutoff = 0.6
)

// ColumnMapping defines how a results sheet column maps to a table column
type ColumnMapping struct {
	SourceColumn      string
	DestinationColumn string
	Critical          bool
}

// DefaultColumnMappings lists the results sheet columns in table order
func DefaultColumnMappings() []ColumnMapping {
	return []ColumnMapping{
		{ColRollNo, "roll_no", true},
		{ColGender, "gender", false},
		{ColCategory, "caste_category", true},
		{ColMarks, "marks", true},
		{ColPH, "is_ph", false},
		{ColExServiceman, "is_ex_serviceman", false},
	}
}

// ImportConfig holds the configuration for data import
type ImportConfig struct {
	SourceFile     string
	BatchSize      int
	WorkerCount    int // Number of parallel workers to use
	FailedDir      string
	ColumnMappings []ColumnMapping
	Logger         *slog.Logger
}

// DataImporter reads a results sheet into candidates
type DataImporter struct {
	config        ImportConfig
	logger        *slog.Logger
	columnMapping map[string]int // source column -> header index
}

func NewDataImporter(config ImportConfig) *DataImporter {
	if len(config.ColumnMappings) == 0 {
		config.ColumnMappings = DefaultColumnMappings()
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultWorkerCount
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DataImporter{config: config, logger: logger}
}

// ColumnMatch represents a potential column match with confidence score
type ColumnMatch struct {
	SourceColumn      string
	DestinationColumn string
	Confidence        float64
}

// findBestColumnMatch uses fuzzy matching to rank the headers that could hold column
func findBestColumnMatch(column string, headers []string) []ColumnMatch {
	matches := make([]ColumnMatch, 0)
	normalizedColumn := normalizeHeader(column)

	for _, header := range headers {
		normalizedHeader := normalizeHeader(header)
		maxLen := max(len(normalizedColumn), len(normalizedHeader))
		if maxLen == 0 {
			continue
		}
		distance := levenshteinDistance(normalizedColumn, normalizedHeader)
		confidence := 1.0 - float64(distance)/float64(maxLen)

		if confidence > fuzzyMatchCutoff {
			matches = append(matches, ColumnMatch{
				SourceColumn:      header,
				DestinationColumn: column,
				Confidence:        confidence,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// ResolveHeaders maps every known column to a header index. Exact matches
// (ignoring case, spaces, underscores and dashes) win; otherwise the closest
// fuzzy match is taken. A missing critical column fails the import.
func (d *DataImporter) ResolveHeaders(headers []string) error {
	d.columnMapping = make(map[string]int)
	var missing []string

	for _, mapping := range d.config.ColumnMappings {
		if idx := getColumnIndex(headers, mapping.SourceColumn); idx != -1 {
			d.columnMapping[mapping.SourceColumn] = idx
			continue
		}
		if matches := findBestColumnMatch(mapping.SourceColumn, headers); len(matches) > 0 {
			best := matches[0]
			d.columnMapping[mapping.SourceColumn] = getColumnIndex(headers, best.SourceColumn)
			d.logger.Info("column mapped by similarity",
				"column", mapping.SourceColumn, "header", best.SourceColumn, "confidence", fmt.Sprintf("%.2f", best.Confidence))
			continue
		}
		if mapping.Critical {
			missing = append(missing, mapping.SourceColumn)
		} else {
			d.logger.Warn("optional column not found, using defaults", "column", mapping.SourceColumn)
		}
	}

	if len(missing) > 0 {
		return &ImportError{
			Code:      "MISSING_COLUMNS",
			Message:   fmt.Sprintf("missing required columns: %v", missing),
			Timestamp: time.Now(),
			Context:   map[string]string{"headers": strings.Join(headers, ",")},
		}
	}
	return nil
}

// LoadResult is the outcome of reading a results sheet
type LoadResult struct {
	Candidates []models.Candidate
	Warnings   []models.Warning
	Failed     []FailedImport
	Headers    []string
	Stats      *ImportStats
}

// LoadFile opens and reads a results sheet
func (d *DataImporter) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening file %s", path)
	}
	defer file.Close()

	d.config.SourceFile = path
	return d.Load(ctx, file)
}

// Load reads every row, transforms them in parallel chunks and merges the
// chunks back in input order. Row order is kept because it breaks ties
// between equal marks.
func (d *DataImporter) Load(ctx context.Context, r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "error reading headers")
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	if err := d.ResolveHeaders(headers); err != nil {
		return nil, errors.Wrap(err, "header validation failed")
	}

	allRecords, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "error reading records")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	workerCount := d.config.WorkerCount
	recordsPerWorker := (len(allRecords) + workerCount - 1) / workerCount

	results := make(chan ChunkResult, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		start := i * recordsPerWorker
		end := start + recordsPerWorker
		if end > len(allRecords) {
			end = len(allRecords)
		}
		if start >= len(allRecords) {
			break
		}

		wg.Add(1)
		go func(chunk [][]string, startIndex int) {
			defer wg.Done()
			results <- d.processChunk(ctx, chunk, startIndex)
		}(allRecords[start:end], start)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var chunks []ChunkResult
	for result := range results {
		chunks = append(chunks, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	out := &LoadResult{Headers: headers, Stats: NewImportStats()}
	for _, chunk := range chunks {
		out.Candidates = append(out.Candidates, chunk.Candidates...)
		out.Warnings = append(out.Warnings, chunk.Warnings...)
		out.Failed = append(out.Failed, chunk.FailedImports...)
		out.Stats.TotalProcessed += chunk.ProcessedRows
	}
	out.Stats.ValidRecords = len(out.Candidates)
	for _, f := range out.Failed {
		out.Stats.AddError(f.ErrorCode)
	}
	for _, w := range out.Warnings {
		out.Stats.AddWarning(w)
	}

	for _, w := range out.Warnings {
		d.logger.Warn("data quality", "code", w.Code, "roll_no", w.RollNo, "detail", w.Detail)
	}
	return out, nil
}

type ChunkResult struct {
	Candidates    []models.Candidate
	Warnings      []models.Warning
	FailedImports []FailedImport
	ProcessedRows int
	ChunkIndex    int
}

func (d *DataImporter) processChunk(ctx context.Context, records [][]string, startIndex int) ChunkResult {
	result := ChunkResult{ChunkIndex: startIndex}

	for i, record := range records {
		select {
		case <-ctx.Done():
			return result
		default:
		}
		result.ProcessedRows++
		row := startIndex + i

		c, warnings, err := d.transformRecord(record, row)
		if err != nil {
			failed := FailedImport{
				RowNumber:  row + 2, // header is line 1
				SourceFile: d.config.SourceFile,
				FailReason: err.Error(),
				ErrorCode:  string(models.WarnIncompleteRow),
				Timestamp:  time.Now(),
				RowData:    record,
				RollNo:     d.field(record, ColRollNo),
				Category:   d.field(record, ColCategory),
			}
			var ie *ImportError
			if errors.As(err, &ie) {
				failed.ErrorCode = ie.Code
			}
			result.FailedImports = append(result.FailedImports, failed)
			result.Warnings = append(result.Warnings, models.Warning{
				Code:   models.WarnIncompleteRow,
				RollNo: failed.RollNo,
				Detail: fmt.Sprintf("row %d skipped: %v", failed.RowNumber, err),
			})
			continue
		}
		result.Candidates = append(result.Candidates, c)
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result
}

func (d *DataImporter) field(record []string, column string) string {
	idx, ok := d.columnMapping[column]
	if !ok || idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// transformRecord normalizes one row. Rows without a roll number or caste
// category cannot be ranked and are rejected; every other problem is
// absorbed with a warning.
func (d *DataImporter) transformRecord(record []string, row int) (models.Candidate, []models.Warning, error) {
	rollNo := d.field(record, ColRollNo)
	rawCategory := d.field(record, ColCategory)
	if rollNo == "" || rawCategory == "" {
		return models.Candidate{}, nil, &ImportError{
			Code:      string(models.WarnIncompleteRow),
			Message:   "roll number or caste category missing",
			Timestamp: time.Now(),
		}
	}

	var warnings []models.Warning
	warn := func(code models.WarningCode, detail string) {
		warnings = append(warnings, models.Warning{Code: code, RollNo: rollNo, Detail: detail})
	}

	c := models.Candidate{
		RollNo:         rollNo,
		Seq:            row,
		RawCategory:    rawCategory,
		IsPH:           models.ParsePH(d.field(record, ColPH)),
		IsExServiceman: models.ParseExServiceman(d.field(record, ColExServiceman)),
	}

	marks, err := transformMarks(d.field(record, ColMarks))
	if err != nil {
		warn(models.WarnInvalidMarks, err.Error())
	}
	c.Marks = marks

	category, ok := models.NormalizeCategory(rawCategory)
	if !ok {
		warn(models.WarnUnknownCategory, fmt.Sprintf("unknown caste category %q treated as General", rawCategory))
	}
	c.Category = category

	rawGender := d.field(record, ColGender)
	gender, ok := models.NormalizeGender(rawGender)
	if !ok {
		warn(models.WarnUnknownGender, fmt.Sprintf("unknown gender %q", rawGender))
	}
	c.Gender = gender

	return c, warnings, nil
}

// transformMarks parses obtained marks. Blank, non-numeric, non-finite and
// negative values become 0, which keeps the row but excludes it from ranking.
func transformMarks(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("marks missing, set to 0")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid marks %q, set to 0", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("non-finite marks %q, set to 0", s)
	}
	if v < 0 {
		return 0, errors.Errorf("negative marks %q, set to 0", s)
	}
	return v, nil
}

type FailedImport struct {
	RollNo     string
	Category   string
	FailReason string
	ErrorCode  string
	Timestamp  time.Time
	RowNumber  int
	SourceFile string
	RowData    []string
}

type ImportError struct {
	Code      string
	Message   string
	Timestamp time.Time
	Context   map[string]string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// SaveFailedRecords writes rejected rows with their error to
// <dir>/failed_records_<timestamp>.csv and returns the file path
func SaveFailedRecords(dir string, headers []string, failed []FailedImport) (string, error) {
	if len(failed) == 0 {
		return "", nil
	}
	if dir == "" {
		dir = "failed_imports"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "error creating %s directory", dir)
	}

	timestamp := time.Now().Format("20060102_150405")
	failedFile := filepath.Join(dir, fmt.Sprintf("failed_records_%s.csv", timestamp))

	file, err := os.Create(failedFile)
	if err != nil {
		return "", errors.Wrap(err, "error creating failed records file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append(append([]string{}, headers...), "Row", "Error")
	if err := writer.Write(header); err != nil {
		return "", errors.Wrap(err, "error writing headers")
	}
	for _, f := range failed {
		row := append(append([]string{}, f.RowData...), strconv.Itoa(f.RowNumber), f.FailReason)
		if err := writer.Write(row); err != nil {
			return "", errors.Wrap(err, "error writing record")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "error flushing failed records")
	}

	log.Printf("Failed records saved to: %s", failedFile)
	return failedFile, nil
}

type ImportStats struct {
	TotalProcessed    int
	ValidRecords      int
	SkippedRecords    int
	ErrorsByType      map[string]int
	WarningsByCode    map[models.WarningCode]int
	UnknownCategories map[string]int
}

func NewImportStats() *ImportStats {
	return &ImportStats{
		ErrorsByType:      make(map[string]int),
		WarningsByCode:    make(map[models.WarningCode]int),
		UnknownCategories: make(map[string]int),
	}
}

func (s *ImportStats) AddError(errType string) {
	s.ErrorsByType[errType]++
	s.SkippedRecords++
}

func (s *ImportStats) AddWarning(w models.Warning) {
	s.WarningsByCode[w.Code]++
	if w.Code == models.WarnUnknownCategory {
		s.UnknownCategories[w.Detail]++
	}
}

func (s *ImportStats) PrintSummary() {
	log.Printf("\nImport Statistics:")
	log.Printf("Total Records Processed: %d", s.TotalProcessed)
	log.Printf("Valid Records: %d", s.ValidRecords)
	log.Printf("Skipped Records: %d", s.SkippedRecords)

	if len(s.ErrorsByType) > 0 {
		log.Printf("\nErrors by Type:")
		for errType, count := range s.ErrorsByType {
			log.Printf("- %s: %d occurrences", errType, count)
		}
	}

	if len(s.WarningsByCode) > 0 {
		log.Printf("\nWarnings by Type:")
		for code, count := range s.WarningsByCode {
			log.Printf("- %s: %d occurrences", code, count)
		}
	}

	if len(s.UnknownCategories) > 0 {
		log.Printf("\nMost Common Unknown Categories:")
		type categoryCount struct {
			detail string
			count  int
		}
		categories := make([]categoryCount, 0, len(s.UnknownCategories))
		for detail, count := range s.UnknownCategories {
			categories = append(categories, categoryCount{detail, count})
		}
		sort.Slice(categories, func(i, j int) bool {
			return categories[i].count > categories[j].count
		})
		for i := 0; i < min(10, len(categories)); i++ {
			log.Printf("- %s: %d occurrences", categories[i].detail, categories[i].count)
		}
	}
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			if s1[i-1] == s2[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
			} else {
				matrix[i][j] = min(
					matrix[i-1][j]+1,   // deletion
					matrix[i][j-1]+1,   // insertion
					matrix[i-1][j-1]+1, // substitution
				)
			}
		}
	}

	return matrix[len(s1)][len(s2)]
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// getColumnIndex returns the index of a column in headers
func getColumnIndex(headers []string, columnName string) int {
	normalizedColumn := normalizeHeader(columnName)
	for i, header := range headers {
		if normalizeHeader(header) == normalizedColumn {
			return i
		}
	}
	return -1
}
