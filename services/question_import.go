package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"goat-rush/logger"
	"goat-rush/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	MaxImportRows      = 200
	MaxReportedErrors  = 10
	minQuestionTextLen = 10
	questionLifetime   = 24 * time.Hour
)

type ImportFormat string

const (
	FormatCSV  ImportFormat = "csv"
	FormatJSON ImportFormat = "json"
)

// ImportReport summarises one upload.
type ImportReport struct {
	Inserted    int      `json:"inserted"`
	Errors      []string `json:"errors"`
	TotalErrors int      `json:"total_errors"`
	ArchiveURL  string   `json:"archive_url,omitempty"`
}

// importRow is the JSON upload shape.
type importRow struct {
	Text          string         `json:"text"`
	Category      string         `json:"category"`
	CorrectAnswer string         `json:"correct_answer"`
	Options       models.Options `json:"options"`
	SourceURL     string         `json:"source_url"`
}

// QuestionImporter validates admin uploads and bulk-inserts them.
type QuestionImporter struct {
	writer   QuestionWriter
	archiver Archiver
	clock    clockwork.Clock
}

// NewQuestionImporter accepts a nil archiver, which skips archiving.
func NewQuestionImporter(writer QuestionWriter, archiver Archiver, clock clockwork.Clock) *QuestionImporter {
	return &QuestionImporter{writer: writer, archiver: archiver, clock: clock}
}

// Import parses content, inserts every valid row and reports the rest. Only
// the first MaxImportRows rows are considered.
func (s *QuestionImporter) Import(ctx context.Context, format ImportFormat, filename string, content []byte) (*ImportReport, error) {
	var rows []importRow
	var rowErrs []string
	var err error

	switch format {
	case FormatCSV:
		rows, rowErrs, err = parseCSV(content)
	case FormatJSON:
		rows, rowErrs, err = parseJSON(content)
	default:
		return nil, ErrInvalidInput.Wrap(fmt.Errorf("invalid format %q, use csv or json", format))
	}
	if err != nil {
		return nil, ErrInvalidInput.Wrap(err)
	}

	expiry := s.clock.Now().UTC().Add(questionLifetime)
	questions := make([]models.Question, 0, len(rows))
	for i, row := range rows {
		if row.Text == "" && row.Category == "" {
			continue
		}
		q, err := buildQuestion(row, expiry)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}

	report := &ImportReport{TotalErrors: len(rowErrs)}
	report.Errors = rowErrs
	if len(rowErrs) > MaxReportedErrors {
		report.Errors = rowErrs[:MaxReportedErrors]
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}

	inserted, err := s.writer.BulkInsert(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("database insert failed: %w", err)
	}
	report.Inserted = inserted

	if s.archiver != nil {
		url, err := s.archiver.Archive(ctx, filename, content, contentTypeFor(format))
		if err != nil {
			logger.WithFields(logrus.Fields{"filename": filename}).Warnf("[import] failed to archive upload: %v", err)
		} else {
			report.ArchiveURL = url
		}
	}

	logger.WithFields(logrus.Fields{
		"format":   format,
		"inserted": report.Inserted,
		"errors":   report.TotalErrors,
	}).Info("[import] questions uploaded")
	return report, nil
}

func contentTypeFor(format ImportFormat) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// parseCSV reads text,category,correct,option_a,option_b,option_c,option_d[,source_url].
// Row-level problems become messages; rows keep their 1-based line position.
func parseCSV(content []byte) ([]importRow, []string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(content)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows []importRow
	var errs []string
	for line := 1; line <= MaxImportRows; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: %v", line, err))
			rows = append(rows, importRow{})
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 7 {
			errs = append(errs, fmt.Sprintf("Row %d: Expected 7+ fields, got %d", line, len(fields)))
			rows = append(rows, importRow{})
			continue
		}
		row := importRow{
			Text:          fields[0],
			Category:      fields[1],
			CorrectAnswer: fields[2],
			Options: models.Options{
				"a": fields[3],
				"b": fields[4],
				"c": fields[5],
				"d": fields[6],
			},
		}
		if len(fields) > 7 {
			row.SourceURL = fields[7]
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

func parseJSON(content []byte) ([]importRow, []string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, nil, errors.New("JSON must be an array")
	}
	if len(raw) > MaxImportRows {
		raw = raw[:MaxImportRows]
	}

	rows := make([]importRow, len(raw))
	var errs []string
	for i, item := range raw {
		if err := json.Unmarshal(item, &rows[i]); err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: %v", i+1, err))
			rows[i] = importRow{}
			continue
		}
		if rows[i].Text == "" || rows[i].Category == "" || rows[i].CorrectAnswer == "" || rows[i].Options == nil {
			errs = append(errs, fmt.Sprintf("Row %d: Missing required fields", i+1))
			rows[i] = importRow{}
		}
	}
	return rows, errs, nil
}

// buildQuestion validates a row. The stored answer is always the option key.
func buildQuestion(row importRow, expiry time.Time) (models.Question, error) {
	text := strings.TrimSpace(row.Text)
	if len([]rune(text)) < minQuestionTextLen {
		return models.Question{}, errors.New("Question text too short")
	}
	category, ok := models.ParseCategory(row.Category)
	if !ok {
		return models.Question{}, fmt.Errorf("Invalid category %q (use: ct, web3, news)", row.Category)
	}

	opts := make(models.Options, len(models.OptionKeys))
	for k, v := range row.Options {
		opts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for _, k := range models.OptionKeys {
		if opts[k] == "" {
			return models.Question{}, errors.New("All 4 options required")
		}
	}
	for k := range opts {
		if !isOptionKey(k) {
			delete(opts, k)
		}
	}

	key := answerKeyFor(row.CorrectAnswer, opts)
	if key == "" {
		return models.Question{}, errors.New("Correct answer must be a, b, c, or d")
	}

	q := models.Question{
		ID:            uuid.NewString(),
		Text:          text,
		Category:      category,
		Options:       datatypes.NewJSONType(opts),
		CorrectAnswer: key,
		IsActive:      true,
		ExpiryDate:    expiry,
	}
	if src := strings.TrimSpace(row.SourceURL); src != "" {
		q.SourceURL = &src
	}
	return q, nil
}

// answerKeyFor resolves a key or option text to its key, or "".
func answerKeyFor(answer string, opts models.Options) string {
	a := normalize(answer)
	if isOptionKey(a) {
		return a
	}
	for _, k := range models.OptionKeys {
		if normalize(opts[k]) == a {
			return k
		}
	}
	return ""
}

func isOptionKey(s string) bool {
	for _, k := range models.OptionKeys {
		if s == k {
			return true
		}
	}
	return false
}
