package importers

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/log"
)

// CSVRow is one data row addressed by header name.
type CSVRow struct {
	Line   int
	record []string
	index  map[string]int
}

// Get returns the trimmed cell under header, matched case-insensitively.
func (r CSVRow) Get(header string) string {
	if i, ok := r.index[strings.ToLower(header)]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

// ReadCSV reads a CSV with a header row. Rows that fail to parse are reported
// as line errors and skipped; a missing required header fails the whole file.
func ReadCSV(r io.Reader, required ...string) ([]CSVRow, []LineError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read header")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range required {
		if _, ok := index[strings.ToLower(h)]; !ok {
			return nil, nil, errors.Errorf("missing required header: %s", h)
		}
	}

	var rows []CSVRow
	var lineErrors []LineError
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			lineErrors = append(lineErrors, LineError{Line: line, Message: err.Error()})
			continue
		}
		if blank(record) {
			continue
		}
		rows = append(rows, CSVRow{Line: line, record: record, index: index})
	}
	return rows, lineErrors, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// SplitList splits a "; " or ";" separated cell into trimmed, non-empty names.
func SplitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseBool reads true/false, yes/no and 1/0. Empty cells take fallback.
func ParseBool(cell string, fallback bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "":
		return fallback, nil
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q", cell)
}

// ImportBooksCSV imports books from a CSV with at least a Title column. Known
// ISBNs are skipped, like the JSONL import.
func (p *Pipeline) ImportBooksCSV(ctx context.Context, r io.Reader) (Result, error) {
	rows, lineErrors, err := ReadCSV(r, "Title")
	if err != nil {
		return Result{}, err
	}

	result := Result{Errors: lineErrors, Failed: len(lineErrors)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec := Record{
			ISBN:            row.Get("ISBN"),
			Title:           row.Get("Title"),
			Authors:         SplitList(row.Get("Authors")),
			Genres:          SplitList(row.Get("Genres")),
			Description:     row.Get("Description"),
			ImageURL:        row.Get("Image URL"),
			Publisher:       row.Get("Publisher"),
			Language:        row.Get("Language"),
			PublicationDate: row.Get("Publication Date"),
			Text:            row.Get("Text"),
		}
		skipped, err := p.importRecord(ctx, rec, "")
		result.Tally(row.Line, rec.Title, skipped, err)
	}

	log.Info("CSV book import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Tally records the outcome of one imported row.
func (r *Result) Tally(line int, label string, skipped bool, err error) {
	switch {
	case err != nil:
		r.fail(line, label, err.Error())
	case skipped:
		r.Skipped++
	default:
		r.Imported++
	}
}

// ParseRating reads a 1-5 star rating cell.
func ParseRating(cell string) (int, error) {
	rating, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return 0, errors.Errorf("invalid rating %q", cell)
	}
	return rating, nil
}
