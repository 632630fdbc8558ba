package importers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

// maxLineSize bounds a single JSONL record, inline text included.
const maxLineSize = 16 << 20

// Record is one line of a catalog file.
type Record struct {
	ISBN            string   `json:"isbn"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Genres          []string `json:"genres"`
	Description     string   `json:"description"`
	ImageURL        string   `json:"image_url"`
	Publisher       string   `json:"publisher"`
	Language        string   `json:"language"`
	PublicationDate string   `json:"publication_date"` // YYYY or YYYY-MM-DD
	Text            string   `json:"text"`
	TextFile        string   `json:"text_file"` // relative to the catalog file
}

// LineError describes a record that could not be imported.
type LineError struct {
	Line    int    `json:"line"`
	Title   string `json:"title,omitempty"`
	Message string `json:"error"`
}

// Result summarizes an import run.
type Result struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Errors   []LineError `json:"errors,omitempty"`
}

// Catalog persists imported books. *catalog.Service implements it.
type Catalog interface {
	ISBNExists(ctx context.Context, isbn string) (bool, error)
	Create(ctx context.Context, in catalog.BookInput) (*entities.Book, error)
}

// Pipeline handles the import workflow:
// read line → decode → resolve text → skip known ISBNs → create.
type Pipeline struct {
	catalog Catalog
}

// NewPipeline creates a new import pipeline backed by the given catalog.
func NewPipeline(c Catalog) *Pipeline {
	return &Pipeline{catalog: c}
}

// ImportFile imports the JSONL catalog at path. text_file entries resolve
// against the directory holding path.
func (p *Pipeline) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()

	return p.Import(ctx, f, filepath.Dir(path))
}

// Import reads records from r. A bad record is reported in Result.Errors and
// does not stop the run; only read failures and cancellation return an error.
func (p *Pipeline) Import(ctx context.Context, r io.Reader, baseDir string) (Result, error) {
	var result Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			result.fail(line, "", fmt.Sprintf("invalid JSON: %v", err))
			continue
		}

		skipped, err := p.importRecord(ctx, rec, baseDir)
		result.Tally(line, rec.Title, skipped, err)
	}
	if err := scanner.Err(); err != nil {
		return result, errors.Wrapf(err, "read catalog at line %d", line+1)
	}

	log.Info("Catalog import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (p *Pipeline) importRecord(ctx context.Context, rec Record, baseDir string) (bool, error) {
	isbn := strings.TrimSpace(rec.ISBN)
	if isbn != "" {
		exists, err := p.catalog.ISBNExists(ctx, isbn)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}

	in, err := rec.toInput(baseDir)
	if err != nil {
		return false, err
	}

	if _, err := p.catalog.Create(ctx, in); err != nil {
		// Another import may have won the race for the ISBN.
		if apperr.Is(err, "DUPLICATE_ISBN") {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (rec Record) toInput(baseDir string) (catalog.BookInput, error) {
	in := catalog.BookInput{
		Title:       rec.Title,
		Description: rec.Description,
		ImageURL:    rec.ImageURL,
		Publisher:   rec.Publisher,
		Language:    rec.Language,
		Authors:     rec.Authors,
		Genres:      rec.Genres,
		Text:        rec.Text,
	}
	if isbn := strings.TrimSpace(rec.ISBN); isbn != "" {
		in.ISBN = &isbn
	}

	if rec.PublicationDate != "" {
		date, err := ParsePublicationDate(rec.PublicationDate)
		if err != nil {
			return in, err
		}
		in.PublicationDate = &date
	}

	if in.Text == "" && rec.TextFile != "" {
		path := rec.TextFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return in, errors.Wrap(err, "read text_file")
		}
		in.Text = string(data)
	}
	return in, nil
}

func (r *Result) fail(line int, title, message string) {
	r.Failed++
	r.Errors = append(r.Errors, LineError{Line: line, Title: title, Message: message})
}

// ParsePublicationDate accepts a bare year or a full YYYY-MM-DD date.
func ParsePublicationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("invalid publication_date %q", s)
}
