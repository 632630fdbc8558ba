// Package content stores the full text of books and derives word-based
// figures from it.
//
// Text is kept whole. Pages are cut from it on demand by the pagination
// engine, so changing the words-per-page never needs a re-import.
package content

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrContentNotFound is returned when no text is stored under a key.
var ErrContentNotFound = errors.New("content not found")

// ReadingWordsPerMinute is the reading speed used for time estimates.
const ReadingWordsPerMinute = 200

// Store persists book text.
type Store interface {
	// Save stores text for the book and returns the key to load it with.
	Save(ctx context.Context, bookID uint, text string) (string, error)
	Load(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// Backend names the implementation for health reporting.
	Backend() string
}

// Words splits text on unicode whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// CountWords counts whitespace-separated words without allocating them.
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// PageCount is ceil(words / wordsPerPage). Zero words means zero pages.
func PageCount(words, wordsPerPage int) int {
	if words <= 0 || wordsPerPage <= 0 {
		return 0
	}
	return (words + wordsPerPage - 1) / wordsPerPage
}

type Stats struct {
	BookID                  uint    `json:"book_id"`
	BookTitle               string  `json:"book_title"`
	HasContent              bool    `json:"has_content"`
	TotalWords              int     `json:"total_words"`
	TotalPages              int     `json:"total_pages"`
	WordsPerPage            int     `json:"words_per_page"`
	AverageWordsPerPage     float64 `json:"average_words_per_page"`
	EstimatedReadingMinutes float64 `json:"estimated_reading_time_minutes"`
}

// ComputeStats derives the content statistics of a book with the given word count.
func ComputeStats(wordCount, wordsPerPage int) Stats {
	pages := PageCount(wordCount, wordsPerPage)
	stats := Stats{
		HasContent:   pages > 0,
		TotalWords:   wordCount,
		TotalPages:   pages,
		WordsPerPage: wordsPerPage,
	}
	if pages > 0 {
		stats.AverageWordsPerPage = round2(float64(wordCount) / float64(pages))
	}
	stats.EstimatedReadingMinutes = round2(float64(wordCount) / ReadingWordsPerMinute)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
