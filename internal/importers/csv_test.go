package importers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffEmail, First Name ,Rating\n" +
		"ann@example.com,Ann,5\n" +
		",,\n" +
		"bo@example.com,\"Bo \"\"The\"\" Reader\",4,extra\n"

	rows, lineErrors, err := ReadCSV(strings.NewReader(input), "email")
	require.NoError(t, err)
	assert.Empty(t, lineErrors)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "ann@example.com", rows[0].Get("Email"))
	assert.Equal(t, "Ann", rows[0].Get("first name"))
	assert.Equal(t, 4, rows[1].Line, "blank rows keep their line number")
	assert.Equal(t, `Bo "The" Reader`, rows[1].Get("First Name"))
	assert.Empty(t, rows[1].Get("Password"))

	t.Run("missing required header", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("Name\nx\n"), "Email")
		assert.ErrorContains(t, err, "missing required header: Email")
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestSplitListAndParseBool(t *testing.T) {
	assert.Equal(t, []string{"Smith & Jones", "Ann Writer"}, SplitList(" Smith & Jones ;; Ann Writer;"))
	assert.Nil(t, SplitList(""))

	tests := []struct {
		cell     string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{"", true, true, false},
		{"TRUE", false, true, false},
		{"no", true, false, false},
		{"1", false, true, false},
		{"maybe", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := ParseBool(tt.cell, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipeline_ImportBooksCSV(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"Title,ISBN,Authors,Genres,Publication Date,Language,Publisher,Description",
		"Fantasy Realm,9780000000001,Ann Writer; Bo Scribe,Fantasy,2019-03-01,en,Acme,A quest",
		"Fantasy Realm again,9780000000001,,,,,,",
		",9780000000003,,,,,,",
		"Bad Date,,,,March 2019,,,",
		"Science & Magic,,Smith & Jones,Science Fiction & Fantasy,2021,,,",
	}, "\n")

	result, err := NewPipeline(svc).ImportBooksCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Equal(t, "Bad Date", result.Errors[1].Title)

	exists, err := svc.ISBNExists(ctx, "9780000000001")
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("title header is required", func(t *testing.T) {
		_, err := NewPipeline(svc).ImportBooksCSV(ctx, strings.NewReader("ISBN\n123\n"))
		assert.Error(t, err)
	})
}
