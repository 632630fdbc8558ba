package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("AUTH_BCRYPT_COST", "4")

	var out bytes.Buffer
	cmd := NewRootCommand("1.2.3", "abc123")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "booklook 1.2.3 (abc123)\n", out)
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := execute(t, "migrate", "--database-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated")
	assert.FileExists(t, dbPath)
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	file := filepath.Join(dir, "catalog.jsonl")
	lines := `{"title": "Dune", "isbn": "9780441013593", "authors": ["Frank Herbert"]}
{"title": ""}
`
	require.NoError(t, os.WriteFile(file, []byte(lines), 0o644))

	out, err := execute(t, "import", "--database-path", dbPath, "--file", file, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported: 1")
	assert.Contains(t, out, "Failed:   1")
	assert.Contains(t, out, "line 2")

	t.Run("second run skips existing isbns", func(t *testing.T) {
		out, err := execute(t, "import", "--database-path", dbPath, "--file", file)
		require.NoError(t, err)
		assert.Contains(t, out, "Skipped:  1")
	})

	t.Run("file flag is required", func(t *testing.T) {
		_, err := execute(t, "import", "--database-path", dbPath)
		assert.Error(t, err)
	})
}

func TestCreateAdminCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := execute(t, "create-admin", "--database-path", dbPath, "--email", "admin@example.com", "--password", "ValidPass123")
	require.NoError(t, err)
	assert.Contains(t, out, "Created administrator admin@example.com")

	_, err = execute(t, "create-admin", "--database-path", dbPath, "--email", "admin@example.com", "--password", "ValidPass123")
	assert.Error(t, err, "duplicate email")

	t.Setenv("ADMIN_PASSWORD", "")
	_, err = execute(t, "create-admin", "--database-path", dbPath, "--email", "other@example.com")
	assert.Error(t, err, "missing password")
}

func TestRecomputeRatingsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := execute(t, "recompute-ratings", "--database-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "every book")

	_, err = execute(t, "recompute-ratings", "--database-path", dbPath, "--book-id", "42")
	assert.Error(t, err, "unknown book")
}
