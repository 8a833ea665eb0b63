package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add rebate index", "add_rebate_index"},
		{"Add-Rebate-Index", "add_rebate_index"},
		{"ADD_REBATE_INDEX", "add_rebate_index"},
		{"add__rebate__index", "add_rebate_index"},
		{"Ledger v2", "ledger_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"000001_init_settlement.up.sql", "000001_init_settlement.down.sql",
		"000002_add_ledger.up.sql", "000002_add_ledger.down.sql",
	)

	mf, err := CreateMigration(dir, "Add rebate index", "speed up FIFO write-off")
	require.NoError(t, err)

	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000003_add_rebate_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000003_add_rebate_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "000003 add_rebate_index")
	assert.Contains(t, string(up), "speed up FIFO write-off")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestNextVersion_SkipsNonNumericPrefixes(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "000004_a.up.sql", "draft_b.up.sql", "README.md")

	next, err := NextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"000002_add_ledger.up.sql", "000002_add_ledger.down.sql",
		"000001_init.up.sql", "000001_init.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_ledger"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestListMigrations_ShipsSchema(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	assert.Contains(t, migrations, "000001_init_settlement")
}
