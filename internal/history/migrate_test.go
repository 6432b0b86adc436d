package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateLegacyProgress(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"show": ["a", "b", "c"], "other": ["x"]}`), 0o644))

	doc, err := LoadLegacy(src)
	require.NoError(t, err)

	dst := NewMemoryStore()
	res, err := Migrate(ctx, doc, dst, 50)
	require.NoError(t, err)
	assert.Equal(t, MigrateResult{Shows: 2, Entries: 4}, res)

	got, err := dst.Get(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestMigrateTrimsToMax(t *testing.T) {
	ctx := context.Background()
	dst := NewMemoryStore()

	res, err := Migrate(ctx, LegacyDocument{"show": {"a", "b", "c", "d"}}, dst, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)

	got, _ := dst.Get(ctx, "show")
	assert.Equal(t, []string{"c", "d"}, got)
}

func TestLoadLegacyRejectsGarbage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(src, []byte(`not json`), 0o644))

	_, err := LoadLegacy(src)
	assert.Error(t, err)
}
