package migrate_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtd-backend/internal/migrate"
	"github.com/nhle/gtd-backend/internal/model"
	"github.com/nhle/gtd-backend/tests/testutil"
)

func TestCreateBackupMissingDatabase(t *testing.T) {
	dbPath := testutil.TempDBPath(t)
	svc := migrate.NewBackupService(dbPath, testutil.QuietLogger())

	backupPath, err := svc.CreateBackup(1, 2)
	require.NoError(t, err)

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
	assert.True(t, strings.HasPrefix(filepath.Base(backupPath), "backup_v1_to_v2_"))
	assert.Equal(t, ".db", filepath.Ext(backupPath))
	assert.Equal(t, filepath.Join(filepath.Dir(dbPath), "backups"), filepath.Dir(backupPath))
}

func TestCreateBackupCopiesBytes(t *testing.T) {
	dbPath := testutil.TempDBPath(t)
	require.NoError(t, os.WriteFile(dbPath, []byte("live database bytes"), 0o644))

	svc := migrate.NewBackupService(dbPath, testutil.QuietLogger())
	backupPath, err := svc.CreateBackup(0, 1)
	require.NoError(t, err)

	got, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("live database bytes"), got)
}

func TestRestoreFromBackup(t *testing.T) {
	dbPath := testutil.TempDBPath(t)
	require.NoError(t, os.WriteFile(dbPath, []byte("original"), 0o644))

	svc := migrate.NewBackupService(dbPath, testutil.QuietLogger())
	backupPath, err := svc.CreateBackup(1, 2)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dbPath, []byte("clobbered"), 0o644))
	require.NoError(t, svc.RestoreFromBackup(backupPath))

	got, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestCreateJSONExportWhitelist(t *testing.T) {
	manager, dbPath := testutil.NewTestManager(t, migrate.DefaultCatalog())
	ctx := context.Background()

	_, err := manager.MigrateToLatest(ctx)
	require.NoError(t, err)

	// One real row plus a table outside the whitelist.
	s := testutil.OpenTestStore(t, dbPath)
	_, err = s.CreateItem(ctx, model.Item{
		Title:    "draft quarterly review",
		ItemType: model.ItemTypeAction,
	})
	require.NoError(t, err)

	db := openRaw(t, dbPath)
	_, err = db.Exec("CREATE TABLE scratch (id TEXT PRIMARY KEY)")
	require.NoError(t, err)

	exportPath, err := manager.Backups().CreateJSONExport()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(exportPath), "db_export_"))
	assert.Equal(t, ".json", filepath.Ext(exportPath))

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	var export map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &export))

	require.Contains(t, export, "items")
	require.Len(t, export["items"], 1)
	assert.Equal(t, "draft quarterly review", export["items"][0]["title"])

	assert.Contains(t, export, "contexts")
	assert.Empty(t, export["contexts"])
	assert.NotContains(t, export, "scratch")
}
