package migrate_test

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nhle/gtd-backend/internal/migrate"
	"github.com/nhle/gtd-backend/tests/testutil"
)

const demoUpSQL = `
CREATE TABLE IF NOT EXISTS teams (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS members (
	id      TEXT PRIMARY KEY,
	team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE
);
`

const demoDownSQL = `
DROP TABLE IF EXISTS members;
DROP TABLE IF EXISTS teams;
`

func demoMigration() *migrate.Script {
	return migrate.NewScript(1, "create teams and members", demoUpSQL, demoDownSQL)
}

// failingMigration is a version-2 migration whose upgrade always fails.
type failingMigration struct {
	*migrate.Script
	err error
}

func (f failingMigration) Upgrade(ctx context.Context, tx *sqlx.Tx) error {
	return f.err
}

func openRaw(t *testing.T, dbPath string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChecksumDeterminism(t *testing.T) {
	manager, _ := testutil.NewTestManager(t, migrate.DefaultCatalog())
	m := migrate.InitialSchema()

	first := manager.Checksum(m)
	second := manager.Checksum(m)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	_, err := hex.DecodeString(first)
	require.NoError(t, err)

	// A different script must fingerprint differently.
	other := manager.Checksum(demoMigration())
	assert.NotEqual(t, first, other)
}

func TestMigrateToLatestFromScratch(t *testing.T) {
	catalog := migrate.NewCatalog(demoMigration())
	manager, dbPath := testutil.NewTestManager(t, catalog)

	require.NoFileExists(t, dbPath)

	version, err := manager.MigrateToLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, 1, manager.CurrentVersion())
	assert.Empty(t, manager.PendingMigrations())

	// Exactly one backup artifact, tagged v0 to v1.
	entries, err := os.ReadDir(filepath.Join(filepath.Dir(dbPath), "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "backup_v0_to_v1_"))

	// The new schema is queryable with its uniqueness constraint intact.
	db := openRaw(t, dbPath)
	_, err = db.Exec("INSERT INTO teams (id, name) VALUES ('t1', 'core')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO teams (id, name) VALUES ('t2', 'core')")
	require.Error(t, err)
}

func TestMigrateToLatestEmptyCatalog(t *testing.T) {
	manager, dbPath := testutil.NewTestManager(t, migrate.NewCatalog())

	version, err := manager.MigrateToLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.NoFileExists(t, dbPath)
}

func TestApplyMigrationIdempotent(t *testing.T) {
	manager, _ := testutil.NewTestManager(t, migrate.NewCatalog(demoMigration()))
	ctx := context.Background()

	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))
	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))

	assert.Equal(t, 1, manager.CurrentVersion())

	history := manager.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
	assert.False(t, history[0].AppliedAt.IsZero())
}

func TestFailedUpgradeRestoresState(t *testing.T) {
	manager, dbPath := testutil.NewTestManager(t, migrate.NewCatalog(demoMigration()))
	ctx := context.Background()

	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))

	// Sentinel row to prove pre-existing data survives the failure.
	db := openRaw(t, dbPath)
	_, err := db.Exec("INSERT INTO teams (id, name) VALUES ('t1', 'sentinel')")
	require.NoError(t, err)

	errBoom := errors.New("boom")
	failing := failingMigration{
		Script: migrate.NewScript(2, "always fails", "SELECT 1", "SELECT 1"),
		err:    errBoom,
	}

	err = manager.ApplyMigration(ctx, failing, 2)
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, 1, manager.CurrentVersion())

	var name string
	require.NoError(t, db.Get(&name, "SELECT name FROM teams WHERE id = 't1'"))
	assert.Equal(t, "sentinel", name)
}

func TestRollbackReversesStructure(t *testing.T) {
	manager, dbPath := testutil.NewTestManager(t, migrate.NewCatalog(demoMigration()))
	ctx := context.Background()

	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))
	require.NoError(t, manager.RollbackMigration(ctx, demoMigration(), 0))

	assert.Equal(t, 0, manager.CurrentVersion())

	db := openRaw(t, dbPath)
	var count int
	err := db.Get(&count,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('teams', 'members')")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrateToVersionMissingIntermediate(t *testing.T) {
	// Version 2 is deliberately absent.
	catalog := migrate.NewCatalog(
		demoMigration(),
		migrate.NewScript(3, "three", "SELECT 1", "SELECT 1"),
	)
	manager, _ := testutil.NewTestManager(t, catalog)

	err := manager.MigrateToVersion(context.Background(), 3)
	require.ErrorIs(t, err, migrate.ErrMigrationNotFound)

	// The path applied version 1 before aborting, and recorded it.
	assert.Equal(t, 1, manager.CurrentVersion())
}

func TestMigrateToVersionDown(t *testing.T) {
	catalog := migrate.NewCatalog(
		demoMigration(),
		migrate.NewScript(2, "audit log",
			"CREATE TABLE IF NOT EXISTS audit_log (id TEXT PRIMARY KEY);",
			"DROP TABLE IF EXISTS audit_log;"),
	)
	manager, dbPath := testutil.NewTestManager(t, catalog)
	ctx := context.Background()

	_, err := manager.MigrateToLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, manager.CurrentVersion())

	require.NoError(t, manager.MigrateToVersion(ctx, 0))
	assert.Equal(t, 0, manager.CurrentVersion())

	db := openRaw(t, dbPath)
	var count int
	err = db.Get(&count,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('teams', 'members', 'audit_log')")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApplyMigrationWithMetadata(t *testing.T) {
	catalog := migrate.NewCatalog(demoMigration())
	manager, dbPath := testutil.NewTestManager(t, catalog)
	ctx := context.Background()

	m := demoMigration()
	require.NoError(t, manager.ApplyMigrationWithMetadata(ctx, m, 1))

	assert.Equal(t, 1, manager.CurrentVersion())
	assert.True(t, manager.VerifyMigrationIntegrity(1))

	history := manager.History()
	require.Len(t, history, 1)
	entry := history[0]
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, "Script", entry.Name)
	assert.Equal(t, manager.Checksum(m), entry.Checksum)
	assert.True(t, strings.HasPrefix(entry.AppliedBy, "MigrationManager-"))
	assert.GreaterOrEqual(t, entry.DurationMS, int64(0))

	// Tampering with the stored checksum must be detected.
	db := openRaw(t, dbPath)
	_, err := db.Exec("UPDATE schema_version SET checksum = 'deadbeef' WHERE version = 1")
	require.NoError(t, err)
	assert.False(t, manager.VerifyMigrationIntegrity(1))

	// A version never recorded also fails verification.
	assert.False(t, manager.VerifyMigrationIntegrity(9))
}

func TestAssessMigrationRisk(t *testing.T) {
	manager, _ := testutil.NewTestManager(t, migrate.NewCatalog())

	safe := migrate.NewScript(1, "safe", "SELECT 1", "SELECT 1")
	assessment := manager.AssessMigrationRisk(safe)
	assert.Equal(t, migrate.RiskLow, assessment.Level)
	assert.Empty(t, assessment.Warnings)
	assert.False(t, assessment.BackupRecommended)

	risky := migrate.NewScript(2, "risky", "SELECT 1", "SELECT 1",
		migrate.WithDataLoss("drops column X"))
	assessment = manager.AssessMigrationRisk(risky)
	assert.Equal(t, migrate.RiskHigh, assessment.Level)
	assert.True(t, assessment.BackupRecommended)
	require.Len(t, assessment.Warnings, 2)
	assert.Equal(t, "Migration involves potential data loss", assessment.Warnings[0])
	assert.Equal(t, "drops column X", assessment.Warnings[1])

	factorsOnly := migrate.NewScript(3, "locks", "SELECT 1", "SELECT 1",
		migrate.WithRiskFactors("long table rewrite"))
	assessment = manager.AssessMigrationRisk(factorsOnly)
	assert.Equal(t, migrate.RiskHigh, assessment.Level)
	assert.Equal(t, []string{"long table rewrite"}, assessment.Warnings)
}

func TestValidateMigrationDependencies(t *testing.T) {
	manager, _ := testutil.NewTestManager(t, migrate.NewCatalog(demoMigration()))
	ctx := context.Background()

	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))

	none := migrate.NewScript(2, "independent", "SELECT 1", "SELECT 1")
	assert.True(t, manager.ValidateMigrationDependencies(none))

	satisfied := migrate.NewScript(2, "needs one", "SELECT 1", "SELECT 1",
		migrate.WithDependencies(1))
	assert.True(t, manager.ValidateMigrationDependencies(satisfied))

	unsatisfied := migrate.NewScript(4, "needs many", "SELECT 1", "SELECT 1",
		migrate.WithDependencies(1, 2, 3))
	assert.False(t, manager.ValidateMigrationDependencies(unsatisfied))
}

func TestValidateMigrationPreconditions(t *testing.T) {
	manager, _ := testutil.NewTestManager(t, migrate.NewCatalog(demoMigration()))
	ctx := context.Background()

	require.NoError(t, manager.ApplyMigration(ctx, demoMigration(), 1))

	plain := migrate.NewScript(2, "no checks", "SELECT 1", "SELECT 1")
	assert.True(t, manager.ValidateMigrationPreconditions(ctx, plain))

	requiresTeams := migrate.NewScript(2, "needs teams", "SELECT 1", "SELECT 1",
		migrate.WithPrecondition(func(ctx context.Context, db *sqlx.DB) error {
			var count int
			return db.GetContext(ctx, &count, "SELECT COUNT(*) FROM teams")
		}))
	assert.True(t, manager.ValidateMigrationPreconditions(ctx, requiresTeams))

	requiresMissing := migrate.NewScript(2, "needs missing table", "SELECT 1", "SELECT 1",
		migrate.WithPrecondition(func(ctx context.Context, db *sqlx.DB) error {
			var count int
			return db.GetContext(ctx, &count, "SELECT COUNT(*) FROM no_such_table")
		}))
	assert.False(t, manager.ValidateMigrationPreconditions(ctx, requiresMissing))
}

func TestValidateDataIntegrityUnmigrated(t *testing.T) {
	// No migration has run, so there is no items table to count.
	manager, _ := testutil.NewTestManager(t, migrate.DefaultCatalog())

	result := manager.ValidateDataIntegrity(context.Background())
	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.RowCount)
	assert.Equal(t, []string{"Database error"}, result.ConstraintViolations)
}

func TestValidateDataIntegrity(t *testing.T) {
	manager, dbPath := testutil.NewTestManager(t, migrate.DefaultCatalog())
	ctx := context.Background()

	_, err := manager.MigrateToLatest(ctx)
	require.NoError(t, err)

	result := manager.ValidateDataIntegrity(ctx)
	assert.True(t, result.IsValid)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, result.ConstraintViolations)

	db := openRaw(t, dbPath)
	_, err = db.Exec(
		"INSERT INTO items (id, title, item_type) VALUES ('i1', 'write report', 'action')")
	require.NoError(t, err)

	result = manager.ValidateDataIntegrity(ctx)
	assert.True(t, result.IsValid)
	assert.Equal(t, 1, result.RowCount)
}
