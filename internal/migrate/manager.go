package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nhle/gtd-backend/internal/store"
)

// ErrMigrationNotFound is returned when a multi-step migration path needs a
// version the catalog does not carry.
var ErrMigrationNotFound = errors.New("migration not found")

// dataLossWarning is prepended to risk-assessment warnings for destructive
// migrations.
const dataLossWarning = "Migration involves potential data loss"

// Manager orchestrates schema migrations against a single SQLite database
// file: version discovery, sequencing, application, rollback, risk
// assessment, and integrity verification.
//
// The manager assumes a single migrating process; callers must serialize
// invocations against the same database file.
type Manager struct {
	dbPath   string
	catalog  *Catalog
	backups  *BackupService
	ledger   *ledger
	logger   *logrus.Logger
	operator string
	initDB   func(string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger shared by the manager and its backup service.
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithOperator sets the operator identity recorded in ledger metadata.
func WithOperator(operator string) Option {
	return func(m *Manager) { m.operator = operator }
}

// WithInitializer replaces the database-initialization collaborator invoked
// when the database file is missing.
func WithInitializer(initDB func(dbPath string) error) Option {
	return func(m *Manager) { m.initDB = initDB }
}

// NewManager builds a migration manager for the database at dbPath using
// the given catalog.
func NewManager(dbPath string, catalog *Catalog, opts ...Option) *Manager {
	m := &Manager{
		dbPath:   dbPath,
		catalog:  catalog,
		ledger:   &ledger{dbPath: dbPath},
		operator: defaultOperator(),
		initDB:   store.InitDatabase,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logrus.New()
	}
	m.backups = NewBackupService(dbPath, m.logger)
	return m
}

// defaultOperator resolves the operator identity from the environment.
func defaultOperator() string {
	user := os.Getenv("USER")
	if user == "" {
		user = "system"
	}
	return "MigrationManager-" + user
}

// Backups exposes the backup and snapshot service for this database.
func (m *Manager) Backups() *BackupService { return m.backups }

// Catalog exposes the migration catalog.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// CurrentVersion returns the schema version the database is at, or 0 for a
// missing or uninitialized database.
func (m *Manager) CurrentVersion() int {
	return m.ledger.CurrentVersion()
}

// PendingMigrations returns catalog migrations with versions above the
// current schema version.
func (m *Manager) PendingMigrations() map[int]Migration {
	return m.catalog.Pending(m.CurrentVersion())
}

// LoadMigration returns the catalog migration for version.
func (m *Manager) LoadMigration(version int) (Migration, error) {
	return m.catalog.Load(version)
}

// History returns the applied-migration ledger, newest first.
func (m *Manager) History() []LedgerEntry {
	return m.ledger.History()
}

// openDB opens a per-operation connection with foreign-key enforcement.
// The pool is capped at one connection so the pragma applies to the
// migration transaction.
func (m *Manager) openDB() (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}

// ApplyMigration applies a single migration, protected by a pre-change
// backup. On failure the backup is restored when non-empty and the original
// error is returned unwrapped so callers see the true cause.
func (m *Manager) ApplyMigration(ctx context.Context, migration Migration, targetVersion int) error {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		if err := m.initDB(m.dbPath); err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
	}

	backupPath, err := m.backups.CreateBackup(m.CurrentVersion(), targetVersion)
	if err != nil {
		return err
	}

	if err := m.runUpgrade(ctx, migration, targetVersion); err != nil {
		m.restoreIfNonEmpty(backupPath)
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"version":     targetVersion,
		"description": migration.Description(),
	}).Info("applied migration")
	return nil
}

// runUpgrade executes the migration's upgrade and the simple ledger update
// in one transaction.
func (m *Manager) runUpgrade(ctx context.Context, migration Migration, targetVersion int) error {
	db, err := m.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := migration.Upgrade(ctx, tx); err != nil {
		return err
	}
	if err := m.ledger.setVersionTx(tx, targetVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// restoreIfNonEmpty restores the backup over the live database unless the
// artifact is a zero-byte placeholder, which means there was nothing to
// restore and overwriting would destroy a freshly created file. A restore
// failure is logged but never masks the migration error already in flight.
func (m *Manager) restoreIfNonEmpty(backupPath string) {
	info, err := os.Stat(backupPath)
	if err != nil || info.Size() == 0 {
		return
	}
	if err := m.backups.RestoreFromBackup(backupPath); err != nil {
		m.logger.WithError(err).Error("restoring backup after failed migration")
	}
}

// RollbackMigration reverses a migration and rewrites the ledger marker to
// targetVersion. No backup is taken first; callers that want a restore
// point create one before rolling back.
func (m *Manager) RollbackMigration(ctx context.Context, migration Migration, targetVersion int) error {
	db, err := m.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := migration.Downgrade(ctx, tx); err != nil {
		return err
	}
	if err := m.ledger.setVersionTx(tx, targetVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.WithField("version", targetVersion).Info("rolled back migration")
	return nil
}

// MigrateToVersion brings the database to target, applying or rolling back
// strictly in version order and recording the ledger at every intermediate
// version. The path aborts before touching the schema when any required
// version is missing from the catalog.
func (m *Manager) MigrateToVersion(ctx context.Context, target int) error {
	current := m.CurrentVersion()
	if target == current {
		return nil
	}

	if target > current {
		for version := current + 1; version <= target; version++ {
			migration, err := m.catalog.Load(version)
			if err != nil {
				return fmt.Errorf("cannot migrate to version %d: %w", version, ErrMigrationNotFound)
			}
			if err := m.ApplyMigration(ctx, migration, version); err != nil {
				return err
			}
		}
		return nil
	}

	for version := current; version > target; version-- {
		migration, err := m.catalog.Load(version)
		if err != nil {
			return fmt.Errorf("cannot rollback from version %d: %w", version, ErrMigrationNotFound)
		}
		if err := m.RollbackMigration(ctx, migration, version-1); err != nil {
			return err
		}
	}
	return nil
}

// MigrateToLatest migrates to the highest catalog version and returns the
// resulting version. An empty catalog leaves the database untouched.
func (m *Manager) MigrateToLatest(ctx context.Context) (int, error) {
	latest := m.catalog.Latest()
	if latest == 0 {
		return m.CurrentVersion(), nil
	}
	if err := m.MigrateToVersion(ctx, latest); err != nil {
		return m.CurrentVersion(), err
	}
	return latest, nil
}

// AssessMigrationRisk derives an advisory risk assessment from the
// migration's data-loss flag and declared risk factors. It never fails.
func (m *Manager) AssessMigrationRisk(migration Migration) RiskAssessment {
	assessment := RiskAssessment{
		Level:    RiskLow,
		Warnings: []string{},
	}

	if migration.InvolvesDataLoss() {
		assessment.Level = RiskHigh
		assessment.BackupRecommended = true
		assessment.Warnings = append(assessment.Warnings, dataLossWarning)
	}

	if factors := migration.RiskFactors(); len(factors) > 0 {
		assessment.Level = RiskHigh
		assessment.BackupRecommended = true
		assessment.Warnings = append(assessment.Warnings, factors...)
	}

	return assessment
}

// ValidateDataIntegrity runs a best-effort smoke check: a row count of the
// items table. Database-level errors degrade to an invalid result instead
// of propagating.
func (m *Manager) ValidateDataIntegrity(ctx context.Context) DataIntegrityResult {
	db, err := m.openDB()
	if err != nil {
		return invalidIntegrityResult()
	}
	defer db.Close()

	var rowCount int
	if err := db.GetContext(ctx, &rowCount, "SELECT COUNT(*) FROM items"); err != nil {
		return invalidIntegrityResult()
	}

	return DataIntegrityResult{
		IsValid:              true,
		RowCount:             rowCount,
		ConstraintViolations: []string{},
	}
}

func invalidIntegrityResult() DataIntegrityResult {
	return DataIntegrityResult{
		IsValid:              false,
		RowCount:             0,
		ConstraintViolations: []string{"Database error"},
	}
}

// ValidateMigrationDependencies reports whether every version the migration
// depends on appears in the ledger. Ledger read failures count as "nothing
// applied", failing the check conservatively.
func (m *Manager) ValidateMigrationDependencies(migration Migration) bool {
	dependencies := migration.Dependencies()
	if len(dependencies) == 0 {
		return true
	}

	applied := m.ledger.AppliedVersions()
	for _, version := range dependencies {
		if _, ok := applied[version]; !ok {
			return false
		}
	}
	return true
}

// ValidateMigrationPreconditions reports whether the migration's
// environment checks pass. Any failure, including one opening the
// database, counts as an unmet precondition rather than an error.
func (m *Manager) ValidateMigrationPreconditions(ctx context.Context, migration Migration) bool {
	db, err := m.openDB()
	if err != nil {
		return false
	}
	defer db.Close()

	return migration.ValidatePreconditions(ctx, db) == nil
}

// Checksum returns the deterministic SHA-256 fingerprint of the migration's
// upgrade and downgrade logic source, hex encoded.
func (m *Manager) Checksum(migration Migration) string {
	sum := sha256.Sum256([]byte(migration.UpgradeScript() + migration.DowngradeScript()))
	return hex.EncodeToString(sum[:])
}

// VerifyMigrationIntegrity compares the ledger's stored checksum for
// version against a fresh checksum of the catalog migration. It is false
// when either side is missing or the digests differ.
func (m *Manager) VerifyMigrationIntegrity(version int) bool {
	stored, ok := m.ledger.StoredChecksum(version)
	if !ok {
		return false
	}

	migration, err := m.catalog.Load(version)
	if err != nil {
		return false
	}

	return stored == m.Checksum(migration)
}

// ApplyMigrationWithMetadata applies a migration like ApplyMigration but
// records a full metadata row (name, checksum, duration, operator) in the
// enhanced ledger, bootstrapping the enhanced schema when the minimal form
// is detected.
func (m *Manager) ApplyMigrationWithMetadata(ctx context.Context, migration Migration, targetVersion int) error {
	if err := m.ledger.ensureEnhanced(m.initDB); err != nil {
		return err
	}

	backupPath, err := m.backups.CreateBackup(m.CurrentVersion(), targetVersion)
	if err != nil {
		return err
	}

	entry := LedgerEntry{
		Version:   targetVersion,
		Name:      migrationName(migration),
		Checksum:  m.Checksum(migration),
		AppliedBy: m.operator,
	}

	if err := m.runUpgradeWithMetadata(ctx, migration, entry); err != nil {
		m.restoreIfNonEmpty(backupPath)
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"version":  targetVersion,
		"name":     entry.Name,
		"checksum": entry.Checksum,
	}).Info("applied migration with metadata")
	return nil
}

// runUpgradeWithMetadata executes the upgrade, measures its wall-clock
// duration, and writes the metadata row in the same transaction.
func (m *Manager) runUpgradeWithMetadata(ctx context.Context, migration Migration, entry LedgerEntry) error {
	db, err := m.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	if err := migration.Upgrade(ctx, tx); err != nil {
		return err
	}
	entry.DurationMS = time.Since(start).Milliseconds()
	entry.AppliedAt = time.Now().UTC()

	if err := m.ledger.recordApplicationTx(tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// migrationName returns the migration's type identifier.
func migrationName(m Migration) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
