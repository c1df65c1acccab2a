package migrate

import (
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// LedgerEntry is one applied-migration record from the schema_version table.
// The metadata fields are only populated when the enhanced ledger schema is
// in place.
type LedgerEntry struct {
	Version    int       `db:"version" json:"version"`
	Name       string    `db:"name" json:"name,omitempty"`
	Checksum   string    `db:"checksum" json:"checksum,omitempty"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms,omitempty"`
	AppliedBy  string    `db:"applied_by" json:"applied_by,omitempty"`
	AppliedAt  time.Time `db:"applied_at" json:"applied_at"`
}

// enhancedLedgerSchema replaces the minimal version marker with per-version
// metadata rows. Recreating the table discards prior history, so it must
// only run when the checksum column is verified absent.
const enhancedLedgerSchema = `
CREATE TABLE schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	applied_by  TEXT NOT NULL,
	applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// ledger reads and writes the schema_version table inside the managed
// database. Connections are scoped per call; reads degrade to "version 0" or
// empty results rather than raising.
type ledger struct {
	dbPath string
}

func (l *ledger) open() (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", l.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// CurrentVersion returns the version of the ledger row with the latest
// applied_at, or 0 when the database file or ledger table is missing or
// unreadable.
func (l *ledger) CurrentVersion() int {
	if _, err := os.Stat(l.dbPath); os.IsNotExist(err) {
		return 0
	}

	db, err := l.open()
	if err != nil {
		return 0
	}
	defer db.Close()

	var version int
	err = db.Get(&version,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1")
	if err != nil {
		return 0
	}
	return version
}

// setVersionTx rewrites the ledger's current-version marker inside tx,
// discarding prior rows. This is the simple ledger form.
func (l *ledger) setVersionTx(tx *sqlx.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("clearing schema version: %w", err)
	}
	_, err := tx.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording schema version %d: %w", version, err)
	}
	return nil
}

// recordApplicationTx writes a full metadata row for version inside tx,
// replacing any existing row for the same version.
func (l *ledger) recordApplicationTx(tx *sqlx.Tx, e LedgerEntry) error {
	if _, err := tx.Exec("DELETE FROM schema_version WHERE version = ?", e.Version); err != nil {
		return fmt.Errorf("clearing ledger row for version %d: %w", e.Version, err)
	}
	_, err := tx.Exec(`
		INSERT INTO schema_version (version, name, checksum, duration_ms, applied_by, applied_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Version, e.Name, e.Checksum, e.DurationMS, e.AppliedBy, e.AppliedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording migration %d: %w", e.Version, err)
	}
	return nil
}

// History returns applied-migration entries newest first. Metadata columns
// are included when the enhanced schema is present. A missing or unreadable
// database yields an empty history.
func (l *ledger) History() []LedgerEntry {
	if _, err := os.Stat(l.dbPath); os.IsNotExist(err) {
		return nil
	}

	db, err := l.open()
	if err != nil {
		return nil
	}
	defer db.Close()

	enhanced, err := l.hasEnhancedSchema(db)
	if err != nil {
		return nil
	}

	query := "SELECT version, applied_at FROM schema_version ORDER BY applied_at DESC"
	if enhanced {
		query = `SELECT version, name, checksum, duration_ms, applied_by, applied_at
			FROM schema_version ORDER BY applied_at DESC`
	}

	var entries []LedgerEntry
	if err := db.Select(&entries, query); err != nil {
		return nil
	}
	return entries
}

// AppliedVersions returns the set of versions ever recorded in the ledger.
// Read failures yield an empty set, which makes dependency checks fail
// conservatively.
func (l *ledger) AppliedVersions() map[int]struct{} {
	applied := make(map[int]struct{})

	db, err := l.open()
	if err != nil {
		return applied
	}
	defer db.Close()

	var versions []int
	if err := db.Select(&versions, "SELECT version FROM schema_version"); err != nil {
		return applied
	}
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied
}

// StoredChecksum returns the checksum recorded for version, or ok=false when
// no such row exists or the ledger cannot be read.
func (l *ledger) StoredChecksum(version int) (checksum string, ok bool) {
	db, err := l.open()
	if err != nil {
		return "", false
	}
	defer db.Close()

	err = db.Get(&checksum,
		"SELECT checksum FROM schema_version WHERE version = ?", version)
	if err != nil {
		return "", false
	}
	return checksum, true
}

// hasEnhancedSchema reports whether the schema_version table carries the
// metadata columns.
func (l *ledger) hasEnhancedSchema(db *sqlx.DB) (bool, error) {
	rows, err := db.Queryx("PRAGMA table_info(schema_version)")
	if err != nil {
		return false, fmt.Errorf("inspecting schema_version columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull      int
			defaultValue any
			pk           int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == "checksum" {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ensureEnhanced bootstraps the enhanced ledger schema. The table is only
// dropped and recreated when the metadata columns are verified absent, since
// recreation destroys history.
func (l *ledger) ensureEnhanced(initDB func(string) error) error {
	if _, err := os.Stat(l.dbPath); os.IsNotExist(err) {
		if err := initDB(l.dbPath); err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
	}

	db, err := l.open()
	if err != nil {
		return err
	}
	defer db.Close()

	enhanced, err := l.hasEnhancedSchema(db)
	if err != nil {
		return err
	}
	if enhanced {
		return nil
	}

	if _, err := db.Exec("DROP TABLE IF EXISTS schema_version"); err != nil {
		return fmt.Errorf("dropping minimal schema_version table: %w", err)
	}
	if _, err := db.Exec(enhancedLedgerSchema); err != nil {
		return fmt.Errorf("creating enhanced schema_version table: %w", err)
	}
	return nil
}
