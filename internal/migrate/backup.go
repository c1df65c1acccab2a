package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// exportTables is the fixed whitelist of tables included in JSON exports.
// Table names are only ever interpolated into SQL after passing this set,
// so a hostile name in sqlite_master can never reach a query.
var exportTables = map[string]bool{
	"items":             true,
	"contexts":          true,
	"action_contexts":   true,
	"organizations":     true,
	"stakeholders":      true,
	"item_stakeholders": true,
	"schema_version":    true,
}

const backupTimeFormat = "20060102_150405"

// BackupService creates point-in-time copies of the database file and JSON
// data exports. Backups live in a backups/ directory and exports in an
// exports/ directory, both siblings of the database file. Artifacts are
// retained indefinitely; nothing prunes them.
type BackupService struct {
	dbPath string
	logger *logrus.Logger
}

// NewBackupService returns a backup service for the database at dbPath.
// A nil logger falls back to the logrus default.
func NewBackupService(dbPath string, logger *logrus.Logger) *BackupService {
	if logger == nil {
		logger = logrus.New()
	}
	return &BackupService{dbPath: dbPath, logger: logger}
}

// BackupDir returns the directory backup artifacts are written to.
func (s *BackupService) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// ExportDir returns the directory JSON exports are written to.
func (s *BackupService) ExportDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "exports")
}

// CreateBackup copies the live database file into the backups directory,
// naming the artifact with both versions and a second-granularity timestamp.
// A missing database file is not an error: a zero-byte placeholder is
// written instead, so restore logic can tell "nothing to back up" apart
// from a missing artifact.
func (s *BackupService) CreateBackup(fromVersion, toVersion int) (string, error) {
	dir := s.BackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory %s: %w", dir, err)
	}

	ext := filepath.Ext(s.dbPath)
	if ext == "" {
		ext = ".db"
	}
	name := fmt.Sprintf("backup_v%d_to_v%d_%s%s",
		fromVersion, toVersion, time.Now().Format(backupTimeFormat), ext)
	backupPath := filepath.Join(dir, name)

	if _, err := os.Stat(s.dbPath); os.IsNotExist(err) {
		if err := os.WriteFile(backupPath, nil, 0o644); err != nil {
			return "", fmt.Errorf("creating placeholder backup: %w", err)
		}
		s.logger.WithField("backup", backupPath).Debug("database missing, wrote empty placeholder backup")
		return backupPath, nil
	}

	if err := copyFile(s.dbPath, backupPath); err != nil {
		return "", fmt.Errorf("copying database to backup: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"backup": backupPath,
		"from":   fromVersion,
		"to":     toVersion,
	}).Info("created database backup")
	return backupPath, nil
}

// RestoreFromBackup overwrites the live database file with the backup's
// bytes. Callers must not restore zero-byte placeholders; doing so would
// clobber a database that did not exist when the backup was taken.
func (s *BackupService) RestoreFromBackup(backupPath string) error {
	if err := copyFile(backupPath, s.dbPath); err != nil {
		return fmt.Errorf("restoring backup %s: %w", backupPath, err)
	}
	s.logger.WithField("backup", backupPath).Warn("restored database from backup")
	return nil
}

// CreateJSONExport dumps every whitelisted table's rows to a timestamped
// JSON file in the exports directory and returns its path. The export is a
// manual-recovery safety net; nothing consumes it automatically.
func (s *BackupService) CreateJSONExport() (string, error) {
	dir := s.ExportDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory %s: %w", dir, err)
	}

	db, err := sqlx.Open("sqlite", s.dbPath)
	if err != nil {
		return "", fmt.Errorf("opening database for export: %w", err)
	}
	defer db.Close()

	var names []string
	err = db.Select(&names,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	sort.Strings(names)

	export := make(map[string][]map[string]any)
	for _, table := range names {
		if !exportTables[table] {
			continue
		}
		rows, err := s.dumpTable(db, table)
		if err != nil {
			return "", err
		}
		export[table] = rows
	}

	exportPath := filepath.Join(dir,
		fmt.Sprintf("db_export_%s.json", time.Now().Format(backupTimeFormat)))

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export %s: %w", exportPath, err)
	}

	s.logger.WithField("export", exportPath).Info("created JSON export")
	return exportPath, nil
}

// dumpTable reads every row of a whitelisted table into column-keyed maps.
func (s *BackupService) dumpTable(db *sqlx.DB, table string) ([]map[string]any, error) {
	rows, err := db.Queryx("SELECT * FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("exporting table %s: %w", table, err)
	}
	defer rows.Close()

	dump := []map[string]any{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		for col, val := range row {
			row[col] = coerceJSONValue(val)
		}
		dump = append(dump, row)
	}
	return dump, rows.Err()
}

// coerceJSONValue converts driver values with no JSON-native form to strings.
func coerceJSONValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// copyFile copies src to dst byte for byte, truncating any existing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
