// Package tools is the request/response boundary over the migration
// manager: operations come back as structured results instead of raw
// errors, so callers can branch on machine-readable codes.
package tools

import (
	"context"
	"errors"

	"github.com/nhle/gtd-backend/internal/migrate"
)

// Machine-readable error codes surfaced alongside failures.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeMigration  = "MIGRATION_ERROR"
	CodeDatabase   = "DATABASE_ERROR"
)

// Result is the structured response shape for every tool invocation.
type Result struct {
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func ok(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

func fail(err error, code string, suggestions ...string) Result {
	return Result{
		Success:     false,
		Error:       err.Error(),
		ErrorCode:   code,
		Suggestions: suggestions,
	}
}

// Handler dispatches tool requests to a migration manager.
type Handler struct {
	manager *migrate.Manager
}

// NewHandler returns a handler over the given manager.
func NewHandler(manager *migrate.Manager) *Handler {
	return &Handler{manager: manager}
}

// Status reports the current schema version against the catalog.
func (h *Handler) Status() Result {
	current := h.manager.CurrentVersion()
	return ok(map[string]any{
		"current_version": current,
		"latest_version":  h.manager.Catalog().Latest(),
		"pending_count":   len(h.manager.PendingMigrations()),
		"sequence_valid":  h.manager.Catalog().ValidateSequence(),
	})
}

// MigrateToLatest brings the database to the highest catalog version.
func (h *Handler) MigrateToLatest(ctx context.Context) Result {
	version, err := h.manager.MigrateToLatest(ctx)
	if err != nil {
		return migrationFailure(err)
	}
	return ok(map[string]any{"version": version})
}

// MigrateTo brings the database to a specific version, up or down.
func (h *Handler) MigrateTo(ctx context.Context, version int) Result {
	if version < 0 {
		return fail(errors.New("target version must not be negative"), CodeValidation,
			"pass a version between 0 and the latest catalog version")
	}
	if err := h.manager.MigrateToVersion(ctx, version); err != nil {
		return migrationFailure(err)
	}
	return ok(map[string]any{"version": h.manager.CurrentVersion()})
}

// History returns the applied-migration ledger, newest first.
func (h *Handler) History() Result {
	return ok(map[string]any{"history": h.manager.History()})
}

// AssessRisk returns the advisory risk assessment for a catalog version.
func (h *Handler) AssessRisk(version int) Result {
	migration, err := h.manager.LoadMigration(version)
	if err != nil {
		return fail(err, CodeNotFound,
			"run the status tool to list known versions")
	}
	return ok(map[string]any{
		"assessment": h.manager.AssessMigrationRisk(migration),
	})
}

// VerifyIntegrity checks the stored checksum for a version against the
// catalog migration.
func (h *Handler) VerifyIntegrity(version int) Result {
	return ok(map[string]any{
		"version": version,
		"valid":   h.manager.VerifyMigrationIntegrity(version),
	})
}

// CreateBackup snapshots the database file at its current version.
func (h *Handler) CreateBackup() Result {
	current := h.manager.CurrentVersion()
	path, err := h.manager.Backups().CreateBackup(current, current)
	if err != nil {
		return fail(err, CodeDatabase)
	}
	return ok(map[string]any{"backup_path": path})
}

// CreateExport writes the JSON safety-net export.
func (h *Handler) CreateExport() Result {
	path, err := h.manager.Backups().CreateJSONExport()
	if err != nil {
		return fail(err, CodeDatabase)
	}
	return ok(map[string]any{"export_path": path})
}

// ValidateIntegrity runs the best-effort data integrity smoke check.
func (h *Handler) ValidateIntegrity(ctx context.Context) Result {
	return ok(map[string]any{
		"integrity": h.manager.ValidateDataIntegrity(ctx),
	})
}

// migrationFailure maps a migration error to a coded result.
func migrationFailure(err error) Result {
	if errors.Is(err, migrate.ErrMigrationNotFound) || errors.Is(err, migrate.ErrVersionNotFound) {
		return fail(err, CodeNotFound,
			"check the catalog for registered versions",
			"run the status tool to see the current version")
	}
	return fail(err, CodeMigration,
		"the database was restored from the pre-migration backup if one existed")
}
