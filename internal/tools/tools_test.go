package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtd-backend/internal/migrate"
	"github.com/nhle/gtd-backend/internal/tools"
	"github.com/nhle/gtd-backend/tests/testutil"
)

func newHandler(t *testing.T) *tools.Handler {
	t.Helper()
	manager, _ := testutil.NewTestManager(t, migrate.DefaultCatalog())
	return tools.NewHandler(manager)
}

func TestStatus(t *testing.T) {
	h := newHandler(t)

	result := h.Status()
	require.True(t, result.Success)
	assert.Equal(t, 0, result.Data["current_version"])
	assert.Equal(t, 1, result.Data["latest_version"])
	assert.Equal(t, 1, result.Data["pending_count"])
	assert.Equal(t, true, result.Data["sequence_valid"])
}

func TestMigrateToLatest(t *testing.T) {
	h := newHandler(t)

	result := h.MigrateToLatest(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Data["version"])

	status := h.Status()
	assert.Equal(t, 1, status.Data["current_version"])
	assert.Equal(t, 0, status.Data["pending_count"])
}

func TestMigrateToUnknownVersion(t *testing.T) {
	h := newHandler(t)

	result := h.MigrateTo(context.Background(), 42)
	require.False(t, result.Success)
	assert.Equal(t, tools.CodeNotFound, result.ErrorCode)
	assert.NotEmpty(t, result.Suggestions)
}

func TestMigrateToNegativeVersion(t *testing.T) {
	h := newHandler(t)

	result := h.MigrateTo(context.Background(), -1)
	require.False(t, result.Success)
	assert.Equal(t, tools.CodeValidation, result.ErrorCode)
}

func TestAssessRisk(t *testing.T) {
	h := newHandler(t)

	result := h.AssessRisk(1)
	require.True(t, result.Success)
	assessment, ok := result.Data["assessment"].(migrate.RiskAssessment)
	require.True(t, ok)
	assert.Equal(t, migrate.RiskLow, assessment.Level)

	result = h.AssessRisk(9)
	require.False(t, result.Success)
	assert.Equal(t, tools.CodeNotFound, result.ErrorCode)
}

func TestVerifyIntegrityUnapplied(t *testing.T) {
	h := newHandler(t)

	// Nothing recorded yet, so verification cannot pass.
	result := h.VerifyIntegrity(1)
	require.True(t, result.Success)
	assert.Equal(t, false, result.Data["valid"])
}

func TestBackupAndExport(t *testing.T) {
	h := newHandler(t)

	result := h.MigrateToLatest(context.Background())
	require.True(t, result.Success)

	backup := h.CreateBackup()
	require.True(t, backup.Success)
	assert.NotEmpty(t, backup.Data["backup_path"])

	export := h.CreateExport()
	require.True(t, export.Success)
	assert.NotEmpty(t, export.Data["export_path"])

	integrity := h.ValidateIntegrity(context.Background())
	require.True(t, integrity.Success)
	check, ok := integrity.Data["integrity"].(migrate.DataIntegrityResult)
	require.True(t, ok)
	assert.True(t, check.IsValid)
}

func TestHistoryAfterMigration(t *testing.T) {
	h := newHandler(t)

	require.True(t, h.MigrateToLatest(context.Background()).Success)

	result := h.History()
	require.True(t, result.Success)
	history, ok := result.Data["history"].([]migrate.LedgerEntry)
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
}
