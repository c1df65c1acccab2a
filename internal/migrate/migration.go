package migrate

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RiskLevel is the advisory risk classification declared on a migration.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Migration is a versioned, reversible schema change unit.
//
// Every hook is part of the interface so minimal migrations cannot be
// constructed without safe defaults; embed Base to pick them up. The
// Upgrade/Downgrade scripts double as the migration's logic source for
// checksumming, so a migration whose behavior changes also changes its
// fingerprint.
type Migration interface {
	// Version is a positive integer defining the migration's place in the
	// total order. Unique within a catalog.
	Version() int

	// Description is a human-readable summary of the change.
	Description() string

	// Upgrade applies the forward schema change inside the given transaction.
	// Errors propagate to the manager, which handles recovery.
	Upgrade(ctx context.Context, tx *sqlx.Tx) error

	// Downgrade reverses the upgrade, dropping created objects in
	// dependency-safe order.
	Downgrade(ctx context.Context, tx *sqlx.Tx) error

	// UpgradeScript and DowngradeScript return the SQL source of the
	// respective direction. Their concatenation is the checksum input.
	UpgradeScript() string
	DowngradeScript() string

	// RiskLevel is the author-declared risk, independent of the computed
	// risk assessment.
	RiskLevel() RiskLevel

	// InvolvesDataLoss reports whether either direction is destructive.
	InvolvesDataLoss() bool

	// RiskFactors lists free-text reasons a reviewer should know about.
	RiskFactors() []string

	// Dependencies lists versions that must already be applied.
	Dependencies() []int

	// EstimatedDuration returns the expected upgrade duration, or zero
	// when unknown.
	EstimatedDuration() time.Duration

	// ValidatePreconditions checks environment-specific requirements
	// against the live database. A non-nil error means the migration is
	// not ready to apply.
	ValidatePreconditions(ctx context.Context, db *sqlx.DB) error
}

// Base supplies the default implementations for the optional migration
// hooks: low risk, no data loss, no risk factors, no dependencies, unknown
// duration, and preconditions that always pass.
type Base struct{}

func (Base) RiskLevel() RiskLevel { return RiskLow }

func (Base) InvolvesDataLoss() bool { return false }

func (Base) RiskFactors() []string { return nil }

func (Base) Dependencies() []int { return nil }

func (Base) EstimatedDuration() time.Duration { return 0 }

func (Base) ValidatePreconditions(context.Context, *sqlx.DB) error {
	return nil
}

// RiskAssessment is the computed, advisory judgment about a migration.
type RiskAssessment struct {
	Level             RiskLevel `json:"level"`
	Warnings          []string  `json:"warnings"`
	BackupRecommended bool      `json:"backup_recommended"`
}

// DataIntegrityResult is the outcome of a best-effort post-migration
// smoke check against the items table.
type DataIntegrityResult struct {
	IsValid              bool     `json:"is_valid"`
	RowCount             int      `json:"row_count"`
	ConstraintViolations []string `json:"constraint_violations"`
}
