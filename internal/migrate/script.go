package migrate

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Script is a Migration defined by a pair of SQL scripts, the form every
// catalog migration in this system takes. Optional hooks are configured
// through ScriptOptions; unset hooks keep the Base defaults.
type Script struct {
	Base

	version     int
	description string
	upSQL       string
	downSQL     string

	risk         RiskLevel
	dataLoss     bool
	riskFactors  []string
	dependencies []int
	estimated    time.Duration
	precondition func(ctx context.Context, db *sqlx.DB) error
}

// ScriptOption configures optional migration metadata on a Script.
type ScriptOption func(*Script)

// WithRiskLevel sets the author-declared risk level.
func WithRiskLevel(level RiskLevel) ScriptOption {
	return func(s *Script) { s.risk = level }
}

// WithDataLoss marks the migration as destructive and records the reasons.
func WithDataLoss(factors ...string) ScriptOption {
	return func(s *Script) {
		s.dataLoss = true
		s.riskFactors = append(s.riskFactors, factors...)
	}
}

// WithRiskFactors records non-destructive risks a reviewer should know about.
func WithRiskFactors(factors ...string) ScriptOption {
	return func(s *Script) { s.riskFactors = append(s.riskFactors, factors...) }
}

// WithDependencies declares versions that must already be applied.
func WithDependencies(versions ...int) ScriptOption {
	return func(s *Script) { s.dependencies = append(s.dependencies, versions...) }
}

// WithEstimatedDuration sets the expected upgrade duration.
func WithEstimatedDuration(d time.Duration) ScriptOption {
	return func(s *Script) { s.estimated = d }
}

// WithPrecondition installs an environment check run before the migration
// is considered applicable.
func WithPrecondition(check func(ctx context.Context, db *sqlx.DB) error) ScriptOption {
	return func(s *Script) { s.precondition = check }
}

// NewScript builds a script-backed migration.
func NewScript(version int, description, upSQL, downSQL string, opts ...ScriptOption) *Script {
	s := &Script{
		version:     version,
		description: description,
		upSQL:       upSQL,
		downSQL:     downSQL,
		risk:        RiskLow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Script) Version() int { return s.version }

func (s *Script) Description() string { return s.description }

func (s *Script) Upgrade(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, s.upSQL)
	return err
}

func (s *Script) Downgrade(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, s.downSQL)
	return err
}

func (s *Script) UpgradeScript() string { return s.upSQL }

func (s *Script) DowngradeScript() string { return s.downSQL }

func (s *Script) RiskLevel() RiskLevel { return s.risk }

func (s *Script) InvolvesDataLoss() bool { return s.dataLoss }

func (s *Script) RiskFactors() []string { return s.riskFactors }

func (s *Script) Dependencies() []int { return s.dependencies }

func (s *Script) EstimatedDuration() time.Duration { return s.estimated }

func (s *Script) ValidatePreconditions(ctx context.Context, db *sqlx.DB) error {
	if s.precondition == nil {
		return nil
	}
	return s.precondition(ctx, db)
}
