package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/gtd-backend/internal/model"
)

// CreateOrganization validates and inserts a new organization.
func (s *SQLiteStore) CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if strings.TrimSpace(org.Name) == "" {
		return model.Organization{}, fmt.Errorf("organization name must not be empty")
	}
	if !org.Type.Valid() {
		return model.Organization{}, fmt.Errorf("invalid organization type %q", org.Type)
	}
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, type, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Name, string(org.Type), org.Description, org.CreatedAt,
	)
	if err != nil {
		return model.Organization{}, fmt.Errorf("creating organization %q: %w", org.Name, err)
	}
	return org, nil
}

// GetOrganizations retrieves all organizations ordered by name.
func (s *SQLiteStore) GetOrganizations(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	err := s.db.SelectContext(ctx, &orgs, "SELECT * FROM organizations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	return orgs, nil
}

// CreateStakeholder validates and inserts a new stakeholder.
func (s *SQLiteStore) CreateStakeholder(ctx context.Context, st model.Stakeholder) (model.Stakeholder, error) {
	if strings.TrimSpace(st.Name) == "" {
		return model.Stakeholder{}, fmt.Errorf("stakeholder name must not be empty")
	}
	if !strings.Contains(st.Email, "@") {
		return model.Stakeholder{}, fmt.Errorf("invalid stakeholder email %q", st.Email)
	}
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	st.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stakeholders (id, name, email, organization_id, team_id, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Name, st.Email, st.OrganizationID, st.TeamID, st.Role, st.CreatedAt,
	)
	if err != nil {
		return model.Stakeholder{}, fmt.Errorf("creating stakeholder %q: %w", st.Name, err)
	}
	return st, nil
}

// DeleteStakeholder removes a stakeholder; RACI assignments cascade.
func (s *SQLiteStore) DeleteStakeholder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM stakeholders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting stakeholder %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("stakeholder %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetStakeholders retrieves all stakeholders ordered by name.
func (s *SQLiteStore) GetStakeholders(ctx context.Context) ([]model.Stakeholder, error) {
	var stakeholders []model.Stakeholder
	err := s.db.SelectContext(ctx, &stakeholders, "SELECT * FROM stakeholders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying stakeholders: %w", err)
	}
	return stakeholders, nil
}

// FindStakeholderByEmail retrieves a stakeholder by email, or nil when
// absent.
func (s *SQLiteStore) FindStakeholderByEmail(ctx context.Context, email string) (*model.Stakeholder, error) {
	var st model.Stakeholder
	err := s.db.GetContext(ctx, &st,
		"SELECT * FROM stakeholders WHERE email = ? LIMIT 1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding stakeholder %q: %w", email, err)
	}
	return &st, nil
}

// AssignStakeholder records a RACI relationship between an item and a
// stakeholder. Repeating an assignment is a no-op.
func (s *SQLiteStore) AssignStakeholder(ctx context.Context, a model.Assignment) error {
	if !a.Role.Valid() {
		return fmt.Errorf("invalid RACI role %q", a.Role)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO item_stakeholders (item_id, stakeholder_id, raci_role, created_at)
		VALUES (?, ?, ?, ?)`,
		a.ItemID, a.StakeholderID, string(a.Role), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("assigning stakeholder %s to item %s: %w", a.StakeholderID, a.ItemID, err)
	}
	return nil
}

// GetStakeholdersForItem retrieves the stakeholders assigned to an item in
// any RACI role.
func (s *SQLiteStore) GetStakeholdersForItem(ctx context.Context, itemID string) ([]model.Stakeholder, error) {
	var stakeholders []model.Stakeholder
	err := s.db.SelectContext(ctx, &stakeholders, `
		SELECT DISTINCT s.* FROM stakeholders s
		JOIN item_stakeholders ist ON ist.stakeholder_id = s.id
		WHERE ist.item_id = ?
		ORDER BY s.name`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stakeholders for item %s: %w", itemID, err)
	}
	return stakeholders, nil
}
