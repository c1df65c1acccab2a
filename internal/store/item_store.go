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

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// CreateItem validates and inserts a new item, generating an ID when absent.
func (s *SQLiteStore) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	if strings.TrimSpace(item.Title) == "" {
		return model.Item{}, fmt.Errorf("item title must not be empty")
	}
	if !item.ItemType.Valid() {
		return model.Item{}, fmt.Errorf("invalid item type %q", item.ItemType)
	}
	if item.Status == "" {
		item.Status = model.StatusInbox
	}
	if !item.Status.Valid() {
		return model.Item{}, fmt.Errorf("invalid status %q", item.Status)
	}
	if item.EnergyLevel != nil &&
		(*item.EnergyLevel < model.EnergyMin || *item.EnergyLevel > model.EnergyMax) {
		return model.Item{}, fmt.Errorf("energy level must be between %d and %d",
			model.EnergyMin, model.EnergyMax)
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, title, description, status, item_type, project_id,
			due_date, energy_level, success_criteria,
			created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, string(item.Status), string(item.ItemType),
		item.ProjectID, item.DueDate, item.EnergyLevel, item.SuccessCriteria,
		item.CreatedAt, item.UpdatedAt, item.CompletedAt,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("creating item: %w", err)
	}
	return item, nil
}

// UpdateItem rewrites an existing item's mutable fields.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item model.Item) error {
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("item title must not be empty")
	}
	if !item.Status.Valid() {
		return fmt.Errorf("invalid status %q", item.Status)
	}
	item.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			title = ?, description = ?, status = ?, project_id = ?,
			due_date = ?, energy_level = ?, success_criteria = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ?`,
		item.Title, item.Description, string(item.Status), item.ProjectID,
		item.DueDate, item.EnergyLevel, item.SuccessCriteria,
		item.UpdatedAt, item.CompletedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", item.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteItem removes an item. Child actions get project_id set to NULL and
// relationship rows cascade.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetItemByID retrieves a single item.
func (s *SQLiteStore) GetItemByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &item, nil
}

// GetItems retrieves items matching the filter, newest first.
func (s *SQLiteStore) GetItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ItemType != nil {
		conditions = append(conditions, "item_type = ?")
		args = append(args, string(*filter.ItemType))
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM items"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []model.Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	return items, nil
}

// CompleteItem marks an item complete and stamps completed_at.
func (s *SQLiteStore) CompleteItem(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		string(model.StatusComplete), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("completing item %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}
