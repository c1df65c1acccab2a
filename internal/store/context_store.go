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

// CreateContext validates and inserts a new context. Names are unique.
func (s *SQLiteStore) CreateContext(ctx context.Context, c model.Context) (model.Context, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Context{}, fmt.Errorf("context name must not be empty")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contexts (id, name, description, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.CreatedAt,
	)
	if err != nil {
		return model.Context{}, fmt.Errorf("creating context %q: %w", c.Name, err)
	}
	return c, nil
}

// DeleteContext removes a context; action assignments cascade.
func (s *SQLiteStore) DeleteContext(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM contexts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting context %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("context %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetContexts retrieves all contexts ordered by name.
func (s *SQLiteStore) GetContexts(ctx context.Context) ([]model.Context, error) {
	var contexts []model.Context
	err := s.db.SelectContext(ctx, &contexts, "SELECT * FROM contexts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying contexts: %w", err)
	}
	return contexts, nil
}

// FindContextByName retrieves a context by its unique name, or nil when
// absent.
func (s *SQLiteStore) FindContextByName(ctx context.Context, name string) (*model.Context, error) {
	var c model.Context
	err := s.db.GetContext(ctx, &c, "SELECT * FROM contexts WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding context %q: %w", name, err)
	}
	return &c, nil
}

// AssignContext links an action to a context. Re-assigning is a no-op.
func (s *SQLiteStore) AssignContext(ctx context.Context, itemID, contextID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO action_contexts (action_id, context_id)
		VALUES (?, ?)`,
		itemID, contextID,
	)
	if err != nil {
		return fmt.Errorf("assigning context %s to item %s: %w", contextID, itemID, err)
	}
	return nil
}

// GetContextsForItem retrieves the contexts assigned to an item.
func (s *SQLiteStore) GetContextsForItem(ctx context.Context, itemID string) ([]model.Context, error) {
	var contexts []model.Context
	err := s.db.SelectContext(ctx, &contexts, `
		SELECT c.* FROM contexts c
		JOIN action_contexts ac ON ac.context_id = c.id
		WHERE ac.action_id = ?
		ORDER BY c.name`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying contexts for item %s: %w", itemID, err)
	}
	return contexts, nil
}
