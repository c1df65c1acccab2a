package store

import (
	"context"

	"github.com/nhle/gtd-backend/internal/model"
)

// ItemFilter controls filtering and pagination for item queries.
type ItemFilter struct {
	Status    *model.Status
	ItemType  *model.ItemType
	ProjectID *string
	Query     *string // search title + description
	Limit     int
	Offset    int
}

// Store defines the persistence interface for items, contexts,
// stakeholders, and organizations.
type Store interface {
	// === Items ===

	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	UpdateItem(ctx context.Context, item model.Item) error
	DeleteItem(ctx context.Context, id string) error
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	GetItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)
	CompleteItem(ctx context.Context, id string) error

	// === Contexts ===

	CreateContext(ctx context.Context, c model.Context) (model.Context, error)
	DeleteContext(ctx context.Context, id string) error
	GetContexts(ctx context.Context) ([]model.Context, error)
	FindContextByName(ctx context.Context, name string) (*model.Context, error)
	AssignContext(ctx context.Context, itemID, contextID string) error
	GetContextsForItem(ctx context.Context, itemID string) ([]model.Context, error)

	// === Organizations ===

	CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error)
	GetOrganizations(ctx context.Context) ([]model.Organization, error)

	// === Stakeholders ===

	CreateStakeholder(ctx context.Context, s model.Stakeholder) (model.Stakeholder, error)
	DeleteStakeholder(ctx context.Context, id string) error
	GetStakeholders(ctx context.Context) ([]model.Stakeholder, error)
	FindStakeholderByEmail(ctx context.Context, email string) (*model.Stakeholder, error)
	AssignStakeholder(ctx context.Context, a model.Assignment) error
	GetStakeholdersForItem(ctx context.Context, itemID string) ([]model.Stakeholder, error)
}
