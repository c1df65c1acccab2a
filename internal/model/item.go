package model

import "time"

// Status is the workflow state of an item.
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusClarified Status = "clarified"
	StatusOrganized Status = "organized"
	StatusReviewing Status = "reviewing"
	StatusComplete  Status = "complete"
	StatusSomeday   Status = "someday"
)

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusClarified, StatusOrganized,
		StatusReviewing, StatusComplete, StatusSomeday:
		return true
	}
	return false
}

// ItemType distinguishes single actions from multi-step projects.
type ItemType string

const (
	ItemTypeAction  ItemType = "action"
	ItemTypeProject ItemType = "project"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeAction || t == ItemTypeProject
}

// Energy level bounds for actions (1 = lowest effort, 5 = highest).
const (
	EnergyMin = 1
	EnergyMax = 5
)

// Item is a captured piece of work: either a single action or a project
// grouping actions. Actions may point at their parent project via ProjectID.
type Item struct {
	ID          string   `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description" db:"description"`
	Status      Status   `json:"status" db:"status"`
	ItemType    ItemType `json:"item_type" db:"item_type"`

	// ProjectID links an action to its parent project, nil for standalone
	// items and projects themselves.
	ProjectID *string `json:"project_id,omitempty" db:"project_id"`

	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// EnergyLevel is the effort estimate for actions, 1-5, nil when unset.
	EnergyLevel *int `json:"energy_level,omitempty" db:"energy_level"`

	// SuccessCriteria describes what "done" means for a project.
	SuccessCriteria string `json:"success_criteria" db:"success_criteria"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
