package model

import "time"

// RACIRole classifies a stakeholder's involvement with an item.
type RACIRole string

const (
	RACIResponsible RACIRole = "responsible"
	RACIAccountable RACIRole = "accountable"
	RACIConsulted   RACIRole = "consulted"
	RACIInformed    RACIRole = "informed"
)

// Valid reports whether r is a known RACI role.
func (r RACIRole) Valid() bool {
	switch r {
	case RACIResponsible, RACIAccountable, RACIConsulted, RACIInformed:
		return true
	}
	return false
}

// Stakeholder is a person involved with items, optionally belonging to an
// organization.
type Stakeholder struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	OrganizationID *string   `json:"organization_id,omitempty" db:"organization_id"`
	TeamID         string    `json:"team_id" db:"team_id"`
	Role           string    `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Assignment is a RACI relationship between an item and a stakeholder.
type Assignment struct {
	ItemID        string    `json:"item_id" db:"item_id"`
	StakeholderID string    `json:"stakeholder_id" db:"stakeholder_id"`
	Role          RACIRole  `json:"raci_role" db:"raci_role"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
