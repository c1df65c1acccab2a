package model

import "time"

// OrganizationType classifies an organization's relationship to us.
type OrganizationType string

const (
	OrgInternal OrganizationType = "internal"
	OrgCustomer OrganizationType = "customer"
	OrgPartner  OrganizationType = "partner"
	OrgOther    OrganizationType = "other"
)

// Valid reports whether t is a known organization type.
func (t OrganizationType) Valid() bool {
	switch t {
	case OrgInternal, OrgCustomer, OrgPartner, OrgOther:
		return true
	}
	return false
}

// Organization groups stakeholders.
type Organization struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Type        OrganizationType `json:"type" db:"type"`
	Description string           `json:"description" db:"description"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
