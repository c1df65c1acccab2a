package model

import "time"

// Context is a location or tool an action requires (e.g. "@office",
// "@phone"). Names are unique.
type Context struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
