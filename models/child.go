package models

import (
	"time"

	"github.com/google/uuid"
)

// Child is a child profile owned by one parent account
type Child struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ParentID  uuid.UUID `json:"parent_id" db:"parent_id"`
	Name      string    `json:"name" db:"name"`
	BirthDate time.Time `json:"birth_date" db:"birth_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Child model
func (Child) TableName() string {
	return "children"
}

// NewChild creates a new Child instance. The birth date is truncated to a UTC day.
func NewChild(parentID uuid.UUID, name string, birthDate time.Time) *Child {
	y, m, d := birthDate.Date()
	return &Child{
		ID:        uuid.New(),
		ParentID:  parentID,
		Name:      name,
		BirthDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}
}

// AgeInMonths returns the number of whole months between the birth date and at.
// Dates before the birth date yield 0.
func (c *Child) AgeInMonths(at time.Time) int {
	at = at.UTC()
	by, bm, bd := c.BirthDate.Date()
	ay, am, ad := at.Date()

	months := (ay-by)*12 + int(am-bm)
	if ad < bd {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// OwnedBy reports whether parentID owns the child
func (c *Child) OwnedBy(parentID uuid.UUID) bool {
	return c.ParentID == parentID
}
