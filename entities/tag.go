package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name  string    `gorm:"uniqueIndex;not null" json:"name"`
	Color string    `gorm:"uniqueIndex;not null;size:7" json:"color"` // hex, e.g. #E26C2D
	Slug  string    `gorm:"uniqueIndex;not null" json:"slug"`
}
