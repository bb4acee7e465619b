package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a keyed configuration value stored in the database.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key string `gorm:"type:text;not null;uniqueIndex"` // Setting key.

	// Stored as TEXT: a JSON column takes NUMERIC affinity on SQLite and
	// bare integers come back in a form the JSON scanner cannot read.
	Value datatypes.JSON `gorm:"type:text"` // JSON value payload.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
