package models

// GroupLocation is a named place attached to a group.
type GroupLocation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID uint64 `gorm:"not null;index"`     // Group reference.
	Group   *Group `gorm:"foreignKey:GroupID"` // Group record.

	Place     string   `gorm:"type:text"` // Human-readable place name.
	Latitude  *float64 `gorm:""`          // Latitude, if geocoded.
	Longitude *float64 `gorm:""`          // Longitude, if geocoded.
}
