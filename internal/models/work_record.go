package models

import "time"

// WorkRecord is an employment entry on a user profile. Creating one enrolls
// the user in the network group for the employer.
type WorkRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Profile owner.
	User   *User  `gorm:"foreignKey:UserID"`

	NetworkID uint64 `gorm:"not null;index"` // Employer network group.
	Network   *Group `gorm:"foreignKey:NetworkID"`

	Employer string `gorm:"type:text;not null"` // Employer name as entered.
	Position string `gorm:"type:text"`          // Job title.

	StartDate *time.Time `gorm:""` // Employment start.
	EndDate   *time.Time `gorm:""` // Employment end, nil while current.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
