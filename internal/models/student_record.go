package models

import "time"

// StudentRecord is an education entry on a user profile. Creating one
// enrolls the user in the network group for the institution.
type StudentRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Profile owner.
	User   *User  `gorm:"foreignKey:UserID"`

	NetworkID uint64 `gorm:"not null;index"` // Institution network group.
	Network   *Group `gorm:"foreignKey:NetworkID"`

	Institution string `gorm:"type:text;not null"` // Institution name as entered.
	Degree      string `gorm:"type:text"`          // Degree or program.
	Field       string `gorm:"type:text"`          // Field of study.

	StartDate *time.Time `gorm:""` // Enrollment start.
	EndDate   *time.Time `gorm:""` // Enrollment end, nil while current.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
