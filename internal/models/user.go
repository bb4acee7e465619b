package models

import "time"

// User represents a platform account stored in the database.
//
// A user without a password hash is a placeholder created from a bare email
// address (for example a mailing-list import) and has no usable credential
// until registration completes.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Name     string `gorm:"type:text"`                      // Display name.
	Email    string `gorm:"type:text;index"`                // Email address.
	Password string `gorm:"type:text"`                      // Bcrypt hash; empty for placeholder users.

	Superuser bool `gorm:"not null;default:false"` // Elevated privilege flag.
	Active    bool `gorm:"not null;default:true"`  // Whether the user can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HasUsableCredential reports whether the user completed registration with a
// real password.
func (u *User) HasUsableCredential() bool {
	return u != nil && u.Password != ""
}
