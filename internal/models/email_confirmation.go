package models

import "time"

// EmailConfirmation is a pending email verification token. Confirming one
// promotes any bulk memberships held by the placeholder user for the same
// address.
type EmailConfirmation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // User the address belongs to.
	User   *User  `gorm:"foreignKey:UserID"`

	Email string `gorm:"type:text;not null;index"`       // Address being verified.
	Token string `gorm:"type:text;not null;uniqueIndex"` // Opaque confirmation token.

	ConfirmedAt *time.Time `gorm:""`                        // When the address was verified.
	ExpiresAt   time.Time  `gorm:"not null"`                // Token expiry.
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// Confirmed reports whether the token has been used.
func (e *EmailConfirmation) Confirmed() bool { return e.ConfirmedAt != nil }

// Expired reports whether the token is past its expiry at the given time.
func (e *EmailConfirmation) Expired(now time.Time) bool { return now.After(e.ExpiresAt) }
