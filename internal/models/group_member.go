package models

import "time"

// Membership request statuses.
const (
	StatusAccepted  = "accepted"
	StatusInvited   = "invited"
	StatusRequested = "requested"
	StatusBulk      = "bulk"
	// StatusEnded only ever appears on GroupMemberRecord rows, as the
	// terminal entry written when a membership is removed.
	StatusEnded = "ended"
)

// DefaultAdminOrder is the sentinel ordering value for non-ranked members.
// Smaller values sort first among admins.
const DefaultAdminOrder = 999

// GroupMember is the current relationship between one user and one group.
// At most one row exists per (group, user) pair, enforced by a unique index.
type GroupMember struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID uint64 `gorm:"not null;uniqueIndex:idx_group_members_group_user"` // Group reference.
	Group   *Group `gorm:"foreignKey:GroupID"`                                // Group record.
	UserID  uint64 `gorm:"not null;uniqueIndex:idx_group_members_group_user"` // User reference.
	User    *User  `gorm:"foreignKey:UserID"`                                 // User record.

	IsAdmin    bool   `gorm:"not null;default:false"` // Admin role flag.
	AdminTitle string `gorm:"type:text"`              // Free-text admin title.
	AdminOrder int    `gorm:"not null;default:999"`   // Admin ordering, smallest first.

	Joined        time.Time `gorm:"not null"`                            // When the membership began.
	RequestStatus string    `gorm:"type:text;not null;default:accepted"` // Membership status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsAccepted reports whether the membership is accepted.
func (m *GroupMember) IsAccepted() bool { return m.RequestStatus == StatusAccepted }

// IsInvited reports whether the membership is a pending invitation.
func (m *GroupMember) IsInvited() bool { return m.RequestStatus == StatusInvited }

// IsRequested reports whether the membership is a pending join request.
func (m *GroupMember) IsRequested() bool { return m.RequestStatus == StatusRequested }

// IsBulk reports whether the membership is a bulk placeholder.
func (m *GroupMember) IsBulk() bool { return m.RequestStatus == StatusBulk }

// ValidStatus reports whether s is a status a live membership may hold.
func ValidStatus(s string) bool {
	switch s {
	case StatusAccepted, StatusInvited, StatusRequested, StatusBulk:
		return true
	}
	return false
}
