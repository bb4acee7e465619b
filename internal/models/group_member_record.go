package models

import "time"

// GroupMemberRecord is an immutable snapshot of a GroupMember at a point in
// time. One row is appended per observed membership save, plus a terminal
// row with StatusEnded when the membership is removed. Rows are never
// updated or deleted.
type GroupMemberRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID uint64 `gorm:"not null;index:idx_member_records_group_user"` // Group reference (value copy).
	UserID  uint64 `gorm:"not null;index:idx_member_records_group_user"` // User reference (value copy).

	IsAdmin    bool   `gorm:"not null;default:false"` // Admin flag at snapshot time.
	AdminTitle string `gorm:"type:text"`              // Admin title at snapshot time.
	AdminOrder int    `gorm:"not null;default:999"`   // Admin ordering at snapshot time.

	Joined        time.Time `gorm:"not null"`           // Joined timestamp at snapshot time.
	RequestStatus string    `gorm:"type:text;not null"` // Status at snapshot time, or "ended".

	RecordedAt time.Time `gorm:"not null;autoCreateTime"` // When the snapshot was taken.
}
