package models

import "time"

// Group kinds. Networks are auto-created from institutions and employers;
// communities and projects are user-created.
const (
	KindNetwork   = "network"
	KindCommunity = "community"
	KindProject   = "project"
)

// Group visibility levels.
const (
	// VisibilityEveryone makes the group visible to anyone, including
	// unauthenticated viewers.
	VisibilityEveryone = "everyone"
	// VisibilityParent makes the group visible to its members and to
	// accepted members of the parent group.
	VisibilityParent = "parent"
	// VisibilityMembers restricts the group to its own members.
	VisibilityMembers = "members"
)

// Network types for auto-created network groups.
const (
	NetworkTypeUniversity = "university"
	NetworkTypeCompany    = "company"
)

// Group is a named, sluggable entity that can have members and a parent.
type Group struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Slug string `gorm:"type:text;not null;uniqueIndex:idx_groups_slug_kind"` // URL-safe identifier, assigned once at creation.
	Kind string `gorm:"type:text;not null;uniqueIndex:idx_groups_slug_kind"` // Group kind discriminator.
	Name string `gorm:"type:text;not null"`                                  // Display name.

	ParentID *uint64 `gorm:"index"`                // Optional parent group ID.
	Parent   *Group  `gorm:"foreignKey:ParentID"`  // Optional parent group.
	Children []Group `gorm:"foreignKey:ParentID"`  // Child groups.

	Private     bool   `gorm:"not null;default:false"`              // Members join by invitation only.
	Visibility  string `gorm:"type:text;not null;default:everyone"` // Visibility level.
	NetworkType string `gorm:"type:text"`                           // Network type for auto-created networks.

	CreatorID uint64 `gorm:"not null;index"` // User who created the group.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// ValidVisibility reports whether v is a recognized visibility level.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityEveryone, VisibilityParent, VisibilityMembers:
		return true
	}
	return false
}
