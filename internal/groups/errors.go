package groups

import "errors"

// Errors surfaced by the membership store and hierarchy operations. All are
// returned to the caller; none are swallowed internally.
var (
	// ErrDuplicateMembership is returned when a (group, user) membership
	// already exists.
	ErrDuplicateMembership = errors.New("groups: membership already exists")
	// ErrMembershipNotFound is returned when no membership exists for the
	// (group, user) pair.
	ErrMembershipNotFound = errors.New("groups: membership not found")
	// ErrGroupNotFound is returned when a referenced group does not exist.
	ErrGroupNotFound = errors.New("groups: group not found")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("groups: user not found")
	// ErrCyclicHierarchy is returned when a parent assignment would make a
	// group its own ancestor.
	ErrCyclicHierarchy = errors.New("groups: parent assignment would create a cycle")
	// ErrInvalidSlug is returned when a proposed name normalizes to an
	// empty slug.
	ErrInvalidSlug = errors.New("groups: name yields an empty slug")
	// ErrInvalidStatus is returned for unknown membership statuses.
	ErrInvalidStatus = errors.New("groups: invalid membership status")
	// ErrInvalidVisibility is returned for unknown visibility levels.
	ErrInvalidVisibility = errors.New("groups: invalid visibility")
)
