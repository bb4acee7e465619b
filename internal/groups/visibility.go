package groups

import (
	"context"
	"fmt"

	"github.com/memberd/memberd/internal/models"
)

// IsVisible decides whether the viewer may see the group. A nil viewer is
// unauthenticated. Rules, in order: everyone-visible groups are visible to
// anyone; unauthenticated viewers see nothing else; superusers see
// everything; accepted members see their group; accepted members of the
// parent see parent-visible groups.
func (s *Store) IsVisible(ctx context.Context, group *models.Group, viewer *models.User) (bool, error) {
	if group == nil {
		return false, ErrGroupNotFound
	}
	if group.Visibility == models.VisibilityEveryone {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	if viewer.Superuser {
		return true, nil
	}

	accepted, errCheck := s.hasAcceptedMembership(ctx, group.ID, viewer.ID)
	if errCheck != nil {
		return false, errCheck
	}
	if accepted {
		return true, nil
	}

	if group.Visibility == models.VisibilityParent && group.ParentID != nil {
		return s.hasAcceptedMembership(ctx, *group.ParentID, viewer.ID)
	}
	return false, nil
}

// VisibleChildren lists the children of the group the viewer may see.
// Unauthenticated viewers get everyone-visible children only; superusers
// get all children; other viewers get everyone-visible children plus
// children they hold any membership in, plus parent-visible children when
// they are an accepted member of the group itself. The result is
// deduplicated and ordered by name.
func (s *Store) VisibleChildren(ctx context.Context, group *models.Group, viewer *models.User) ([]models.Group, error) {
	if group == nil {
		return nil, ErrGroupNotFound
	}
	base := s.db.WithContext(ctx).Model(&models.Group{}).Where("parent_id = ?", group.ID)

	switch {
	case viewer == nil:
		base = base.Where("visibility = ?", models.VisibilityEveryone)
	case viewer.Superuser:
		// No filter.
	default:
		accepted, errCheck := s.hasAcceptedMembership(ctx, group.ID, viewer.ID)
		if errCheck != nil {
			return nil, errCheck
		}
		memberOf := s.db.Model(&models.GroupMember{}).
			Select("group_id").
			Where("user_id = ?", viewer.ID)

		if accepted {
			base = base.Where(
				"visibility IN ? OR id IN (?)",
				[]string{models.VisibilityEveryone, models.VisibilityParent},
				memberOf,
			)
		} else {
			base = base.Where(
				"visibility = ? OR id IN (?)",
				models.VisibilityEveryone,
				memberOf,
			)
		}
	}

	var children []models.Group
	if errFind := base.Distinct().Order("name ASC").Find(&children).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list visible children: %w", errFind)
	}
	return children, nil
}

// UserIsMember reports whether the viewer holds an accepted membership.
func (s *Store) UserIsMember(ctx context.Context, group *models.Group, viewer *models.User) (bool, error) {
	if group == nil || viewer == nil {
		return false, nil
	}
	return s.hasAcceptedMembership(ctx, group.ID, viewer.ID)
}

// UserIsAdmin reports whether the viewer is an accepted admin of the group
// or a superuser.
func (s *Store) UserIsAdmin(ctx context.Context, group *models.Group, viewer *models.User) (bool, error) {
	if group == nil || viewer == nil {
		return false, nil
	}
	if viewer.Superuser {
		return true, nil
	}
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND request_status = ? AND is_admin = ?",
			group.ID, viewer.ID, models.StatusAccepted, true).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("groups: check admin: %w", errCount)
	}
	return count > 0, nil
}

func (s *Store) hasAcceptedMembership(ctx context.Context, groupID, userID uint64) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND request_status = ?",
			groupID, userID, models.StatusAccepted).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("groups: check membership: %w", errCount)
	}
	return count > 0, nil
}
