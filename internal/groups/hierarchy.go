package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// ChildrenOf lists the direct children of a group, unfiltered by
// visibility.
func (s *Store) ChildrenOf(ctx context.Context, groupID uint64) ([]models.Group, error) {
	var children []models.Group
	if errFind := s.db.WithContext(ctx).
		Where("parent_id = ?", groupID).
		Order("name ASC").
		Find(&children).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list children: %w", errFind)
	}
	return children, nil
}

// ParentOf returns the parent group, or nil for a root group.
func (s *Store) ParentOf(ctx context.Context, group *models.Group) (*models.Group, error) {
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if group.ParentID == nil {
		return nil, nil
	}
	return s.GroupByID(ctx, *group.ParentID)
}

// SetParent reassigns a group's parent, or clears it when parentID is nil.
// The assignment is rejected with ErrCyclicHierarchy when it would make the
// group its own ancestor.
func (s *Store) SetParent(ctx context.Context, groupID uint64, parentID *uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if errFind := tx.First(&group, groupID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return fmt.Errorf("groups: load group: %w", errFind)
		}

		if parentID != nil {
			if *parentID == groupID {
				return ErrCyclicHierarchy
			}
			var parent models.Group
			if errFind := tx.First(&parent, *parentID).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return ErrGroupNotFound
				}
				return fmt.Errorf("groups: load parent: %w", errFind)
			}
			cyclic, errWalk := wouldCycle(tx, groupID, parent)
			if errWalk != nil {
				return errWalk
			}
			if cyclic {
				return ErrCyclicHierarchy
			}
		}

		if errUpdate := tx.Model(&models.Group{}).
			Where("id = ?", groupID).
			Updates(map[string]any{"parent_id": parentID, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
			return fmt.Errorf("groups: set parent: %w", errUpdate)
		}
		return nil
	})
}

// wouldCycle walks the ancestor chain of the proposed parent, bounded by
// the total group count, checking whether group appears in it.
func wouldCycle(tx *gorm.DB, groupID uint64, parent models.Group) (bool, error) {
	var total int64
	if errCount := tx.Model(&models.Group{}).Count(&total).Error; errCount != nil {
		return false, fmt.Errorf("groups: count groups: %w", errCount)
	}

	current := parent
	for steps := int64(0); steps <= total; steps++ {
		if current.ID == groupID {
			return true, nil
		}
		if current.ParentID == nil {
			return false, nil
		}
		var next models.Group
		if errFind := tx.First(&next, *current.ParentID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("groups: walk ancestors: %w", errFind)
		}
		current = next
	}
	// The walk exceeded the node count, so the existing chain already
	// loops; refuse the assignment rather than extending it.
	return true, nil
}
