// Package groups implements the membership-group core: group creation with
// slug assignment, the membership store, the snapshot audit trail, the
// visibility rules, and the parent/child hierarchy.
package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store owns creation, mutation, and destruction of groups and memberships.
// Callers never write GroupMember rows outside of it. Every membership
// mutation is reported to the injected Recorder inside the same transaction.
type Store struct {
	db       *gorm.DB
	recorder Recorder
}

// NewStore constructs a Store wired to the given recorder.
func NewStore(db *gorm.DB, recorder Recorder) *Store {
	if recorder == nil {
		recorder = NewSnapshotRecorder()
	}
	return &Store{db: db, recorder: recorder}
}

// DB exposes the underlying connection for read-only collaborators.
func (s *Store) DB() *gorm.DB { return s.db }

// NewGroupParams holds inputs for group creation.
type NewGroupParams struct {
	Name        string  // Display name; also the slug source.
	Kind        string  // Group kind (network, community, project).
	Visibility  string  // Visibility level; defaults to everyone.
	Private     bool    // Invitation-only flag.
	NetworkType string  // Network type for auto-created networks.
	ParentID    *uint64 // Optional parent group.
	CreatorID   uint64  // Creating user; auto-enrolled as admin.
}

// CreateGroup assigns a slug, inserts the group, and enrolls the creator as
// an admin member, all in one transaction. A failure in any step, including
// the creator membership, fails the whole creation.
func (s *Store) CreateGroup(ctx context.Context, params NewGroupParams) (*models.Group, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("groups: missing group name")
	}
	kind := strings.TrimSpace(params.Kind)
	if kind == "" {
		return nil, fmt.Errorf("groups: missing group kind")
	}
	visibility := params.Visibility
	if visibility == "" {
		visibility = models.VisibilityEveryone
	}
	if !models.ValidVisibility(visibility) {
		return nil, ErrInvalidVisibility
	}

	candidate := slug.Normalize(name)
	if candidate == "" {
		return nil, ErrInvalidSlug
	}

	var group models.Group
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var creator models.User
		if errFind := tx.First(&creator, params.CreatorID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("groups: load creator: %w", errFind)
		}

		if params.ParentID != nil {
			var parent models.Group
			if errFind := tx.First(&parent, *params.ParentID).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return ErrGroupNotFound
				}
				return fmt.Errorf("groups: load parent: %w", errFind)
			}
		}

		// Existing slugs of the same kind that contain the candidate as a
		// substring bound the collision scan. The unique index on
		// (slug, kind) is the backstop under concurrent creation.
		var existing []string
		if errPluck := tx.Model(&models.Group{}).
			Where("kind = ? AND slug LIKE ?", kind, "%"+candidate+"%").
			Pluck("slug", &existing).Error; errPluck != nil {
			return fmt.Errorf("groups: scan slugs: %w", errPluck)
		}

		now := time.Now().UTC()
		group = models.Group{
			Slug:        slug.Choose(candidate, existing),
			Kind:        kind,
			Name:        name,
			ParentID:    params.ParentID,
			Private:     params.Private,
			Visibility:  visibility,
			NetworkType: strings.TrimSpace(params.NetworkType),
			CreatorID:   creator.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if errCreate := tx.Create(&group).Error; errCreate != nil {
			return fmt.Errorf("groups: create group: %w", errCreate)
		}

		member := models.GroupMember{
			GroupID:       group.ID,
			UserID:        creator.ID,
			IsAdmin:       true,
			AdminTitle:    fmt.Sprintf("%s Creator", group.Name),
			AdminOrder:    1,
			Joined:        now,
			RequestStatus: models.StatusAccepted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if errCreate := tx.Create(&member).Error; errCreate != nil {
			return fmt.Errorf("groups: enroll creator: %w", errCreate)
		}
		return s.recorder.MembershipSaved(tx, &member)
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"slug": group.Slug, "kind": group.Kind}).Info("group created")
	return &group, nil
}

// GroupByID loads a group by primary key.
func (s *Store) GroupByID(ctx context.Context, id uint64) (*models.Group, error) {
	var group models.Group
	if errFind := s.db.WithContext(ctx).First(&group, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("groups: load group: %w", errFind)
	}
	return &group, nil
}

// GroupBySlug loads a group by slug. kind narrows the lookup when non-empty;
// slugs are only unique within a kind.
func (s *Store) GroupBySlug(ctx context.Context, slugValue, kind string) (*models.Group, error) {
	q := s.db.WithContext(ctx).Where("slug = ?", slugValue)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var group models.Group
	if errFind := q.Order("id ASC").First(&group).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("groups: load group: %w", errFind)
	}
	return &group, nil
}

// AddMember creates a membership for the user. The initial status is
// accepted when the user has a usable credential and bulk otherwise.
// Returns ErrDuplicateMembership if the pair already exists; no record row
// is written in that case.
func (s *Store) AddMember(ctx context.Context, groupID, userID uint64) (*models.GroupMember, error) {
	var member models.GroupMember
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.First(&user, userID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("groups: load user: %w", errFind)
		}
		var group models.Group
		if errFind := tx.First(&group, groupID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return fmt.Errorf("groups: load group: %w", errFind)
		}

		var count int64
		if errCount := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&count).Error; errCount != nil {
			return fmt.Errorf("groups: check membership: %w", errCount)
		}
		if count > 0 {
			return ErrDuplicateMembership
		}

		status := models.StatusBulk
		if user.HasUsableCredential() {
			status = models.StatusAccepted
		}
		now := time.Now().UTC()
		member = models.GroupMember{
			GroupID:       groupID,
			UserID:        userID,
			AdminOrder:    models.DefaultAdminOrder,
			Joined:        now,
			RequestStatus: status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if errCreate := tx.Create(&member).Error; errCreate != nil {
			// The unique index catches the check-then-insert race.
			if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
				return ErrDuplicateMembership
			}
			return fmt.Errorf("groups: create membership: %w", errCreate)
		}
		return s.recorder.MembershipSaved(tx, &member)
	})
	if errTx != nil {
		return nil, errTx
	}
	return &member, nil
}

// RemoveMember deletes the membership, writing the terminal "ended" record
// in the same transaction.
func (s *Store) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, errFind := findMember(tx, groupID, userID)
		if errFind != nil {
			return errFind
		}
		if errRecord := s.recorder.MembershipEnded(tx, member); errRecord != nil {
			return errRecord
		}
		if errDelete := tx.Delete(&models.GroupMember{}, member.ID).Error; errDelete != nil {
			return fmt.Errorf("groups: delete membership: %w", errDelete)
		}
		return nil
	})
}

// SetStatus changes the membership status and records the new state.
func (s *Store) SetStatus(ctx context.Context, groupID, userID uint64, status string) (*models.GroupMember, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	var member *models.GroupMember
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, errFind := findMember(tx, groupID, userID)
		if errFind != nil {
			return errFind
		}
		found.RequestStatus = status
		found.UpdatedAt = time.Now().UTC()
		if errSave := tx.Save(found).Error; errSave != nil {
			return fmt.Errorf("groups: update status: %w", errSave)
		}
		member = found
		return s.recorder.MembershipSaved(tx, found)
	})
	if errTx != nil {
		return nil, errTx
	}
	return member, nil
}

// SetAdmin changes the admin role of a membership and records the new
// state. title and order apply only when non-nil; demoting clears the title
// and resets the ordering to the default sentinel.
func (s *Store) SetAdmin(ctx context.Context, groupID, userID uint64, isAdmin bool, title *string, order *int) (*models.GroupMember, error) {
	var member *models.GroupMember
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, errFind := findMember(tx, groupID, userID)
		if errFind != nil {
			return errFind
		}
		found.IsAdmin = isAdmin
		if title != nil {
			found.AdminTitle = strings.TrimSpace(*title)
		}
		if order != nil {
			found.AdminOrder = *order
		}
		if !isAdmin {
			found.AdminTitle = ""
			found.AdminOrder = models.DefaultAdminOrder
		}
		found.UpdatedAt = time.Now().UTC()
		if errSave := tx.Save(found).Error; errSave != nil {
			return fmt.Errorf("groups: update admin role: %w", errSave)
		}
		member = found
		return s.recorder.MembershipSaved(tx, found)
	})
	if errTx != nil {
		return nil, errTx
	}
	return member, nil
}

// Membership loads the membership for a (group, user) pair.
func (s *Store) Membership(ctx context.Context, groupID, userID uint64) (*models.GroupMember, error) {
	return findMember(s.db.WithContext(ctx), groupID, userID)
}

// AcceptedMembers lists accepted memberships in the store's canonical
// order: is_admin ascending, then admin_order ascending, then joined
// ascending. Non-admins sort before admins; display layers that want admins
// first reverse the admin axis themselves.
func (s *Store) AcceptedMembers(ctx context.Context, groupID uint64) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if errFind := s.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND request_status = ?", groupID, models.StatusAccepted).
		Order("is_admin ASC, admin_order ASC, joined ASC").
		Find(&members).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list accepted members: %w", errFind)
	}
	return members, nil
}

// Members lists all memberships for a group regardless of status.
func (s *Store) Members(ctx context.Context, groupID uint64) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if errFind := s.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("is_admin ASC, admin_order ASC, joined ASC").
		Find(&members).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list members: %w", errFind)
	}
	return members, nil
}

// MemberEmails returns addresses for an external mailer: accepted members
// with a non-empty email, plus bulk members.
func (s *Store) MemberEmails(ctx context.Context, groupID uint64) ([]string, error) {
	var members []models.GroupMember
	if errFind := s.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND request_status IN ?", groupID,
			[]string{models.StatusAccepted, models.StatusBulk}).
		Find(&members).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list member emails: %w", errFind)
	}
	emails := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member.User == nil {
			continue
		}
		email := strings.TrimSpace(member.User.Email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	return emails, nil
}

// MemberRecords lists the historical records for a group, oldest first.
// userID narrows to one member's lineage when non-zero.
func (s *Store) MemberRecords(ctx context.Context, groupID, userID uint64) ([]models.GroupMemberRecord, error) {
	q := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var records []models.GroupMemberRecord
	if errFind := q.Order("id ASC").Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("groups: list member records: %w", errFind)
	}
	return records, nil
}

// DeleteGroup removes a group, ending every membership (with terminal
// records), deleting its locations, and detaching its children.
func (s *Store) DeleteGroup(ctx context.Context, groupID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if errFind := tx.First(&group, groupID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return fmt.Errorf("groups: load group: %w", errFind)
		}

		var members []models.GroupMember
		if errFind := tx.Where("group_id = ?", groupID).Find(&members).Error; errFind != nil {
			return fmt.Errorf("groups: list memberships: %w", errFind)
		}
		for i := range members {
			if errRecord := s.recorder.MembershipEnded(tx, &members[i]); errRecord != nil {
				return errRecord
			}
		}
		if errDelete := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; errDelete != nil {
			return fmt.Errorf("groups: delete memberships: %w", errDelete)
		}
		if errDelete := tx.Where("group_id = ?", groupID).Delete(&models.GroupLocation{}).Error; errDelete != nil {
			return fmt.Errorf("groups: delete locations: %w", errDelete)
		}
		if errDetach := tx.Model(&models.Group{}).
			Where("parent_id = ?", groupID).
			Updates(map[string]any{"parent_id": nil, "updated_at": time.Now().UTC()}).Error; errDetach != nil {
			return fmt.Errorf("groups: detach children: %w", errDetach)
		}
		if errDelete := tx.Delete(&models.Group{}, groupID).Error; errDelete != nil {
			return fmt.Errorf("groups: delete group: %w", errDelete)
		}
		return nil
	})
}

// EndUserMemberships ends every membership the user holds, writing a
// terminal record for each before deleting the rows. Callers removing a
// user account run this first so the membership history stays complete.
func (s *Store) EndUserMemberships(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []models.GroupMember
		if errFind := tx.Where("user_id = ?", userID).Find(&members).Error; errFind != nil {
			return fmt.Errorf("groups: list user memberships: %w", errFind)
		}
		for i := range members {
			if errRecord := s.recorder.MembershipEnded(tx, &members[i]); errRecord != nil {
				return errRecord
			}
		}
		if errDelete := tx.Where("user_id = ?", userID).Delete(&models.GroupMember{}).Error; errDelete != nil {
			return fmt.Errorf("groups: delete user memberships: %w", errDelete)
		}
		return nil
	})
}

// PromoteBulkMemberships moves the placeholder user's bulk memberships to
// the verified user, marking them accepted, then deletes the placeholder.
// Groups where the verified user already holds a membership are skipped;
// those placeholder memberships end normally with a terminal record.
func (s *Store) PromoteBulkMemberships(ctx context.Context, placeholderID, verifiedID uint64) error {
	if placeholderID == verifiedID {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var verified models.User
		if errFind := tx.First(&verified, verifiedID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("groups: load verified user: %w", errFind)
		}

		var memberships []models.GroupMember
		if errFind := tx.Where("user_id = ?", placeholderID).Find(&memberships).Error; errFind != nil {
			return fmt.Errorf("groups: list placeholder memberships: %w", errFind)
		}

		now := time.Now().UTC()
		for i := range memberships {
			member := &memberships[i]

			var count int64
			if errCount := tx.Model(&models.GroupMember{}).
				Where("group_id = ? AND user_id = ?", member.GroupID, verifiedID).
				Count(&count).Error; errCount != nil {
				return fmt.Errorf("groups: check existing membership: %w", errCount)
			}

			if member.RequestStatus != models.StatusBulk || count > 0 {
				if errRecord := s.recorder.MembershipEnded(tx, member); errRecord != nil {
					return errRecord
				}
				if errDelete := tx.Delete(&models.GroupMember{}, member.ID).Error; errDelete != nil {
					return fmt.Errorf("groups: delete placeholder membership: %w", errDelete)
				}
				continue
			}

			member.UserID = verifiedID
			member.RequestStatus = models.StatusAccepted
			member.UpdatedAt = now
			if errSave := tx.Save(member).Error; errSave != nil {
				return fmt.Errorf("groups: promote membership: %w", errSave)
			}
			if errRecord := s.recorder.MembershipSaved(tx, member); errRecord != nil {
				return errRecord
			}
		}

		if errDelete := tx.Delete(&models.User{}, placeholderID).Error; errDelete != nil {
			return fmt.Errorf("groups: delete placeholder user: %w", errDelete)
		}
		return nil
	})
}

// findMember loads a membership within the given handle, mapping not-found
// to ErrMembershipNotFound.
func findMember(tx *gorm.DB, groupID, userID uint64) (*models.GroupMember, error) {
	var member models.GroupMember
	if errFind := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("groups: load membership: %w", errFind)
	}
	return &member, nil
}
