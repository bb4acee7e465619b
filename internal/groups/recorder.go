package groups

import (
	"fmt"
	"time"

	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// Recorder observes membership mutations and appends historical records.
// The store calls it inside the transaction that performs the mutation, so
// the audit trail never reflects a state the live table did not reach.
type Recorder interface {
	// MembershipSaved is invoked after a membership is created or updated.
	MembershipSaved(tx *gorm.DB, member *models.GroupMember) error
	// MembershipEnded is invoked before a membership row is deleted.
	MembershipEnded(tx *gorm.DB, member *models.GroupMember) error
}

// SnapshotRecorder appends GroupMemberRecord rows, one per observed
// mutation. Records are value copies and are never updated or deleted.
type SnapshotRecorder struct{}

// NewSnapshotRecorder constructs a SnapshotRecorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{}
}

// MembershipSaved appends a snapshot of the membership's current state.
func (r *SnapshotRecorder) MembershipSaved(tx *gorm.DB, member *models.GroupMember) error {
	record := snapshotOf(member)
	if errCreate := tx.Create(&record).Error; errCreate != nil {
		return fmt.Errorf("groups: record membership save: %w", errCreate)
	}
	return nil
}

// MembershipEnded appends the terminal snapshot with status "ended".
func (r *SnapshotRecorder) MembershipEnded(tx *gorm.DB, member *models.GroupMember) error {
	record := snapshotOf(member)
	record.RequestStatus = models.StatusEnded
	if errCreate := tx.Create(&record).Error; errCreate != nil {
		return fmt.Errorf("groups: record membership end: %w", errCreate)
	}
	return nil
}

// snapshotOf copies every membership field into a fresh record row.
func snapshotOf(member *models.GroupMember) models.GroupMemberRecord {
	return models.GroupMemberRecord{
		GroupID:       member.GroupID,
		UserID:        member.UserID,
		IsAdmin:       member.IsAdmin,
		AdminTitle:    member.AdminTitle,
		AdminOrder:    member.AdminOrder,
		Joined:        member.Joined,
		RequestStatus: member.RequestStatus,
		RecordedAt:    time.Now().UTC(),
	}
}
