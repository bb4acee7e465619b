// Package profiles manages education and employment records on user
// profiles. Each record is tied to the network group for its institution or
// employer; the group is created on first use and the owner is enrolled.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrRecordNotFound is returned when a profile record does not exist for
// the given owner.
var ErrRecordNotFound = errors.New("profiles: record not found")

// Service provides profile record operations.
type Service struct {
	db     *gorm.DB
	groups *groups.Store
}

// NewService constructs a Service.
func NewService(db *gorm.DB, groupStore *groups.Store) *Service {
	return &Service{db: db, groups: groupStore}
}

// StudentRecordParams holds inputs for education records.
type StudentRecordParams struct {
	Institution string
	Degree      string
	Field       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// WorkRecordParams holds inputs for employment records.
type WorkRecordParams struct {
	Employer  string
	Position  string
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateStudentRecord creates an education record, resolving the
// institution's network group and enrolling the owner.
func (s *Service) CreateStudentRecord(ctx context.Context, userID uint64, params StudentRecordParams) (*models.StudentRecord, error) {
	institution := strings.TrimSpace(params.Institution)
	if institution == "" {
		return nil, fmt.Errorf("profiles: missing institution")
	}
	network, errNetwork := s.ensureNetwork(ctx, institution, models.NetworkTypeUniversity, userID)
	if errNetwork != nil {
		return nil, errNetwork
	}

	now := time.Now().UTC()
	record := models.StudentRecord{
		UserID:      userID,
		NetworkID:   network.ID,
		Institution: institution,
		Degree:      strings.TrimSpace(params.Degree),
		Field:       strings.TrimSpace(params.Field),
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("profiles: create student record: %w", errCreate)
	}
	return &record, nil
}

// UpdateStudentRecord updates an education record. Changing the institution
// re-resolves the network group and enrolls the owner in the new one.
func (s *Service) UpdateStudentRecord(ctx context.Context, userID, recordID uint64, params StudentRecordParams) (*models.StudentRecord, error) {
	var record models.StudentRecord
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		First(&record).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("profiles: load student record: %w", errFind)
	}

	institution := strings.TrimSpace(params.Institution)
	if institution == "" {
		return nil, fmt.Errorf("profiles: missing institution")
	}
	if institution != record.Institution {
		network, errNetwork := s.ensureNetwork(ctx, institution, models.NetworkTypeUniversity, userID)
		if errNetwork != nil {
			return nil, errNetwork
		}
		record.NetworkID = network.ID
		record.Institution = institution
	}
	record.Degree = strings.TrimSpace(params.Degree)
	record.Field = strings.TrimSpace(params.Field)
	record.StartDate = params.StartDate
	record.EndDate = params.EndDate
	record.UpdatedAt = time.Now().UTC()

	if errSave := s.db.WithContext(ctx).Save(&record).Error; errSave != nil {
		return nil, fmt.Errorf("profiles: update student record: %w", errSave)
	}
	return &record, nil
}

// StudentRecords lists a user's education records, newest first.
func (s *Service) StudentRecords(ctx context.Context, userID uint64) ([]models.StudentRecord, error) {
	var records []models.StudentRecord
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("profiles: list student records: %w", errFind)
	}
	return records, nil
}

// DeleteStudentRecord removes an education record.
func (s *Service) DeleteStudentRecord(ctx context.Context, userID, recordID uint64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		Delete(&models.StudentRecord{})
	if res.Error != nil {
		return fmt.Errorf("profiles: delete student record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CreateWorkRecord creates an employment record, resolving the employer's
// network group and enrolling the owner.
func (s *Service) CreateWorkRecord(ctx context.Context, userID uint64, params WorkRecordParams) (*models.WorkRecord, error) {
	employer := strings.TrimSpace(params.Employer)
	if employer == "" {
		return nil, fmt.Errorf("profiles: missing employer")
	}
	network, errNetwork := s.ensureNetwork(ctx, employer, models.NetworkTypeCompany, userID)
	if errNetwork != nil {
		return nil, errNetwork
	}

	now := time.Now().UTC()
	record := models.WorkRecord{
		UserID:    userID,
		NetworkID: network.ID,
		Employer:  employer,
		Position:  strings.TrimSpace(params.Position),
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("profiles: create work record: %w", errCreate)
	}
	return &record, nil
}

// UpdateWorkRecord updates an employment record. Changing the employer
// re-resolves the network group and enrolls the owner in the new one.
func (s *Service) UpdateWorkRecord(ctx context.Context, userID, recordID uint64, params WorkRecordParams) (*models.WorkRecord, error) {
	var record models.WorkRecord
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		First(&record).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("profiles: load work record: %w", errFind)
	}

	employer := strings.TrimSpace(params.Employer)
	if employer == "" {
		return nil, fmt.Errorf("profiles: missing employer")
	}
	if employer != record.Employer {
		network, errNetwork := s.ensureNetwork(ctx, employer, models.NetworkTypeCompany, userID)
		if errNetwork != nil {
			return nil, errNetwork
		}
		record.NetworkID = network.ID
		record.Employer = employer
	}
	record.Position = strings.TrimSpace(params.Position)
	record.StartDate = params.StartDate
	record.EndDate = params.EndDate
	record.UpdatedAt = time.Now().UTC()

	if errSave := s.db.WithContext(ctx).Save(&record).Error; errSave != nil {
		return nil, fmt.Errorf("profiles: update work record: %w", errSave)
	}
	return &record, nil
}

// WorkRecords lists a user's employment records, newest first.
func (s *Service) WorkRecords(ctx context.Context, userID uint64) ([]models.WorkRecord, error) {
	var records []models.WorkRecord
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("profiles: list work records: %w", errFind)
	}
	return records, nil
}

// DeleteWorkRecord removes an employment record.
func (s *Service) DeleteWorkRecord(ctx context.Context, userID, recordID uint64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		Delete(&models.WorkRecord{})
	if res.Error != nil {
		return fmt.Errorf("profiles: delete work record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ensureNetwork finds the network group with the given name, creating it
// when absent, and enrolls the user as a plain member.
func (s *Service) ensureNetwork(ctx context.Context, name, networkType string, userID uint64) (*models.Group, error) {
	var network models.Group
	errFind := s.db.WithContext(ctx).
		Where("kind = ? AND name = ?", models.KindNetwork, name).
		Order("id ASC").
		First(&network).Error
	switch {
	case errFind == nil:
		if _, errAdd := s.groups.AddMember(ctx, network.ID, userID); errAdd != nil &&
			!errors.Is(errAdd, groups.ErrDuplicateMembership) {
			return nil, errAdd
		}
		return &network, nil
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		created, errCreate := s.groups.CreateGroup(ctx, groups.NewGroupParams{
			Name:        name,
			Kind:        models.KindNetwork,
			NetworkType: networkType,
			CreatorID:   userID,
		})
		if errCreate != nil {
			return nil, errCreate
		}
		log.WithFields(log.Fields{"network": created.Slug, "type": networkType}).Info("network auto-created")
		return created, nil
	default:
		return nil, fmt.Errorf("profiles: find network: %w", errFind)
	}
}
