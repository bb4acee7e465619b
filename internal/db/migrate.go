package db

import (
	"fmt"

	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema. The unique indexes on (slug, kind) and
// (group_id, user_id) are the correctness backstop for concurrent group
// creation and member insertion, so migration fails hard if they cannot
// be created. Default settings are seeded by settings.Seed.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupMemberRecord{},
		&models.GroupLocation{},
		&models.StudentRecord{},
		&models.WorkRecord{},
		&models.EmailConfirmation{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
