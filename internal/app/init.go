package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether a superuser account exists.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	var count int64
	if errCount := conn.Model(&models.User{}).
		Where("superuser = ?", true).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("app: count superusers: %w", errCount)
	}
	return count > 0, nil
}

// EnsureAdminUser creates the bootstrap superuser from config when no
// account with that username exists. An empty username skips the bootstrap.
func EnsureAdminUser(conn *gorm.DB, admin config.AdminConfig) error {
	username := strings.TrimSpace(admin.Username)
	if username == "" {
		return nil
	}
	if strings.TrimSpace(admin.Password) == "" {
		return fmt.Errorf("app: admin bootstrap requires a password")
	}

	var count int64
	if errCount := conn.Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; errCount != nil {
		return fmt.Errorf("app: check admin user: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(admin.Password)
	if errHash != nil {
		return errHash
	}
	now := time.Now().UTC()
	user := models.User{
		Username:  username,
		Email:     strings.TrimSpace(admin.Email),
		Password:  hash,
		Superuser: true,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		return fmt.Errorf("app: create admin user: %w", errCreate)
	}
	log.WithFields(log.Fields{"user": username}).Info("bootstrap superuser created")
	return nil
}
