package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// Seed ensures the default settings rows exist. Existing non-empty values
// are left untouched.
func Seed(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("settings: nil connection")
	}
	if errSeed := ensureStringSetting(conn, SiteNameKey, DefaultSiteName); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureStringSetting(conn, MailDomainKey, DefaultMailDomain); errSeed != nil {
		return errSeed
	}
	return ensureIntSetting(conn, LoginRateLimitKey, DefaultLoginRateLimit)
}

func ensureStringSetting(conn *gorm.DB, key, value string) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("settings: marshal %s: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, payload)
}

func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("settings: marshal %s: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, payload)
}

func ensureSetting(conn *gorm.DB, key string, payload []byte) error {
	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      json.RawMessage(payload),
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("settings: update %s: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("settings: query %s: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     payload,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("settings: create %s: %w", key, errCreate)
	}
	return nil
}
