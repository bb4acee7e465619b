// Package settings reads and caches keyed configuration values stored in
// the database.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides read-through cached access to settings rows.
type Store struct {
	db       *gorm.DB
	snapshot atomic.Value // map[string]json.RawMessage
}

// NewStore constructs a Store. The cache is empty until the first Refresh.
func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	s.snapshot.Store(map[string]json.RawMessage{})
	return s
}

// Refresh replaces the cached snapshot with the current table contents.
func (s *Store) Refresh(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("settings: not initialized")
	}
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		next[row.Key] = json.RawMessage(row.Value)
	}
	s.snapshot.Store(next)
	return nil
}

// Set upserts a setting value and refreshes the snapshot.
func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("settings: not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("settings: empty key")
	}
	row := models.Setting{
		Key:       key,
		Value:     []byte(value),
		UpdatedAt: time.Now().UTC(),
	}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("settings: upsert %s: %w", key, errUpsert)
	}
	return s.Refresh(ctx)
}

// Raw returns the cached raw JSON value for key.
func (s *Store) Raw(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	snap, _ := s.snapshot.Load().(map[string]json.RawMessage)
	raw, ok := snap[key]
	return raw, ok
}

// String returns the cached string value for key, or fallback.
func (s *Store) String(key, fallback string) string {
	raw, ok := s.Raw(key)
	if !ok {
		return fallback
	}
	var v string
	if errUnmarshal := json.Unmarshal(raw, &v); errUnmarshal != nil || strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Int returns the cached non-negative integer value for key, or fallback.
func (s *Store) Int(key string, fallback int) int {
	raw, ok := s.Raw(key)
	if !ok {
		return fallback
	}
	var v int
	if errUnmarshal := json.Unmarshal(raw, &v); errUnmarshal != nil || v < 0 {
		return fallback
	}
	return v
}
