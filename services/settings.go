package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"luckyspin/config"
	"luckyspin/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService keeps the business rules in the settings table and serves
// an in-memory snapshot of them. It implements RulesProvider.
type SettingsService struct {
	DB  *gorm.DB
	Log *zap.Logger

	defaults config.Rules

	mu    sync.RWMutex
	rules config.Rules
}

func NewSettingsService(db *gorm.DB, defaults config.Rules, log *zap.Logger) *SettingsService {
	return &SettingsService{DB: db, Log: log, defaults: defaults, rules: defaults}
}

func (s *SettingsService) Rules() config.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Seed inserts the default of every setting that has no row yet.
func (s *SettingsService) Seed(ctx context.Context) error {
	var rows []models.Setting
	for key, value := range s.defaults.Settings() {
		rows = append(rows, models.Setting{Key: key, Value: value})
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Refresh rebuilds the snapshot from the defaults and the stored rows.
// Rows that fail validation keep the default and are logged.
func (s *SettingsService) Refresh(ctx context.Context) error {
	var rows []models.Setting
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}

	next := s.defaults
	for _, row := range rows {
		if err := next.Apply(row.Key, row.Value); err != nil {
			s.Log.Warn("ignoring stored setting", zap.String("key", row.Key), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.rules = next
	s.mu.Unlock()
	return nil
}

// Set validates and persists one setting, then updates the snapshot.
func (s *SettingsService) Set(ctx context.Context, adminID, key, value string) (config.Rules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rules
	if err := next.Apply(key, value); err != nil {
		return s.rules, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	if next.MinWithdrawal.GreaterThan(next.MaxWithdrawal) {
		return s.rules, fmt.Errorf("%w: min_withdrawal exceeds max_withdrawal", ErrInvalidSetting)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return recordAdminAction(tx, adminID, "update_setting", fmt.Sprintf("%s=%s", key, value))
	})
	if err != nil {
		return s.rules, err
	}

	s.rules = next
	s.Log.Info("setting updated", zap.String("admin_id", adminID), zap.String("key", key), zap.String("value", value))
	return next, nil
}

// Values returns the effective rules as key/values.
func (s *SettingsService) Values() map[string]string {
	return s.Rules().Settings()
}
