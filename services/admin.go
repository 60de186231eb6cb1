package services

import (
	"context"
	"fmt"

	"luckyspin/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func recordAdminAction(tx *gorm.DB, adminID, action, details string) error {
	return tx.Create(&models.AdminLog{
		AdminID: adminID,
		Action:  action,
		Details: details,
	}).Error
}

type AdminService struct {
	Ledger *Ledger
}

func NewAdminService(ledger *Ledger) *AdminService {
	return &AdminService{Ledger: ledger}
}

// SetBanned bans or unbans an account.
func (s *AdminService) SetBanned(ctx context.Context, adminID string, accountID int64, banned bool) (*models.Account, error) {
	action := "unban_account"
	if banned {
		action = "ban_account"
	}
	var out models.Account
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		if err := uow.SetFlag(accountID, FlagBanned, banned); err != nil {
			return err
		}
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		out = *acc
		return recordAdminAction(uow.tx, adminID, action, fmt.Sprintf("account=%d", accountID))
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.Log.Info("admin account flag", zap.String("admin_id", adminID), zap.String("action", action), zap.Int64("account_id", accountID))
	return &out, nil
}

// GrantPlays adds plays to an account.
func (s *AdminService) GrantPlays(ctx context.Context, adminID string, accountID int64, plays int) (*models.Account, error) {
	if plays <= 0 {
		return nil, ErrInvalidAmount
	}
	var out models.Account
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		if err := uow.IncrementCounters(accountID, Counters{PlaysAvailable: plays}); err != nil {
			return err
		}
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		out = *acc
		return recordAdminAction(uow.tx, adminID, "grant_plays", fmt.Sprintf("account=%d plays=%d", accountID, plays))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs returns the most recent admin actions.
func (s *AdminService) Logs(ctx context.Context, limit int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AdminLog
	err := s.Ledger.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
