package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"luckyspin/models"
	"luckyspin/monitoring"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PromoService struct {
	Ledger *Ledger
}

func NewPromoService(ledger *Ledger) *PromoService {
	return &PromoService{Ledger: ledger}
}

// PromoRedemption describes what a successful redemption granted.
type PromoRedemption struct {
	Code     string           `json:"code"`
	Kind     models.PromoKind `json:"kind"`
	Value    decimal.Decimal  `json:"value"`
	Currency models.Currency  `json:"currency,omitempty"`
	Account  *models.Account  `json:"account"`
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeem applies a promo code to the account. Checks run in order, first
// failure wins: unknown or inactive, already used by this account, expired,
// usage cap reached. Validation, grant, usage row and used-count increment
// share one unit with the account and promo rows locked (in that order).
func (s *PromoService) Redeem(ctx context.Context, accountID int64, code string) (*PromoRedemption, error) {
	code = normalizePromoCode(code)
	if code == "" {
		return nil, ErrInvalidRequest
	}

	var out PromoRedemption
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		if !uow.Rules().PromosEnabled {
			return ErrFeatureDisabled
		}
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		if acc.IsBanned {
			return ErrAccountBanned
		}

		var promo models.PromoCode
		err = uow.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND is_active = ?", code, true).
			First(&promo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPromoNotFound
		}
		if err != nil {
			return err
		}

		var used int64
		err = uow.tx.Model(&models.PromoUsage{}).
			Where("promo_id = ? AND account_id = ?", promo.ID, accountID).
			Count(&used).Error
		if err != nil {
			return err
		}
		if used > 0 {
			return ErrPromoAlreadyUsed
		}
		if promo.ExpiresAt != nil && !uow.Now().Before(*promo.ExpiresAt) {
			return ErrPromoExpired
		}
		if promo.UsedCount >= promo.MaxUses {
			return ErrPromoExhausted
		}

		switch promo.Kind {
		case models.PromoKindPlays:
			err = uow.IncrementCounters(accountID, Counters{PlaysAvailable: int(promo.RewardValue.IntPart())})
		case models.PromoKindBalance:
			err = uow.CreditBalances(accountID, models.Single(promo.Currency, promo.RewardValue))
		case models.PromoKindPremium:
			err = uow.SetFlag(accountID, FlagPremium, true)
		default:
			err = fmt.Errorf("promo %s has unknown kind %q", promo.Code, promo.Kind)
		}
		if err != nil {
			return err
		}

		usage := &models.PromoUsage{
			PromoID:        promo.ID,
			AccountID:      accountID,
			RewardReceived: promo.RewardValue,
		}
		if err := uow.tx.Create(usage).Error; err != nil {
			return err
		}
		if err := uow.tx.Model(&promo).Update("used_count", promo.UsedCount+1).Error; err != nil {
			return err
		}

		snapshot := *acc
		out = PromoRedemption{
			Code:    promo.Code,
			Kind:    promo.Kind,
			Value:   promo.RewardValue,
			Account: &snapshot,
		}
		if promo.Kind == models.PromoKindBalance {
			out.Currency = promo.Currency
		}

		uow.OnCommit(func(context.Context) {
			monitoring.RewardGrantsTotal.WithLabelValues("promo").Inc()
			s.Ledger.Log.Info("promo redeemed",
				zap.Int64("account_id", accountID),
				zap.String("promo_code", code))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePromoInput is the admin request for a new code. ExpiresInDays falls
// back to the configured promo expiry.
type CreatePromoInput struct {
	Code          string          `json:"code"`
	Kind          string          `json:"kind"`
	RewardValue   decimal.Decimal `json:"reward_value"`
	Currency      string          `json:"currency"`
	MaxUses       int             `json:"max_uses"`
	ExpiresInDays int             `json:"expires_in_days"`
}

func (s *PromoService) Create(ctx context.Context, adminID string, in CreatePromoInput) (*models.PromoCode, error) {
	code := normalizePromoCode(in.Code)
	if code == "" || len(code) > 50 {
		return nil, ErrInvalidRequest
	}

	promo := &models.PromoCode{
		Code:        code,
		Kind:        models.PromoKind(strings.ToLower(in.Kind)),
		RewardValue: in.RewardValue,
		Currency:    models.CurrencyEGP,
		MaxUses:     in.MaxUses,
		IsActive:    true,
		CreatedBy:   adminID,
	}
	switch promo.Kind {
	case models.PromoKindPlays:
		if !promo.RewardValue.IsInteger() || !promo.RewardValue.IsPositive() {
			return nil, ErrInvalidAmount
		}
	case models.PromoKindBalance:
		if !promo.RewardValue.IsPositive() {
			return nil, ErrInvalidAmount
		}
		if in.Currency != "" {
			c, err := models.ParseCurrency(in.Currency)
			if err != nil {
				return nil, ErrInvalidCurrency
			}
			promo.Currency = c
		}
	case models.PromoKindPremium:
		promo.RewardValue = decimal.Zero
	default:
		return nil, ErrInvalidRequest
	}
	if promo.MaxUses <= 0 {
		promo.MaxUses = 100
	}

	days := in.ExpiresInDays
	if days <= 0 {
		days = s.Ledger.Rules.Rules().PromoExpiryDays
	}
	expires := s.Ledger.Now().Add(time.Duration(days) * 24 * time.Hour)
	promo.ExpiresAt = &expires

	err := s.Ledger.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(promo).Error; err != nil {
			return err
		}
		return recordAdminAction(tx, adminID, "create_promo", fmt.Sprintf("code=%s kind=%s value=%s", promo.Code, promo.Kind, promo.RewardValue))
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrPromoCodeTaken
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// List returns every promo code, newest first.
func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := s.Ledger.DB.WithContext(ctx).Order("created_at DESC").Find(&promos).Error
	return promos, err
}
