package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luckyspin/models"
	"luckyspin/monitoring"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultAdValidDays = 7

type AdService struct {
	Ledger *Ledger
}

func NewAdService(ledger *Ledger) *AdService {
	return &AdService{Ledger: ledger}
}

// dayBounds returns the UTC calendar day containing t as [start, end).
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// RecordView admits one view of adID under the ad's per-account daily cap and
// returns the unrewarded view. The account row lock makes count-then-insert
// atomic with respect to concurrent views by the same account.
func (s *AdService) RecordView(ctx context.Context, accountID int64, adID string) (*models.AdView, error) {
	var view *models.AdView
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		if !uow.Rules().AdsEnabled {
			return ErrFeatureDisabled
		}
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		if acc.IsBanned {
			return ErrAccountBanned
		}

		var ad models.Advertisement
		err = uow.tx.Where("id = ? AND is_active = ?", adID, true).First(&ad).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdNotFound
		}
		if err != nil {
			return err
		}
		if ad.ExpiresAt != nil && !uow.Now().Before(*ad.ExpiresAt) {
			return ErrAdExpired
		}

		start, end := dayBounds(uow.Now())
		var today int64
		err = uow.tx.Model(&models.AdView{}).
			Where("ad_id = ? AND account_id = ? AND viewed_at >= ? AND viewed_at < ?", ad.ID, accountID, start, end).
			Count(&today).Error
		if err != nil {
			return err
		}
		if today >= int64(ad.MaxDailyViews) {
			return ErrThrottleExceeded
		}

		view = &models.AdView{
			AdID:      ad.ID,
			AccountID: accountID,
			ViewedAt:  uow.Now(),
		}
		return uow.tx.Create(view).Error
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AdReward is what RewardView credited.
type AdReward struct {
	ViewID  string          `json:"view_id"`
	Rewards models.Amounts  `json:"rewards"`
	Plays   int             `json:"plays"`
	Account *models.Account `json:"account"`
}

// RewardView releases the reward of an unrewarded view owned by accountID.
// A view that was already rewarded yields ErrAlreadyRewarded and changes nothing.
func (s *AdService) RewardView(ctx context.Context, accountID int64, viewID string) (*AdReward, error) {
	var out AdReward
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}

		var view models.AdView
		err = uow.tx.Where("id = ? AND account_id = ?", viewID, accountID).First(&view).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrViewNotFound
		}
		if err != nil {
			return err
		}
		if view.Rewarded {
			return ErrAlreadyRewarded
		}

		var ad models.Advertisement
		if err := uow.tx.First(&ad, "id = ?", view.AdID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdNotFound
			}
			return err
		}

		if err := uow.CreditBalances(accountID, ad.Rewards()); err != nil {
			return err
		}
		if ad.RewardPlays > 0 {
			if err := uow.IncrementCounters(accountID, Counters{PlaysAvailable: ad.RewardPlays}); err != nil {
				return err
			}
		}

		// Guarded update: a concurrent reward of the same view matches no row.
		res := uow.tx.Model(&models.AdView{}).
			Where("id = ? AND rewarded = ?", view.ID, false).
			Update("rewarded", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRewarded
		}

		snapshot := *acc
		out = AdReward{ViewID: view.ID, Rewards: ad.Rewards(), Plays: ad.RewardPlays, Account: &snapshot}
		uow.OnCommit(func(context.Context) {
			monitoring.RewardGrantsTotal.WithLabelValues("ad_view").Inc()
			s.Ledger.Log.Debug("ad view rewarded",
				zap.Int64("account_id", accountID),
				zap.String("view_id", view.ID))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Active lists ads that are active and not expired.
func (s *AdService) Active(ctx context.Context) ([]models.Advertisement, error) {
	var ads []models.Advertisement
	err := s.Ledger.DB.WithContext(ctx).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, s.Ledger.Now()).
		Order("created_at DESC").
		Find(&ads).Error
	return ads, err
}

type CreateAdInput struct {
	AdCode        string          `json:"ad_code"`
	Title         string          `json:"title"`
	RewardEGP     decimal.Decimal `json:"reward_egp"`
	RewardTON     decimal.Decimal `json:"reward_ton"`
	RewardUSDT    decimal.Decimal `json:"reward_usdt"`
	RewardPlays   int             `json:"reward_plays"`
	RequiredViews int             `json:"required_views"`
	MaxDailyViews int             `json:"max_daily_views"`
	ValidDays     int             `json:"valid_days"`
}

func (s *AdService) Create(ctx context.Context, adminID string, in CreateAdInput) (*models.Advertisement, error) {
	if in.AdCode == "" {
		return nil, ErrInvalidRequest
	}
	rewards := models.Amounts{EGP: in.RewardEGP, TON: in.RewardTON, USDT: in.RewardUSDT}
	if rewards.IsNegative() || in.RewardPlays < 0 {
		return nil, ErrInvalidAmount
	}
	if in.RequiredViews <= 0 {
		in.RequiredViews = 1
	}
	if in.MaxDailyViews <= 0 {
		in.MaxDailyViews = 10
	}
	if in.ValidDays <= 0 {
		in.ValidDays = defaultAdValidDays
	}
	expires := s.Ledger.Now().AddDate(0, 0, in.ValidDays)

	ad := &models.Advertisement{
		AdCode:        in.AdCode,
		Title:         in.Title,
		RewardEGP:     in.RewardEGP,
		RewardTON:     in.RewardTON,
		RewardUSDT:    in.RewardUSDT,
		RewardPlays:   in.RewardPlays,
		RequiredViews: in.RequiredViews,
		MaxDailyViews: in.MaxDailyViews,
		IsActive:      true,
		ExpiresAt:     &expires,
	}
	err := s.Ledger.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ad).Error; err != nil {
			return err
		}
		return recordAdminAction(tx, adminID, "create_ad", fmt.Sprintf("id=%s title=%s", ad.ID, ad.Title))
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// DeactivateExpired switches off ads whose expiry has passed.
func (s *AdService) DeactivateExpired(ctx context.Context) (int64, error) {
	res := s.Ledger.DB.WithContext(ctx).Model(&models.Advertisement{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, s.Ledger.Now()).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
