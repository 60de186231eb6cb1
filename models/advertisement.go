package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Advertisement is a rewardable ad placement with a per-account daily view cap.
type Advertisement struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	AdCode        string          `gorm:"type:text;not null" json:"ad_code"`
	Title         string          `gorm:"size:200" json:"title"`
	RewardEGP     decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_egp"`
	RewardTON     decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_ton"`
	RewardUSDT    decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_usdt"`
	RewardPlays   int             `gorm:"not null;default:0" json:"reward_plays"`
	RequiredViews int             `gorm:"not null;default:1" json:"required_views"`
	MaxDailyViews int             `gorm:"not null;default:10" json:"max_daily_views"`
	IsActive      bool            `gorm:"not null;default:true;index" json:"is_active"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (a *Advertisement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Advertisement) Rewards() Amounts {
	return Amounts{EGP: a.RewardEGP, TON: a.RewardTON, USDT: a.RewardUSDT}
}

// AdView is one admitted view; Rewarded flips once.
type AdView struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	AdID      string    `gorm:"type:uuid;not null;index:idx_ad_views_daily" json:"ad_id"`
	AccountID int64     `gorm:"not null;index:idx_ad_views_daily" json:"account_id"`
	ViewedAt  time.Time `gorm:"not null;index:idx_ad_views_daily" json:"viewed_at"`
	Rewarded  bool      `gorm:"not null;default:false" json:"rewarded"`
}

func (v *AdView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
