package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromoKind is what a promo code grants.
type PromoKind string

const (
	PromoKindPlays   PromoKind = "plays"
	PromoKindBalance PromoKind = "balance"
	PromoKindPremium PromoKind = "premium"
)

// PromoCode is a redeemable token. Code is stored upper-cased.
type PromoCode struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Kind        PromoKind       `gorm:"size:20;not null" json:"kind"`
	RewardValue decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"reward_value"`
	Currency    Currency        `gorm:"size:10;not null;default:'EGP'" json:"currency"`
	MaxUses     int             `gorm:"not null;default:100" json:"max_uses"`
	UsedCount   int             `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedBy   string          `gorm:"size:100" json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *PromoCode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PromoUsage enforces one redemption per (promo, account).
type PromoUsage struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	PromoID        string          `gorm:"type:uuid;not null;uniqueIndex:idx_promo_usage_pair" json:"promo_id"`
	AccountID      int64           `gorm:"not null;uniqueIndex:idx_promo_usage_pair" json:"account_id"`
	RewardReceived decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_received"`
	UsedAt         time.Time       `gorm:"autoCreateTime" json:"used_at"`
}

func (u *PromoUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
