package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Outcome classifies a GameLogEntry.
type Outcome string

const (
	OutcomeNormal         Outcome = "normal"
	OutcomeRare           Outcome = "rare"
	OutcomeReferralReward Outcome = "referral_reward"
)

// GameLogEntry is an append-only record of a draw or a referral reward marker.
type GameLogEntry struct {
	ID         string          `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID  int64           `gorm:"index;not null" json:"account_id"`
	Number     int             `gorm:"not null" json:"number"`
	Outcome    Outcome         `gorm:"size:32;index;not null" json:"outcome"`
	RewardEGP  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_egp"`
	RewardTON  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_ton"`
	RewardUSDT decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_usdt"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

func (GameLogEntry) TableName() string { return "game_logs" }

func (e *GameLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Rewards returns the per-currency reward of the entry.
func (e *GameLogEntry) Rewards() Amounts {
	return Amounts{EGP: e.RewardEGP, TON: e.RewardTON, USDT: e.RewardUSDT}
}
