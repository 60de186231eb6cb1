package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Task is a one-time activity (join a channel, follow an account, ...) that pays a reward.
type Task struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	Slug          string          `gorm:"size:100;uniqueIndex;not null" json:"task_id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	RewardEGP     decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_egp"`
	RewardTON     decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_ton"`
	RewardUSDT    decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_usdt"`
	RewardPlays   int             `gorm:"not null;default:0" json:"reward_plays"`
	TaskType      string          `gorm:"size:50;not null;default:'manual'" json:"task_type"`
	RequiredCount int             `gorm:"not null;default:1" json:"required_count"`
	IsActive      bool            `gorm:"not null;default:true;index" json:"is_active"`
	SortOrder     int             `gorm:"not null;default:0" json:"order"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Task) Rewards() Amounts {
	return Amounts{EGP: t.RewardEGP, TON: t.RewardTON, USDT: t.RewardUSDT}
}

// TaskCompletion is unique per (task, account).
type TaskCompletion struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	TaskID      string          `gorm:"type:uuid;not null;uniqueIndex:idx_task_completion_pair" json:"task_id"`
	AccountID   int64           `gorm:"not null;uniqueIndex:idx_task_completion_pair" json:"account_id"`
	RewardEGP   decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_egp"`
	RewardTON   decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_ton"`
	RewardUSDT  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"reward_usdt"`
	CompletedAt time.Time       `gorm:"autoCreateTime" json:"completed_at"`
}

func (c *TaskCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
