package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ReferralStatusCompleted = "completed"

// Referral is the inviter → invited edge. Each account can be invited at most once.
type Referral struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	InviterID int64     `gorm:"index;not null" json:"inviter_id"`
	InvitedID int64     `gorm:"uniqueIndex;not null" json:"invited_id"`
	Status    string    `gorm:"size:20;not null;default:'completed'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
