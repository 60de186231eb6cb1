package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Setting is a runtime-editable business rule (key/value).
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminLog records every administrative mutation.
type AdminLog struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	AdminID   string    `gorm:"size:100;not null" json:"admin_id"`
	Action    string    `gorm:"size:100;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *AdminLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// All returns every persisted entity, in migration order.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&GameLogEntry{},
		&Referral{},
		&PromoCode{},
		&PromoUsage{},
		&Advertisement{},
		&AdView{},
		&Task{},
		&TaskCompletion{},
		&Withdrawal{},
		&Setting{},
		&AdminLog{},
	}
}
