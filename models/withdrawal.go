package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is a debit request. The ledger is only debited on the
// pending → completed transition. SubmittedAt is set when a settlement pass
// claims the row; a claimed row is never sent to the provider again.
type Withdrawal struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID     int64            `gorm:"index;not null" json:"account_id"`
	Amount        decimal.Decimal  `gorm:"type:numeric(24,8);not null" json:"amount"`
	Fee           decimal.Decimal  `gorm:"type:numeric(24,8);not null;default:0" json:"fee"`
	Currency      Currency         `gorm:"size:10;not null" json:"currency"`
	PaymentMethod string           `gorm:"size:50;not null" json:"payment_method"`
	Destination   string           `gorm:"size:200;not null" json:"destination"`
	Status        WithdrawalStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TransactionID *string          `gorm:"size:100" json:"transaction_id,omitempty"`
	Notes         string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	SubmittedAt   *time.Time       `gorm:"index" json:"submitted_at,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
