package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-user ledger record, keyed by the Telegram user id.
// Accounts are never deleted.
type Account struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username     string `gorm:"size:100" json:"username,omitempty"`
	FirstName    string `gorm:"size:100" json:"first_name,omitempty"`
	LastName     string `gorm:"size:100" json:"last_name,omitempty"`
	PhotoURL     string `gorm:"size:500" json:"photo_url,omitempty"`
	LanguageCode string `gorm:"size:16" json:"language_code,omitempty"`

	ReferralCode string `gorm:"size:20;uniqueIndex;not null" json:"referral_code"`
	ReferredBy   *int64 `gorm:"index" json:"referred_by,omitempty"` // set once at creation
	InviteCount  int    `gorm:"not null;default:0" json:"invite_count"`
	// Highest referral-threshold multiple already rewarded.
	ReferralRewardedMultiple int `gorm:"not null;default:0" json:"-"`

	PlaysAvailable int `gorm:"not null;default:0" json:"plays_available"`
	TotalPlays     int `gorm:"not null;default:0" json:"total_plays"`
	Wins           int `gorm:"not null;default:0" json:"wins"`
	RareWins       int `gorm:"not null;default:0" json:"rare_wins"`
	CompletedTasks int `gorm:"not null;default:0" json:"completed_tasks"`

	BalanceEGP  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"balance_egp"`
	BalanceTON  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"balance_ton"`
	BalanceUSDT decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"balance_usdt"`

	TotalEarningsEGP  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"total_earnings_egp"`
	TotalEarningsTON  decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"total_earnings_ton"`
	TotalEarningsUSDT decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"total_earnings_usdt"`

	IsBanned  bool `gorm:"not null;default:false" json:"is_banned"`
	IsPremium bool `gorm:"not null;default:false" json:"is_premium"`

	CreatedAt time.Time `json:"join_date" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Balances returns the spendable balances.
func (a *Account) Balances() Amounts {
	return Amounts{EGP: a.BalanceEGP, TON: a.BalanceTON, USDT: a.BalanceUSDT}
}

// Earnings returns the lifetime earnings counters.
func (a *Account) Earnings() Amounts {
	return Amounts{EGP: a.TotalEarningsEGP, TON: a.TotalEarningsTON, USDT: a.TotalEarningsUSDT}
}

func (a *Account) setBalances(b Amounts) {
	a.BalanceEGP, a.BalanceTON, a.BalanceUSDT = b.EGP, b.TON, b.USDT
}

func (a *Account) setEarnings(e Amounts) {
	a.TotalEarningsEGP, a.TotalEarningsTON, a.TotalEarningsUSDT = e.EGP, e.TON, e.USDT
}

// Credit adds non-negative amounts to both the balances and lifetime earnings.
func (a *Account) Credit(amt Amounts) {
	a.setBalances(a.Balances().Add(amt))
	a.setEarnings(a.Earnings().Add(amt))
}

// Debit subtracts v from one balance. It reports false, leaving the
// account untouched, when the balance would go negative.
func (a *Account) Debit(c Currency, v decimal.Decimal) bool {
	b := a.Balances()
	next := b.Get(c).Sub(v)
	if next.IsNegative() {
		return false
	}
	b.set(c, next)
	a.setBalances(b)
	return true
}
