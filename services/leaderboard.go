package services

import (
	"context"

	"luckyspin/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// LeaderboardEntry exposes only public account fields.
type LeaderboardEntry struct {
	Rank             int             `json:"rank"`
	Username         string          `json:"username"`
	FirstName        string          `json:"first_name"`
	PhotoURL         string          `json:"photo_url,omitempty"`
	Wins             int             `json:"wins"`
	RareWins         int             `json:"rare_wins"`
	TotalEarningsEGP decimal.Decimal `json:"total_earnings_egp"`
}

// Top ranks non-banned accounts by rare wins, then wins.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var accounts []models.Account
	err := s.DB.WithContext(ctx).
		Where("is_banned = ?", false).
		Order("rare_wins DESC, wins DESC, id ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	res := make([]LeaderboardEntry, len(accounts))
	for i, a := range accounts {
		res[i] = LeaderboardEntry{
			Rank:             i + 1,
			Username:         a.Username,
			FirstName:        a.FirstName,
			PhotoURL:         a.PhotoURL,
			Wins:             a.Wins,
			RareWins:         a.RareWins,
			TotalEarningsEGP: a.TotalEarningsEGP,
		}
	}
	return res, nil
}

type Stats struct {
	Accounts             int64 `json:"total_users"`
	Plays                int64 `json:"total_games"`
	Wins                 int64 `json:"total_wins"`
	RareWins             int64 `json:"total_rare_wins"`
	Referrals            int64 `json:"total_referrals"`
	CompletedWithdrawals int64 `json:"completed_withdrawals"`
	PendingWithdrawals   int64 `json:"pending_withdrawals"`
}

// Stats aggregates global counters.
func (s *LeaderboardService) Stats(ctx context.Context) (*Stats, error) {
	db := s.DB.WithContext(ctx)
	var st Stats

	if err := db.Model(&models.Account{}).Count(&st.Accounts).Error; err != nil {
		return nil, err
	}
	var sums struct {
		Plays    int64
		Wins     int64
		RareWins int64
	}
	err := db.Model(&models.Account{}).
		Select("COALESCE(SUM(total_plays), 0) AS plays, COALESCE(SUM(wins), 0) AS wins, COALESCE(SUM(rare_wins), 0) AS rare_wins").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	st.Plays, st.Wins, st.RareWins = sums.Plays, sums.Wins, sums.RareWins

	if err := db.Model(&models.Referral{}).Count(&st.Referrals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalCompleted).Count(&st.CompletedWithdrawals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalPending).Count(&st.PendingWithdrawals).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
