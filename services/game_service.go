package services

import (
	"context"

	"luckyspin/models"
	"luckyspin/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GameService struct {
	Ledger    *Ledger
	Generator *RewardGenerator
}

func NewGameService(ledger *Ledger, generator *RewardGenerator) *GameService {
	return &GameService{Ledger: ledger, Generator: generator}
}

// PlayResult is the draw together with the post-play account snapshot.
type PlayResult struct {
	Draw    Draw            `json:"draw"`
	Account *models.Account `json:"account"`
}

// Play consumes one play, draws a reward and credits it, all in one unit of
// work: no other transaction can observe the decrement without the credit.
func (s *GameService) Play(ctx context.Context, accountID int64) (*PlayResult, error) {
	var result PlayResult
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		if acc.IsBanned {
			return ErrAccountBanned
		}

		ok, err := uow.ConsumePlay(accountID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoPlaysAvailable
		}

		draw := s.Generator.Draw(uow.Rules().RareWinChance)
		if err := uow.CreditBalances(accountID, draw.Rewards); err != nil {
			return err
		}

		counters := Counters{Wins: 1}
		if draw.Outcome == models.OutcomeRare {
			counters.RareWins = 1
		}
		if err := uow.IncrementCounters(accountID, counters); err != nil {
			return err
		}

		entry := &models.GameLogEntry{
			AccountID:  accountID,
			Number:     draw.Number,
			Outcome:    draw.Outcome,
			RewardEGP:  draw.Rewards.EGP,
			RewardTON:  draw.Rewards.TON,
			RewardUSDT: draw.Rewards.USDT,
		}
		if err := uow.AppendGameLog(entry); err != nil {
			return err
		}

		snapshot := *acc
		result = PlayResult{Draw: draw, Account: &snapshot}

		uow.OnCommit(func(context.Context) {
			monitoring.PlaysTotal.WithLabelValues(string(draw.Outcome)).Inc()
			s.Ledger.Log.Debug("play resolved",
				zap.Int64("account_id", accountID),
				zap.Int("number", draw.Number),
				zap.String("outcome", string(draw.Outcome)))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// History returns the account's game log, newest first.
func (s *GameService) History(ctx context.Context, accountID int64, page, pageSize int) ([]models.GameLogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	db := s.Ledger.DB.WithContext(ctx).Model(&models.GameLogEntry{}).Where("account_id = ?", accountID).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.GameLogEntry
	err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
