package services

import (
	"context"
	"errors"
	"fmt"

	"luckyspin/config"
	"luckyspin/models"
	"luckyspin/monitoring"
	"luckyspin/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalService struct {
	Ledger  *Ledger
	Gateway PaymentGateway
}

func NewWithdrawalService(ledger *Ledger, gateway PaymentGateway) *WithdrawalService {
	return &WithdrawalService{Ledger: ledger, Gateway: gateway}
}

type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Destination   string          `json:"destination"`
}

// rateFor returns units of c per 1 EGP.
func rateFor(r config.Rules, c models.Currency) decimal.Decimal {
	switch c {
	case models.CurrencyTON:
		return r.RateTON
	case models.CurrencyUSDT:
		return r.RateUSDT
	}
	return r.RateEGP
}

// ToEGP converts amount of c into EGP with the configured rates.
func ToEGP(r config.Rules, c models.Currency, amount decimal.Decimal) decimal.Decimal {
	rate := rateFor(r, c)
	if !rate.IsPositive() {
		return amount
	}
	return amount.Div(rate)
}

// Request admits a withdrawal: bounds (in EGP), method and destination
// format, then the balance under the account lock. Success creates a
// pending record; balances are only debited at settlement.
func (s *WithdrawalService) Request(ctx context.Context, accountID int64, req WithdrawalRequest) (*models.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	currency, err := models.ParseCurrency(req.Currency)
	if err != nil {
		return nil, ErrInvalidCurrency
	}
	method, ok := lookupPaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, ErrInvalidMethod
	}
	if method.Currency != currency {
		return nil, ErrInvalidCurrency
	}

	var w *models.Withdrawal
	err = s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		rules := uow.Rules()
		if !rules.WithdrawalsEnabled {
			return ErrFeatureDisabled
		}
		egp := ToEGP(rules, currency, req.Amount)
		if egp.LessThan(rules.MinWithdrawal) {
			return ErrAmountBelowMin
		}
		if egp.GreaterThan(rules.MaxWithdrawal) {
			return ErrAmountAboveMax
		}
		if err := s.Gateway.ValidateDestination(method.ID, req.Destination); err != nil {
			return err
		}

		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		if acc.IsBanned {
			return ErrAccountBanned
		}
		if acc.Balances().Get(currency).LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		w = &models.Withdrawal{
			AccountID:     accountID,
			Amount:        req.Amount,
			Fee:           method.Fee(req.Amount),
			Currency:      currency,
			PaymentMethod: method.ID,
			Destination:   req.Destination,
			Status:        models.WithdrawalPending,
		}
		return uow.tx.Create(w).Error
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.Log.Info("withdrawal requested",
		zap.Int64("account_id", accountID),
		zap.String("withdrawal_id", w.ID),
		zap.String("amount", w.Amount.String()),
		zap.String("currency", string(w.Currency)))
	return w, nil
}

// ForAccount lists an account's withdrawals, newest first.
func (s *WithdrawalService) ForAccount(ctx context.Context, accountID int64) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := s.Ledger.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(50).
		Find(&out).Error
	return out, err
}

// List returns withdrawals in the given status (all when empty), oldest first.
func (s *WithdrawalService) List(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	db := s.Ledger.DB.WithContext(ctx).Order("created_at ASC").Limit(limit)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var out []models.Withdrawal
	err := db.Find(&out).Error
	return out, err
}

// transition moves a pending withdrawal to its final state. Lock order is
// account then withdrawal, same as every other unit touching the account.
func (s *WithdrawalService) transition(ctx context.Context, id string, apply func(uow *UnitOfWork, w *models.Withdrawal) error) (*models.Withdrawal, error) {
	var out models.Withdrawal
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		var w models.Withdrawal
		err := uow.tx.Select("id", "account_id").First(&w, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWithdrawalMissing
		}
		if err != nil {
			return err
		}
		if _, err := uow.Account(w.AccountID); err != nil {
			return err
		}
		if err := uow.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "id = ?", id).Error; err != nil {
			return err
		}
		if w.Status != models.WithdrawalPending {
			return ErrNotPending
		}
		if err := apply(uow, &w); err != nil {
			return err
		}
		now := uow.Now()
		w.ProcessedAt = &now
		if err := uow.tx.Save(&w).Error; err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete debits the account and marks the withdrawal completed with the
// provider reference.
func (s *WithdrawalService) Complete(ctx context.Context, id, reference, adminID string) (*models.Withdrawal, error) {
	var lang string
	w, err := s.transition(ctx, id, func(uow *UnitOfWork, w *models.Withdrawal) error {
		if err := uow.DebitBalance(w.AccountID, w.Currency, w.Amount); err != nil {
			return err
		}
		acc, err := uow.Account(w.AccountID)
		if err != nil {
			return err
		}
		lang = acc.LanguageCode
		w.Status = models.WithdrawalCompleted
		w.TransactionID = &reference
		if adminID != "" {
			return recordAdminAction(uow.tx, adminID, "complete_withdrawal", fmt.Sprintf("id=%s ref=%s", w.ID, reference))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.RewardGrantsTotal.WithLabelValues("withdrawal_completed").Inc()
	s.Ledger.Log.Info("withdrawal completed", zap.String("withdrawal_id", w.ID), zap.String("reference", reference))
	s.Ledger.notify(ctx, w.AccountID, utils.Localize(lang, "notify_withdrawal_completed", w.Amount.String(), w.Currency, reference))
	return w, nil
}

// Reject closes the withdrawal without touching the balance.
func (s *WithdrawalService) Reject(ctx context.Context, id, note, adminID string) (*models.Withdrawal, error) {
	var lang string
	w, err := s.transition(ctx, id, func(uow *UnitOfWork, w *models.Withdrawal) error {
		acc, err := uow.Account(w.AccountID)
		if err != nil {
			return err
		}
		lang = acc.LanguageCode
		w.Status = models.WithdrawalRejected
		w.Notes = note
		if adminID != "" {
			return recordAdminAction(uow.tx, adminID, "reject_withdrawal", fmt.Sprintf("id=%s note=%s", w.ID, note))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.Log.Info("withdrawal rejected", zap.String("withdrawal_id", w.ID), zap.String("note", note))
	s.Ledger.notify(ctx, w.AccountID, utils.Localize(lang, "notify_withdrawal_rejected", w.Amount.String(), w.Currency, note))
	return w, nil
}

// SettlementReport summarizes one SubmitPending pass.
type SettlementReport struct {
	Completed int
	Rejected  int
	Deferred  int
}

// SubmitPending pushes pending withdrawals to the payment gateway. Each row
// is claimed under the account and withdrawal locks before the provider is
// called, so a withdrawal is submitted at most once across concurrent
// passes. Balances that no longer cover the amount and provider refusals
// reject the withdrawal. A claimed row whose submission or booking failed
// stays pending and claimed until an operator completes, rejects or
// requeues it.
func (s *WithdrawalService) SubmitPending(ctx context.Context, batch int) (SettlementReport, error) {
	var report SettlementReport
	pending, err := s.unclaimed(ctx, batch)
	if err != nil {
		return report, err
	}

	for i := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		log := s.Ledger.Log.With(zap.String("withdrawal_id", pending[i].ID), zap.Int64("account_id", pending[i].AccountID))

		w, outcome, err := s.claim(ctx, pending[i].ID)
		if err != nil {
			log.Warn("settlement claim failed", zap.Error(err))
			report.Deferred++
			continue
		}
		switch outcome {
		case claimTaken:
			continue
		case claimUnfunded:
			report.Rejected++
			continue
		}

		ref, err := s.Gateway.SubmitWithdrawal(ctx, w)
		var declined *PaymentDeclined
		switch {
		case errors.As(err, &declined):
			if _, err := s.Reject(ctx, w.ID, declined.Reason, ""); err != nil {
				log.Warn("settlement reject failed", zap.Error(err))
				report.Deferred++
				continue
			}
			report.Rejected++
		case err != nil:
			log.Error("payment submission failed, needs reconciliation", zap.Error(err))
			report.Deferred++
		default:
			if _, err := s.Complete(ctx, w.ID, ref, ""); err != nil {
				log.Error("settlement booking failed, needs reconciliation", zap.String("reference", ref), zap.Error(err))
				report.Deferred++
				continue
			}
			report.Completed++
		}
	}
	return report, nil
}

// unclaimed lists pending withdrawals no settlement pass has claimed yet,
// oldest first.
func (s *WithdrawalService) unclaimed(ctx context.Context, limit int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.Withdrawal
	err := s.Ledger.DB.WithContext(ctx).
		Where("status = ? AND submitted_at IS NULL", models.WithdrawalPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

type claimOutcome int

const (
	claimed claimOutcome = iota
	claimTaken
	claimUnfunded
)

// claim marks a pending withdrawal as submitted. Rows already claimed or
// closed by another pass report claimTaken; rows the balance no longer
// covers are rejected in the same unit.
func (s *WithdrawalService) claim(ctx context.Context, id string) (*models.Withdrawal, claimOutcome, error) {
	var (
		out     models.Withdrawal
		outcome claimOutcome
		lang    string
	)
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		outcome = claimed
		var w models.Withdrawal
		err := uow.tx.Select("id", "account_id").First(&w, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = claimTaken
			return nil
		}
		if err != nil {
			return err
		}
		acc, err := uow.Account(w.AccountID)
		if err != nil {
			return err
		}
		if err := uow.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "id = ?", id).Error; err != nil {
			return err
		}
		if w.Status != models.WithdrawalPending || w.SubmittedAt != nil {
			outcome = claimTaken
			return nil
		}

		now := uow.Now()
		if acc.Balances().Get(w.Currency).LessThan(w.Amount) {
			outcome = claimUnfunded
			lang = acc.LanguageCode
			w.Status = models.WithdrawalRejected
			w.Notes = ErrInsufficientFunds.Code
			w.ProcessedAt = &now
			out = w
			return uow.tx.Save(&w).Error
		}

		res := uow.tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ? AND submitted_at IS NULL", id, models.WithdrawalPending).
			Update("submitted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			outcome = claimTaken
			return nil
		}
		w.SubmittedAt = &now
		out = w
		return nil
	})
	if err != nil {
		return nil, claimTaken, err
	}
	if outcome == claimUnfunded {
		s.Ledger.Log.Info("withdrawal rejected", zap.String("withdrawal_id", out.ID), zap.String("note", out.Notes))
		s.Ledger.notify(ctx, out.AccountID, utils.Localize(lang, "notify_withdrawal_rejected", out.Amount.String(), out.Currency, out.Notes))
	}
	return &out, outcome, nil
}

// Requeue releases a settlement claim so the next pass submits the
// withdrawal again. Operators use it once the provider confirms the earlier
// submission never went through.
func (s *WithdrawalService) Requeue(ctx context.Context, id, adminID string) (*models.Withdrawal, error) {
	var out models.Withdrawal
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		err := uow.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWithdrawalMissing
		}
		if err != nil {
			return err
		}
		if out.Status != models.WithdrawalPending {
			return ErrNotPending
		}
		if out.SubmittedAt == nil {
			return nil
		}
		out.SubmittedAt = nil
		if err := uow.tx.Model(&out).Update("submitted_at", nil).Error; err != nil {
			return err
		}
		return recordAdminAction(uow.tx, adminID, "requeue_withdrawal", fmt.Sprintf("id=%s", out.ID))
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.Log.Info("withdrawal requeued", zap.String("withdrawal_id", out.ID), zap.String("admin_id", adminID))
	return &out, nil
}
