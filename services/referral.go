package services

import (
	"context"
	"time"

	"luckyspin/models"
	"luckyspin/monitoring"
	"luckyspin/utils"

	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// triggerReferralReward grants the inviter the referral reward for every
// threshold multiple of completed referrals not yet rewarded. The inviter row
// lock serializes concurrent triggers, and the rewarded multiple is persisted
// on the account, so each multiple pays out exactly once.
func (u *UnitOfWork) triggerReferralReward(inviterID int64) error {
	inviter, err := u.Account(inviterID)
	if err != nil {
		return err
	}

	var completed int64
	err = u.tx.Model(&models.Referral{}).
		Where("inviter_id = ? AND status = ?", inviterID, models.ReferralStatusCompleted).
		Count(&completed).Error
	if err != nil {
		return err
	}

	threshold := u.rules.ReferralThreshold
	if threshold <= 0 {
		return nil
	}
	multiple := int(completed) / threshold
	if multiple <= inviter.ReferralRewardedMultiple {
		return nil
	}
	grants := multiple - inviter.ReferralRewardedMultiple
	plays := grants * u.rules.ReferralRewardPlays

	for i := 0; i < grants; i++ {
		marker := &models.GameLogEntry{
			AccountID: inviterID,
			Outcome:   models.OutcomeReferralReward,
		}
		if err := u.AppendGameLog(marker); err != nil {
			return err
		}
	}

	inviter.ReferralRewardedMultiple = multiple
	if err := u.IncrementCounters(inviterID, Counters{PlaysAvailable: plays, InviteCount: grants}); err != nil {
		return err
	}

	lang := inviter.LanguageCode
	invited := int(completed)
	u.OnCommit(func(ctx context.Context) {
		monitoring.RewardGrantsTotal.WithLabelValues("referral").Add(float64(grants))
		u.ledger.Log.Info("referral reward granted",
			zap.Int64("account_id", inviterID),
			zap.Int("multiple", multiple),
			zap.Int("plays", plays))
		u.ledger.notify(ctx, inviterID, utils.Localize(lang, "notify_referral_reward", invited, plays))
	})
	return nil
}

// notify delivers text in the background, detached from the request.
func (l *Ledger) notify(ctx context.Context, accountID int64, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := l.notifier.Notify(ctx, accountID, text); err != nil {
			l.Log.Warn("notification not delivered", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}()
}
