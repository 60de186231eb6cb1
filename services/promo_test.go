package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPromo(t *testing.T, s *PromoService, in CreatePromoInput) *models.PromoCode {
	t.Helper()
	promo, err := s.Create(context.Background(), "admin", in)
	require.NoError(t, err)
	return promo
}

func TestRedeemPlaysPromo(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	createPromo(t, s, CreatePromoInput{Code: "spin5", Kind: "plays", RewardValue: decimal.NewFromInt(5), MaxUses: 10})
	ctx := context.Background()

	out, err := s.Redeem(ctx, 1, " Spin5 ")
	require.NoError(t, err)
	assert.Equal(t, "SPIN5", out.Code)
	assert.Equal(t, models.PromoKindPlays, out.Kind)
	assert.Equal(t, 6, mustAccount(t, l, 1).PlaysAvailable)

	_, err = s.Redeem(ctx, 1, "SPIN5")
	assert.ErrorIs(t, err, ErrPromoAlreadyUsed)
	assert.Equal(t, 6, mustAccount(t, l, 1).PlaysAvailable)

	var promo models.PromoCode
	require.NoError(t, l.DB.First(&promo, "code = ?", "SPIN5").Error)
	assert.Equal(t, 1, promo.UsedCount)
}

func TestRedeemBalanceAndPremiumPromos(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	createPromo(t, s, CreatePromoInput{Code: "TON", Kind: "balance", RewardValue: decimal.RequireFromString("0.5"), Currency: "ton"})
	createPromo(t, s, CreatePromoInput{Code: "VIP", Kind: "premium"})
	ctx := context.Background()

	out, err := s.Redeem(ctx, 1, "ton")
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyTON, out.Currency)

	_, err = s.Redeem(ctx, 1, "vip")
	require.NoError(t, err)

	acc := mustAccount(t, l, 1)
	assert.True(t, acc.BalanceTON.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, acc.TotalEarningsTON.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, acc.BalanceEGP.IsZero())
	assert.True(t, acc.IsPremium)
}

func TestRedeemRejections(t *testing.T) {
	l, clock := newTestLedger(t, config.DefaultRules())
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	seedAccount(t, l, 2, func(a *models.Account) { a.IsBanned = true })
	createPromo(t, s, CreatePromoInput{Code: "SOON", Kind: "plays", RewardValue: decimal.NewFromInt(1), ExpiresInDays: 1})
	ctx := context.Background()

	_, err := s.Redeem(ctx, 1, "MISSING")
	assert.ErrorIs(t, err, ErrPromoNotFound)

	_, err = s.Redeem(ctx, 1, "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Redeem(ctx, 2, "SOON")
	assert.ErrorIs(t, err, ErrAccountBanned)

	clock.Advance(24 * time.Hour)
	_, err = s.Redeem(ctx, 1, "SOON")
	assert.ErrorIs(t, err, ErrPromoExpired)
	assert.Equal(t, 1, mustAccount(t, l, 1).PlaysAvailable)
}

func TestRedeemUsedBeforeExpiredWins(t *testing.T) {
	l, clock := newTestLedger(t, config.DefaultRules())
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	createPromo(t, s, CreatePromoInput{Code: "ONCE", Kind: "plays", RewardValue: decimal.NewFromInt(1), ExpiresInDays: 1})
	ctx := context.Background()

	_, err := s.Redeem(ctx, 1, "ONCE")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	_, err = s.Redeem(ctx, 1, "ONCE")
	assert.ErrorIs(t, err, ErrPromoAlreadyUsed)
}

func TestRedeemLastUseUnderConcurrency(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	lastPromoUseRace(t, l)
}

// lastPromoUseRace has two accounts redeem a single-use code at once.
func lastPromoUseRace(t *testing.T, l *Ledger) {
	t.Helper()
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	seedAccount(t, l, 2, nil)
	createPromo(t, s, CreatePromoInput{Code: "LAST", Kind: "plays", RewardValue: decimal.NewFromInt(3), MaxUses: 1})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []int64{1, 2} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = s.Redeem(context.Background(), id, "LAST")
		}(i, id)
	}
	wg.Wait()

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrPromoExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)

	total := mustAccount(t, l, 1).PlaysAvailable + mustAccount(t, l, 2).PlaysAvailable
	assert.Equal(t, 1+1+3, total)
}

func TestRedeemWhenPromosDisabled(t *testing.T) {
	rules := config.DefaultRules()
	rules.PromosEnabled = false
	l, _ := newTestLedger(t, rules)
	s := NewPromoService(l)
	seedAccount(t, l, 1, nil)
	createPromo(t, s, CreatePromoInput{Code: "OFF", Kind: "plays", RewardValue: decimal.NewFromInt(1)})

	_, err := s.Redeem(context.Background(), 1, "OFF")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestCreatePromoValidation(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewPromoService(l)
	ctx := context.Background()

	_, err := s.Create(ctx, "admin", CreatePromoInput{Code: "X", Kind: "plays", RewardValue: decimal.RequireFromString("1.5")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Create(ctx, "admin", CreatePromoInput{Code: "X", Kind: "balance", RewardValue: decimal.NewFromInt(1), Currency: "BTC"})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = s.Create(ctx, "admin", CreatePromoInput{Code: "X", Kind: "jackpot"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	promo := createPromo(t, s, CreatePromoInput{Code: "dup", Kind: "premium"})
	assert.Equal(t, 100, promo.MaxUses)
	require.NotNil(t, promo.ExpiresAt)
	assert.True(t, promo.ExpiresAt.Equal(testEpoch.Add(30*24*time.Hour)))

	_, err = s.Create(ctx, "admin", CreatePromoInput{Code: "DUP", Kind: "premium"})
	assert.ErrorIs(t, err, ErrPromoCodeTaken)

	var logs int64
	require.NoError(t, l.DB.Model(&models.AdminLog{}).Where("action = ?", "create_promo").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}
