package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "")
	t.Setenv("RARE_WIN_CHANCE", "")

	cfg := Load()
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, 3, cfg.LedgerMaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, "mock", cfg.PaymentGateway)
	assert.Equal(t, 0.10, cfg.Rules.RareWinChance)
	assert.Equal(t, 3, cfg.Rules.ReferralThreshold)
	assert.True(t, cfg.Rules.MinWithdrawal.Equal(decimal.NewFromInt(100)))
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LEDGER_TX_TIMEOUT", "750ms")
	t.Setenv("REFERRAL_THRESHOLD", "5")
	t.Setenv("RARE_WIN_CHANCE", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 750*time.Millisecond, cfg.LedgerTxTimeout)
	assert.Equal(t, 5, cfg.Rules.ReferralThreshold)
	assert.Equal(t, 0.10, cfg.Rules.RareWinChance, "invalid values keep the default")
}

func TestRulesApply(t *testing.T) {
	r := DefaultRules()

	require.NoError(t, r.Apply(KeyRareWinChance, "0.25"))
	assert.Equal(t, 0.25, r.RareWinChance)

	require.NoError(t, r.Apply(KeyAdsEnabled, "false"))
	assert.False(t, r.AdsEnabled)

	require.NoError(t, r.Apply(KeyMaxWithdrawal, "7500.50"))
	assert.Equal(t, "7500.5", r.MaxWithdrawal.String())

	assert.Error(t, r.Apply(KeyRareWinChance, "1.5"))
	assert.Error(t, r.Apply(KeyReferralThreshold, "0"))
	assert.Error(t, r.Apply(KeyRateTON, "0"))
	assert.Error(t, r.Apply("nope", "1"))
}

func TestRulesSettingsRoundTrip(t *testing.T) {
	src := DefaultRules()
	src.ReferralThreshold = 4
	src.PromosEnabled = false

	dst := DefaultRules()
	for k, v := range src.Settings() {
		require.NoError(t, dst.Apply(k, v), k)
	}
	assert.Equal(t, 4, dst.ReferralThreshold)
	assert.False(t, dst.PromosEnabled)
	assert.True(t, dst.RateTON.Equal(src.RateTON))
}
