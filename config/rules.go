package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Setting keys shared by the environment defaults and the settings table.
const (
	KeyRareWinChance       = "rare_win_chance"
	KeyReferralThreshold   = "referral_threshold"
	KeyReferralRewardPlays = "referral_reward"
	KeyMinWithdrawal       = "min_withdrawal"
	KeyMaxWithdrawal       = "max_withdrawal"
	KeyPromoExpiryDays     = "promo_code_expiry_days"
	KeyInitialPlays        = "initial_games"
	KeyWithdrawalsEnabled  = "withdrawal_enabled"
	KeyPromosEnabled       = "promo_system_enabled"
	KeyAdsEnabled          = "ad_system_enabled"
	KeyRateEGP             = "currency_egp_rate"
	KeyRateTON             = "currency_ton_rate"
	KeyRateUSDT            = "currency_usdt_rate"
)

var envKeys = map[string]string{
	KeyRareWinChance:       "RARE_WIN_CHANCE",
	KeyReferralThreshold:   "REFERRAL_THRESHOLD",
	KeyReferralRewardPlays: "REFERRAL_REWARD_PLAYS",
	KeyMinWithdrawal:       "MIN_WITHDRAWAL",
	KeyMaxWithdrawal:       "MAX_WITHDRAWAL",
	KeyPromoExpiryDays:     "PROMO_EXPIRY_DAYS",
	KeyInitialPlays:        "INITIAL_PLAYS",
	KeyWithdrawalsEnabled:  "WITHDRAWALS_ENABLED",
	KeyPromosEnabled:       "PROMOS_ENABLED",
	KeyAdsEnabled:          "ADS_ENABLED",
	KeyRateEGP:             "RATE_EGP",
	KeyRateTON:             "RATE_TON",
	KeyRateUSDT:            "RATE_USDT",
}

// Rules are the business rules the ledger transactions read on every request.
// Conversion rates are "units of currency per 1 EGP".
type Rules struct {
	RareWinChance       float64
	ReferralThreshold   int
	ReferralRewardPlays int
	MinWithdrawal       decimal.Decimal
	MaxWithdrawal       decimal.Decimal
	PromoExpiryDays     int
	InitialPlays        int
	WithdrawalsEnabled  bool
	PromosEnabled       bool
	AdsEnabled          bool
	RateEGP             decimal.Decimal
	RateTON             decimal.Decimal
	RateUSDT            decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		RareWinChance:       0.10,
		ReferralThreshold:   3,
		ReferralRewardPlays: 1,
		MinWithdrawal:       decimal.NewFromInt(100),
		MaxWithdrawal:       decimal.NewFromInt(5000),
		PromoExpiryDays:     30,
		InitialPlays:        1,
		WithdrawalsEnabled:  true,
		PromosEnabled:       true,
		AdsEnabled:          true,
		RateEGP:             decimal.NewFromInt(1),
		RateTON:             decimal.RequireFromString("0.000025"),
		RateUSDT:            decimal.RequireFromString("0.032"),
	}
}

func rulesFromEnv() Rules {
	r := DefaultRules()
	for key, env := range envKeys {
		if v := os.Getenv(env); v != "" {
			// invalid env values keep the default
			_ = r.Apply(key, v)
		}
	}
	return r
}

// Apply sets one rule from its textual setting value.
func (r *Rules) Apply(key, value string) error {
	switch key {
	case KeyRareWinChance:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("%s must be a fraction in [0,1]", key)
		}
		r.RareWinChance = f
	case KeyReferralThreshold:
		return setPositiveInt(&r.ReferralThreshold, key, value)
	case KeyReferralRewardPlays:
		return setNonNegativeInt(&r.ReferralRewardPlays, key, value)
	case KeyPromoExpiryDays:
		return setPositiveInt(&r.PromoExpiryDays, key, value)
	case KeyInitialPlays:
		return setNonNegativeInt(&r.InitialPlays, key, value)
	case KeyMinWithdrawal:
		return setNonNegativeDecimal(&r.MinWithdrawal, key, value)
	case KeyMaxWithdrawal:
		return setNonNegativeDecimal(&r.MaxWithdrawal, key, value)
	case KeyRateEGP:
		return setPositiveDecimal(&r.RateEGP, key, value)
	case KeyRateTON:
		return setPositiveDecimal(&r.RateTON, key, value)
	case KeyRateUSDT:
		return setPositiveDecimal(&r.RateUSDT, key, value)
	case KeyWithdrawalsEnabled:
		return setBool(&r.WithdrawalsEnabled, key, value)
	case KeyPromosEnabled:
		return setBool(&r.PromosEnabled, key, value)
	case KeyAdsEnabled:
		return setBool(&r.AdsEnabled, key, value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Settings renders the rules as setting key/values.
func (r Rules) Settings() map[string]string {
	return map[string]string{
		KeyRareWinChance:       strconv.FormatFloat(r.RareWinChance, 'f', -1, 64),
		KeyReferralThreshold:   strconv.Itoa(r.ReferralThreshold),
		KeyReferralRewardPlays: strconv.Itoa(r.ReferralRewardPlays),
		KeyMinWithdrawal:       r.MinWithdrawal.String(),
		KeyMaxWithdrawal:       r.MaxWithdrawal.String(),
		KeyPromoExpiryDays:     strconv.Itoa(r.PromoExpiryDays),
		KeyInitialPlays:        strconv.Itoa(r.InitialPlays),
		KeyWithdrawalsEnabled:  strconv.FormatBool(r.WithdrawalsEnabled),
		KeyPromosEnabled:       strconv.FormatBool(r.PromosEnabled),
		KeyAdsEnabled:          strconv.FormatBool(r.AdsEnabled),
		KeyRateEGP:             r.RateEGP.String(),
		KeyRateTON:             r.RateTON.String(),
		KeyRateUSDT:            r.RateUSDT.String(),
	}
}

func setPositiveInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer", key)
	}
	*dst = n
	return nil
}

func setNonNegativeInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%s must be a non-negative integer", key)
	}
	*dst = n
	return nil
}

func setNonNegativeDecimal(dst *decimal.Decimal, key, value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return fmt.Errorf("%s must be a non-negative number", key)
	}
	*dst = d
	return nil
}

func setPositiveDecimal(dst *decimal.Decimal, key, value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsPositive() {
		return fmt.Errorf("%s must be a positive number", key)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false", key)
	}
	*dst = b
	return nil
}
