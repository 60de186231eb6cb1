package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind is the failure taxonomy every ledger transaction reports in.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindValidation     ErrorKind = "validation"
	KindStateConflict  ErrorKind = "state_conflict"
	KindThrottle       ErrorKind = "throttle"
	KindTransient      ErrorKind = "transient"
	KindNotFound       ErrorKind = "not_found"
)

// LedgerError is a typed, terminal (except KindTransient) outcome. Code doubles
// as the localization key of the user-facing message.
type LedgerError struct {
	Kind ErrorKind
	Code string
}

func (e *LedgerError) Error() string { return e.Code }

func newError(kind ErrorKind, code string) *LedgerError {
	return &LedgerError{Kind: kind, Code: code}
}

var (
	ErrUnauthenticated   = newError(KindAuthentication, "unauthenticated")
	ErrInvalidIdentity   = newError(KindValidation, "invalid_identity")
	ErrInvalidRequest    = newError(KindValidation, "invalid_request")
	ErrInvalidAmount     = newError(KindValidation, "invalid_amount")
	ErrAmountBelowMin    = newError(KindValidation, "amount_below_minimum")
	ErrAmountAboveMax    = newError(KindValidation, "amount_above_maximum")
	ErrInvalidCurrency   = newError(KindValidation, "invalid_currency")
	ErrInvalidMethod     = newError(KindValidation, "invalid_payment_method")
	ErrInvalidDest       = newError(KindValidation, "invalid_destination")
	ErrFeatureDisabled   = newError(KindValidation, "feature_disabled")
	ErrInvalidSetting    = newError(KindValidation, "invalid_setting")
	ErrPromoCodeTaken    = newError(KindStateConflict, "promo_code_exists")
	ErrTaskSlugTaken     = newError(KindStateConflict, "task_exists")
	ErrNoPlaysAvailable  = newError(KindStateConflict, "no_plays_available")
	ErrAccountBanned     = newError(KindStateConflict, "account_banned")
	ErrInsufficientFunds = newError(KindStateConflict, "insufficient_balance")
	ErrPromoAlreadyUsed  = newError(KindStateConflict, "promo_already_used")
	ErrPromoExpired      = newError(KindStateConflict, "promo_expired")
	ErrPromoExhausted    = newError(KindStateConflict, "promo_exhausted")
	ErrAlreadyRewarded   = newError(KindStateConflict, "already_rewarded")
	ErrTaskCompleted     = newError(KindStateConflict, "task_already_completed")
	ErrNotPending        = newError(KindStateConflict, "withdrawal_not_pending")
	ErrAdExpired         = newError(KindStateConflict, "ad_expired")
	ErrThrottleExceeded  = newError(KindThrottle, "daily_view_limit_reached")
	ErrTransient         = newError(KindTransient, "temporarily_unavailable")
	ErrAccountNotFound   = newError(KindNotFound, "account_not_found")
	ErrPromoNotFound     = newError(KindNotFound, "promo_not_found")
	ErrAdNotFound        = newError(KindNotFound, "ad_not_found")
	ErrViewNotFound      = newError(KindNotFound, "view_not_found")
	ErrTaskNotFound      = newError(KindNotFound, "task_not_found")
	ErrWithdrawalMissing = newError(KindNotFound, "withdrawal_not_found")
)

// AsLedgerError extracts the typed outcome from err, if any.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err; untyped errors are transient
// only when the store reports contention.
func KindOf(err error) ErrorKind {
	if le, ok := AsLedgerError(err); ok {
		return le.Kind
	}
	if isTransientStoreError(err) {
		return KindTransient
	}
	return ""
}

// SQLSTATEs that mean "try again": serialization failure, deadlock,
// lock_timeout and statement/query cancel.
var transientSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"57014": true,
}

func isTransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLStates[pgErr.Code]
	}
	return false
}
