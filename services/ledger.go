package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luckyspin/config"
	"luckyspin/models"
	"luckyspin/monitoring"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RulesProvider yields the current business-rule snapshot.
type RulesProvider interface {
	Rules() config.Rules
}

// StaticRules is a fixed RulesProvider.
type StaticRules config.Rules

func (r StaticRules) Rules() config.Rules { return config.Rules(r) }

type LedgerOptions struct {
	TxTimeout   time.Duration
	LockTimeout time.Duration
	MaxAttempts int
	Notifier    Notifier
	Clock       func() time.Time
}

// Ledger owns every account mutation. All mutations run inside a UnitOfWork:
// one store transaction in which touched account rows are locked FOR UPDATE,
// so two units on the same account never interleave their read and write phases.
type Ledger struct {
	DB    *gorm.DB
	Rules RulesProvider
	Log   *zap.Logger

	txTimeout   time.Duration
	lockTimeout time.Duration
	maxAttempts int
	notifier    Notifier
	clock       func() time.Time
}

func NewLedger(db *gorm.DB, rules RulesProvider, log *zap.Logger, opts LedgerOptions) *Ledger {
	l := &Ledger{
		DB:          db,
		Rules:       rules,
		Log:         log,
		txTimeout:   opts.TxTimeout,
		lockTimeout: opts.LockTimeout,
		maxAttempts: opts.MaxAttempts,
		notifier:    opts.Notifier,
		clock:       opts.Clock,
	}
	if l.txTimeout <= 0 {
		l.txTimeout = 5 * time.Second
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = 3
	}
	if l.notifier == nil {
		l.notifier = NopNotifier{}
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.Log == nil {
		l.Log = zap.NewNop()
	}
	return l
}

// Now is the ledger clock, in UTC.
func (l *Ledger) Now() time.Time { return l.clock().UTC() }

// UnitOfWork is the explicit per-operation store handle. It is only valid
// inside the function passed to Ledger.Do.
type UnitOfWork struct {
	tx       *gorm.DB
	ledger   *Ledger
	rules    config.Rules
	now      time.Time
	locked   map[int64]*models.Account
	onCommit []func(context.Context)
}

// Rules is the rule snapshot taken when the unit started.
func (u *UnitOfWork) Rules() config.Rules { return u.rules }

// Now is the unit's transaction timestamp.
func (u *UnitOfWork) Now() time.Time { return u.now }

// OnCommit registers fn to run after a successful commit.
func (u *UnitOfWork) OnCommit(fn func(ctx context.Context)) {
	u.onCommit = append(u.onCommit, fn)
}

// Do runs fn inside a bounded store transaction. Typed outcomes abort the
// transaction and are returned as is; transient store failures are retried
// up to the configured attempt count and then surface as ErrTransient.
func (l *Ledger) Do(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	start := time.Now()
	defer func() {
		monitoring.LedgerTxDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		uow, err := l.attempt(ctx, fn)
		if err == nil {
			for _, hook := range uow.onCommit {
				hook(ctx)
			}
			return nil
		}

		if le, ok := AsLedgerError(err); ok && le.Kind != KindTransient {
			monitoring.RejectionsTotal.WithLabelValues(le.Code).Inc()
			return err
		}
		if !errors.Is(err, ErrTransient) && !isTransientStoreError(err) {
			l.Log.Error("ledger transaction failed", zap.Error(err), zap.Int("attempt", attempt))
			return err
		}

		lastErr = err
		if ctx.Err() != nil || attempt == l.maxAttempts {
			break
		}
		monitoring.LedgerRetriesTotal.Inc()
		l.Log.Warn("ledger transaction contended, retrying", zap.Error(err), zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}

	monitoring.RejectionsTotal.WithLabelValues(ErrTransient.Code).Inc()
	return fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

func (l *Ledger) attempt(ctx context.Context, fn func(uow *UnitOfWork) error) (*UnitOfWork, error) {
	txCtx, cancel := context.WithTimeout(ctx, l.txTimeout)
	defer cancel()

	uow := &UnitOfWork{
		ledger: l,
		rules:  l.Rules.Rules(),
		now:    l.Now(),
		locked: make(map[int64]*models.Account),
	}
	err := l.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" && l.lockTimeout > 0 {
			// SET does not take bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		uow.tx = tx
		return fn(uow)
	})
	return uow, err
}

// Account loads and row-locks an account for the rest of the unit.
func (u *UnitOfWork) Account(id int64) (*models.Account, error) {
	if acc, ok := u.locked[id]; ok {
		return acc, nil
	}
	var acc models.Account
	err := u.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	u.locked[id] = &acc
	return &acc, nil
}

func (u *UnitOfWork) save(acc *models.Account) error {
	return u.tx.Save(acc).Error
}

// ConsumePlay spends one play. It reports false without mutating anything
// when the account is banned or has no plays left.
func (u *UnitOfWork) ConsumePlay(id int64) (bool, error) {
	acc, err := u.Account(id)
	if err != nil {
		return false, err
	}
	if acc.IsBanned || acc.PlaysAvailable <= 0 {
		return false, nil
	}
	acc.PlaysAvailable--
	acc.TotalPlays++
	return true, u.save(acc)
}

// CreditBalances adds amt to the balances and to the lifetime earnings.
func (u *UnitOfWork) CreditBalances(id int64, amt models.Amounts) error {
	if amt.IsNegative() {
		return ErrInvalidAmount
	}
	if amt.IsZero() {
		return nil
	}
	acc, err := u.Account(id)
	if err != nil {
		return err
	}
	acc.Credit(amt)
	return u.save(acc)
}

// DebitBalance removes amount from one balance; lifetime earnings are untouched.
func (u *UnitOfWork) DebitBalance(id int64, c models.Currency, v decimal.Decimal) error {
	if !v.IsPositive() {
		return ErrInvalidAmount
	}
	acc, err := u.Account(id)
	if err != nil {
		return err
	}
	if !acc.Debit(c, v) {
		return ErrInsufficientFunds
	}
	return u.save(acc)
}

// Counters are deltas for the integer account counters.
type Counters struct {
	PlaysAvailable int
	Wins           int
	RareWins       int
	InviteCount    int
	CompletedTasks int
}

// IncrementCounters applies all deltas or none; no counter may end below zero.
func (u *UnitOfWork) IncrementCounters(id int64, c Counters) error {
	acc, err := u.Account(id)
	if err != nil {
		return err
	}
	next := *acc
	next.PlaysAvailable += c.PlaysAvailable
	next.Wins += c.Wins
	next.RareWins += c.RareWins
	next.InviteCount += c.InviteCount
	next.CompletedTasks += c.CompletedTasks
	if next.PlaysAvailable < 0 || next.Wins < 0 || next.RareWins < 0 ||
		next.InviteCount < 0 || next.CompletedTasks < 0 {
		return ErrInvalidAmount
	}
	*acc = next
	return u.save(acc)
}

// Flag names a boolean account attribute.
type Flag string

const (
	FlagBanned  Flag = "banned"
	FlagPremium Flag = "premium"
)

func (u *UnitOfWork) SetFlag(id int64, flag Flag, value bool) error {
	acc, err := u.Account(id)
	if err != nil {
		return err
	}
	switch flag {
	case FlagBanned:
		acc.IsBanned = value
	case FlagPremium:
		acc.IsPremium = value
	default:
		return ErrInvalidRequest
	}
	return u.save(acc)
}

// AppendGameLog inserts an immutable game-log entry stamped with the unit time.
func (u *UnitOfWork) AppendGameLog(entry *models.GameLogEntry) error {
	entry.CreatedAt = u.now
	return u.tx.Create(entry).Error
}

// Single-operation helpers, each in its own unit of work.

func (l *Ledger) ConsumePlay(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := l.Do(ctx, func(uow *UnitOfWork) error {
		var err error
		ok, err = uow.ConsumePlay(id)
		return err
	})
	return ok, err
}

func (l *Ledger) CreditBalances(ctx context.Context, id int64, amt models.Amounts) error {
	return l.Do(ctx, func(uow *UnitOfWork) error {
		return uow.CreditBalances(id, amt)
	})
}

func (l *Ledger) IncrementCounters(ctx context.Context, id int64, c Counters) error {
	return l.Do(ctx, func(uow *UnitOfWork) error {
		return uow.IncrementCounters(id, c)
	})
}

func (l *Ledger) SetFlag(ctx context.Context, id int64, flag Flag, value bool) error {
	return l.Do(ctx, func(uow *UnitOfWork) error {
		return uow.SetFlag(id, flag, value)
	})
}

// Get reads an account without locking it.
func (l *Ledger) Get(ctx context.Context, id int64) (*models.Account, error) {
	var acc models.Account
	err := l.DB.WithContext(ctx).First(&acc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
