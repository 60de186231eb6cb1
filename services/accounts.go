package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"luckyspin/models"
	"luckyspin/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
	referralCodeAttempts = 5
	referralParamPrefix  = "ref_"
)

// GetOrCreate returns the account with the given id, creating it on first
// contact. An existing account is returned unchanged and created is false.
// A new account gets the configured initial plays and a fresh referral code;
// a valid referrer distinct from id gets a Referral edge and the referral
// trigger runs in the same unit.
func (u *UnitOfWork) GetOrCreate(id int64, p Profile, referrerID *int64) (acc *models.Account, created bool, err error) {
	var existing models.Account
	err = u.tx.First(&existing, "id = ?", id).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	code, err := u.newReferralCode()
	if err != nil {
		return nil, false, err
	}

	var inviter *int64
	if referrerID != nil && *referrerID != id {
		var n int64
		if err := u.tx.Model(&models.Account{}).Where("id = ?", *referrerID).Count(&n).Error; err != nil {
			return nil, false, err
		}
		if n > 0 {
			ref := *referrerID
			inviter = &ref
		}
	}

	acc = &models.Account{
		ID:             id,
		Username:       p.Username,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		PhotoURL:       p.PhotoURL,
		LanguageCode:   p.LanguageCode,
		ReferralCode:   code,
		ReferredBy:     inviter,
		PlaysAvailable: u.rules.InitialPlays,
	}
	res := u.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(acc)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a creation race; the winner's row is authoritative.
		if err := u.tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// the conflict was on the referral code
				return nil, false, ErrTransient
			}
			return nil, false, err
		}
		return &existing, false, nil
	}
	u.locked[id] = acc

	if inviter != nil {
		edge := &models.Referral{
			InviterID: *inviter,
			InvitedID: id,
			Status:    models.ReferralStatusCompleted,
		}
		if err := u.tx.Create(edge).Error; err != nil {
			return nil, false, err
		}
		if err := u.triggerReferralReward(*inviter); err != nil {
			return nil, false, err
		}
	}
	return acc, true, nil
}

func (u *UnitOfWork) newReferralCode() (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := randomReferralCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := u.tx.Model(&models.Account{}).Where("referral_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", ErrTransient
}

func randomReferralCode() (string, error) {
	limit := big.NewInt(int64(len(referralCodeAlphabet)))
	var b strings.Builder
	b.Grow(referralCodeLength)
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GetOrCreate runs UnitOfWork.GetOrCreate in its own unit.
func (l *Ledger) GetOrCreate(ctx context.Context, id int64, p Profile, referrerID *int64) (*models.Account, bool, error) {
	var (
		acc     *models.Account
		created bool
	)
	err := l.Do(ctx, func(uow *UnitOfWork) error {
		var err error
		acc, created, err = uow.GetOrCreate(id, p, referrerID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return acc, created, nil
}

type AccountService struct {
	Ledger *Ledger
}

func NewAccountService(ledger *Ledger) *AccountService {
	return &AccountService{Ledger: ledger}
}

// Open resolves the session's referrer and returns the caller's account,
// creating it on first contact. startParameter wins over the start_param
// embedded in the signed payload.
func (s *AccountService) Open(ctx context.Context, id *Identity, startParameter string) (*models.Account, bool, error) {
	param := startParameter
	if param == "" {
		param = id.StartParam
	}

	referrer, err := s.ResolveReferrer(ctx, param)
	if err != nil {
		return nil, false, err
	}

	acc, created, err := s.Ledger.GetOrCreate(ctx, id.ID, id.Profile(), referrer)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.Ledger.Log.Info("account created",
			zap.Int64("account_id", acc.ID),
			zap.Bool("referred", acc.ReferredBy != nil))
		monitoring.RewardGrantsTotal.WithLabelValues("initial_plays").Inc()
	}
	return acc, created, nil
}

// ResolveReferrer maps a start parameter ("ref_ABCD1234" or "ABCD1234") to
// the owning account id. Unknown codes resolve to nil.
func (s *AccountService) ResolveReferrer(ctx context.Context, param string) (*int64, error) {
	code := strings.TrimSpace(param)
	code = strings.TrimPrefix(code, referralParamPrefix)
	code = strings.ToUpper(code)
	if len(code) != referralCodeLength {
		return nil, nil
	}

	var acc models.Account
	err := s.Ledger.DB.WithContext(ctx).Select("id").First(&acc, "referral_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc.ID, nil
}

// Get returns the account without locking it.
func (s *AccountService) Get(ctx context.Context, id int64) (*models.Account, error) {
	return s.Ledger.Get(ctx, id)
}
