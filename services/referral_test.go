package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inviterRef(id int64) *int64 { return &id }

func countMarkers(t *testing.T, l *Ledger, accountID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, l.DB.Model(&models.GameLogEntry{}).
		Where("account_id = ? AND outcome = ?", accountID, models.OutcomeReferralReward).
		Count(&n).Error)
	return n
}

func TestReferralRewardAtEveryThresholdMultiple(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	seedAccount(t, l, 1, nil)
	ctx := context.Background()

	for id := int64(2); id <= 9; id++ {
		acc, created, err := l.GetOrCreate(ctx, id, Profile{}, inviterRef(1))
		require.NoError(t, err)
		require.True(t, created)
		require.NotNil(t, acc.ReferredBy)
		assert.Equal(t, int64(1), *acc.ReferredBy)
	}

	inviter := mustAccount(t, l, 1)
	// 8 invites cross the threshold of 3 twice
	assert.Equal(t, 1+2, inviter.PlaysAvailable)
	assert.Equal(t, 2, inviter.InviteCount)
	assert.Equal(t, int64(2), countMarkers(t, l, 1))

	_, _, err := l.GetOrCreate(ctx, 10, Profile{}, inviterRef(1))
	require.NoError(t, err)
	inviter = mustAccount(t, l, 1)
	assert.Equal(t, 1+3, inviter.PlaysAvailable)
	assert.Equal(t, int64(3), countMarkers(t, l, 1))
}

func TestReferralRewardNotRepeatedOnReturningInvitee(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	seedAccount(t, l, 1, nil)
	ctx := context.Background()

	for id := int64(2); id <= 4; id++ {
		_, _, err := l.GetOrCreate(ctx, id, Profile{}, inviterRef(1))
		require.NoError(t, err)
	}
	for id := int64(2); id <= 4; id++ {
		_, created, err := l.GetOrCreate(ctx, id, Profile{}, inviterRef(1))
		require.NoError(t, err)
		assert.False(t, created)
	}

	inviter := mustAccount(t, l, 1)
	assert.Equal(t, 2, inviter.PlaysAvailable)
	assert.Equal(t, int64(1), countMarkers(t, l, 1))
}

func TestReferralRewardUnderConcurrentInvites(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	referralInviteRace(t, l)
}

// referralInviteRace links nine invitees to one inviter at once.
func referralInviteRace(t *testing.T, l *Ledger) {
	t.Helper()
	seedAccount(t, l, 1, nil)

	var wg sync.WaitGroup
	for id := int64(100); id < 109; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _, err := l.GetOrCreate(context.Background(), id, Profile{}, inviterRef(1))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	inviter := mustAccount(t, l, 1)
	assert.Equal(t, 1+3, inviter.PlaysAvailable)
	assert.Equal(t, 3, inviter.InviteCount)
	assert.Equal(t, 3, inviter.ReferralRewardedMultiple)
	assert.Equal(t, int64(3), countMarkers(t, l, 1))
}

func TestSelfAndUnknownReferrerIgnored(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	ctx := context.Background()

	acc, _, err := l.GetOrCreate(ctx, 50, Profile{}, inviterRef(50))
	require.NoError(t, err)
	assert.Nil(t, acc.ReferredBy)

	acc, _, err = l.GetOrCreate(ctx, 51, Profile{}, inviterRef(777))
	require.NoError(t, err)
	assert.Nil(t, acc.ReferredBy)

	var edges int64
	require.NoError(t, l.DB.Model(&models.Referral{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestOpenResolvesStartParameter(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	svc := NewAccountService(l)
	ctx := context.Background()
	inviter := seedAccount(t, l, 1, nil)

	acc, created, err := svc.Open(ctx, &Identity{ID: 2, StartParam: "ref_" + strings.ToLower(inviter.ReferralCode)}, "")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, acc.ReferredBy)
	assert.Equal(t, int64(1), *acc.ReferredBy)

	acc, _, err = svc.Open(ctx, &Identity{ID: 3, StartParam: "garbage"}, inviter.ReferralCode)
	require.NoError(t, err)
	require.NotNil(t, acc.ReferredBy)

	acc, _, err = svc.Open(ctx, &Identity{ID: 4}, "ref_NOPE0000")
	require.NoError(t, err)
	assert.Nil(t, acc.ReferredBy)
}

func TestReferralRewardNotifiesInviter(t *testing.T) {
	l, n := newNotifyingLedger(t, config.DefaultRules())
	seedAccount(t, l, 1, func(a *models.Account) { a.LanguageCode = "en" })
	ctx := context.Background()

	for id := int64(2); id <= 4; id++ {
		_, _, err := l.GetOrCreate(ctx, id, Profile{}, inviterRef(1))
		require.NoError(t, err)
	}

	msg := n.next(t)
	assert.Equal(t, int64(1), msg.AccountID)
	assert.Equal(t, "You invited 3 friends and earned 1 free plays!", msg.Text)
}
