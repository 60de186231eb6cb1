package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestDB opens a private in-memory database. One connection means
// concurrent units of work run one after another; the row locks themselves
// are exercised by the Postgres tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestLedger(t *testing.T, rules config.Rules) (*Ledger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testEpoch}
	l := NewLedger(newTestDB(t), StaticRules(rules), zap.NewNop(), LedgerOptions{
		TxTimeout:   10 * time.Second,
		MaxAttempts: 3,
		Clock:       clock.Now,
	})
	return l, clock
}

// seedAccount creates an account and applies mutate to it directly.
func seedAccount(t *testing.T, l *Ledger, id int64, mutate func(a *models.Account)) *models.Account {
	t.Helper()
	acc, _, err := l.GetOrCreate(context.Background(), id, Profile{Username: fmt.Sprintf("user%d", id)}, nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(acc)
		require.NoError(t, l.DB.Save(acc).Error)
	}
	return acc
}

func mustAccount(t *testing.T, l *Ledger, id int64) *models.Account {
	t.Helper()
	acc, err := l.Get(context.Background(), id)
	require.NoError(t, err)
	return acc
}

const testBotToken = "123456:TEST-bot-token"

// signPayload builds Telegram WebApp init data signed with botToken.
func signPayload(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	v.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return v.Encode()
}

func userFields(id int64, authDate time.Time) map[string]string {
	return map[string]string{
		"auth_date": fmt.Sprintf("%d", authDate.Unix()),
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Mona","username":"mona","language_code":"ar","photo_url":"https://t.me/i/userpic/320/mona.jpg"}`, id),
	}
}

type notification struct {
	AccountID int64
	Text      string
}

// recordingNotifier collects delivered messages on a buffered channel.
type recordingNotifier struct {
	sent chan notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan notification, 16)}
}

func (n *recordingNotifier) Notify(_ context.Context, accountID int64, text string) error {
	n.sent <- notification{AccountID: accountID, Text: text}
	return nil
}

func (n *recordingNotifier) next(t *testing.T) notification {
	t.Helper()
	select {
	case msg := <-n.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
		return notification{}
	}
}

func newNotifyingLedger(t *testing.T, rules config.Rules) (*Ledger, *recordingNotifier) {
	t.Helper()
	n := newRecordingNotifier()
	l := NewLedger(newTestDB(t), StaticRules(rules), zap.NewNop(), LedgerOptions{
		TxTimeout:   10 * time.Second,
		MaxAttempts: 3,
		Notifier:    n,
		Clock:       func() time.Time { return testEpoch },
	})
	return l, n
}
