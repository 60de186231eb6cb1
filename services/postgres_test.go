package services

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresLedger runs the ledger on a real Postgres pool with several
// open connections, so concurrent units only serialize on row locks. Each
// test gets its own schema. Set TEST_DATABASE_URL to enable.
func newPostgresLedger(t *testing.T) *Ledger {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}

	admin, err := gorm.Open(postgres.Open(dsn), cfg)
	require.NoError(t, err)
	schema := "luckyspin_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, admin.Exec("CREATE SCHEMA " + schema).Error)
	adminDB, err := admin.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		_ = adminDB.Close()
	})

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schema)), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	clock := &fakeClock{now: testEpoch}
	return NewLedger(db, StaticRules(config.DefaultRules()), zap.NewNop(), LedgerOptions{
		TxTimeout:   10 * time.Second,
		LockTimeout: 5 * time.Second,
		MaxAttempts: 5,
		Clock:       clock.Now,
	})
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%ssearch_path=%s", dsn, sep, schema)
	}
	return fmt.Sprintf("%s search_path=%s", dsn, schema)
}

func TestPostgresConsumePlayConcurrent(t *testing.T) {
	consumePlayRace(t, newPostgresLedger(t))
}

func TestPostgresGetOrCreateConcurrentFirstContact(t *testing.T) {
	firstContactRace(t, newPostgresLedger(t))
}

func TestPostgresRedeemLastUseUnderConcurrency(t *testing.T) {
	lastPromoUseRace(t, newPostgresLedger(t))
}

func TestPostgresRecordViewDailyCapUnderConcurrency(t *testing.T) {
	dailyCapRace(t, newPostgresLedger(t))
}

func TestPostgresReferralRewardUnderConcurrentInvites(t *testing.T) {
	referralInviteRace(t, newPostgresLedger(t))
}

func TestPostgresSettlementPassesSubmitOnce(t *testing.T) {
	settlementPassRace(t, newPostgresLedger(t))
}
