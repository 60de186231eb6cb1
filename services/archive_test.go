package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	objects map[string][]byte
	err     error
}

func (m *memoryStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = append([]byte(nil), body...)
	return "https://cdn.test/" + key, nil
}

func TestArchiveDay(t *testing.T) {
	l, clock := newTestLedger(t, config.DefaultRules())
	g := NewGameService(l, NewRewardGenerator(nil))
	seedAccount(t, l, 1, func(a *models.Account) { a.PlaysAvailable = 3 })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Play(ctx, 1)
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}
	clock.Advance(24 * time.Hour)
	_, err := g.Play(ctx, 1)
	require.NoError(t, err)

	store := &memoryStore{}
	a := NewGameLogArchiver(l.DB, store, zap.NewNop())

	url, count, err := a.ArchiveDay(ctx, testEpoch)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "https://cdn.test/game-logs/2026-03-14.jsonl", url)

	body := store.objects["game-logs/2026-03-14.jsonl"]
	sc := bufio.NewScanner(bytes.NewReader(body))
	lines := 0
	for sc.Scan() {
		var entry models.GameLogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		assert.Equal(t, int64(1), entry.AccountID)
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestArchiveEmptyDayUploadsNothing(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	store := &memoryStore{}
	a := NewGameLogArchiver(l.DB, store, zap.NewNop())

	url, count, err := a.ArchiveDay(context.Background(), testEpoch)
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Zero(t, count)
	assert.Empty(t, store.objects)
}

func TestArchiveUploadFailure(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	g := NewGameService(l, NewRewardGenerator(nil))
	seedAccount(t, l, 1, nil)
	_, err := g.Play(context.Background(), 1)
	require.NoError(t, err)

	boom := errors.New("bucket unavailable")
	a := NewGameLogArchiver(l.DB, &memoryStore{err: boom}, zap.NewNop())
	_, _, err = a.ArchiveDay(context.Background(), testEpoch)
	assert.ErrorIs(t, err, boom)
}
