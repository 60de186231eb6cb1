package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"luckyspin/models"
	"luckyspin/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameLogArchiver copies one UTC day of game logs to object storage as JSON lines.
type GameLogArchiver struct {
	DB    *gorm.DB
	Store utils.ObjectStore
	Log   *zap.Logger
}

func NewGameLogArchiver(db *gorm.DB, store utils.ObjectStore, log *zap.Logger) *GameLogArchiver {
	return &GameLogArchiver{DB: db, Store: store, Log: log}
}

func archiveKey(day time.Time) string {
	return fmt.Sprintf("game-logs/%s.jsonl", day.UTC().Format("2006-01-02"))
}

// ArchiveDay uploads every entry created on day's UTC date and returns the
// object URL and the entry count. Days without entries upload nothing.
func (a *GameLogArchiver) ArchiveDay(ctx context.Context, day time.Time) (string, int, error) {
	start, end := dayBounds(day)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	count := 0

	db := a.DB.WithContext(ctx)
	rows, err := db.Model(&models.GameLogEntry{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Rows()
	if err != nil {
		return "", 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.GameLogEntry
		if err := db.ScanRows(rows, &entry); err != nil {
			return "", 0, err
		}
		if err := enc.Encode(&entry); err != nil {
			return "", 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}
	if count == 0 {
		return "", 0, nil
	}

	url, err := a.Store.Put(ctx, archiveKey(start), buf.Bytes(), "application/x-ndjson")
	if err != nil {
		return "", 0, err
	}
	a.Log.Info("game logs archived", zap.String("url", url), zap.Int("entries", count))
	return url, count, nil
}
