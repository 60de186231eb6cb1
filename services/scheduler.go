package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

// Jobs are the periodic maintenance tasks. Archiver may be nil.
type Jobs struct {
	Settings *SettingsService
	Ads      *AdService
	Archiver *GameLogArchiver
	Log      *zap.Logger
}

// StartScheduler registers the jobs and starts the scheduler. The caller owns
// Shutdown.
func StartScheduler(j Jobs) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	// Every minute: pick up settings edited by other instances
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := j.Settings.Refresh(ctx); err != nil {
				j.Log.Error("settings refresh failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	// Every 10 minutes: switch off expired ads
	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			n, err := j.Ads.DeactivateExpired(ctx)
			if err != nil {
				j.Log.Error("ad expiry sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				j.Log.Info("expired ads deactivated", zap.Int64("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	if j.Archiver != nil {
		// Daily at 00:10 UTC: archive yesterday's game logs
		_, err = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 10, 0))),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				yesterday := time.Now().UTC().AddDate(0, 0, -1)
				if _, _, err := j.Archiver.ArchiveDay(ctx, yesterday); err != nil {
					j.Log.Error("game log archive failed", zap.Error(err))
				}
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
