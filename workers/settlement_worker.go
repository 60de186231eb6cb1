package workers

import (
	"context"
	"time"

	"luckyspin/services"

	"go.uber.org/zap"
)

const settlementBatch = 50

// Settler is the slice of the withdrawal service the poller needs.
type Settler interface {
	SubmitPending(ctx context.Context, batch int) (services.SettlementReport, error)
}

// PollSettlements submits pending withdrawals to the payment gateway every
// interval until ctx is cancelled.
func PollSettlements(ctx context.Context, settler Settler, interval time.Duration, log *zap.Logger) {
	log.Info("settlement polling started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("settlement polling stopped")
			return
		case <-ticker.C:
			report, err := settler.SubmitPending(ctx, settlementBatch)
			if err != nil {
				log.Error("settlement pass failed", zap.Error(err))
				continue
			}
			if report.Completed+report.Rejected+report.Deferred == 0 {
				continue
			}
			log.Info("settlement pass",
				zap.Int("completed", report.Completed),
				zap.Int("rejected", report.Rejected),
				zap.Int("deferred", report.Deferred))
		}
	}
}
