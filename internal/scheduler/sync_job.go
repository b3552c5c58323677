package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"recibos/internal/amqp"
)

const (
	SyncJobName    = "mirror_sync"
	syncJobTimeout = 10 * time.Minute
)

// SyncFunc runs one mirror sync.
type SyncFunc func(ctx context.Context, req amqp.RefreshRequest) error

// RegisterSyncJob schedules a full mirror sync on cronExpr.
func RegisterSyncJob(s *Service, cronExpr string, sync SyncFunc) (gocron.Job, error) {
	return s.AddJob(SyncJobName, cronExpr, syncJobTimeout, func(ctx context.Context) error {
		return sync(ctx, amqp.NewRefreshRequest(amqp.ReasonSchedule))
	})
}
