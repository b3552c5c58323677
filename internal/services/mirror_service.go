package services

import (
	"context"
	"errors"
	"fmt"

	"recibos/internal/amqp"
	"recibos/internal/log"
	"recibos/internal/storage"
)

// ErrRefreshUnavailable is returned when no message broker is configured.
var ErrRefreshUnavailable = errors.New("refresh requests need AMQP")

// RefreshPublisher sends refresh requests to the worker.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, req amqp.RefreshRequest) error
}

// MirrorService ties the SQLite mirror to the worker's request queue.
type MirrorService struct {
	storage    *storage.SQLiteRepository
	publisher  RefreshPublisher
	amqpClient *amqp.Client
	logger     *log.Logger
}

// NewMirrorService accepts a nil amqpClient; RequestRefresh then fails with
// ErrRefreshUnavailable.
func NewMirrorService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *MirrorService {
	s := &MirrorService{
		storage:    storage,
		amqpClient: amqpClient,
		logger:     log.Default(log.ComponentStorage),
	}
	if amqpClient != nil {
		s.publisher = amqpClient
	}
	return s
}

// RequestRefresh asks the worker to sync the given years, or all of them.
func (s *MirrorService) RequestRefresh(ctx context.Context, years ...int) (amqp.RefreshRequest, error) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, refresh request dropped")
		return amqp.RefreshRequest{}, ErrRefreshUnavailable
	}
	req := amqp.NewRefreshRequest(amqp.ReasonManual, years...)
	if err := s.publisher.PublishRefresh(ctx, req); err != nil {
		return req, fmt.Errorf("publish refresh: %w", err)
	}
	return req, nil
}

// LastSync returns the most recent sync run of the mirror.
func (s *MirrorService) LastSync(ctx context.Context) (storage.SyncRun, error) {
	return s.storage.LastSyncRun(ctx)
}

// Close closes both storage and AMQP connections
func (s *MirrorService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close mirror service: %w", errors.Join(errs...))
	}
	return nil
}
