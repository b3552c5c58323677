// Package worker pulls the upstream data set into the SQLite mirror.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"recibos/internal/amqp"
	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/source"
	"recibos/internal/storage"
)

// Upstream is the backend the mirror is pulled from.
type Upstream interface {
	source.InvoiceReader
	source.EntityReader
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Mirror is the store a sync writes to.
type Mirror interface {
	Years(ctx context.Context) ([]int, error)
	ReplaceSnapshot(ctx context.Context, s storage.Snapshot) error
	StartSyncRun(ctx context.Context, requestID, reason string) (int64, error)
	FinishSyncRun(ctx context.Context, id int64, years, invoices int, syncErr error) error
}

var _ Mirror = (*storage.SQLiteRepository)(nil)

// mirroredDocuments are copied verbatim after being checked to decode.
var mirroredDocuments = []string{
	source.ScheduleDocument,
	source.HolidaysDocument,
	source.SettingsDocument,
}

// Result describes a finished sync.
type Result struct {
	RunID    int64
	Years    int
	Invoices int
	Skipped  int
	Duration time.Duration
}

type SyncWorker struct {
	upstream    Upstream
	mirror      Mirror
	concurrency int
	opts        source.DecodeOptions
	logger      *log.Logger

	// one sync at a time
	mu sync.Mutex
}

func NewSyncWorker(upstream Upstream, mirror Mirror, concurrency int, opts source.DecodeOptions) *SyncWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncWorker{
		upstream:    upstream,
		mirror:      mirror,
		concurrency: concurrency,
		opts:        opts,
		logger:      log.Default(log.ComponentWorker),
	}
}

// HandleRefresh is the AMQP handler of refresh requests.
func (w *SyncWorker) HandleRefresh(ctx context.Context, req amqp.RefreshRequest) error {
	_, err := w.Sync(ctx, req)
	return err
}

// Sync pulls the years named by req (all of them when empty) together with
// the entities and documents, and replaces the mirror in one transaction.
func (w *SyncWorker) Sync(ctx context.Context, req amqp.RefreshRequest) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	logger := w.logger.With(log.FieldRefreshID, req.ID.String(), "reason", req.Reason)

	runID, err := w.mirror.StartSyncRun(ctx, req.ID.String(), req.Reason)
	if err != nil {
		return Result{}, fmt.Errorf("start sync run: %w", err)
	}

	res, syncErr := w.pull(ctx, req)
	res.RunID = runID

	// recorded even when ctx was cancelled mid-sync
	if err := w.mirror.FinishSyncRun(context.WithoutCancel(ctx), runID, res.Years, res.Invoices, syncErr); err != nil {
		logger.ErrorContext(ctx, "Failed to record sync run", log.FieldError, err)
	}
	res.Duration = time.Since(start)

	if syncErr != nil {
		logger.ErrorContext(ctx, "Sync failed", log.FieldError, syncErr)
		return res, syncErr
	}
	logger.InfoContext(ctx, "Sync completed",
		log.FieldCount, res.Years,
		log.FieldTotal, res.Invoices,
		log.FieldSkipped, res.Skipped,
		log.FieldDuration, res.Duration.Milliseconds())
	return res, nil
}

func (w *SyncWorker) pull(ctx context.Context, req amqp.RefreshRequest) (Result, error) {
	years := req.Years
	if req.Full() {
		var err error
		if years, err = w.upstream.Years(ctx); err != nil {
			return Result{}, fmt.Errorf("list upstream years: %w", err)
		}
	}

	var (
		batches  = make([]core.InvoiceBatch, len(years))
		entities core.EntityMap
		docs     = make(map[string][]byte, len(mirroredDocuments))
		docsMu   sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, year := range years {
		g.Go(func() error {
			b, err := w.upstream.Invoices(gctx, year)
			if err != nil {
				return fmt.Errorf("pull invoices %d: %w", year, err)
			}
			batches[i] = b
			return nil
		})
	}
	g.Go(func() error {
		m, err := w.upstream.Entities(gctx)
		if errors.Is(err, source.ErrNotFound) {
			// a missing nifs.json clears the mirrored entities
			entities = core.EntityMap{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("pull entities: %w", err)
		}
		entities = m
		return nil
	})
	for _, name := range mirroredDocuments {
		g.Go(func() error {
			body, err := w.fetchDocument(gctx, name)
			if err != nil {
				return err
			}
			docsMu.Lock()
			docs[name] = body
			docsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Years: len(batches)}
	for _, b := range batches {
		res.Invoices += len(b.Invoices)
		res.Skipped += len(b.Skipped)
	}

	snap := storage.Snapshot{
		Batches:   batches,
		Full:      req.Full(),
		Entities:  entities,
		Documents: docs,
	}
	if err := w.mirror.ReplaceSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("replace snapshot: %w", err)
	}
	return res, nil
}

// fetchDocument returns the body of name, or nil when the upstream does not
// have it. Bodies that do not decode are rejected.
func (w *SyncWorker) fetchDocument(ctx context.Context, name string) ([]byte, error) {
	body, err := w.upstream.Fetch(ctx, name)
	if errors.Is(err, source.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", name, err)
	}

	r := bytes.NewReader(body)
	switch name {
	case source.ScheduleDocument:
		_, err = source.DecodeSchedule(r, w.opts)
	case source.HolidaysDocument:
		_, err = source.DecodeHolidays(r, w.opts)
	case source.SettingsDocument:
		_, err = source.DecodeSettings(r)
	}
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", name, err)
	}
	return body, nil
}

// StartupSyncCheck runs a full sync when the mirror holds no invoice year.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	years, err := w.mirror.Years(ctx)
	if err != nil {
		return fmt.Errorf("read mirror years: %w", err)
	}
	if len(years) > 0 {
		w.logger.InfoContext(ctx, "Mirror already populated", log.FieldCount, len(years))
		return nil
	}
	w.logger.InfoContext(ctx, "Mirror is empty, running initial sync")
	_, err = w.Sync(ctx, amqp.NewRefreshRequest(amqp.ReasonStartup))
	return err
}
