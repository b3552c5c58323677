package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/source"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the local mirror of the upstream data set. It serves
// every source port from the last synced snapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	opts    source.DecodeOptions
	logger  *log.Logger
	schema  uint
}

var (
	_ source.Source  = (*SQLiteRepository)(nil)
	_ source.Fetcher = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, opts source.DecodeOptions) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := log.Default(log.ComponentStorage).With("db_path", dbPath)
	schema, err := migrateMirror(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		opts:    opts,
		logger:  logger,
		schema:  schema,
	}, nil
}

// SchemaVersion is the mirror schema version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schema
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Years(ctx context.Context) ([]int, error) {
	years, err := r.queries.ListInvoiceYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoice years: %w", err)
	}
	out := make([]int, len(years))
	for i, y := range years {
		out[i] = int(y)
	}
	return out, nil
}

func (r *SQLiteRepository) Invoices(ctx context.Context, year int) (core.InvoiceBatch, error) {
	batch := core.InvoiceBatch{Year: year, Invoices: []core.Invoice{}}

	ok, err := r.queries.HasInvoiceYear(ctx, int64(year))
	if err != nil {
		return batch, fmt.Errorf("check invoice year %d: %w", year, err)
	}
	if !ok {
		return batch, fmt.Errorf("%s: %w", source.InvoiceDocument(year), source.ErrNotFound)
	}

	rows, err := r.queries.GetInvoicesByYear(ctx, int64(year))
	if err != nil {
		return batch, fmt.Errorf("get invoices for %d: %w", year, err)
	}
	for _, row := range rows {
		inv, err := invoiceFromRow(row)
		if err != nil {
			return batch, fmt.Errorf("invoice %d: %w", row.ID, err)
		}
		batch.Invoices = append(batch.Invoices, inv)
	}

	skipped, err := r.queries.GetSkippedRowsByYear(ctx, int64(year))
	if err != nil {
		return batch, fmt.Errorf("get skipped rows for %d: %w", year, err)
	}
	for _, s := range skipped {
		batch.Skipped = append(batch.Skipped, core.RowError{Line: int(s.Line), Reason: s.Reason})
	}
	return batch, nil
}

func invoiceFromRow(row Invoice) (core.Invoice, error) {
	value, err := core.ParseMoney(row.Value)
	if err != nil {
		return core.Invoice{}, err
	}
	date, err := core.ParseISODate(row.ServiceDate)
	if err != nil {
		return core.Invoice{}, err
	}
	return core.Invoice{NIF: row.NIF, Value: value, Issued: row.Issued, ServiceDate: date}, nil
}

func (r *SQLiteRepository) Entities(ctx context.Context) (core.EntityMap, error) {
	rows, err := r.queries.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	out := make(core.EntityMap, len(rows))
	for _, e := range rows {
		out[e.NIF] = e.Name
	}
	return out, nil
}

func (r *SQLiteRepository) Schedule(ctx context.Context) ([]core.ScheduleEntry, error) {
	body, err := r.Fetch(ctx, source.ScheduleDocument)
	if err != nil {
		return nil, err
	}
	return source.DecodeSchedule(bytes.NewReader(body), r.opts)
}

func (r *SQLiteRepository) Holidays(ctx context.Context) (core.HolidaySet, error) {
	body, err := r.Fetch(ctx, source.HolidaysDocument)
	if err != nil {
		return core.HolidaySet{}, err
	}
	return source.DecodeHolidays(bytes.NewReader(body), r.opts)
}

func (r *SQLiteRepository) Settings(ctx context.Context) (core.Settings, error) {
	body, err := r.Fetch(ctx, source.SettingsDocument)
	if errors.Is(err, source.ErrNotFound) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, err
	}
	return source.DecodeSettings(bytes.NewReader(body))
}

// Fetch returns a stored JSON document.
func (r *SQLiteRepository) Fetch(ctx context.Context, name string) ([]byte, error) {
	doc, err := r.queries.GetDocument(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", name, err)
	}
	return doc.Body, nil
}

// List returns the stored documents plus one "<year>.csv" per synced year.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListDocumentNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	years, err := r.Years(ctx)
	if err != nil {
		return nil, err
	}
	for _, y := range years {
		names = append(names, source.InvoiceDocument(y))
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot is the upstream data set pulled by one sync run.
type Snapshot struct {
	// Batches holds the invoice years to replace.
	Batches []core.InvoiceBatch
	// Full removes mirrored years that are absent from Batches.
	Full bool
	// Entities is nil when the entities were not pulled.
	Entities core.EntityMap
	// Documents maps JSON document names to their bodies. A nil body
	// deletes the stored document.
	Documents map[string][]byte
}

// ReplaceSnapshot writes s in a single transaction.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, s Snapshot) error {
	return r.RunInTx(ctx, func(q *Queries) error {
		now := time.Now().UTC()
		keep := make(map[int64]struct{}, len(s.Batches))

		for _, b := range s.Batches {
			year := int64(b.Year)
			keep[year] = struct{}{}
			if err := q.UpsertInvoiceYear(ctx, year, now); err != nil {
				return fmt.Errorf("upsert year %d: %w", year, err)
			}
			if err := q.DeleteInvoicesByYear(ctx, year); err != nil {
				return fmt.Errorf("clear invoices %d: %w", year, err)
			}
			if err := q.DeleteSkippedRowsByYear(ctx, year); err != nil {
				return fmt.Errorf("clear skipped rows %d: %w", year, err)
			}
			for i, inv := range b.Invoices {
				if err := q.CreateInvoice(ctx, CreateInvoiceParams{
					Year:        year,
					Position:    int64(i),
					NIF:         inv.NIF,
					Value:       inv.Value.String(),
					Issued:      inv.Issued,
					ServiceDate: inv.ServiceDate.ISO(),
				}); err != nil {
					return fmt.Errorf("insert invoice %d/%d: %w", year, i, err)
				}
			}
			for _, sk := range b.Skipped {
				if err := q.CreateSkippedRow(ctx, SkippedRow{Year: year, Line: int64(sk.Line), Reason: sk.Reason}); err != nil {
					return fmt.Errorf("insert skipped row %d/%d: %w", year, sk.Line, err)
				}
			}
		}

		if s.Full {
			existing, err := q.ListInvoiceYears(ctx)
			if err != nil {
				return fmt.Errorf("list invoice years: %w", err)
			}
			for _, y := range existing {
				if _, ok := keep[y]; ok {
					continue
				}
				if err := q.DeleteInvoicesByYear(ctx, y); err != nil {
					return fmt.Errorf("clear invoices %d: %w", y, err)
				}
				if err := q.DeleteSkippedRowsByYear(ctx, y); err != nil {
					return fmt.Errorf("clear skipped rows %d: %w", y, err)
				}
				if err := q.DeleteInvoiceYear(ctx, y); err != nil {
					return fmt.Errorf("delete year %d: %w", y, err)
				}
			}
		}

		if s.Entities != nil {
			if err := q.DeleteEntities(ctx); err != nil {
				return fmt.Errorf("clear entities: %w", err)
			}
			for _, e := range s.Entities.List() {
				if err := q.CreateEntity(ctx, Entity{NIF: e.NIF, Name: strings.TrimSpace(e.Name)}); err != nil {
					return fmt.Errorf("insert entity %s: %w", e.NIF, err)
				}
			}
		}

		for name, body := range s.Documents {
			if body == nil {
				if err := q.DeleteDocument(ctx, name); err != nil {
					return fmt.Errorf("delete document %s: %w", name, err)
				}
				continue
			}
			if err := q.UpsertDocument(ctx, name, body, now); err != nil {
				return fmt.Errorf("upsert document %s: %w", name, err)
			}
		}
		return nil
	})
}

// RunInTx runs fn inside a transaction, rolling back when it fails.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// StartSyncRun records the beginning of a sync and returns its id.
func (r *SQLiteRepository) StartSyncRun(ctx context.Context, requestID, reason string) (int64, error) {
	id, err := r.queries.CreateSyncRun(ctx, requestID, reason, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("create sync run: %w", err)
	}
	return id, nil
}

// FinishSyncRun stores the outcome of a sync. A nil syncErr marks success.
func (r *SQLiteRepository) FinishSyncRun(ctx context.Context, id int64, years, invoices int, syncErr error) error {
	arg := FinishSyncRunParams{
		ID:         id,
		Status:     SyncSucceeded,
		Years:      int64(years),
		Invoices:   int64(invoices),
		FinishedAt: time.Now().UTC(),
	}
	if syncErr != nil {
		arg.Status = SyncFailed
		arg.Error = syncErr.Error()
	}
	if err := r.queries.FinishSyncRun(ctx, arg); err != nil {
		return fmt.Errorf("finish sync run %d: %w", id, err)
	}
	return nil
}

// LastSyncRun returns the most recent sync run, or source.ErrNotFound.
func (r *SQLiteRepository) LastSyncRun(ctx context.Context) (SyncRun, error) {
	run, err := r.queries.GetLastSyncRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("sync run: %w", source.ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("get last sync run: %w", err)
	}
	return run, nil
}

// CleanupSyncRuns deletes sync runs older than age.
func (r *SQLiteRepository) CleanupSyncRuns(ctx context.Context, age time.Duration) (int64, error) {
	n, err := r.queries.DeleteSyncRunsBefore(ctx, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("cleanup sync runs: %w", err)
	}
	return n, nil
}

// CountInvoices returns the number of mirrored invoices across all years.
func (r *SQLiteRepository) CountInvoices(ctx context.Context) (int64, error) {
	return r.queries.CountInvoices(ctx)
}
