package storage

import (
	"context"
	"time"
)

const listInvoiceYears = `SELECT year FROM invoice_years ORDER BY year DESC`

func (q *Queries) ListInvoiceYears(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listInvoiceYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var year int64
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		items = append(items, year)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const hasInvoiceYear = `SELECT COUNT(*) FROM invoice_years WHERE year = ?`

func (q *Queries) HasInvoiceYear(ctx context.Context, year int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, hasInvoiceYear, year).Scan(&n)
	return n > 0, err
}

const upsertInvoiceYear = `INSERT INTO invoice_years (year, synced_at) VALUES (?, ?)
ON CONFLICT(year) DO UPDATE SET synced_at = excluded.synced_at`

func (q *Queries) UpsertInvoiceYear(ctx context.Context, year int64, syncedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertInvoiceYear, year, syncedAt)
	return err
}

const deleteInvoiceYear = `DELETE FROM invoice_years WHERE year = ?`

func (q *Queries) DeleteInvoiceYear(ctx context.Context, year int64) error {
	_, err := q.db.ExecContext(ctx, deleteInvoiceYear, year)
	return err
}

const deleteInvoicesByYear = `DELETE FROM invoices WHERE year = ?`

func (q *Queries) DeleteInvoicesByYear(ctx context.Context, year int64) error {
	_, err := q.db.ExecContext(ctx, deleteInvoicesByYear, year)
	return err
}

const deleteSkippedRowsByYear = `DELETE FROM skipped_rows WHERE year = ?`

func (q *Queries) DeleteSkippedRowsByYear(ctx context.Context, year int64) error {
	_, err := q.db.ExecContext(ctx, deleteSkippedRowsByYear, year)
	return err
}

const createInvoice = `INSERT INTO invoices (year, position, nif, value, issued, service_date)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateInvoiceParams struct {
	Year        int64
	Position    int64
	NIF         string
	Value       string
	Issued      string
	ServiceDate string
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) error {
	_, err := q.db.ExecContext(ctx, createInvoice,
		arg.Year,
		arg.Position,
		arg.NIF,
		arg.Value,
		arg.Issued,
		arg.ServiceDate,
	)
	return err
}

const getInvoicesByYear = `SELECT id, year, position, nif, value, issued, service_date
FROM invoices WHERE year = ? ORDER BY position`

func (q *Queries) GetInvoicesByYear(ctx context.Context, year int64) ([]Invoice, error) {
	rows, err := q.db.QueryContext(ctx, getInvoicesByYear, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		var i Invoice
		if err := rows.Scan(
			&i.ID,
			&i.Year,
			&i.Position,
			&i.NIF,
			&i.Value,
			&i.Issued,
			&i.ServiceDate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countInvoices = `SELECT COUNT(*) FROM invoices`

func (q *Queries) CountInvoices(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countInvoices).Scan(&n)
	return n, err
}

const createSkippedRow = `INSERT INTO skipped_rows (year, line, reason) VALUES (?, ?, ?)`

func (q *Queries) CreateSkippedRow(ctx context.Context, arg SkippedRow) error {
	_, err := q.db.ExecContext(ctx, createSkippedRow, arg.Year, arg.Line, arg.Reason)
	return err
}

const getSkippedRowsByYear = `SELECT year, line, reason FROM skipped_rows WHERE year = ? ORDER BY line`

func (q *Queries) GetSkippedRowsByYear(ctx context.Context, year int64) ([]SkippedRow, error) {
	rows, err := q.db.QueryContext(ctx, getSkippedRowsByYear, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SkippedRow
	for rows.Next() {
		var s SkippedRow
		if err := rows.Scan(&s.Year, &s.Line, &s.Reason); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEntities = `DELETE FROM entities`

func (q *Queries) DeleteEntities(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteEntities)
	return err
}

const createEntity = `INSERT INTO entities (nif, name) VALUES (?, ?)`

func (q *Queries) CreateEntity(ctx context.Context, arg Entity) error {
	_, err := q.db.ExecContext(ctx, createEntity, arg.NIF, arg.Name)
	return err
}

const listEntities = `SELECT nif, name FROM entities ORDER BY nif`

func (q *Queries) ListEntities(ctx context.Context) ([]Entity, error) {
	rows, err := q.db.QueryContext(ctx, listEntities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.NIF, &e.Name); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertDocument = `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

func (q *Queries) UpsertDocument(ctx context.Context, name string, body []byte, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertDocument, name, body, updatedAt)
	return err
}

const deleteDocument = `DELETE FROM documents WHERE name = ?`

func (q *Queries) DeleteDocument(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, name)
	return err
}

const getDocument = `SELECT name, body, updated_at FROM documents WHERE name = ?`

func (q *Queries) GetDocument(ctx context.Context, name string) (Document, error) {
	var d Document
	err := q.db.QueryRowContext(ctx, getDocument, name).Scan(&d.Name, &d.Body, &d.UpdatedAt)
	return d, err
}

const listDocumentNames = `SELECT name FROM documents ORDER BY name`

func (q *Queries) ListDocumentNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listDocumentNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSyncRun = `INSERT INTO sync_runs (request_id, reason, status, started_at) VALUES (?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateSyncRun(ctx context.Context, requestID, reason string, startedAt time.Time) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createSyncRun, requestID, reason, SyncRunning, startedAt).Scan(&id)
	return id, err
}

const finishSyncRun = `UPDATE sync_runs
SET status = ?, years = ?, invoices = ?, error = ?, finished_at = ?
WHERE id = ?`

type FinishSyncRunParams struct {
	ID         int64
	Status     string
	Years      int64
	Invoices   int64
	Error      string
	FinishedAt time.Time
}

func (q *Queries) FinishSyncRun(ctx context.Context, arg FinishSyncRunParams) error {
	_, err := q.db.ExecContext(ctx, finishSyncRun,
		arg.Status,
		arg.Years,
		arg.Invoices,
		arg.Error,
		arg.FinishedAt,
		arg.ID,
	)
	return err
}

const getLastSyncRun = `SELECT id, request_id, reason, status, years, invoices, error, started_at, finished_at
FROM sync_runs ORDER BY id DESC LIMIT 1`

func (q *Queries) GetLastSyncRun(ctx context.Context) (SyncRun, error) {
	var r SyncRun
	err := q.db.QueryRowContext(ctx, getLastSyncRun).Scan(
		&r.ID,
		&r.RequestID,
		&r.Reason,
		&r.Status,
		&r.Years,
		&r.Invoices,
		&r.Error,
		&r.StartedAt,
		&r.FinishedAt,
	)
	return r, err
}

const deleteSyncRunsBefore = `DELETE FROM sync_runs WHERE started_at < ?`

func (q *Queries) DeleteSyncRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSyncRunsBefore, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
