package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"recibos/internal/core"
)

// Fetcher serves raw documents by name. Backends storing plain files
// (a local folder, Dropbox) implement it and get every reader from Documents.
type Fetcher interface {
	// Fetch returns the document body, or an error wrapping ErrNotFound.
	Fetch(ctx context.Context, name string) ([]byte, error)
	// List returns the names of the documents in the data folder.
	List(ctx context.Context) ([]string, error)
}

// Documents decodes the documents of a Fetcher into domain types.
type Documents struct {
	fetcher Fetcher
	opts    DecodeOptions
}

var (
	_ Source  = (*Documents)(nil)
	_ Fetcher = (*Documents)(nil)
)

func NewDocuments(f Fetcher, opts DecodeOptions) *Documents {
	return &Documents{fetcher: f, opts: opts}
}

func (d *Documents) Fetch(ctx context.Context, name string) ([]byte, error) {
	return d.fetcher.Fetch(ctx, name)
}

func (d *Documents) List(ctx context.Context) ([]string, error) {
	return d.fetcher.List(ctx)
}

// Years reads index.json and falls back to listing the folder when the
// index is missing.
func (d *Documents) Years(ctx context.Context) ([]int, error) {
	body, err := d.fetcher.Fetch(ctx, IndexDocument)
	switch {
	case err == nil:
		return DecodeIndex(bytes.NewReader(body))
	case errors.Is(err, ErrNotFound):
		names, err := d.fetcher.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		return YearsFromNames(names), nil
	default:
		return nil, fmt.Errorf("fetch %s: %w", IndexDocument, err)
	}
}

func (d *Documents) Invoices(ctx context.Context, year int) (core.InvoiceBatch, error) {
	name := InvoiceDocument(year)
	body, err := d.fetcher.Fetch(ctx, name)
	if err != nil {
		return core.InvoiceBatch{Year: year}, fmt.Errorf("fetch %s: %w", name, err)
	}
	return DecodeInvoices(bytes.NewReader(body), year)
}

func (d *Documents) Entities(ctx context.Context) (core.EntityMap, error) {
	body, err := d.fetcher.Fetch(ctx, EntitiesDocument)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", EntitiesDocument, err)
	}
	return DecodeEntities(bytes.NewReader(body))
}

func (d *Documents) Schedule(ctx context.Context) ([]core.ScheduleEntry, error) {
	body, err := d.fetcher.Fetch(ctx, ScheduleDocument)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ScheduleDocument, err)
	}
	return DecodeSchedule(bytes.NewReader(body), d.opts)
}

func (d *Documents) Holidays(ctx context.Context) (core.HolidaySet, error) {
	body, err := d.fetcher.Fetch(ctx, HolidaysDocument)
	if err != nil {
		return core.HolidaySet{}, fmt.Errorf("fetch %s: %w", HolidaysDocument, err)
	}
	return DecodeHolidays(bytes.NewReader(body), d.opts)
}

// Settings returns empty settings when config.json does not exist.
func (d *Documents) Settings(ctx context.Context) (core.Settings, error) {
	body, err := d.fetcher.Fetch(ctx, SettingsDocument)
	if errors.Is(err, ErrNotFound) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("fetch %s: %w", SettingsDocument, err)
	}
	return DecodeSettings(bytes.NewReader(body))
}
