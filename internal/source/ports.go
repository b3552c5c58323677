// Package source defines the read ports of the data set and decodes the
// documents every backend serves.
package source

import (
	"context"
	"fmt"

	"recibos/internal/core"
)

// Document names shared by all backends.
const (
	IndexDocument    = "index.json"
	EntitiesDocument = "nifs.json"
	ScheduleDocument = "classValues.json"
	HolidaysDocument = "holidays.json"
	SettingsDocument = "config.json"
)

// InvoiceDocument returns the file name of a year's invoices, e.g. "2025.csv".
func InvoiceDocument(year int) string {
	return fmt.Sprintf("%d.csv", year)
}

// Ports for inbound data.
type (
	InvoiceReader interface {
		// Years returns the years with an invoice file, newest first.
		Years(ctx context.Context) ([]int, error)
		// Invoices returns the valid rows of a year together with the skipped ones.
		Invoices(ctx context.Context, year int) (core.InvoiceBatch, error)
	}

	EntityReader interface {
		Entities(ctx context.Context) (core.EntityMap, error)
	}

	ScheduleReader interface {
		Schedule(ctx context.Context) ([]core.ScheduleEntry, error)
	}

	HolidayReader interface {
		Holidays(ctx context.Context) (core.HolidaySet, error)
	}

	SettingsReader interface {
		Settings(ctx context.Context) (core.Settings, error)
	}

	// Source is a complete data set backend.
	Source interface {
		InvoiceReader
		EntityReader
		ScheduleReader
		HolidayReader
		SettingsReader
	}
)
