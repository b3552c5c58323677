// Package google reads invoices and entities from a Google Sheets
// spreadsheet. The JSON documents are served by a companion fetcher.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/source"
)

// EntitiesSheet is the tab holding NIF and Nome columns.
const EntitiesSheet = "Entidades"

// Config selects the spreadsheet and its credentials.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	entitiesSheet string
	docs          *source.Documents
	logger        *log.Logger
}

var _ source.Source = (*Client)(nil)

// New creates a Sheets client using service account credentials. docs serves
// the schedule, holidays and settings documents.
func New(ctx context.Context, cfg Config, docs *source.Documents) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg.SpreadsheetID, docs), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, docs *source.Documents) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		entitiesSheet: EntitiesSheet,
		docs:          docs,
		logger:        log.Default(log.ComponentSheets),
	}
}

// newSheetsService initializes a read-only Sheets service. Credentials come
// from the inline JSON, then the file, then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Years lists the tabs named after a year.
func (c *Client) Years(ctx context.Context) ([]int, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return yearTabs(titles), nil
}

func (c *Client) Invoices(ctx context.Context, year int) (core.InvoiceBatch, error) {
	if c.svc == nil {
		return core.InvoiceBatch{Year: year}, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("'%d'!A:Z", year)
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.InvoiceBatch{Year: year}, fmt.Errorf("read %s: %w", rng, err)
	}
	batch, err := parseInvoices(resp.Values, year)
	if err != nil {
		return batch, err
	}
	c.logger.DebugContext(ctx, "Read invoice tab", log.FieldYear, year, log.FieldCount, len(batch.Invoices), log.FieldDuration, time.Since(start).Milliseconds())
	return batch, nil
}

func (c *Client) Entities(ctx context.Context) (core.EntityMap, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", c.entitiesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseEntities(resp.Values)
}

func (c *Client) Schedule(ctx context.Context) ([]core.ScheduleEntry, error) {
	return c.docs.Schedule(ctx)
}

func (c *Client) Holidays(ctx context.Context) (core.HolidaySet, error) {
	return c.docs.Holidays(ctx)
}

func (c *Client) Settings(ctx context.Context) (core.Settings, error) {
	return c.docs.Settings(ctx)
}

// Fetch serves the JSON documents for the mirror sync.
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	return c.docs.Fetch(ctx, name)
}
