package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"recibos/internal/core"
)

// Invoice CSV header names.
const (
	ColumnNIF         = "NIF"
	ColumnValue       = "VALOR"
	ColumnIssued      = "DATA EMISSAO"
	ColumnServiceDate = "DATA SERVICO"
)

var (
	valuePattern    = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearFilePattern = regexp.MustCompile(`^(\d{4})\.csv$`)
)

// DecodeInvoices reads a year's invoice CSV. Rows failing validation are
// reported in Skipped; a missing required column fails the whole document.
func DecodeInvoices(r io.Reader, year int) (core.InvoiceBatch, error) {
	doc := InvoiceDocument(year)
	batch := core.InvoiceBatch{Year: year, Invoices: []core.Invoice{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return batch, nil
	}
	if err != nil {
		return batch, decodeErr(doc, 1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	cols, err := invoiceColumns(doc, header)
	if err != nil {
		return batch, err
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batch, decodeErr(doc, line+1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
		}
		line, _ = cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		inv, reason := invoiceFromRecord(rec, cols)
		if reason != "" {
			batch.Skipped = append(batch.Skipped, core.RowError{Line: line, Reason: reason})
			continue
		}
		batch.Invoices = append(batch.Invoices, inv)
	}
	return batch, nil
}

type invoiceCols struct {
	nif, value, issued, service int
}

func invoiceColumns(doc string, header []string) (invoiceCols, error) {
	cols := invoiceCols{
		nif:     indexOf(header, ColumnNIF),
		value:   indexOf(header, ColumnValue),
		issued:  indexOf(header, ColumnIssued),
		service: indexOf(header, ColumnServiceDate),
	}
	var missing []string
	if cols.nif < 0 {
		missing = append(missing, ColumnNIF)
	}
	if cols.value < 0 {
		missing = append(missing, ColumnValue)
	}
	if cols.service < 0 {
		missing = append(missing, ColumnServiceDate)
	}
	if len(missing) > 0 {
		return cols, decodeErr(doc, -1, strings.Join(missing, ","), ErrMissingColumn)
	}
	return cols, nil
}

// InvoicesFromTable validates a header row followed by invoice rows, as
// returned by spreadsheet backends. Line numbers count the header as 1.
func InvoicesFromTable(year int, table [][]string) (core.InvoiceBatch, error) {
	batch := core.InvoiceBatch{Year: year, Invoices: []core.Invoice{}}
	if len(table) == 0 {
		return batch, nil
	}
	cols, err := invoiceColumns(InvoiceDocument(year), table[0])
	if err != nil {
		return batch, err
	}
	for i, rec := range table[1:] {
		if isBlank(rec) {
			continue
		}
		inv, reason := invoiceFromRecord(rec, cols)
		if reason != "" {
			batch.Skipped = append(batch.Skipped, core.RowError{Line: i + 2, Reason: reason})
			continue
		}
		batch.Invoices = append(batch.Invoices, inv)
	}
	return batch, nil
}

func invoiceFromRecord(rec []string, cols invoiceCols) (core.Invoice, string) {
	nif := safeGet(rec, cols.nif)
	value := safeGet(rec, cols.value)
	service := safeGet(rec, cols.service)

	if core.ValidateNIF(nif) != nil {
		return core.Invoice{}, fmt.Sprintf("invalid NIF %q", nif)
	}
	if !valuePattern.MatchString(value) {
		return core.Invoice{}, fmt.Sprintf("invalid VALOR %q", value)
	}
	if !isoDatePattern.MatchString(service) {
		return core.Invoice{}, fmt.Sprintf("invalid DATA SERVICO %q", service)
	}
	date, err := core.ParseISODate(service)
	if err != nil {
		return core.Invoice{}, fmt.Sprintf("invalid DATA SERVICO %q", service)
	}
	amount, err := core.ParseMoney(value)
	if err != nil {
		return core.Invoice{}, fmt.Sprintf("invalid VALOR %q", value)
	}
	return core.Invoice{
		NIF:         nif,
		Value:       amount,
		Issued:      safeGet(rec, cols.issued),
		ServiceDate: date,
	}, ""
}

// DecodeIndex reads index.json, a list of "YYYY.csv" names, and returns the
// years newest first. Names of another shape are ignored.
func DecodeIndex(r io.Reader) ([]int, error) {
	var names []string
	if err := json.NewDecoder(r).Decode(&names); err != nil {
		return nil, decodeErr(IndexDocument, -1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	return YearsFromNames(names), nil
}

// YearsFromNames extracts the years of "YYYY.csv" file names, newest first
// and without duplicates.
func YearsFromNames(names []string) []int {
	seen := make(map[int]struct{}, len(names))
	years := make([]int, 0, len(names))
	for _, name := range names {
		m := yearFilePattern.FindStringSubmatch(strings.TrimSpace(name))
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		v = strings.TrimPrefix(v, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
