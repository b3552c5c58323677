package core

import (
	"sort"
	"strings"
	"unicode"
)

type (
	// Invoice is one row of a yearly invoice file.
	Invoice struct {
		NIF         string
		Value       Money
		Issued      string // DATA EMISSAO, kept as written
		ServiceDate Date   // DATA SERVICO
	}

	// RowError describes an invoice row that was skipped while loading.
	RowError struct {
		Line   int
		Reason string
	}

	// InvoiceBatch is the content of one year's invoice file.
	InvoiceBatch struct {
		Year     int
		Invoices []Invoice
		Skipped  []RowError
	}

	// Entity is a counterparty identified by NIF.
	Entity struct {
		NIF  string
		Name string
	}

	// EntityMap maps NIF to display name.
	EntityMap map[string]string

	// Settings holds the fiscal thresholds. A nil threshold is not configured.
	Settings struct {
		IVAThreshold           *Money
		RetencaoFonteThreshold *Money
		IRSThreshold           *Money
	}
)

// ValidateNIF checks that s is a non-empty string of digits.
func ValidateNIF(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidNIF
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return ErrInvalidNIF
		}
	}
	return nil
}

func (i Invoice) Validate() error {
	if err := ValidateNIF(i.NIF); err != nil {
		return err
	}
	if err := i.Value.Validate(); err != nil {
		return err
	}
	return i.ServiceDate.Validate()
}

// Quarter returns the fiscal quarter (1-4) of the service date.
func (i Invoice) Quarter() int {
	return QuarterOf(i.ServiceDate.Month())
}

// QuarterOf maps a month (1-12) to its quarter (1-4).
func QuarterOf(month int) int {
	switch {
	case month <= 3:
		return 1
	case month <= 6:
		return 2
	case month <= 9:
		return 3
	default:
		return 4
	}
}

// Total sums the invoice values of the batch.
func (b InvoiceBatch) Total() Money {
	total := Zero
	for _, inv := range b.Invoices {
		total = total.Add(inv.Value)
	}
	return total
}

// Name returns the entity name for nif.
func (m EntityMap) Name(nif string) (string, bool) {
	name, ok := m[nif]
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// List returns the entities ordered by NIF.
func (m EntityMap) List() []Entity {
	out := make([]Entity, 0, len(m))
	for nif, name := range m {
		out = append(out, Entity{NIF: nif, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NIF < out[j].NIF })
	return out
}
