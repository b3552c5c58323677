package services

import (
	"fmt"
	"testing"

	"recibos/internal/core"
)

func invoice(nif, value, serviceDate string) core.Invoice {
	d, err := core.ParseISODate(serviceDate)
	if err != nil {
		panic(err)
	}
	return core.Invoice{NIF: nif, Value: core.MustParseMoney(value), Issued: serviceDate, ServiceDate: d}
}

func moneyRef(s string) *core.Money {
	m := core.MustParseMoney(s)
	return &m
}

func TestBuildInvoiceDashboard_Quarters(t *testing.T) {
	batch := core.InvoiceBatch{
		Year: 2025,
		Invoices: []core.Invoice{
			invoice("111111111", "100.10", "2025-01-15"),
			invoice("111111111", "200.20", "2025-03-31"),
			invoice("222222222", "50.00", "2025-04-01"),
			invoice("333333333", "0.70", "2025-12-31"),
		},
		Skipped: []core.RowError{{Line: 3, Reason: "invalid VALOR"}},
	}
	entities := core.EntityMap{"111111111": "Escola A"}

	dash := BuildInvoiceDashboard(2025, batch, entities, core.Settings{})

	if dash.Count != 4 || dash.Skipped != 1 {
		t.Fatalf("Count=%d Skipped=%d", dash.Count, dash.Skipped)
	}
	if got := dash.Total.String(); got != "351.00" {
		t.Fatalf("Total = %s, want 351.00", got)
	}
	wantQuarters := []string{"300.30", "50.00", "0.00", "0.70"}
	for i, want := range wantQuarters {
		if got := dash.Quarters[i].Total.String(); got != want {
			t.Errorf("Q%d = %s, want %s", i+1, got, want)
		}
	}
	if m := dash.Quarters[0].Months[2]; m.Name != "Março" || m.Total.String() != "200.20" {
		t.Errorf("March subtotal = %+v", m)
	}
	if dash.Rows[0].EntityName != "Escola A" || dash.Rows[2].EntityName != "-" {
		t.Errorf("entity names not resolved: %q %q", dash.Rows[0].EntityName, dash.Rows[2].EntityName)
	}
	if dash.Rows[2].Quarter != 2 {
		t.Errorf("2025-04-01 should be Q2, got Q%d", dash.Rows[2].Quarter)
	}
}

func TestFiscalIndicators(t *testing.T) {
	settings := core.Settings{
		IVAThreshold: moneyRef("15000"),
		IRSThreshold:  moneyRef("100"),
	}
	tests := []struct {
		name         string
		total        string
		haveEntities bool
		want         []core.FiscalStatus
	}{
		{"below", "99.99", true, []core.FiscalStatus{core.FiscalNotReached, core.FiscalNotApplicable, core.FiscalNotReached}},
		{"equal is not reached", "100.00", true, []core.FiscalStatus{core.FiscalNotReached, core.FiscalNotApplicable, core.FiscalNotReached}},
		{"above", "100.01", true, []core.FiscalStatus{core.FiscalNotReached, core.FiscalNotApplicable, core.FiscalReached}},
		{"no entities", "20000", false, []core.FiscalStatus{core.FiscalNotApplicable, core.FiscalNotApplicable, core.FiscalNotApplicable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FiscalIndicators(core.MustParseMoney(tt.total), settings, tt.haveEntities)
			if len(got) != 3 {
				t.Fatalf("expected 3 indicators, got %d", len(got))
			}
			for i, ind := range got {
				if ind.Status != tt.want[i] {
					t.Errorf("%s: status %s, want %s", ind.Label, ind.Status, tt.want[i])
				}
			}
		})
	}
}

func TestBuildInvoiceDashboard_CountsByEntity(t *testing.T) {
	batch := core.InvoiceBatch{Invoices: []core.Invoice{
		invoice("300", "1", "2025-01-01"),
		invoice("200", "1", "2025-01-01"),
		invoice("100", "1", "2025-01-01"),
		invoice("300", "1", "2025-01-02"),
	}}
	dash := BuildInvoiceDashboard(2025, batch, core.EntityMap{"300": "Três"}, core.Settings{})

	want := []core.EntityCount{{NIF: "300", Name: "Três", Count: 2}, {NIF: "100", Name: "100", Count: 1}, {NIF: "200", Name: "200", Count: 1}}
	if len(dash.ByEntity) != len(want) {
		t.Fatalf("ByEntity = %+v", dash.ByEntity)
	}
	for i := range want {
		if dash.ByEntity[i] != want[i] {
			t.Errorf("ByEntity[%d] = %+v, want %+v", i, dash.ByEntity[i], want[i])
		}
	}
}

func TestBuildInvoiceDashboard_PieFoldsIntoOthers(t *testing.T) {
	var invoices []core.Invoice
	for i := 1; i <= 12; i++ {
		invoices = append(invoices, invoice(fmt.Sprintf("%09d", i), fmt.Sprintf("%d0", i), "2025-05-05"))
	}
	dash := BuildInvoiceDashboard(2025, core.InvoiceBatch{Invoices: invoices}, core.EntityMap{"000000012": "Maior"}, core.Settings{})

	if len(dash.Pie) != pieMaxSlices+1 {
		t.Fatalf("expected %d slices, got %d", pieMaxSlices+1, len(dash.Pie))
	}
	if dash.Pie[0].Label != "Maior" {
		t.Errorf("largest slice label = %q", dash.Pie[0].Label)
	}
	if dash.Pie[1].Label != "NIF 000000011" {
		t.Errorf("fallback label = %q", dash.Pie[1].Label)
	}
	others := dash.Pie[len(dash.Pie)-1]
	if others.Label != "Outros" || others.Value.String() != "30.00" {
		t.Errorf("others slice = %+v", others)
	}

	var pct float64
	for _, s := range dash.Pie {
		pct += s.Percent
	}
	if pct < 99.99 || pct > 100.01 {
		t.Errorf("percentages sum to %v", pct)
	}
}

func TestBuildInvoiceDashboard_Empty(t *testing.T) {
	dash := BuildInvoiceDashboard(2025, core.InvoiceBatch{}, nil, core.Settings{IVAThreshold: moneyRef("1")})
	if !dash.Total.IsZero() || dash.Count != 0 || len(dash.Pie) != 0 {
		t.Fatalf("expected empty dashboard, got %+v", dash)
	}
	if dash.Fiscal[0].Status != core.FiscalNotApplicable {
		t.Fatalf("fiscal status without entities = %s", dash.Fiscal[0].Status)
	}
}
