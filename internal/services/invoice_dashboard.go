package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"recibos/internal/core"
)

const (
	// pieMaxSlices is the number of entities shown before folding into pieOthersLabel.
	pieMaxSlices   = 10
	pieOthersLabel = "Outros"
	noEntityName   = "-"
)

var hundred = decimal.NewFromInt(100)

// BuildInvoiceDashboard aggregates one year of invoices for the dashboard.
func BuildInvoiceDashboard(year int, batch core.InvoiceBatch, entities core.EntityMap, settings core.Settings) core.InvoiceDashboard {
	dash := core.InvoiceDashboard{
		Year:    year,
		Rows:    make([]core.InvoiceRow, 0, len(batch.Invoices)),
		Total:   core.Zero,
		Skipped: len(batch.Skipped),
	}

	for q := 0; q < 4; q++ {
		dash.Quarters[q] = core.QuarterSummary{Number: q + 1, Total: core.Zero}
		for i := 0; i < 3; i++ {
			month := q*3 + i + 1
			dash.Quarters[q].Months[i] = core.MonthTotal{
				Month: month,
				Name:  core.MonthName(month, core.LocalePT),
				Total: core.Zero,
			}
		}
	}

	counts := make(map[string]int)
	byLabel := make(map[string]core.Money)
	for _, inv := range batch.Invoices {
		quarter := inv.Quarter()
		name, ok := entities.Name(inv.NIF)
		if !ok {
			name = noEntityName
		}
		dash.Rows = append(dash.Rows, core.InvoiceRow{Invoice: inv, EntityName: name, Quarter: quarter})

		qs := &dash.Quarters[quarter-1]
		qs.Total = qs.Total.Add(inv.Value)
		mt := &qs.Months[(inv.ServiceDate.Month()-1)%3]
		mt.Total = mt.Total.Add(inv.Value)
		dash.Total = dash.Total.Add(inv.Value)

		counts[inv.NIF]++
		label := pieLabel(inv.NIF, entities)
		byLabel[label] = byLabel[label].Add(inv.Value)
	}
	dash.Count = len(dash.Rows)

	dash.Fiscal = FiscalIndicators(dash.Total, settings, len(entities) > 0)
	dash.ByEntity = countsByEntity(counts, entities)
	dash.Pie = pieSlices(byLabel, dash.Total)
	return dash
}

// FiscalIndicators compares total with each configured threshold. Without
// entities the data set is considered not loaded and every indicator is N/A.
func FiscalIndicators(total core.Money, settings core.Settings, haveEntities bool) []core.FiscalIndicator {
	thresholds := []struct {
		label string
		value *core.Money
	}{
		{"Pagamento IVA", settings.IVAThreshold},
		{"Retenção na Fonte", settings.RetencaoFonteThreshold},
		{"Pagamento IRS", settings.IRSThreshold},
	}

	out := make([]core.FiscalIndicator, 0, len(thresholds))
	for _, th := range thresholds {
		ind := core.FiscalIndicator{Label: th.label, Threshold: th.value}
		switch {
		case th.value == nil || !haveEntities:
			ind.Status = core.FiscalNotApplicable
		case total.Cmp(*th.value) > 0:
			ind.Status = core.FiscalReached
		default:
			ind.Status = core.FiscalNotReached
		}
		out = append(out, ind)
	}
	return out
}

func pieLabel(nif string, entities core.EntityMap) string {
	if name, ok := entities.Name(nif); ok {
		return name
	}
	return "NIF " + nif
}

func countsByEntity(counts map[string]int, entities core.EntityMap) []core.EntityCount {
	out := make([]core.EntityCount, 0, len(counts))
	for nif, n := range counts {
		name, ok := entities.Name(nif)
		if !ok {
			name = nif
		}
		out = append(out, core.EntityCount{NIF: nif, Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].NIF < out[j].NIF
	})
	return out
}

func pieSlices(byLabel map[string]core.Money, total core.Money) []core.PieSlice {
	all := make([]core.PieSlice, 0, len(byLabel))
	for label, value := range byLabel {
		all = append(all, core.PieSlice{Label: label, Value: value})
	}
	sort.Slice(all, func(i, j int) bool {
		if c := all[i].Value.Cmp(all[j].Value); c != 0 {
			return c > 0
		}
		return all[i].Label < all[j].Label
	})

	if len(all) > pieMaxSlices {
		others := core.PieSlice{Label: pieOthersLabel, Value: core.Zero}
		for _, s := range all[pieMaxSlices:] {
			others.Value = others.Value.Add(s.Value)
		}
		all = append(all[:pieMaxSlices], others)
	}

	if !total.IsZero() {
		for i := range all {
			pct, _ := all[i].Value.Amount.Div(total.Amount).Mul(hundred).Float64()
			all[i].Percent = pct
		}
	}
	return all
}
