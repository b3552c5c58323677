package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/services"
)

const pieBarMinWidth = 1

type invoiceRowView struct {
	NIF         string
	Entity      string
	Value       string
	Issued      string
	ServiceDate string
	Quarter     string
}

type monthTotalView struct{ Name, Total string }

type quarterView struct {
	Label  string
	Total  string
	Months []monthTotalView
}

type fiscalView struct {
	Label     string
	Threshold string
	Status    string
	StateText string
}

type entityCountView struct {
	NIF   string
	Name  string
	Count int
}

type pieSliceView struct {
	Label   string
	Value   string
	Percent string
	Width   int
}

type invoicesView struct {
	Year     int
	Years    []int
	SelfURL  string
	Rows     []invoiceRowView
	Quarters []quarterView
	Total    string
	Count    int
	Skipped  int
	Fiscal   []fiscalView
	ByEntity []entityCountView
	Pie      []pieSliceView
}

var fiscalStateText = map[core.FiscalStatus]string{
	core.FiscalReached:       "Atingido",
	core.FiscalNotReached:    "Não atingido",
	core.FiscalNotApplicable: "N/A",
}

func (s *Server) invoicesView() view {
	return view{
		key:       "invoices",
		title:     "Faturas",
		partial:   "ui_invoices",
		build:     s.buildInvoicesView,
		component: log.ComponentInvoices,
	}
}

func (s *Server) handleInvoicesPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página não encontrada").Write(w)
		return
	}
	s.servePage(w, r, s.invoicesView())
}

func (s *Server) handleInvoicesPartial(w http.ResponseWriter, r *http.Request) {
	s.servePartial(w, r, s.invoicesView())
}

// buildInvoicesView loads a year of invoices with the entities and settings.
// Any failure renders the dashboard of an empty data set.
func (s *Server) buildInvoicesView(ctx context.Context, p ViewParams) (any, error) {
	years, yerr := s.data.Years(ctx)
	year := pickYear(p, years, s.now().Year())

	batch, berr := s.data.Invoices(ctx, year)
	entities, eerr := s.data.Entities(ctx)
	settings, serr := s.data.Settings(ctx)

	err := errors.Join(yerr, optional(berr), optional(eerr), serr)
	if err != nil {
		batch, entities, settings = core.InvoiceBatch{Year: year}, core.EntityMap{}, core.Settings{}
	}
	if berr != nil {
		batch = core.InvoiceBatch{Year: year}
	}

	dash := services.BuildInvoiceDashboard(year, batch, entities, settings)
	return newInvoicesView(dash, yearOptions(years, []int{year})), err
}

func newInvoicesView(d core.InvoiceDashboard, years []int) invoicesView {
	v := invoicesView{
		Year:    d.Year,
		Years:   years,
		SelfURL: viewURL("/ui/invoices", d.Year, services.SortState{}, nil),
		Total:   formatEuros(d.Total),
		Count:   d.Count,
		Skipped: d.Skipped,
	}

	for _, row := range d.Rows {
		v.Rows = append(v.Rows, invoiceRowView{
			NIF:         row.NIF,
			Entity:      row.EntityName,
			Value:       formatEuros(row.Value),
			Issued:      row.Issued,
			ServiceDate: row.ServiceDate.ISO(),
			Quarter:     "T" + strconv.Itoa(row.Quarter),
		})
	}

	for _, q := range d.Quarters {
		qv := quarterView{Label: "Trimestre " + strconv.Itoa(q.Number), Total: formatEuros(q.Total)}
		for _, m := range q.Months {
			qv.Months = append(qv.Months, monthTotalView{Name: m.Name, Total: formatEuros(m.Total)})
		}
		v.Quarters = append(v.Quarters, qv)
	}

	for _, f := range d.Fiscal {
		fv := fiscalView{Label: f.Label, Status: string(f.Status), StateText: fiscalStateText[f.Status], Threshold: "-"}
		if f.Threshold != nil {
			fv.Threshold = formatEuros(*f.Threshold)
		}
		v.Fiscal = append(v.Fiscal, fv)
	}

	for _, c := range d.ByEntity {
		v.ByEntity = append(v.ByEntity, entityCountView{NIF: c.NIF, Name: c.Name, Count: c.Count})
	}

	for _, slice := range d.Pie {
		width := int(slice.Percent + 0.5)
		if width < pieBarMinWidth {
			width = pieBarMinWidth
		}
		v.Pie = append(v.Pie, pieSliceView{
			Label:   slice.Label,
			Value:   formatEuros(slice.Value),
			Percent: formatPercent(slice.Percent),
			Width:   min(width, 100),
		})
	}
	return v
}
