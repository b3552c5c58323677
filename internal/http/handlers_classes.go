package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/services"
)

var classesColumns = [][2]string{
	{services.SortByNIF, "NIF"},
	{services.SortByEntity, "Entidade"},
	{services.SortByClasses, "Aulas"},
	{services.SortByValue, "Valores"},
	{services.SortByVariation, "Variação"},
}

type valueGroupView struct {
	Value string
	Types string
}

type classesRowView struct {
	NIF        string
	Entity     string
	NumClasses int
	Values     []valueGroupView
	Types      []core.TypeCount
	Variation  string
	Trend      string
	Expired    bool
}

type classesView struct {
	Year         int
	Years        []int
	CompareYear  int
	CompareYears []int
	SelfURL      string
	Columns      []column
	Rows         []classesRowView
}

func (s *Server) classesView() view {
	return view{
		key:       "classes",
		title:     "Aulas",
		partial:   "ui_classes",
		build:     s.buildClassesView,
		component: log.ComponentClasses,
	}
}

func (s *Server) handleClassesPage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.classesView())
}

func (s *Server) handleClassesPartial(w http.ResponseWriter, r *http.Request) {
	s.servePartial(w, r, s.classesView())
}

// buildClassesView summarises the classes of the requested year against a
// comparison year, the newest other year found in validity periods by default.
func (s *Server) buildClassesView(ctx context.Context, p ViewParams) (any, error) {
	now := s.now()
	year := now.Year()
	if p.HasYear {
		year = p.Year
	}

	entries, serr := s.data.Schedule(ctx)
	entities, eerr := s.data.Entities(ctx)
	err := errors.Join(optional(serr), optional(eerr))
	if err != nil || serr != nil {
		entries = nil
	}
	if err != nil || eerr != nil {
		entities = core.EntityMap{}
	}

	compareYears := services.CompareYears(entries, year)
	compare := p.Compare
	if compare == 0 && len(compareYears) > 0 {
		compare = compareYears[0]
	}
	state := p.SortState(services.DefaultClassesSort,
		services.SortByNIF, services.SortByEntity, services.SortByClasses, services.SortByValue, services.SortByVariation)

	rows := services.BuildClassesInfo(entries, entities, services.ClassesOptions{
		CurrentYear: year,
		CompareYear: compare,
		Sort:        state,
		Now:         now,
	})

	var extra url.Values
	if compare != 0 {
		extra = url.Values{"compare": {strconv.Itoa(compare)}}
	}
	v := classesView{
		Year:         year,
		Years:        yearOptions([]int{year, now.Year()}, compareYears),
		CompareYear:  compare,
		CompareYears: compareYears,
		SelfURL:      viewURL("/ui/classes", year, state, extra),
		Columns:      columns("/ui/classes", year, state, extra, classesColumns...),
	}
	for _, r := range rows {
		v.Rows = append(v.Rows, newClassesRow(r))
	}
	return v, err
}

func newClassesRow(r core.ClassesRow) classesRowView {
	row := classesRowView{
		NIF:        r.NIF,
		Entity:     r.EntityName,
		NumClasses: r.NumClasses,
		Types:      r.Types,
		Trend:      string(r.Variation.Trend),
		Expired:    r.Expired,
	}
	row.Variation = formatVariation(r.Variation.Trend, r.Variation.Percent)
	for _, g := range r.Values {
		row.Values = append(row.Values, valueGroupView{Value: formatEuros(g.Value), Types: strings.Join(g.Types, ", ")})
	}
	return row
}
