package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync/atomic"

	"recibos/internal/log"
	"recibos/internal/services"
	"recibos/internal/source"
)

// loadFailedMessage is shown when a view falls back to its empty state.
const loadFailedMessage = "Não foi possível carregar os dados. A mostrar a vista vazia."

// page is the data of a full page; View is what the matching partial renders.
type page struct {
	Title  string
	Active string
	Nav    []navItem
	Error  string
	View   any
}

type navItem struct{ Path, Key, Label string }

// navItems are the links of the top navigation bar.
var navItems = []navItem{
	{"/", "invoices", "Faturas"},
	{"/calendar", "calendar", "Calendário"},
	{"/classes", "classes", "Aulas"},
	{"/entities", "entities", "Entidades"},
}

// column is a sortable table header.
type column struct {
	Label  string
	URL    string
	Active bool
	Dir    string
}

// viewFunc builds the data of one view. On failure it still returns the
// empty-state view together with the error.
type viewFunc func(ctx context.Context, p ViewParams) (any, error)

// view pairs a partial template with its builder.
type view struct {
	key       string
	title     string
	partial   string
	build     viewFunc
	component string
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, v view) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	// htmx asking for a page path only swaps the view
	if IsHTMX(r) && r.Header.Get("HX-Boosted") == "" {
		s.servePartial(w, r, v)
		return
	}
	ctx, cancel := s.loadContext(r)
	defer cancel()

	data, err := v.build(ctx, ParseViewParams(r.URL.Query()))
	p := page{Title: v.title, Active: v.key, Nav: navItems, View: data}
	if err != nil {
		s.logLoadFailure(r, v, err)
		p.Error = loadFailedMessage
	}

	body, rerr := s.renderTemplate(v.key+".html", p)
	if rerr != nil {
		s.logRenderFailure(r, v.key+".html", rerr)
		InternalServerError("Erro ao mostrar a página").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) servePartial(w http.ResponseWriter, r *http.Request, v view) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := s.loadContext(r)
	defer cancel()

	data, err := v.build(ctx, ParseViewParams(r.URL.Query()))
	resp := NewHTMXResponse()
	if err != nil {
		s.logLoadFailure(r, v, err)
		resp.TriggerErrorNotification(loadFailedMessage)
	}

	body, rerr := s.renderTemplate(v.partial, data)
	if rerr != nil {
		s.logRenderFailure(r, v.partial, rerr)
		InternalServerError("Erro ao mostrar a vista").TriggerErrorNotification("Erro ao mostrar a vista").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) logLoadFailure(r *http.Request, v view, err error) {
	atomic.AddInt64(&s.appMetrics.loadFailures, 1)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
		"Data load failed, rendering empty state", err, v.component, log.OpLoad,
		log.LogFields{log.FieldPath: r.URL.Path})
}

func (s *Server) logRenderFailure(r *http.Request, name string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		log.FieldError, err,
		"template", name,
		log.FieldComponent, log.ComponentTemplate,
		log.FieldOperation, log.OpRender)
}

// optional treats a missing document as empty data.
func optional(err error) error {
	if errors.Is(err, source.ErrNotFound) {
		return nil
	}
	return err
}

// pickYear returns the requested year, else the current year when data
// exists for it, else the newest available year, else the current year.
func pickYear(p ViewParams, available []int, current int) int {
	if p.HasYear {
		return p.Year
	}
	for _, y := range available {
		if y == current {
			return current
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return current
}

// yearOptions merges year lists into one descending list without duplicates.
func yearOptions(lists ...[]int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, list := range lists {
		for _, y := range list {
			if _, ok := seen[y]; ok {
				continue
			}
			seen[y] = struct{}{}
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// viewURL builds the partial URL for the given parameters.
func viewURL(path string, year int, state services.SortState, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if state.Key != "" {
		q.Set("sort", state.Key)
		q.Set("dir", state.Dir())
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// columns builds sortable headers: clicking the active column flips it.
func columns(path string, year int, state services.SortState, extra url.Values, defs ...[2]string) []column {
	out := make([]column, 0, len(defs))
	for _, d := range defs {
		key, label := d[0], d[1]
		next := state.Toggle(key)
		c := column{Label: label, URL: viewURL(path, year, next, extra)}
		if state.Key == key {
			c.Active = true
			c.Dir = state.Dir()
		}
		out = append(out, c)
	}
	return out
}
