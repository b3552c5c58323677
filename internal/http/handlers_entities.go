package http

import (
	"context"
	"net/http"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/services"
)

var entitiesColumns = [][2]string{
	{services.SortByNIF, "NIF"},
	{services.SortByName, "Entidade"},
}

type entitiesView struct {
	SelfURL string
	Columns []column
	Rows    []core.Entity
}

func (s *Server) entitiesView() view {
	return view{
		key:       "entities",
		title:     "Entidades",
		partial:   "ui_entities",
		build:     s.buildEntitiesView,
		component: log.ComponentSource,
	}
}

func (s *Server) handleEntitiesPage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.entitiesView())
}

func (s *Server) handleEntitiesPartial(w http.ResponseWriter, r *http.Request) {
	s.servePartial(w, r, s.entitiesView())
}

func (s *Server) buildEntitiesView(ctx context.Context, p ViewParams) (any, error) {
	entities, err := s.data.Entities(ctx)
	err = optional(err)
	if err != nil || entities == nil {
		entities = core.EntityMap{}
	}
	state := p.SortState(services.DefaultEntitiesSort, services.SortByNIF, services.SortByName)
	return entitiesView{
		SelfURL: viewURL("/ui/entities", 0, state, nil),
		Columns: columns("/ui/entities", 0, state, nil, entitiesColumns...),
		Rows:    services.SortEntities(entities, state),
	}, err
}
