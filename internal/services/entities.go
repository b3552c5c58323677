package services

import (
	"sort"

	"recibos/internal/core"
)

// DefaultEntitiesSort lists entities by name.
var DefaultEntitiesSort = SortState{Key: SortByName}

// SortEntities returns the entities ordered by NIF or name.
func SortEntities(entities core.EntityMap, state SortState) []core.Entity {
	list := entities.List()
	coll := newPTCollator()
	sort.SliceStable(list, func(i, j int) bool {
		var cmp int
		switch state.Key {
		case SortByNIF:
			cmp = coll.CompareString(list[i].NIF, list[j].NIF)
		default:
			cmp = coll.CompareString(list[i].Name, list[j].Name)
		}
		return directed(cmp, state.Desc)
	})
	return list
}
