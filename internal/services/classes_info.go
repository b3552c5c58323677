package services

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"recibos/internal/core"
)

// variationEpsilon is the smallest percentage shown as a change.
const variationEpsilon = 0.01

// DefaultClassesSort lists classes by entity name.
var DefaultClassesSort = SortState{Key: SortByEntity}

// ClassesOptions drives BuildClassesInfo.
type ClassesOptions struct {
	CurrentYear int
	CompareYear int // 0 disables the variation column
	Sort        SortState
	Now         time.Time
}

// ClassesInYear returns the classes whose validity period overlaps year.
// Classes without a validity period are left out.
func ClassesInYear(classes []core.ClassDef, year int) []core.ClassDef {
	out := make([]core.ClassDef, 0, len(classes))
	for _, c := range classes {
		if c.ValidityPeriod != nil && c.ValidityPeriod.OverlapsYear(year) {
			out = append(out, c)
		}
	}
	return out
}

// CompareYears lists the years mentioned by validity bounds, newest first,
// without currentYear. The first element is the default comparison year.
func CompareYears(entries []core.ScheduleEntry, currentYear int) []int {
	seen := make(map[int]struct{})
	for _, e := range entries {
		for _, c := range e.Classes {
			if c.ValidityPeriod == nil {
				continue
			}
			if c.ValidityPeriod.Start != nil {
				seen[c.ValidityPeriod.Start.Year()] = struct{}{}
			}
			if c.ValidityPeriod.End != nil {
				seen[c.ValidityPeriod.End.Year()] = struct{}{}
			}
		}
	}
	delete(seen, currentYear)
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// VariationOf compares the average class value of currentYear with compareYear
// as (current-compare)/compare*100.
func VariationOf(classes []core.ClassDef, currentYear, compareYear int) core.Variation {
	neutral := core.Variation{Trend: core.TrendNeutral}
	if compareYear == 0 || compareYear == currentYear {
		return neutral
	}
	current := averageValue(ClassesInYear(classes, currentYear))
	compare := averageValue(ClassesInYear(classes, compareYear))
	if current.IsZero() || compare.IsZero() {
		return neutral
	}
	pct, _ := current.Sub(compare).Div(compare).Mul(hundred).Float64()
	switch {
	case math.Abs(pct) < variationEpsilon:
		return neutral
	case pct > 0:
		return core.Variation{Percent: pct, Trend: core.TrendPositive}
	default:
		return core.Variation{Percent: pct, Trend: core.TrendNegative}
	}
}

func averageValue(classes []core.ClassDef) decimal.Decimal {
	if len(classes) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range classes {
		sum = sum.Add(c.Value.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(classes))))
}

// BuildClassesInfo summarises, per entity, the classes of opts.CurrentYear.
// Entities without classes in that year are omitted.
func BuildClassesInfo(entries []core.ScheduleEntry, entities core.EntityMap, opts ClassesOptions) []core.ClassesRow {
	rows := make([]core.ClassesRow, 0, len(entries))
	for _, entry := range entries {
		classes := ClassesInYear(entry.Classes, opts.CurrentYear)
		if len(classes) == 0 {
			continue
		}
		name, ok := entities.Name(entry.OwnerID)
		if !ok {
			name = noEntityName
		}
		rows = append(rows, core.ClassesRow{
			NIF:        entry.OwnerID,
			EntityName: name,
			NumClasses: len(classes),
			Values:     valueGroups(classes),
			Types:      typeCounts(classes),
			Variation:  VariationOf(entry.Classes, opts.CurrentYear, opts.CompareYear),
			Expired:    isExpired(classes, opts.Now),
		})
	}
	sortClassesRows(rows, opts.Sort)
	return rows
}

func valueGroups(classes []core.ClassDef) []core.ValueGroup {
	var groups []core.ValueGroup
	for _, c := range classes {
		idx := -1
		for i := range groups {
			if groups[i].Value.Equal(c.Value) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, core.ValueGroup{Value: c.Value})
			idx = len(groups) - 1
		}
		if !containsString(groups[idx].Types, c.Type()) {
			groups[idx].Types = append(groups[idx].Types, c.Type())
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value.Cmp(groups[j].Value) < 0 })
	return groups
}

func typeCounts(classes []core.ClassDef) []core.TypeCount {
	var counts []core.TypeCount
	for _, c := range classes {
		found := false
		for i := range counts {
			if counts[i].Type == c.Type() {
				counts[i].Count++
				found = true
				break
			}
		}
		if !found {
			counts = append(counts, core.TypeCount{Type: c.Type(), Count: 1})
		}
	}
	return counts
}

// isExpired is true when every class has an end date and now is past the latest.
func isExpired(classes []core.ClassDef, now time.Time) bool {
	if len(classes) == 0 || now.IsZero() {
		return false
	}
	var latest core.Date
	for _, c := range classes {
		if c.ValidityPeriod == nil || c.ValidityPeriod.End == nil {
			return false
		}
		if c.ValidityPeriod.End.After(latest.Time) {
			latest = *c.ValidityPeriod.End
		}
	}
	return core.DateOf(now).After(latest.Time)
}

func sortClassesRows(rows []core.ClassesRow, state SortState) {
	coll := newPTCollator()
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var cmp int
		switch state.Key {
		case SortByNIF:
			cmp = coll.CompareString(a.NIF, b.NIF)
		case SortByClasses:
			cmp = compareInts(a.NumClasses, b.NumClasses)
		case SortByValue:
			cmp = firstValue(a).Cmp(firstValue(b))
		case SortByVariation:
			cmp = compareFloats(a.Variation.Percent, b.Variation.Percent)
		default:
			cmp = coll.CompareString(a.EntityName, b.EntityName)
		}
		return directed(cmp, state.Desc)
	})
}

func firstValue(r core.ClassesRow) core.Money {
	if len(r.Values) == 0 {
		return core.Zero
	}
	return r.Values[0].Value
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
