package google

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"recibos/internal/core"
	"recibos/internal/source"
)

var yearTabPattern = regexp.MustCompile(`^\d{4}$`)

// yearTabs returns the years of the tabs named "<YYYY>", newest first.
func yearTabs(titles []string) []int {
	years := make([]int, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if !yearTabPattern.MatchString(t) {
			continue
		}
		y, _ := strconv.Atoi(t)
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// parseInvoices converts a values matrix of a year tab into a batch.
func parseInvoices(values [][]interface{}, year int) (core.InvoiceBatch, error) {
	table := make([][]string, len(values))
	for i, row := range values {
		table[i] = toStrings(row)
	}
	return source.InvoicesFromTable(year, table)
}

// parseEntities reads the NIF and Nome columns of the entities tab.
func parseEntities(values [][]interface{}) (core.EntityMap, error) {
	out := core.EntityMap{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colNIF := indexOf(headers, "NIF")
	colName := indexOf(headers, "Nome")
	if colNIF == -1 || colName == -1 {
		return nil, &source.DecodeError{
			Document: EntitiesSheet,
			Index:    -1,
			Field:    "NIF,Nome",
			Err:      fmt.Errorf("%w: got headers=%v", source.ErrMissingColumn, headers),
		}
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		nif := safeGet(row, colNIF)
		if nif == "" {
			continue
		}
		out[nif] = safeGet(row, colName)
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
