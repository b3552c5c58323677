package http

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"recibos/internal/core"
)

// formatEuros formats an amount as "2600,00 €".
func formatEuros(m core.Money) string {
	return strings.Replace(m.String(), ".", ",", 1) + " €"
}

// formatPercent formats a percentage with one decimal, e.g. "12,5%".
func formatPercent(p float64) string {
	return strings.Replace(strconv.FormatFloat(p, 'f', 1, 64), ".", ",", 1) + "%"
}

// formatVariation shows the size of a change with two decimals after its
// trend arrow, e.g. "▲ 25,00%". A neutral trend is "-".
func formatVariation(trend core.Trend, p float64) string {
	arrow := map[core.Trend]string{core.TrendPositive: "▲", core.TrendNegative: "▼"}[trend]
	if arrow == "" {
		return "-"
	}
	return arrow + " " + strings.Replace(strconv.FormatFloat(math.Abs(p), 'f', 2, 64), ".", ",", 1) + "%"
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"euros":   formatEuros,
	"percent": formatPercent,
	"month": func(m int) string {
		return core.MonthName(m, core.LocalePT)
	},
	"weekday": func(w core.Weekday) string {
		return core.WeekdayLabel(w, core.LocalePT)
	},
}
