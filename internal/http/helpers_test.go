package http

import (
	"testing"

	"recibos/internal/core"
)

func TestFormatVariation(t *testing.T) {
	tests := []struct {
		trend core.Trend
		pct   float64
		want  string
	}{
		{core.TrendPositive, 25, "▲ 25,00%"},
		{core.TrendNegative, -12.346, "▼ 12,35%"},
		{core.TrendNegative, -0.5, "▼ 0,50%"},
		{core.TrendNeutral, 0, "-"},
		{core.TrendNeutral, 0.004, "-"},
	}
	for _, tt := range tests {
		if got := formatVariation(tt.trend, tt.pct); got != tt.want {
			t.Errorf("formatVariation(%s, %v) = %q, want %q", tt.trend, tt.pct, got, tt.want)
		}
	}
}

func TestFormatEurosAndPercent(t *testing.T) {
	if got := formatEuros(core.MustParseMoney("2600")); got != "2600,00 €" {
		t.Errorf("formatEuros = %q", got)
	}
	if got := formatPercent(12.5); got != "12,5%" {
		t.Errorf("formatPercent = %q", got)
	}
}
