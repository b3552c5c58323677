package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want Weekday
	}{
		{"monday", Monday},
		{"Sunday", Sunday},
		{" SATURDAY ", Saturday},
		{"Terça", Tuesday},
		{"terca", Tuesday},
		{"quarta-feira", Wednesday},
		{"Sábado", Saturday},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if err != nil {
			t.Fatalf("ParseWeekday(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseWeekday("funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}

func TestWeekdayMatchesTimePackage(t *testing.T) {
	d := NewDate(2025, 1, 6) // a Monday
	if d.Weekday() != Monday || Monday.TimeWeekday() != time.Monday {
		t.Fatalf("weekday numbering diverges from time.Weekday")
	}
}

func TestLocaleTables(t *testing.T) {
	if got := WeekdayLabel(Tuesday, LocalePT); got != "Terça" {
		t.Errorf("PT Tuesday = %q", got)
	}
	if got := WeekdayLabel(Tuesday, Locale("xx")); got != "Terça" {
		t.Errorf("unknown locale should fall back to PT, got %q", got)
	}
	if got := MonthName(3, LocalePT); got != "Março" {
		t.Errorf("PT March = %q", got)
	}
	if got := MonthName(12, LocaleEN); got != "December" {
		t.Errorf("EN December = %q", got)
	}
	if got := MonthName(13, LocalePT); got != "" {
		t.Errorf("month 13 should be empty, got %q", got)
	}
}
