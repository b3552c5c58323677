package core

import (
	"fmt"
	"strings"
	"time"
)

// Weekday numbers days the same way time.Weekday does, Sunday first.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Locale selects a display table for weekday and month names.
type Locale string

const (
	LocalePT Locale = "pt"
	LocaleEN Locale = "en"
)

// weekdayKeys are the names used by the class values document.
var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var weekdayLabels = map[Locale][7]string{
	LocalePT: {"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"},
	LocaleEN: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

var monthNames = map[Locale][12]string{
	LocalePT: {"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
		"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"},
	LocaleEN: {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
}

// weekdayAliases maps every accepted spelling to its weekday.
var weekdayAliases = func() map[string]Weekday {
	m := make(map[string]Weekday, 32)
	for i, k := range weekdayKeys {
		m[k] = Weekday(i)
	}
	for _, labels := range weekdayLabels {
		for i, l := range labels {
			m[strings.ToLower(l)] = Weekday(i)
		}
	}
	// unaccented Portuguese spellings
	m["terca"] = Tuesday
	m["sabado"] = Saturday
	return m
}()

// ParseWeekday accepts English day names ("monday") and Portuguese labels
// ("Segunda", "segunda-feira"), ignoring case.
func ParseWeekday(s string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "-feira")
	if w, ok := weekdayAliases[key]; ok {
		return w, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// Valid reports whether w is one of the seven days.
func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

// String returns the English key used in source documents.
func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayKeys[w]
}

// TimeWeekday converts w to the standard library type.
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday(w)
}

// IsWeekend reports Saturday and Sunday.
func (w Weekday) IsWeekend() bool {
	return w == Saturday || w == Sunday
}

// WeekdayLabel returns the display name of w. Unknown locales fall back to PT.
func WeekdayLabel(w Weekday, l Locale) string {
	if !w.Valid() {
		return ""
	}
	labels, ok := weekdayLabels[l]
	if !ok {
		labels = weekdayLabels[LocalePT]
	}
	return labels[w]
}

// MonthName returns the display name of month m (1-12).
func MonthName(m int, l Locale) string {
	if m < 1 || m > 12 {
		return ""
	}
	names, ok := monthNames[l]
	if !ok {
		names = monthNames[LocalePT]
	}
	return names[m-1]
}
