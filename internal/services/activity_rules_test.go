package services

import (
	"strings"
	"testing"

	"recibos/internal/core"
	"recibos/internal/source"
)

func march2025() *core.DateInterval {
	return &core.DateInterval{
		Start: core.DateRef(core.NewDate(2025, 3, 1)),
		End:   core.DateRef(core.NewDate(2025, 3, 31)),
	}
}

func TestWeekdayRule_Allows(t *testing.T) {
	rule := WeekdayRule{}
	class := core.ClassDef{Weekday: core.Monday}

	tests := []struct {
		name string
		date core.Date
		want bool
	}{
		{"monday", core.NewDate(2025, 1, 6), true},
		{"tuesday", core.NewDate(2025, 1, 7), false},
		{"sunday", core.NewDate(2025, 1, 5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Allows(class, nil, tt.date); got != tt.want {
				t.Errorf("WeekdayRule.Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidityRule_Boundaries(t *testing.T) {
	rule := ValidityRule{}
	class := core.ClassDef{ValidityPeriod: march2025()}

	tests := []struct {
		name string
		date core.Date
		want bool
	}{
		{"day before start", core.NewDate(2025, 2, 28), false},
		{"start inclusive", core.NewDate(2025, 3, 1), true},
		{"end inclusive", core.NewDate(2025, 3, 31), true},
		{"day after end", core.NewDate(2025, 4, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Allows(class, nil, tt.date); got != tt.want {
				t.Errorf("ValidityRule.Allows(%s) = %v, want %v", tt.date.ISO(), got, tt.want)
			}
		})
	}

	if !rule.Allows(core.ClassDef{}, nil, core.NewDate(1990, 1, 1)) {
		t.Errorf("class without validity period should always be valid")
	}
}

func TestVacationRule_Allows(t *testing.T) {
	rule := VacationRule{}
	vacations := []core.DateInterval{
		{Start: core.DateRef(core.NewDate(2025, 8, 1)), End: core.DateRef(core.NewDate(2025, 8, 15))},
		{Start: core.DateRef(core.NewDate(2025, 12, 22)), End: core.DateRef(core.NewDate(2025, 12, 31))},
	}

	tests := []struct {
		name string
		date core.Date
		want bool
	}{
		{"before vacation", core.NewDate(2025, 7, 31), true},
		{"first vacation day", core.NewDate(2025, 8, 1), false},
		{"last vacation day", core.NewDate(2025, 8, 15), false},
		{"between vacations", core.NewDate(2025, 9, 1), true},
		{"second vacation", core.NewDate(2025, 12, 25), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Allows(core.ClassDef{}, vacations, tt.date); got != tt.want {
				t.Errorf("VacationRule.Allows(%s) = %v, want %v", tt.date.ISO(), got, tt.want)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	vacations := []core.DateInterval{
		{Start: core.DateRef(core.NewDate(2025, 3, 10)), End: core.DateRef(core.NewDate(2025, 3, 16))},
	}
	class := core.ClassDef{Weekday: core.Monday, ValidityPeriod: march2025()}
	inverted := core.ClassDef{
		Weekday: core.Monday,
		ValidityPeriod: &core.DateInterval{
			Start: core.DateRef(core.NewDate(2025, 12, 31)),
			End:   core.DateRef(core.NewDate(2025, 1, 1)),
		},
	}

	tests := []struct {
		name  string
		class core.ClassDef
		date  core.Date
		want  bool
	}{
		{"monday inside validity", class, core.NewDate(2025, 3, 3), true},
		{"monday in vacation", class, core.NewDate(2025, 3, 10), false},
		{"monday after validity", class, core.NewDate(2025, 4, 7), false},
		{"tuesday inside validity", class, core.NewDate(2025, 3, 4), false},
		{"inverted validity never active", inverted, core.NewDate(2025, 6, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActive(tt.class, vacations, tt.date); got != tt.want {
				t.Errorf("IsActive(%s) = %v, want %v", tt.date.ISO(), got, tt.want)
			}
		})
	}
}

func TestStandardActivityRules(t *testing.T) {
	rules := StandardActivityRules()
	var names []string
	for _, r := range rules {
		names = append(names, r.Name())
	}
	if strings.Join(names, ",") != "weekday,validity,vacation" {
		t.Fatalf("rules = %v", names)
	}

	// changing the copy leaves IsActive alone
	rules[0] = ValidityRule{}
	tuesday := core.NewDate(2025, 3, 4)
	monday := core.ClassDef{Weekday: core.Monday}
	if !rules.Allow(monday, nil, tuesday) {
		t.Error("rules without the weekday check should allow a tuesday")
	}
	if IsActive(monday, nil, tuesday) {
		t.Error("IsActive should still check the weekday")
	}
}

func TestIsActive_DecodedValuePeriod(t *testing.T) {
	doc := `[{"nif":"1","classes":[{"day":"monday","value":10,
	  "valuePeriod":{"startDate":"01-03-2025","endDate":"31-03-2025"}}]}]`
	entries, err := source.DecodeSchedule(strings.NewReader(doc), source.DecodeOptions{Strict: true})
	if err != nil {
		t.Fatalf("DecodeSchedule: %v", err)
	}
	class := entries[0].Classes[0]

	tests := []struct {
		date core.Date
		want bool
	}{
		{core.NewDate(2025, 2, 24), false},
		{core.NewDate(2025, 3, 3), true},
		{core.NewDate(2025, 3, 31), true},
		{core.NewDate(2025, 4, 7), false},
	}
	for _, tt := range tests {
		if got := IsActive(class, entries[0].VacationPeriods, tt.date); got != tt.want {
			t.Errorf("IsActive(%s) = %v, want %v", tt.date.ISO(), got, tt.want)
		}
	}
}
