// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for deciding whether a weekly
// class takes place on a given day. Each condition (weekday, validity
// period, vacations) is a rule; a class is active when every rule allows it.

package services

import (
	"recibos/internal/core"
)

// ActivityRule is the strategy interface for one activation condition.
type ActivityRule interface {
	// Name identifies the rule in logs and tests.
	Name() string
	// Allows reports whether the rule lets class run on date.
	Allows(class core.ClassDef, vacations []core.DateInterval, date core.Date) bool
}

// WeekdayRule requires the date to fall on the class weekday.
type WeekdayRule struct{}

func (WeekdayRule) Name() string { return "weekday" }

// Allows returns true if date is on class.Weekday.
func (WeekdayRule) Allows(class core.ClassDef, _ []core.DateInterval, date core.Date) bool {
	return date.Weekday() == class.Weekday
}

// ValidityRule requires the date to fall inside the class validity period.
type ValidityRule struct{}

func (ValidityRule) Name() string { return "validity" }

// Allows returns true if there is no validity period or it contains date.
func (ValidityRule) Allows(class core.ClassDef, _ []core.DateInterval, date core.Date) bool {
	if class.ValidityPeriod == nil {
		return true
	}
	return class.ValidityPeriod.Contains(date)
}

// VacationRule rejects dates inside any vacation period of the owner.
type VacationRule struct{}

func (VacationRule) Name() string { return "vacation" }

// Allows returns false if any vacation interval contains date.
func (VacationRule) Allows(_ core.ClassDef, vacations []core.DateInterval, date core.Date) bool {
	for _, v := range vacations {
		if v.Contains(date) {
			return false
		}
	}
	return true
}

// ActivityRules is an ordered rule set; a class is active on a date when
// every rule allows it.
type ActivityRules []ActivityRule

// standardRules is evaluated in order; cheaper rules come first. It is
// never modified.
var standardRules = ActivityRules{
	WeekdayRule{},
	ValidityRule{},
	VacationRule{},
}

// StandardActivityRules returns a copy of the weekday, validity and vacation
// rules used by IsActive.
func StandardActivityRules() ActivityRules {
	return append(ActivityRules(nil), standardRules...)
}

// Allow reports whether every rule lets class run on date.
func (rs ActivityRules) Allow(class core.ClassDef, vacations []core.DateInterval, date core.Date) bool {
	for _, rule := range rs {
		if !rule.Allows(class, vacations, date) {
			return false
		}
	}
	return true
}

// IsActive reports whether class takes place on date given its owner's vacations.
func IsActive(class core.ClassDef, vacations []core.DateInterval, date core.Date) bool {
	return standardRules.Allow(class, vacations, date)
}
