package recurrence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/mo"
)

// MaxInterval bounds Interval so step arithmetic cannot overflow
const MaxInterval = 1000

// Validate checks a flat rule spec and turns it into a Rule. Every problem found
// is reported in a single *InvalidRuleError.
func Validate(spec Spec) mo.Result[Rule] {
	problems := &InvalidRuleError{}

	var pattern Pattern
	switch spec.Frequency {
	case FrequencyDaily:
		pattern = Daily{}
	case FrequencyWeekly:
		var days WeekdaySet
		for _, d := range spec.DaysOfWeek {
			if d < int(time.Sunday) || d > int(time.Saturday) {
				problems.add(FieldDaysOfWeek, "days of week must be between 0 (Sunday) and 6 (Saturday)")
				break
			}
			days = days.With(time.Weekday(d))
		}
		pattern = Weekly{Days: days}
	case FrequencyMonthly:
		pattern = Monthly{DayOfMonth: spec.DayOfMonth}
	case FrequencyYearly:
		pattern = Yearly{}
	case "":
		problems.add(FieldFrequency, "frequency is required")
	default:
		problems.add(FieldFrequency, "frequency must be one of daily, weekly, monthly, yearly")
	}

	var termination Termination = Never{}
	switch {
	case spec.EndDate != nil && spec.OccurrenceCount != nil:
		problems.add(FieldTermination, "only one of end date and occurrence count may be set")
	case spec.EndDate != nil:
		termination = EndDate{At: *spec.EndDate}
	case spec.OccurrenceCount != nil:
		termination = OccurrenceCount{N: *spec.OccurrenceCount}
	}

	rule := Rule{pattern: pattern, interval: spec.Interval, termination: termination}
	checkFields(rule, problems)
	if err := problems.orNil(); err != nil {
		return mo.Err[Rule](err)
	}
	return mo.Ok(rule)
}

// NewRule assembles a rule from typed parts. A nil termination means Never.
func NewRule(pattern Pattern, interval int, termination Termination) mo.Result[Rule] {
	if termination == nil {
		termination = Never{}
	}
	rule := Rule{pattern: pattern, interval: interval, termination: termination}
	if err := check(rule); err != nil {
		return mo.Err[Rule](err)
	}
	return mo.Ok(rule)
}

// check re-validates an already built rule
func check(rule Rule) error {
	problems := &InvalidRuleError{}
	if rule.pattern == nil {
		problems.add(FieldFrequency, "frequency is required")
	}
	checkFields(rule, problems)
	return problems.orNil()
}

func checkFields(rule Rule, problems *InvalidRuleError) {
	switch {
	case rule.interval < 1:
		problems.add(FieldInterval, "interval must be at least 1")
	case rule.interval > MaxInterval:
		problems.add(FieldInterval, "interval must be at most "+strconv.Itoa(MaxInterval))
	}

	switch p := rule.pattern.(type) {
	case nil, Daily, Yearly:
	case Weekly:
		if p.Days&^allWeekdays != 0 {
			problems.add(FieldDaysOfWeek, "days of week must be between 0 (Sunday) and 6 (Saturday)")
		}
	case Monthly:
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			problems.add(FieldDayOfMonth, "day of month must be between 1 and 31")
		}
	default:
		problems.add(FieldFrequency, fmt.Sprintf("unsupported pattern %T", p))
	}

	switch t := rule.termination.(type) {
	case nil:
		problems.add(FieldTermination, "termination is required")
	case EndDate:
		if t.At.IsZero() {
			problems.add(FieldEndDate, "end date is required")
		}
	case OccurrenceCount:
		if t.N < 1 {
			problems.add(FieldCount, "occurrence count must be at least 1")
		}
	case Never:
	default:
		problems.add(FieldTermination, fmt.Sprintf("unsupported termination %T", t))
	}
}
