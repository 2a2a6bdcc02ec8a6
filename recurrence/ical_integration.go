package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrSeriesEnded is returned when a series has no occurrence left to export
var ErrSeriesEnded = errors.New("recurrence series has no further occurrences")

// FieldRRule is reported when an RRULE value cannot be parsed at all
const FieldRRule = "rrule"

// indexed by time.Weekday
var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// clampFloor is the shortest month length; BYMONTHDAY values above it need the
// BYSETPOS=-1 form to clamp instead of skipping short months.
const clampFloor = 28

// RRule renders the rule as an RFC 5545 RRULE value (without the "RRULE:"
// prefix). Weeks start on Sunday. Days of month above 28 are written as
// BYMONTHDAY=28,...,N;BYSETPOS=-1 so that short months clamp to their last day.
func (r Rule) RRule() string {
	if r.pattern == nil {
		return ""
	}
	opt := r.rruleOption()
	return opt.RRuleString()
}

func (r Rule) rruleOption() rrule.ROption {
	opt := rrule.ROption{
		Interval: r.interval,
		Wkst:     rrule.SU,
	}

	switch p := r.pattern.(type) {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range p.Days.Days() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		if p.DayOfMonth <= clampFloor {
			opt.Bymonthday = []int{p.DayOfMonth}
		} else {
			for d := clampFloor; d <= p.DayOfMonth; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	case Yearly:
		opt.Freq = rrule.YEARLY
	}

	switch t := r.termination.(type) {
	case EndDate:
		opt.Until = t.At
	case OccurrenceCount:
		opt.Count = t.N
	}
	return opt
}

// ParseRRule parses an RRULE value (with or without the "RRULE:" prefix, and
// optionally preceded by a DTSTART line) into a Rule. Only the subset this
// package can express is accepted; everything else is an *InvalidRuleError.
// A single BYMONTHDAY above 28 is read with clamping semantics.
func ParseRRule(value string) mo.Result[Rule] {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return mo.Err[Rule](&InvalidRuleError{Problems: []FieldProblem{
			{Field: FieldRRule, Message: fmt.Sprintf("malformed RRULE: %v", err)},
		}})
	}

	problems := &InvalidRuleError{}
	spec := Spec{Interval: max(opt.Interval, 1)}

	leapDay := opt.Freq == rrule.YEARLY && isLeapDayClamp(opt)
	if len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 ||
		len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || len(opt.Byeaster) > 0 ||
		(len(opt.Bymonth) > 0 && !leapDay) {
		problems.add(FieldRRule, "only BYDAY and BYMONTHDAY selectors are supported")
	}

	switch opt.Freq {
	case rrule.DAILY:
		spec.Frequency = FrequencyDaily
	case rrule.WEEKLY:
		spec.Frequency = FrequencyWeekly
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				problems.add(FieldDaysOfWeek, "ordinal weekdays such as 2FR are not supported")
				break
			}
			// rrule numbers Monday as 0
			spec.DaysOfWeek = append(spec.DaysOfWeek, (wd.Day()+1)%7)
		}
		if spec.Interval > 1 && slices.Contains(spec.DaysOfWeek, int(time.Sunday)) && opt.Wkst != rrule.SU {
			problems.add(FieldDaysOfWeek, "weekly rules with an interval and Sunday must use WKST=SU")
		}
	case rrule.MONTHLY:
		spec.Frequency = FrequencyMonthly
		spec.DayOfMonth = parseMonthDay(opt, problems)
	case rrule.YEARLY:
		spec.Frequency = FrequencyYearly
	default:
		problems.add(FieldFrequency, fmt.Sprintf("frequency %v is not supported", opt.Freq))
	}

	if opt.Freq != rrule.MONTHLY && len(opt.Bymonthday) > 0 && !leapDay {
		problems.add(FieldDayOfMonth, "BYMONTHDAY is only supported for monthly rules")
	}
	if opt.Freq != rrule.WEEKLY && len(opt.Byweekday) > 0 {
		problems.add(FieldDaysOfWeek, "BYDAY is only supported for weekly rules")
	}

	if !opt.Until.IsZero() {
		until := opt.Until
		spec.EndDate = &until
	}
	if opt.Count > 0 {
		count := opt.Count
		spec.OccurrenceCount = &count
	}

	result := Validate(spec)
	if err := result.Error(); err != nil {
		var invalid *InvalidRuleError
		if errors.As(err, &invalid) {
			problems.Problems = append(problems.Problems, invalid.Problems...)
		}
	}
	if err := problems.orNil(); err != nil {
		return mo.Err[Rule](err)
	}
	return result
}

// leapDayClamp is how a yearly series begun on Feb 29 is written: the last of
// Feb 28 and Feb 29 each year, so non-leap years clamp instead of skipping.
func leapDayClamp(opt *rrule.ROption) {
	opt.Bymonth = []int{int(time.February)}
	opt.Bymonthday = []int{28, 29}
	opt.Bysetpos = []int{-1}
}

func isLeapDayClamp(opt *rrule.ROption) bool {
	return slices.Equal(opt.Bymonth, []int{int(time.February)}) &&
		slices.Equal(opt.Bymonthday, []int{28, 29}) &&
		slices.Equal(opt.Bysetpos, []int{-1})
}

// parseMonthDay accepts BYMONTHDAY=N, the clamped BYMONTHDAY=28,..,N;BYSETPOS=-1
// form, or no BYMONTHDAY with a DTSTART to take the day from.
func parseMonthDay(opt *rrule.ROption, problems *InvalidRuleError) int {
	days := opt.Bymonthday
	switch {
	case len(days) == 0 && !opt.Dtstart.IsZero() && len(opt.Bysetpos) == 0:
		return opt.Dtstart.Day()
	case len(days) == 0:
		problems.add(FieldDayOfMonth, "monthly rules need BYMONTHDAY or DTSTART")
		return 0
	case len(days) == 1 && len(opt.Bysetpos) == 0:
		return days[0]
	}

	if !slices.Equal(opt.Bysetpos, []int{-1}) || days[0] != clampFloor {
		problems.add(FieldDayOfMonth, "only a single BYMONTHDAY is supported")
		return 0
	}
	for i, d := range days {
		if d != clampFloor+i {
			problems.add(FieldDayOfMonth, "only a single BYMONTHDAY is supported")
			return 0
		}
	}
	return days[len(days)-1]
}

// NewEventComponent builds a VEVENT whose DTSTART is the first occurrence
// after anchor and whose RRULE reproduces the rest of the series. For count
// terminated rules COUNT is reduced by alreadyEmitted.
func NewEventComponent(uid, summary string, rule Rule, anchor time.Time, alreadyEmitted int) (*ical.Component, error) {
	return NewEventComponentSince(uid, summary, rule, anchor, time.Time{}, alreadyEmitted)
}

// NewEventComponentSince is NewEventComponent for the series anchored at start
// with its occurrences up to since left out. A yearly series begun on Feb 29
// keeps clamping to Feb 28 in the RRULE even when DTSTART falls on a Feb 28.
func NewEventComponentSince(uid, summary string, rule Rule, start, since time.Time, alreadyEmitted int) (*ical.Component, error) {
	occurrences, err := NextOccurrencesSince(rule, start, since, 1, alreadyEmitted)
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		return nil, ErrSeriesEnded
	}
	first := occurrences[0]

	opt := rule.rruleOption()
	if c, ok := rule.termination.(OccurrenceCount); ok {
		opt.Count = c.N - max(alreadyEmitted, 0)
	}
	if _, ok := rule.pattern.(Yearly); ok && start.Month() == time.February && start.Day() == 29 {
		leapDayClamp(&opt)
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, first)

	// SetText would escape the ';' separators
	rruleProp := ical.NewProp(ical.PropRecurrenceRule)
	rruleProp.Value = opt.RRuleString()
	event.Props.Set(rruleProp)

	return event.Component, nil
}

// RuleFromComponent extracts the rule and DTSTART from a component built by
// NewEventComponent (or any VEVENT using the supported RRULE subset). DTSTART
// is the series' first occurrence.
func RuleFromComponent(comp *ical.Component) (Rule, time.Time, error) {
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return Rule{}, time.Time{}, fmt.Errorf("failed to read DTSTART: %w", err)
	}

	rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil || rruleProp.Value == "" {
		return Rule{}, time.Time{}, fmt.Errorf("component has no RRULE: %w", ErrInvalidRule)
	}

	// DTSTART gives monthly rules without BYMONTHDAY a day to fall back on
	value := "DTSTART:" + start.UTC().Format(rrule.DateTimeFormat) + "\nRRULE:" + rruleProp.Value
	rule, err := ParseRRule(value).Get()
	if err != nil {
		return Rule{}, time.Time{}, err
	}
	return rule, start, nil
}
