package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// EndMode is the termination choice selected in a rule editor
type EndMode string

const (
	EndNever      EndMode = "never"
	EndOnDate     EndMode = "on_date"
	EndAfterCount EndMode = "after_count"
)

const defaultFormCount = 10

// Form is the editable state behind a rule editor. It keeps inputs for every
// frequency and end mode so switching back and forth does not lose what the
// user typed; only the selected ones reach the Rule.
type Form struct {
	Frequency  Frequency
	Interval   int
	DaysOfWeek []int
	DayOfMonth int

	EndMode EndMode
	EndDate time.Time
	Count   int
}

// NewForm returns an editor state prefilled from anchor
func NewForm(anchor time.Time) Form {
	return Form{
		Frequency:  FrequencyDaily,
		Interval:   1,
		DaysOfWeek: []int{int(anchor.Weekday())},
		DayOfMonth: anchor.Day(),
		EndMode:    EndNever,
		EndDate:    anchor.AddDate(0, 1, 0),
		Count:      defaultFormCount,
	}
}

// FormFromRule loads an existing rule into an editor. Inputs the rule does not
// carry are prefilled from anchor.
func FormFromRule(rule Rule, anchor time.Time) Form {
	f := NewForm(anchor)
	if rule.IsZero() {
		return f
	}

	spec := rule.Spec()
	f.Frequency = spec.Frequency
	f.Interval = spec.Interval
	if spec.Frequency == FrequencyWeekly {
		f.DaysOfWeek = spec.DaysOfWeek
	}
	if spec.Frequency == FrequencyMonthly {
		f.DayOfMonth = spec.DayOfMonth
	}
	switch {
	case spec.EndDate != nil:
		f.EndMode = EndOnDate
		f.EndDate = *spec.EndDate
	case spec.OccurrenceCount != nil:
		f.EndMode = EndAfterCount
		f.Count = *spec.OccurrenceCount
	}
	return f
}

// Spec reconciles the form into a rule spec, keeping only the inputs that
// belong to the selected frequency and end mode.
func (f Form) Spec() Spec {
	spec := Spec{
		Frequency: f.Frequency,
		Interval:  f.Interval,
	}
	switch f.Frequency {
	case FrequencyWeekly:
		spec.DaysOfWeek = append([]int(nil), f.DaysOfWeek...)
	case FrequencyMonthly:
		spec.DayOfMonth = f.DayOfMonth
	}

	switch f.EndMode {
	case EndOnDate:
		end := f.EndDate
		spec.EndDate = &end
	case EndAfterCount:
		count := f.Count
		spec.OccurrenceCount = &count
	}
	return spec
}

// Rule validates the reconciled form
func (f Form) Rule() mo.Result[Rule] {
	switch f.EndMode {
	case EndNever, EndOnDate, EndAfterCount:
	default:
		return mo.Err[Rule](&InvalidRuleError{Problems: []FieldProblem{
			{Field: FieldTermination, Message: "end mode must be one of never, on_date, after_count"},
		}})
	}
	return Validate(f.Spec())
}

// ToggleDay flips a weekday checkbox and returns the updated form
func (f Form) ToggleDay(d time.Weekday) Form {
	days := make([]int, 0, len(f.DaysOfWeek)+1)
	found := false
	for _, existing := range f.DaysOfWeek {
		if existing == int(d) {
			found = true
			continue
		}
		days = append(days, existing)
	}
	if !found {
		days = append(days, int(d))
	}
	f.DaysOfWeek = days
	return f
}
