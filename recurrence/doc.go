/*
Package recurrence projects recurrence rules onto the calendar.

A Rule describes how often something repeats (daily, weekly on a set of
weekdays, monthly on a day of the month, yearly) and when it stops (never, at
an end date, or after a number of occurrences). Rules are immutable and always
valid; build them from their flat form with Validate:

	rule, err := recurrence.Validate(recurrence.Spec{
		Frequency:  recurrence.FrequencyWeekly,
		Interval:   2,
		DaysOfWeek: []int{1, 3}, // Monday, Wednesday
	}).Get()
	if err != nil {
		var invalid *recurrence.InvalidRuleError
		errors.As(err, &invalid)
		// invalid.Problems lists every offending field
	}

# Projection

Occurrences yields the occurrences strictly after an anchor instant, lazily
and in order. NextOccurrences collects a bounded preview:

	next, err := recurrence.NextOccurrences(rule, lastSent, 5, sentSoFar)

The calendar rules are:
  - Weeks start on Sunday. An interval of N on a weekly rule with days only
    uses every Nth week, counted from the anchor's week.
  - Monthly rules move N months from the anchor, then land on the day of the
    month, clamped to the month's last day (31 becomes Feb 29 or Feb 28).
  - Yearly rules keep the anchor's month and day; Feb 29 becomes Feb 28 in
    common years.
  - Wall-clock time and location come from the anchor, so a 09:00 series
    stays at 09:00 across DST changes.
  - An end date is inclusive. An occurrence count covers the whole series,
    including occurrences emitted before the anchor.

IsTerminal tells a scheduler whether the occurrence it just delivered was the
last one.

# Engine

Engine adds preview sizing, an expiring preview cache and structured logging
on top of the pure functions:

	engine := recurrence.NewEngineWithConfig(recurrence.LowMemoryConfig)
	defer engine.Close()
	preview, err := engine.Preview(rule, time.Now(), 0, 0)

# Interchange

Rules marshal to JSON and YAML in their Spec shape and convert to and from RFC
5545 RRULE values. NewEventComponent and RuleFromComponent wrap a series in an
iCalendar VEVENT.
*/
package recurrence
