package recurrence

import (
	"iter"
	"time"
)

// Occurrences lazily yields the rule's occurrences strictly after anchor, in
// chronological order, until the termination condition stops the series.
// alreadyEmitted is how many occurrences the series produced before anchor and
// only matters for OccurrenceCount. The sequence is restartable: ranging over
// it twice yields the same instants. For Never rules it is unbounded, so
// callers must stop ranging themselves.
//
// An invalid rule yields nothing; use NextOccurrences to get the error.
func Occurrences(rule Rule, anchor time.Time, alreadyEmitted int) iter.Seq[time.Time] {
	return OccurrencesSince(rule, anchor, time.Time{}, alreadyEmitted)
}

// OccurrencesSince yields the occurrences of the series anchored at start that
// fall strictly after since. A zero since yields the whole series, exactly as
// Occurrences does. alreadyEmitted counts the occurrences at or before since.
//
// Projecting from the series start keeps every occurrence on the start's day:
// a yearly series begun on Feb 29 is back on Feb 29 after a clamped Feb 28,
// which re-anchoring on the last occurrence would lose.
func OccurrencesSince(rule Rule, start, since time.Time, alreadyEmitted int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if check(rule) != nil {
			return
		}

		remaining := -1
		if c, ok := rule.termination.(OccurrenceCount); ok {
			remaining = c.N - max(alreadyEmitted, 0)
			if remaining <= 0 {
				return
			}
		}

		for next := range candidates(rule, start, since) {
			if end, ok := rule.termination.(EndDate); ok && next.After(end.At) {
				return
			}
			if !since.IsZero() && !next.After(since) {
				continue
			}
			if !yield(next) {
				return
			}
			if remaining > 0 {
				remaining--
				if remaining == 0 {
					return
				}
			}
		}
	}
}

// NextOccurrences returns at most maxCount occurrences strictly after anchor.
// See Occurrences for the meaning of alreadyEmitted.
func NextOccurrences(rule Rule, anchor time.Time, maxCount, alreadyEmitted int) ([]time.Time, error) {
	return NextOccurrencesSince(rule, anchor, time.Time{}, maxCount, alreadyEmitted)
}

// NextOccurrencesSince returns at most maxCount occurrences of the series
// anchored at start that fall strictly after since. See OccurrencesSince.
func NextOccurrencesSince(rule Rule, start, since time.Time, maxCount, alreadyEmitted int) ([]time.Time, error) {
	if err := check(rule); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return []time.Time{}, nil
	}

	result := make([]time.Time, 0, min(maxCount, 64))
	for next := range OccurrencesSince(rule, start, since, alreadyEmitted) {
		result = append(result, next)
		if len(result) == maxCount {
			break
		}
	}
	return result, nil
}

// IsTerminal reports whether occurrence, sitting at 1-based position
// occurrenceIndex in the whole series, is the last one the rule will ever
// produce.
//
// For EndDate rules the following occurrence is projected with occurrence as
// the anchor. That is exact for every rule except a yearly series begun on
// Feb 29, whose clamped Feb 28 occurrences do not remember the leap day; use
// IsTerminalSince with the series start for those.
func IsTerminal(rule Rule, occurrence time.Time, occurrenceIndex int) bool {
	return IsTerminalSince(rule, occurrence, occurrence, occurrenceIndex)
}

// IsTerminalSince is IsTerminal for the series anchored at start
func IsTerminalSince(rule Rule, start, occurrence time.Time, occurrenceIndex int) bool {
	if occurrenceIndex < 1 || check(rule) != nil {
		return false
	}

	switch t := rule.termination.(type) {
	case OccurrenceCount:
		return occurrenceIndex >= t.N
	case EndDate:
		if occurrence.After(t.At) {
			return true
		}
		for next := range candidates(rule, start, occurrence) {
			if next.After(occurrence) {
				return next.After(t.At)
			}
		}
		return true
	default:
		return false
	}
}

// candidates yields the raw, unterminated series anchored at anchor. A
// non-zero since lets it start close to since instead of at the anchor; the
// candidates at or before since that it still yields are for the caller to
// drop.
func candidates(rule Rule, anchor, since time.Time) iter.Seq[time.Time] {
	if w, ok := rule.pattern.(Weekly); ok && !w.Days.Empty() {
		return weeklyOnDays(anchor, w.Days, rule.interval, since)
	}
	return func(yield func(time.Time) bool) {
		for k := firstStep(rule, anchor, since); ; k++ {
			next, ok := nth(rule, anchor, k)
			if !ok || !yield(next) {
				return
			}
		}
	}
}

// firstStep returns a step index whose occurrence is not after since, so
// iteration can skip the steps before it. It errs one interval early.
func firstStep(rule Rule, anchor, since time.Time) int {
	if since.IsZero() || !since.After(anchor) {
		return 1
	}
	since = since.In(anchor.Location())

	var units int64
	switch rule.pattern.(type) {
	case Daily:
		units = civilDay(since) - civilDay(anchor)
	case Weekly:
		units = (civilDay(since) - civilDay(anchor)) / 7
	case Monthly:
		units = int64(since.Year()-anchor.Year())*12 + int64(since.Month()-anchor.Month())
	case Yearly:
		units = int64(since.Year() - anchor.Year())
	}
	return int(max(units/int64(rule.interval)-1, 1))
}

// nth computes the k-th step from anchor directly, so a clamp in one month does
// not shift the days of later occurrences. ok is false for a pattern the
// projection does not know, which check rejects before projection starts.
func nth(rule Rule, anchor time.Time, k int) (time.Time, bool) {
	step := k * rule.interval
	switch p := rule.pattern.(type) {
	case Daily:
		return anchor.AddDate(0, 0, step), true
	case Weekly:
		return anchor.AddDate(0, 0, 7*step), true
	case Monthly:
		months := int(anchor.Month()) - 1 + step
		year := anchor.Year() + months/12
		month := time.Month(months%12 + 1)
		return onDay(anchor, year, month, p.DayOfMonth), true
	case Yearly:
		return onDay(anchor, anchor.Year()+step, anchor.Month(), anchor.Day()), true
	}
	return time.Time{}, false
}

// weeklyOnDays scans forward day by day. Weeks start on Sunday, the anchor's
// week is week 0, and only weeks whose index is a multiple of interval are
// eligible. A non-zero since starts the scan one week group before it.
func weeklyOnDays(anchor time.Time, days WeekdaySet, interval int, since time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		anchorDay := civilDay(anchor)
		weekStart := anchorDay - int64(anchor.Weekday())

		start := 1
		if !since.IsZero() && since.After(anchor) {
			skip := civilDay(since.In(anchor.Location())) - anchorDay - 7*int64(interval)
			start = int(max(skip, 1))
		}

		for offset := start; ; offset++ {
			day := anchorDay + int64(offset)
			week := (day - weekStart) / 7
			if week%int64(interval) != 0 {
				// jump to the day before the next eligible week
				nextWeek := (week/int64(interval) + 1) * int64(interval)
				offset = int(weekStart+nextWeek*7-anchorDay) - 1
				continue
			}

			next := anchor.AddDate(0, 0, offset)
			if !days.Has(next.Weekday()) {
				continue
			}
			if !yield(next) {
				return
			}
		}
	}
}

// onDay places anchor's wall clock on year/month/day, clamping day to the
// length of the month.
func onDay(anchor time.Time, year int, month time.Month, day int) time.Time {
	day = min(day, daysIn(year, month))
	return time.Date(year, month, day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// civilDay numbers the calendar date of t in its own location
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
