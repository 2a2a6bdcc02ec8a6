package recurrence

import (
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Frequency names the unit an interval is counted in
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// WeekdaySet is a set of weekdays, 0=Sunday .. 6=Saturday, stored as a bitmask
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from the given days. Out of range days are dropped.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns a copy of the set that also contains d
func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

// Has reports whether d is in the set
func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool { return s&allWeekdays == 0 }

func (s WeekdaySet) Len() int { return bits.OnesCount8(uint8(s & allWeekdays)) }

// Days lists the members in ascending ordinal order
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, s.Len())
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	parts := make([]string, 0, s.Len())
	for _, d := range s.Days() {
		parts = append(parts, d.String()[:3])
	}
	return strings.Join(parts, ",")
}

// Pattern is the frequency-specific part of a rule. Each variant carries only
// the fields that mean something for its frequency.
type Pattern interface {
	Frequency() Frequency
	isPattern()
}

// Daily repeats every Interval days
type Daily struct{}

// Weekly repeats every Interval weeks. An empty Days set repeats on the
// anchor's weekday.
type Weekly struct {
	Days WeekdaySet
}

// Monthly repeats every Interval months on DayOfMonth, clamped to the last day
// of shorter months.
type Monthly struct {
	DayOfMonth int
}

// Yearly repeats every Interval years on the anchor's month and day
type Yearly struct{}

func (Daily) Frequency() Frequency   { return FrequencyDaily }
func (Weekly) Frequency() Frequency  { return FrequencyWeekly }
func (Monthly) Frequency() Frequency { return FrequencyMonthly }
func (Yearly) Frequency() Frequency  { return FrequencyYearly }

func (Daily) isPattern()   {}
func (Weekly) isPattern()  {}
func (Monthly) isPattern() {}
func (Yearly) isPattern()  {}

// Termination decides when a series stops producing occurrences
type Termination interface {
	isTermination()
}

// Never keeps the series open forever
type Never struct{}

// EndDate stops the series after At. An occurrence exactly at At is still emitted.
type EndDate struct {
	At time.Time
}

// OccurrenceCount stops the series after N occurrences over its whole lifetime
type OccurrenceCount struct {
	N int
}

func (Never) isTermination()           {}
func (EndDate) isTermination()         {}
func (OccurrenceCount) isTermination() {}

// Rule is an immutable recurrence rule. Build one with Validate or NewRule;
// edits go through Spec and produce a new value.
type Rule struct {
	pattern     Pattern
	interval    int
	termination Termination
}

func (r Rule) Pattern() Pattern         { return r.pattern }
func (r Rule) Interval() int            { return r.interval }
func (r Rule) Termination() Termination { return r.termination }

// IsZero reports whether r is the zero Rule, which is never valid
func (r Rule) IsZero() bool { return r.pattern == nil }

// Frequency returns the frequency of the rule's pattern, or "" for the zero Rule
func (r Rule) Frequency() Frequency {
	if r.pattern == nil {
		return ""
	}
	return r.pattern.Frequency()
}

// String renders a short human readable description, e.g. "every 2 weeks on Mon,Wed until 2024-03-01"
func (r Rule) String() string {
	if r.pattern == nil {
		return "<invalid rule>"
	}

	var b strings.Builder
	unit := map[Frequency]string{
		FrequencyDaily:   "day",
		FrequencyWeekly:  "week",
		FrequencyMonthly: "month",
		FrequencyYearly:  "year",
	}[r.Frequency()]
	b.WriteString("every ")
	if r.interval > 1 {
		b.WriteString(strconv.Itoa(r.interval))
		b.WriteString(" " + unit + "s")
	} else {
		b.WriteString(unit)
	}

	switch p := r.pattern.(type) {
	case Weekly:
		if !p.Days.Empty() {
			b.WriteString(" on " + p.Days.String())
		}
	case Monthly:
		b.WriteString(" on day " + strconv.Itoa(p.DayOfMonth))
	}

	switch t := r.termination.(type) {
	case EndDate:
		b.WriteString(" until " + t.At.Format(time.DateOnly))
	case OccurrenceCount:
		b.WriteString(", " + strconv.Itoa(t.N) + " times")
	}
	return b.String()
}

// Spec is the flat shape a rule takes in forms and storage. Fields that do not
// apply to Frequency are ignored by Validate.
type Spec struct {
	Frequency       Frequency  `json:"frequency" yaml:"frequency"`
	Interval        int        `json:"interval" yaml:"interval"`
	DaysOfWeek      []int      `json:"daysOfWeek,omitempty" yaml:"daysOfWeek,omitempty"`
	DayOfMonth      int        `json:"dayOfMonth,omitempty" yaml:"dayOfMonth,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	OccurrenceCount *int       `json:"occurrenceCount,omitempty" yaml:"occurrenceCount,omitempty"`
}

// Spec converts the rule back to its flat form. Validate(r.Spec()) yields r.
func (r Rule) Spec() Spec {
	spec := Spec{
		Frequency: r.Frequency(),
		Interval:  r.interval,
	}

	switch p := r.pattern.(type) {
	case Weekly:
		for _, d := range p.Days.Days() {
			spec.DaysOfWeek = append(spec.DaysOfWeek, int(d))
		}
	case Monthly:
		spec.DayOfMonth = p.DayOfMonth
	}

	switch t := r.termination.(type) {
	case EndDate:
		at := t.At
		spec.EndDate = &at
	case OccurrenceCount:
		n := t.N
		spec.OccurrenceCount = &n
	}
	return spec
}
