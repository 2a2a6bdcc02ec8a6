package recurrence

import (
	"errors"
	"strings"
)

// ErrInvalidRule matches every *InvalidRuleError via errors.Is
var ErrInvalidRule = errors.New("invalid recurrence rule")

// FieldProblem is a single validation failure tied to a rule field
type FieldProblem struct {
	Field   string
	Message string
}

// InvalidRuleError reports a malformed rule. It lists every offending field so a
// form can show all messages at once.
type InvalidRuleError struct {
	Problems []FieldProblem
}

func (e *InvalidRuleError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidRule.Error()
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return ErrInvalidRule.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *InvalidRuleError) Is(target error) bool {
	return target == ErrInvalidRule
}

// Message returns the first message reported for field
func (e *InvalidRuleError) Message(field string) (string, bool) {
	for _, p := range e.Problems {
		if p.Field == field {
			return p.Message, true
		}
	}
	return "", false
}

func (e *InvalidRuleError) add(field, message string) {
	e.Problems = append(e.Problems, FieldProblem{Field: field, Message: message})
}

func (e *InvalidRuleError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Field names used in FieldProblem
const (
	FieldFrequency   = "frequency"
	FieldInterval    = "interval"
	FieldDaysOfWeek  = "daysOfWeek"
	FieldDayOfMonth  = "dayOfMonth"
	FieldTermination = "termination"
	FieldEndDate     = "endDate"
	FieldCount       = "occurrenceCount"
)
