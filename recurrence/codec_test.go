package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type schedule struct {
	Name string `json:"name" yaml:"name"`
	Rule Rule   `json:"rule" yaml:"rule"`
}

func TestRule_JSON(t *testing.T) {
	rule := mustRule(t, Spec{Frequency: FrequencyWeekly, Interval: 2, DaysOfWeek: []int{1, 3}, OccurrenceCount: intPtr(4)})

	data, err := json.Marshal(schedule{Name: "standup", Rule: rule})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"standup","rule":{"frequency":"weekly","interval":2,"daysOfWeek":[1,3],"occurrenceCount":4}}`, string(data))

	var decoded schedule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rule, decoded.Rule)
}

func TestRule_JSONNull(t *testing.T) {
	data, err := json.Marshal(schedule{Name: "empty"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"empty","rule":null}`, string(data))

	var decoded schedule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Rule.IsZero())
}

func TestRule_JSONRejectsInvalid(t *testing.T) {
	var decoded schedule
	err := json.Unmarshal([]byte(`{"rule":{"frequency":"monthly","interval":1,"dayOfMonth":32}}`), &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)

	err = json.Unmarshal([]byte(`{"rule":{"frequency":7}}`), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode rule")
}

func TestRule_YAML(t *testing.T) {
	input := `
name: rent
rule:
  frequency: monthly
  interval: 1
  dayOfMonth: 31
  endDate: 2025-01-01T00:00:00Z
`
	var decoded schedule
	require.NoError(t, yaml.Unmarshal([]byte(input), &decoded))

	expected := mustRule(t, Spec{
		Frequency:  FrequencyMonthly,
		Interval:   1,
		DayOfMonth: 31,
		EndDate:    timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	assert.Equal(t, expected.Spec().EndDate.Unix(), decoded.Rule.Spec().EndDate.Unix())
	assert.Equal(t, expected.RRule(), decoded.Rule.RRule())

	out, err := yaml.Marshal(decoded)
	require.NoError(t, err)

	var again schedule
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, decoded.Rule.RRule(), again.Rule.RRule())
	assert.Contains(t, string(out), "dayOfMonth: 31")
}

func TestRule_YAMLRejectsInvalid(t *testing.T) {
	var decoded schedule
	err := yaml.Unmarshal([]byte("rule:\n  frequency: weekly\n  interval: 0\n"), &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
}
