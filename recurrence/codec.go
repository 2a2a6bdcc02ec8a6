package recurrence

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the rule in its Spec shape
func (r Rule) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.Spec())
}

// UnmarshalJSON decodes a Spec and validates it
func (r *Rule) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rule{}
		return nil
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to decode rule: %w", err)
	}
	rule, err := Validate(spec).Get()
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// MarshalYAML encodes the rule in its Spec shape
func (r Rule) MarshalYAML() (interface{}, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.Spec(), nil
}

// UnmarshalYAML decodes a Spec and validates it
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var spec Spec
	if err := value.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode rule: %w", err)
	}
	rule, err := Validate(spec).Get()
	if err != nil {
		return err
	}
	*r = rule
	return nil
}
