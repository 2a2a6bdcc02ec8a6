package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"gopkg.in/yaml.v3"
)

// anchorLayouts are tried in order for anchors without a UTC offset
var anchorLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	time.DateOnly,
}

// readInput reads path, or stdin when path is "-"
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// loadRule decodes a rule file. Files ending in .json are read as JSON,
// everything else as YAML.
func loadRule(stdin io.Reader, path string) (recurrence.Rule, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("failed to read rule: %w", err)
	}

	var rule recurrence.Rule
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &rule)
	} else {
		err = yaml.Unmarshal(data, &rule)
	}
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("failed to load rule from %s: %w", path, err)
	}
	if rule.IsZero() {
		return recurrence.Rule{}, fmt.Errorf("%s does not contain a rule", path)
	}
	return rule, nil
}

// parseAnchor reads an RFC 3339 instant, or a wall clock time in zone. An
// empty value means now. zone defaults to the local zone.
func parseAnchor(value, zone string) (time.Time, error) {
	loc := time.Local
	if zone != "" {
		var err error
		if loc, err = time.LoadLocation(zone); err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q: %w", zone, err)
		}
	}

	if value == "" {
		return time.Now().In(loc).Truncate(time.Second), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		if zone != "" {
			t = t.In(loc)
		}
		return t, nil
	}
	for _, layout := range anchorLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or YYYY-MM-DD[THH:MM[:SS]]", value)
}
