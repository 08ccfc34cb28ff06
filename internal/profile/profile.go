// Package profile loads and validates the event and statistics
// configuration texts that drive a simulation run.
package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmerrick/daywatch/pkg/models"
)

// ParseError reports a malformed line or field in a configuration text.
type ParseError struct {
	Source string // "events" or "stats"
	Line   int    // 1-based line number within the text
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s line %d: %s", e.Source, e.Line, e.Reason)
}

// MismatchError reports event names present in only one of the two
// configuration sets.
type MismatchError struct {
	Names []string // symmetric difference, sorted
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("inconsistent events between files, mismatched: %s",
		strings.Join(e.Names, ", "))
}

// ParseEvents parses an events configuration text. The first non-empty
// line declares a record count; each following line has the form
// name:kind:min:max:weight, where min and max may be empty (unbounded).
// A mismatch between the declared and parsed count is returned as a
// warning, not an error.
func ParseEvents(text string) (models.EventSet, []string, error) {
	lines, declared, err := splitRecords("events", text)
	if err != nil {
		return nil, nil, err
	}

	events := make(models.EventSet, len(lines))
	for _, rec := range lines {
		fields := strings.Split(rec.text, ":")
		if len(fields) < 5 {
			return nil, nil, &ParseError{Source: "events", Line: rec.line,
				Reason: fmt.Sprintf("expected 5 fields, got %d", len(fields))}
		}

		name := fields[0]
		if name == "" {
			return nil, nil, &ParseError{Source: "events", Line: rec.line, Reason: "empty event name"}
		}

		var kind models.EventKind
		switch fields[1] {
		case "D":
			kind = models.KindDiscrete
		case "C":
			kind = models.KindContinuous
		default:
			return nil, nil, &ParseError{Source: "events", Line: rec.line,
				Reason: fmt.Sprintf("unknown kind %q", fields[1])}
		}

		min, err := parseBound("events", rec.line, "min", fields[2])
		if err != nil {
			return nil, nil, err
		}
		max, err := parseBound("events", rec.line, "max", fields[3])
		if err != nil {
			return nil, nil, err
		}

		weight, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, nil, &ParseError{Source: "events", Line: rec.line,
				Reason: fmt.Sprintf("non-numeric weight %q", fields[4])}
		}
		if weight < 0 {
			return nil, nil, &ParseError{Source: "events", Line: rec.line,
				Reason: fmt.Sprintf("negative weight %d", weight)}
		}

		events[name] = models.EventDefinition{
			Name:   name,
			Kind:   kind,
			Min:    min,
			Max:    max,
			Weight: weight,
		}
	}

	var warnings []string
	if len(events) != declared {
		warnings = append(warnings,
			fmt.Sprintf("expected %d events but found %d", declared, len(events)))
	}
	return events, warnings, nil
}

// ParseStats parses a statistics configuration text: a declared count
// followed by name:mean:std_dev records. Count mismatches are warnings.
func ParseStats(text string) (models.ProfileSet, []string, error) {
	lines, declared, err := splitRecords("stats", text)
	if err != nil {
		return nil, nil, err
	}

	stats := make(models.ProfileSet, len(lines))
	for _, rec := range lines {
		fields := strings.Split(rec.text, ":")
		if len(fields) < 3 {
			return nil, nil, &ParseError{Source: "stats", Line: rec.line,
				Reason: fmt.Sprintf("expected 3 fields, got %d", len(fields))}
		}

		name := fields[0]
		if name == "" {
			return nil, nil, &ParseError{Source: "stats", Line: rec.line, Reason: "empty event name"}
		}

		mean, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, &ParseError{Source: "stats", Line: rec.line,
				Reason: fmt.Sprintf("non-numeric mean %q", fields[1])}
		}
		stdDev, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, nil, &ParseError{Source: "stats", Line: rec.line,
				Reason: fmt.Sprintf("non-numeric std_dev %q", fields[2])}
		}

		stats[name] = models.StatProfile{Mean: mean, StdDev: stdDev}
	}

	var warnings []string
	if len(stats) != declared {
		warnings = append(warnings,
			fmt.Sprintf("expected %d events but found %d", declared, len(stats)))
	}
	return stats, warnings, nil
}

// Validate checks that the event and stats sets cover exactly the same
// names. A Discrete event whose mean has a fractional part is tolerated
// and surfaced as a warning only.
func Validate(events models.EventSet, stats models.ProfileSet) ([]string, error) {
	var mismatched []string
	for name := range events {
		if _, ok := stats[name]; !ok {
			mismatched = append(mismatched, name)
		}
	}
	for name := range stats {
		if _, ok := events[name]; !ok {
			mismatched = append(mismatched, name)
		}
	}
	if len(mismatched) > 0 {
		sort.Strings(mismatched)
		return nil, &MismatchError{Names: mismatched}
	}

	var warnings []string
	names := events.Names()
	sort.Strings(names)
	for _, name := range names {
		def := events[name]
		if def.Kind == models.KindDiscrete && stats[name].Mean != float64(int64(stats[name].Mean)) {
			warnings = append(warnings,
				fmt.Sprintf("discrete event %s has non-integer mean", name))
		}
	}
	return warnings, nil
}

// parseBound parses an optional clamp bound; an empty field means
// unbounded.
func parseBound(source string, line int, field, text string) (*float64, error) {
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, &ParseError{Source: source, Line: line,
			Reason: fmt.Sprintf("non-numeric %s %q", field, text)}
	}
	return &v, nil
}

type record struct {
	line int
	text string
}

// splitRecords strips the count header and returns the remaining
// non-empty lines with their positions.
func splitRecords(source, text string) ([]record, int, error) {
	var recs []record
	declared := -1
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if declared < 0 {
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, 0, &ParseError{Source: source, Line: i + 1,
					Reason: fmt.Sprintf("invalid record count %q", line)}
			}
			declared = n
			continue
		}
		recs = append(recs, record{line: i + 1, text: line})
	}
	if declared < 0 {
		return nil, 0, &ParseError{Source: source, Line: 1, Reason: "empty configuration"}
	}
	return recs, declared, nil
}
