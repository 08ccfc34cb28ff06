package models

import (
	"encoding/json"
	"math"
)

// EventKind distinguishes integer-valued from real-valued events
type EventKind string

const (
	KindDiscrete   EventKind = "D"
	KindContinuous EventKind = "C"
)

// EventDefinition describes one monitored per-day quantity
type EventDefinition struct {
	Name   string    `json:"name"`
	Kind   EventKind `json:"kind"`
	Min    *float64  `json:"min,omitempty"`
	Max    *float64  `json:"max,omitempty"`
	Weight int       `json:"weight"`
}

// EventSet maps event name to its definition. Immutable once loaded;
// shared read-only by the generator and the scorer.
type EventSet map[string]EventDefinition

// Names returns the event names in unspecified order.
func (s EventSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// StatProfile describes the expected distribution of one event's daily value
type StatProfile struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// ProfileSet maps event name to its distribution parameters. One set
// drives the baseline phase; each monitoring round supplies a new one.
type ProfileSet map[string]StatProfile

// DayRecord maps event name to the realized value for one simulated day.
// Discrete events carry integral-valued float64s. Not mutated after creation.
type DayRecord map[string]float64

// BaselineSummary holds the empirical per-event statistics computed from
// the baseline window. Computed once per run and held immutably; monitoring
// rounds never recompute it.
type BaselineSummary map[string]StatProfile

// DayVerdict is the anomaly result for one monitored day
type DayVerdict struct {
	Day        int                `json:"day"`
	Score      float64            `json:"anomaly_counter"`
	Threshold  float64            `json:"threshold"`
	Alert      bool               `json:"alert"`
	Status     string             `json:"status"`
	Deviations map[string]float64 `json:"deviations"`
}

// MarshalJSON renders infinite scores and deviations (possible when the
// baseline std-dev is zero) as the string "inf", since encoding/json has
// no numeric representation for them. NaN is rendered as "nan" rather
// than failing the whole write.
func (v DayVerdict) MarshalJSON() ([]byte, error) {
	deviations := make(map[string]interface{}, len(v.Deviations))
	for name, d := range v.Deviations {
		deviations[name] = finiteOrInf(d)
	}
	return json.Marshal(struct {
		Day        int                    `json:"day"`
		Score      interface{}            `json:"anomaly_counter"`
		Threshold  float64                `json:"threshold"`
		Alert      bool                   `json:"alert"`
		Status     string                 `json:"status"`
		Deviations map[string]interface{} `json:"deviations"`
	}{
		Day:        v.Day,
		Score:      finiteOrInf(v.Score),
		Threshold:  v.Threshold,
		Alert:      v.Alert,
		Status:     v.Status,
		Deviations: deviations,
	})
}

// Round2 rounds to 2 decimal digits, the precision used for continuous
// event values and reported scores.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finiteOrInf(v float64) interface{} {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsNaN(v) {
		return "nan"
	}
	return v
}
