// Package analyzer turns generated day records into a baseline summary
// and scores monitored days against it.
package analyzer

import (
	"errors"
	"math"

	"github.com/jmerrick/daywatch/pkg/models"
)

// ErrInsufficientData is returned when baseline aggregation is attempted
// with no day records.
var ErrInsufficientData = errors.New("baseline aggregation requires at least one day")

// Summarize computes the per-event arithmetic mean and population
// standard deviation across a sequence of day records. The event set is
// taken from the first record; all records are assumed to share it.
func Summarize(days []models.DayRecord) (models.BaselineSummary, error) {
	if len(days) == 0 {
		return nil, ErrInsufficientData
	}

	n := float64(len(days))
	summary := make(models.BaselineSummary, len(days[0]))
	for name := range days[0] {
		sum := 0.0
		for _, day := range days {
			sum += day[name]
		}
		mean := sum / n

		variance := 0.0
		for _, day := range days {
			diff := day[name] - mean
			variance += diff * diff
		}

		summary[name] = models.StatProfile{
			Mean:   mean,
			StdDev: math.Sqrt(variance / n),
		}
	}
	return summary, nil
}
