package analyzer

import (
	"math"

	"github.com/jmerrick/daywatch/pkg/models"
)

// Threshold derives the fixed alert threshold for a run: twice the sum
// of the configured event weights. Independent of any profile or data.
func Threshold(events models.EventSet) float64 {
	sum := 0
	for _, def := range events {
		sum += def.Weight
	}
	return 2 * float64(sum)
}

// Scorer compares monitored days against a fixed baseline summary using
// the original event weights. It holds no mutable state; scoring the
// same day twice yields identical verdicts.
type Scorer struct {
	events    models.EventSet
	baseline  models.BaselineSummary
	threshold float64
}

// NewScorer creates a scorer bound to a baseline summary and event set
// for the remainder of a run.
func NewScorer(baseline models.BaselineSummary, events models.EventSet) *Scorer {
	return &Scorer{
		events:    events,
		baseline:  baseline,
		threshold: Threshold(events),
	}
}

// Threshold returns the fixed alert threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score produces the verdict for one monitored day. Per event, the
// deviation is the absolute distance from the baseline mean in baseline
// std-dev units, scaled by the event weight. A zero baseline std-dev
// yields deviation 0 when the value equals the mean and +Inf otherwise,
// so a degenerate baseline forces the alert instead of corrupting the
// score. The alert comparison uses the unrounded score; the reported
// score is rounded to 2 decimals.
func (s *Scorer) Score(day models.DayRecord, dayIndex int) models.DayVerdict {
	score := 0.0
	deviations := make(map[string]float64, len(day))

	for name, value := range day {
		base := s.baseline[name]
		weight := float64(s.events[name].Weight)

		// A zero-weight event contributes nothing. Short-circuiting
		// before the multiplication also keeps an infinite deviation
		// from producing Inf*0 = NaN and poisoning the sum.
		if weight == 0 {
			deviations[name] = 0
			continue
		}

		var deviation float64
		switch {
		case base.StdDev != 0:
			deviation = math.Abs(value-base.Mean) / base.StdDev
		case value == base.Mean:
			deviation = 0
		default:
			deviation = math.Inf(1)
		}

		weighted := deviation * weight
		deviations[name] = weighted
		score += weighted
	}

	alert := score >= s.threshold
	status := "OK"
	if alert {
		status = "ALERT"
	}

	return models.DayVerdict{
		Day:        dayIndex,
		Score:      models.Round2(score),
		Threshold:  s.threshold,
		Alert:      alert,
		Status:     status,
		Deviations: deviations,
	}
}
