// Package simulator produces synthetic per-day event values from a
// declared statistical profile.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/jmerrick/daywatch/pkg/models"
)

// Generator draws bounded gaussian samples for a fixed event set. All
// randomness flows through a single injectable stream so that runs are
// reproducible under test.
type Generator struct {
	events models.EventSet
	rng    *rand.Rand
}

// NewGenerator creates a generator for the given event set. A nil rng
// selects a time-seeded stream.
func NewGenerator(events models.EventSet, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{events: events, rng: rng}
}

// Day realizes one simulated day: for each event, one draw from
// Normal(mean, std_dev), shaped by the event's kind and clamp bounds.
// Discrete values are truncated toward zero; continuous values are
// rounded to 2 decimals. Clamping applies after shaping, min then max.
func (g *Generator) Day(profile models.ProfileSet) models.DayRecord {
	day := make(models.DayRecord, len(g.events))
	for name, def := range g.events {
		stat := profile[name]
		sample := stat.Mean + g.rng.NormFloat64()*stat.StdDev

		var value float64
		if def.Kind == models.KindDiscrete {
			value = trunc(sample)
			if def.Min != nil {
				value = math.Max(value, trunc(*def.Min))
			}
			if def.Max != nil {
				value = math.Min(value, trunc(*def.Max))
			}
		} else {
			value = models.Round2(sample)
			if def.Min != nil {
				value = math.Max(value, *def.Min)
			}
			if def.Max != nil {
				value = math.Min(value, *def.Max)
			}
		}
		day[name] = value
	}
	return day
}

// Days realizes n independent days in order, day 1 first.
func (g *Generator) Days(profile models.ProfileSet, n int) []models.DayRecord {
	days := make([]models.DayRecord, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, g.Day(profile))
	}
	return days
}

// trunc discards the fractional part, toward zero.
func trunc(v float64) float64 {
	return float64(int64(v))
}
