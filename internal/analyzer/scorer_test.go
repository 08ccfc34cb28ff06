package analyzer

import (
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/jmerrick/daywatch/internal/simulator"
	"github.com/jmerrick/daywatch/pkg/models"
)

func f64(v float64) *float64 { return &v }

func TestThreshold_TwiceTheWeightSum(t *testing.T) {
	tests := []struct {
		name   string
		events models.EventSet
		want   float64
	}{
		{
			"SingleEvent",
			models.EventSet{"A": {Name: "A", Weight: 2}},
			4,
		},
		{
			"MultipleEvents",
			models.EventSet{
				"A": {Name: "A", Weight: 2},
				"B": {Name: "B", Weight: 3},
				"C": {Name: "C", Weight: 0},
			},
			10,
		},
		{
			"AllZeroWeights",
			models.EventSet{"A": {Name: "A", Weight: 0}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Threshold(tt.events); got != tt.want {
				t.Errorf("Threshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorer_ZeroDeviationVerdict(t *testing.T) {
	events := models.EventSet{
		"A": {Name: "A", Weight: 2},
		"B": {Name: "B", Weight: 1},
	}
	baseline := models.BaselineSummary{
		"A": {Mean: 50, StdDev: 5},
		"B": {Mean: 10, StdDev: 2},
	}
	scorer := NewScorer(baseline, events)

	verdict := scorer.Score(models.DayRecord{"A": 50, "B": 10}, 1)
	if verdict.Score != 0 {
		t.Errorf("Expected score 0, got %v", verdict.Score)
	}
	if verdict.Alert {
		t.Error("Expected no alert for zero deviation")
	}
	if verdict.Status != "OK" {
		t.Errorf("Expected status OK, got %s", verdict.Status)
	}
	if verdict.Day != 1 {
		t.Errorf("Expected day 1, got %d", verdict.Day)
	}
}

func TestScorer_WeightedDeviation(t *testing.T) {
	events := models.EventSet{"A": {Name: "A", Weight: 2}}
	baseline := models.BaselineSummary{"A": {Mean: 50, StdDev: 5}}
	scorer := NewScorer(baseline, events)

	// |60-50|/5 = 2 std-devs, weighted by 2 -> score 4 = threshold
	verdict := scorer.Score(models.DayRecord{"A": 60}, 3)
	if verdict.Score != 4 {
		t.Errorf("Expected score 4, got %v", verdict.Score)
	}
	if verdict.Threshold != 4 {
		t.Errorf("Expected threshold 4, got %v", verdict.Threshold)
	}
	if !verdict.Alert {
		t.Error("Score equal to threshold must alert")
	}
	if verdict.Deviations["A"] != 4 {
		t.Errorf("Expected per-event deviation 4, got %v", verdict.Deviations["A"])
	}
}

func TestScorer_ZeroStdDevPolicy(t *testing.T) {
	events := models.EventSet{"A": {Name: "A", Weight: 1}}
	baseline := models.BaselineSummary{"A": {Mean: 10, StdDev: 0}}
	scorer := NewScorer(baseline, events)

	onMean := scorer.Score(models.DayRecord{"A": 10}, 1)
	if onMean.Score != 0 || onMean.Alert {
		t.Errorf("Value equal to mean with zero std-dev must score 0, got %+v", onMean)
	}

	offMean := scorer.Score(models.DayRecord{"A": 11}, 2)
	if !math.IsInf(offMean.Deviations["A"], 1) {
		t.Errorf("Value off a zero-variance mean must deviate infinitely, got %v",
			offMean.Deviations["A"])
	}
	if !offMean.Alert {
		t.Error("Infinite deviation must alert")
	}
}

// A zero-weight event sitting off a zero-variance baseline must not
// contribute: Inf*0 would be NaN, turning the whole score into NaN and
// suppressing an alert another event has already earned.
func TestScorer_ZeroWeightNeverPoisonsScore(t *testing.T) {
	events := models.EventSet{
		"A": {Name: "A", Weight: 0},
		"B": {Name: "B", Weight: 2},
	}
	baseline := models.BaselineSummary{
		"A": {Mean: 10, StdDev: 0},
		"B": {Mean: 50, StdDev: 5},
	}
	scorer := NewScorer(baseline, events)

	// B alone: |80-50|/5 = 6 std-devs, weighted 12, threshold 4
	verdict := scorer.Score(models.DayRecord{"A": 11, "B": 80}, 1)
	if math.IsNaN(verdict.Score) {
		t.Fatal("Score must never be NaN")
	}
	if verdict.Score != 12 {
		t.Errorf("Expected score 12, got %v", verdict.Score)
	}
	if !verdict.Alert {
		t.Error("Expected alert: B's contribution alone exceeds the threshold")
	}
	if verdict.Deviations["A"] != 0 {
		t.Errorf("Zero-weight event must contribute 0, got %v", verdict.Deviations["A"])
	}

	if _, err := json.Marshal(verdict); err != nil {
		t.Errorf("Verdict must stay serializable: %v", err)
	}
}

func TestScorer_Idempotent(t *testing.T) {
	events := models.EventSet{
		"A": {Name: "A", Weight: 2},
		"B": {Name: "B", Weight: 1},
	}
	baseline := models.BaselineSummary{
		"A": {Mean: 50, StdDev: 5},
		"B": {Mean: 10, StdDev: 2},
	}
	scorer := NewScorer(baseline, events)
	day := models.DayRecord{"A": 61.5, "B": 7}

	first := scorer.Score(day, 1)
	second := scorer.Score(day, 1)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Scoring is not idempotent:\n first %+v\nsecond %+v", first, second)
	}
}

func TestScorer_ReportedScoreIsRounded(t *testing.T) {
	events := models.EventSet{"A": {Name: "A", Weight: 1}}
	baseline := models.BaselineSummary{"A": {Mean: 0, StdDev: 3}}
	scorer := NewScorer(baseline, events)

	// |1-0|/3 = 0.333... -> reported as 0.33
	verdict := scorer.Score(models.DayRecord{"A": 1}, 1)
	if verdict.Score != 0.33 {
		t.Errorf("Expected rounded score 0.33, got %v", verdict.Score)
	}
}

// Shifting the monitored mean far from the baseline should alert on
// nearly every day: baseline near 50, monitored draws near 90, weight 2,
// threshold 4.
func TestScorer_MeanShiftScenario(t *testing.T) {
	events := models.EventSet{
		"A": {Name: "A", Kind: models.KindDiscrete, Min: f64(0), Max: f64(100), Weight: 2},
	}
	gen := simulator.NewGenerator(events, rand.New(rand.NewSource(11)))

	baselineDays := gen.Days(models.ProfileSet{"A": {Mean: 50, StdDev: 5}}, 5)
	summary, err := Summarize(baselineDays)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	scorer := NewScorer(summary, events)
	if scorer.Threshold() != 4 {
		t.Fatalf("Expected threshold 4, got %v", scorer.Threshold())
	}

	alerts := 0
	monitored := gen.Days(models.ProfileSet{"A": {Mean: 90, StdDev: 5}}, 5)
	for i, day := range monitored {
		if scorer.Score(day, i+1).Alert {
			alerts++
		}
	}
	if alerts < 3 {
		t.Errorf("Expected most of the 5 shifted days to alert, got %d", alerts)
	}
}
