// Package orchestrator sequences the baseline phase and the repeated
// monitoring rounds. It owns no statistical logic; generation,
// aggregation and scoring are delegated.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jmerrick/daywatch/internal/analyzer"
	"github.com/jmerrick/daywatch/internal/profile"
	"github.com/jmerrick/daywatch/internal/simulator"
	"github.com/jmerrick/daywatch/internal/sink"
	"github.com/jmerrick/daywatch/pkg/models"
)

// State of the run lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateBaseline   State = "baseline"
	StateMonitoring State = "monitoring"
	StateTerminated State = "terminated"
)

// ProfileSource supplies the next statistics text for a monitoring
// round. Next blocks until a text or a termination signal arrives;
// termination is reported as io.EOF.
type ProfileSource interface {
	Next(ctx context.Context) (string, error)
}

// Recorder persists run history. Satisfied by the SQLite store.
type Recorder interface {
	BeginRun(ctx context.Context, threshold float64, days, eventCount int) (string, error)
	RecordVerdicts(ctx context.Context, runID string, round int, verdicts []models.DayVerdict) error
}

// Options configures an orchestrator. Publish and Recorder are optional.
type Options struct {
	Events        models.EventSet
	Days          int
	Generator     *simulator.Generator
	Sink          *sink.Sink
	ProgressEvery int
	Publish       func(v interface{}) // fan-out to the dashboard
	Recorder      Recorder            // verdict history
}

// Orchestrator drives Idle -> Baseline -> Monitoring* -> Terminated.
// After the baseline phase it retains the baseline summary and the
// original event weights for every subsequent round.
type Orchestrator struct {
	opts   Options
	state  State
	scorer *analyzer.Scorer
	runID  string
	round  int

	baseline models.BaselineSummary
}

// New creates an orchestrator in the Idle state.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Events) == 0 {
		return nil, errors.New("orchestrator requires a non-empty event set")
	}
	if opts.Days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	if opts.Generator == nil || opts.Sink == nil {
		return nil, errors.New("orchestrator requires a generator and a sink")
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 5
	}
	return &Orchestrator{opts: opts, state: StateIdle}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Baseline returns the retained baseline summary, nil before the
// baseline phase has run.
func (o *Orchestrator) Baseline() models.BaselineSummary {
	return o.baseline
}

// RunBaseline generates the initial observation window with the given
// profile, aggregates it into the retained baseline summary, and
// transitions to Monitoring. Valid only once, from Idle.
func (o *Orchestrator) RunBaseline(ctx context.Context, initial models.ProfileSet) (models.BaselineSummary, error) {
	if o.state != StateIdle {
		return nil, fmt.Errorf("baseline phase not allowed in state %s", o.state)
	}
	// A failed baseline returns to Idle so the caller may retry.
	o.state = StateBaseline

	log.Printf("Starting baseline phase...")
	days, err := o.generatePhase(sink.PhaseBaseline, initial)
	if err != nil {
		o.state = StateIdle
		return nil, err
	}

	summary, err := analyzer.Summarize(days)
	if err != nil {
		o.state = StateIdle
		return nil, err
	}

	path, err := o.opts.Sink.WriteBaseline(summary)
	if err != nil {
		o.state = StateIdle
		return nil, err
	}
	log.Printf("Baseline statistics written to %s", path)

	o.baseline = summary
	o.scorer = analyzer.NewScorer(summary, o.opts.Events)

	if o.opts.Recorder != nil {
		runID, err := o.opts.Recorder.BeginRun(ctx, o.scorer.Threshold(), o.opts.Days, len(o.opts.Events))
		if err != nil {
			log.Printf("Failed to record run history: %v", err)
		} else {
			o.runID = runID
		}
	}

	o.state = StateMonitoring
	return summary, nil
}

// RunMonitoring loops over profile submissions until the source signals
// termination. A malformed or mismatched profile aborts only its own
// iteration; the loop keeps awaiting the next submission.
func (o *Orchestrator) RunMonitoring(ctx context.Context, source ProfileSource) error {
	if o.state != StateMonitoring {
		return fmt.Errorf("monitoring phase not allowed in state %s", o.state)
	}

	for {
		text, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			o.state = StateTerminated
			log.Printf("Monitoring terminated")
			return nil
		}
		if err != nil {
			log.Printf("Error acquiring statistics: %v", err)
			log.Printf("Please try again with a valid statistics file.")
			continue
		}

		if err := o.monitorRound(ctx, text); err != nil {
			log.Printf("Error during monitoring phase: %v", err)
			log.Printf("Please try again with a valid statistics file.")
		}
	}
}

// monitorRound runs one full monitoring iteration: parse and validate
// the submitted profile, generate fresh days with it, and score each day
// against the retained baseline.
func (o *Orchestrator) monitorRound(ctx context.Context, text string) error {
	stats, warnings, err := profile.ParseStats(text)
	if err != nil {
		return err
	}
	logWarnings(warnings)

	warnings, err = profile.Validate(o.opts.Events, stats)
	if err != nil {
		return err
	}
	logWarnings(warnings)

	o.round++
	log.Printf("Starting monitoring phase...")

	days, err := o.generatePhase(sink.PhaseMonitoring, stats)
	if err != nil {
		return err
	}

	log.Printf("Anomaly detection threshold: %.2f", o.scorer.Threshold())
	verdicts := make([]models.DayVerdict, 0, len(days))
	for i, day := range days {
		verdict := o.scorer.Score(day, i+1)
		verdicts = append(verdicts, verdict)
		if o.opts.Publish != nil {
			o.opts.Publish(verdict)
		}
	}

	path, err := o.opts.Sink.WriteAlerts(verdicts)
	if err != nil {
		return err
	}
	log.Printf("Alert results written to %s", path)

	if o.opts.Recorder != nil && o.runID != "" {
		if err := o.opts.Recorder.RecordVerdicts(ctx, o.runID, o.round, verdicts); err != nil {
			log.Printf("Failed to record verdict history: %v", err)
		}
	}

	report(verdicts)
	return nil
}

// generatePhase produces the configured number of day records, writing
// one log artifact per day and reporting progress along the way.
func (o *Orchestrator) generatePhase(phase string, stats models.ProfileSet) ([]models.DayRecord, error) {
	log.Printf("Generating events for %d days (%s phase)...", o.opts.Days, phase)

	days := make([]models.DayRecord, 0, o.opts.Days)
	for i := 1; i <= o.opts.Days; i++ {
		if (i-1)%o.opts.ProgressEvery == 0 || i == o.opts.Days {
			log.Printf("Progress: %d/%d days processed", i, o.opts.Days)
		}

		day := o.opts.Generator.Day(stats)
		if _, err := o.opts.Sink.WriteDayLog(phase, i, day); err != nil {
			return nil, err
		}
		if o.opts.Publish != nil {
			o.opts.Publish(day)
		}
		days = append(days, day)
	}
	return days, nil
}

// report logs the per-day status. Alert days list the events whose
// weighted deviation exceeds 1.0.
func report(verdicts []models.DayVerdict) {
	log.Printf("Daily Status Report:")
	for _, v := range verdicts {
		log.Printf("Day %d: Anomaly Counter = %.2f, Status = %s", v.Day, v.Score, v.Status)
		if !v.Alert {
			continue
		}
		log.Printf("  Significant deviations in events:")
		for name, deviation := range v.Deviations {
			if deviation > 1.0 {
				log.Printf("    - %s: %.2f standard deviations", name, deviation)
			}
		}
	}
}

func logWarnings(warnings []string) {
	for _, w := range warnings {
		log.Printf("Warning: %s", w)
	}
}
