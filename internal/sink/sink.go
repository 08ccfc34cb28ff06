// Package sink persists run artifacts as JSON files: one log per
// generated day and one result file per analysis step.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmerrick/daywatch/pkg/models"
)

// Phase names used for the day-log directory layout.
const (
	PhaseBaseline   = "baseline"
	PhaseMonitoring = "monitoring"
)

// Sink writes artifacts under an explicit directory pair, passed in by
// the caller rather than held as process-wide state.
type Sink struct {
	logDir      string
	analysisDir string
	now         func() time.Time
}

// New creates the log and analysis directory trees and returns a sink
// rooted at them.
func New(logDir, analysisDir string) (*Sink, error) {
	for _, dir := range []string{
		filepath.Join(logDir, PhaseBaseline),
		filepath.Join(logDir, PhaseMonitoring),
		analysisDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Sink{logDir: logDir, analysisDir: analysisDir, now: time.Now}, nil
}

// WriteDayLog persists one day's record under the phase's log directory
// and returns the file path.
func (s *Sink) WriteDayLog(phase string, day int, record models.DayRecord) (string, error) {
	name := fmt.Sprintf("day_%d_%s.json", day, s.now().Format("20060102_150405"))
	path := filepath.Join(s.logDir, phase, name)
	if err := writeJSON(path, record); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBaseline persists the baseline summary to the analysis directory.
func (s *Sink) WriteBaseline(summary models.BaselineSummary) (string, error) {
	path := filepath.Join(s.analysisDir, "baseline_stats.json")
	if err := writeJSON(path, summary); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAlerts persists one monitoring round's verdict sequence to a
// timestamped file in the analysis directory.
func (s *Sink) WriteAlerts(verdicts []models.DayVerdict) (string, error) {
	name := fmt.Sprintf("alerts_%s.json", s.now().Format("20060102_150405"))
	path := filepath.Join(s.analysisDir, name)
	if err := writeJSON(path, verdicts); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
