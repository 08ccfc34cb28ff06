package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jmerrick/daywatch/internal/analyzer"
	"github.com/jmerrick/daywatch/internal/config"
	"github.com/jmerrick/daywatch/internal/dashboard"
	"github.com/jmerrick/daywatch/internal/feed"
	"github.com/jmerrick/daywatch/internal/orchestrator"
	"github.com/jmerrick/daywatch/internal/profile"
	"github.com/jmerrick/daywatch/internal/simulator"
	"github.com/jmerrick/daywatch/internal/sink"
	"github.com/jmerrick/daywatch/internal/store"
	"github.com/jmerrick/daywatch/pkg/models"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error in main execution: %v", err)
		os.Exit(1)
	}
	log.Printf("Program completed successfully.")
}

func run() error {
	configPath := flag.String("config", "daywatch.yaml", "path to application config")
	watchDir := flag.String("watch-dir", "", "drop directory for monitoring profiles (default: interactive stdin)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 3 {
		usage()
		return fmt.Errorf("expected 3 arguments, got %d", flag.NArg())
	}
	eventsPath := flag.Arg(0)
	statsPath := flag.Arg(1)

	days, err := strconv.Atoi(flag.Arg(2))
	if err != nil || days < 1 {
		return fmt.Errorf("days must be a positive integer, got %q", flag.Arg(2))
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Printf("Loading configuration...")
	events, stats, err := loadRunConfiguration(eventsPath, statsPath)
	if err != nil {
		return err
	}

	log.Printf("Configuration loaded successfully:")
	log.Printf("- Number of events: %d", len(events))
	log.Printf("- Events being monitored: %s", strings.Join(events.Names(), ", "))
	log.Printf("- Anomaly detection threshold: %.2f", analyzer.Threshold(events))

	artifacts, err := sink.New(cfg.LogDir, cfg.AnalysisDir)
	if err != nil {
		return err
	}

	var rng *rand.Rand
	if cfg.Simulation.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Simulation.Seed))
	}
	gen := simulator.NewGenerator(events, rng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down...", sig)
		cancel()
	}()

	opts := orchestrator.Options{
		Events:        events,
		Days:          days,
		Generator:     gen,
		Sink:          artifacts,
		ProgressEvery: cfg.Simulation.ProgressEvery,
	}

	if cfg.Store.Enabled {
		history, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer history.Close()
		opts.Recorder = history
	}

	if cfg.Dashboard.Enabled {
		server := dashboard.NewServer(cfg.Dashboard)
		go server.Start(ctx)
		opts.Publish = server.Publish
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}

	if _, err := orch.RunBaseline(ctx, stats); err != nil {
		return err
	}

	source, err := profileSource(ctx, *watchDir)
	if err != nil {
		return err
	}
	return orch.RunMonitoring(ctx, source)
}

// loadRunConfiguration parses and cross-validates the events and
// initial statistics files.
func loadRunConfiguration(eventsPath, statsPath string) (events models.EventSet, stats models.ProfileSet, err error) {
	eventsText, err := os.ReadFile(eventsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read events file: %w", err)
	}
	events, warnings, err := profile.ParseEvents(string(eventsText))
	if err != nil {
		return nil, nil, err
	}
	logWarnings(warnings)

	statsText, err := os.ReadFile(statsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stats file: %w", err)
	}
	stats, warnings, err = profile.ParseStats(string(statsText))
	if err != nil {
		return nil, nil, err
	}
	logWarnings(warnings)

	warnings, err = profile.Validate(events, stats)
	if err != nil {
		return nil, nil, err
	}
	logWarnings(warnings)

	return events, stats, nil
}

// profileSource selects the monitoring-round input: a watched drop
// directory when configured, the interactive terminal otherwise.
func profileSource(ctx context.Context, watchDir string) (orchestrator.ProfileSource, error) {
	if watchDir == "" {
		return feed.NewStdinSource(os.Stdin, os.Stdout), nil
	}
	source, err := feed.NewDirSource(watchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}
	source.Start(ctx)
	return source, nil
}

func logWarnings(warnings []string) {
	for _, w := range warnings {
		log.Printf("Warning: %s", w)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <events-file> <stats-file> <days>\n", os.Args[0])
	flag.PrintDefaults()
}
