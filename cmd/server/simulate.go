package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cleanbot/server/messages"
	"cleanbot/server/models"
	"cleanbot/server/services"
)

var (
	simSeed     int64
	simMaxTicks int
	simVerbose  bool
	simJSON     bool

	simulateCmd = &cobra.Command{
		Use:   "simulate <mapfile>",
		Short: "Run one cleaning bot over a map file in virtual time and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
)

func init() {
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed for tie-breaks (0 picks one from the clock)")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "stop after this many ticks (0 uses the config value)")
	simulateCmd.Flags().BoolVarP(&simVerbose, "verbose", "v", false, "print every tick")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "print the final report as JSON")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read map: %w", err)
	}

	settings := runSettings(cfg.Simulation)
	if simMaxTicks > 0 {
		settings.Termination.MaxTicks = simMaxTicks
	}
	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Editors leave a trailing newline that would otherwise read as an empty row.
	report, err := simulate(strings.TrimRight(string(text), "\r\n"), settings, seed, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report, seed)
}

// simulate drives a single run to its end without waiting on wall-clock ticks.
// Progress lines go to progress when verbose output is enabled.
func simulate(text string, settings services.RunSettings, seed int64, progress io.Writer) (*models.RunReport, error) {
	grid, err := models.ParseGrid(text, settings.Parse)
	if err != nil {
		return nil, err
	}
	if settings.Termination.MaxTicks <= 0 && len(grid.FloorTiles()) == 0 {
		return nil, fmt.Errorf("map has no floor tiles; pass --max-ticks to simulate it anyway")
	}

	report := &models.RunReport{ID: "sim", Map: grid.String()}
	sink := services.SinkFunc(func(event messages.Event) {
		switch payload := event.Payload.(type) {
		case messages.ProgressPayload:
			if simVerbose {
				fmt.Fprintf(progress, "%s (times cleaned %d, productivity %d)\n",
					payload.Message, payload.TimesCleaned, payload.Productivity)
			}
		case messages.TerminatedPayload:
			report.Reason = payload.Reason
			report.Message = payload.Message
			report.Ticks = payload.Ticks
			report.Cleaned = payload.Cleaned
			report.Total = payload.Total
			report.ElapsedMs = payload.ElapsedTime
			report.Productivity = payload.Productivity
			report.Ledger = payload.CleanedFloorMap
		}
	})

	run := services.NewRun(report.ID, grid, services.RunDeps{
		Policy:      services.NewMovementPolicy(rand.New(rand.NewSource(seed))),
		Termination: settings.Termination,
		Sink:        sink,
		Interval:    settings.TickInterval,
	})
	report.StartedAt = run.Status().StartedAt
	run.Drive(0)
	report.FinishedAt = report.StartedAt.Add(time.Duration(report.ElapsedMs) * time.Millisecond)
	return report, nil
}

func printReport(w io.Writer, report *models.RunReport, seed int64) error {
	if simJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%s\n\n", report.Map)
	fmt.Fprintf(w, "seed:      %d\n", seed)
	fmt.Fprintf(w, "reason:    %s\n", report.Reason)
	fmt.Fprintf(w, "message:   %s\n", report.Message)
	fmt.Fprintf(w, "ticks:     %d (%s simulated)\n", report.Ticks, time.Duration(report.ElapsedMs)*time.Millisecond)
	fmt.Fprintf(w, "coverage:  %d/%d (%.1f%%)\n", report.Cleaned, report.Total, report.Coverage()*100)
	return nil
}
