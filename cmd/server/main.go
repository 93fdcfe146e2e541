package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cleanbot/server/config"
	"cleanbot/server/models"
	"cleanbot/server/services"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cleanbot",
		Short: "Simulated cleaning robots for grid-shaped rooms",
		Long: `cleanbot runs cleaning agents over text maps of a room and streams
their progress to websocket observers.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file")
	rootCmd.AddCommand(serveCmd, simulateCmd)
}

// loadConfig reads the configuration and installs the process logger
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(cfg.Log.NewLogger())
	return cfg, nil
}

// runSettings turns the simulation config into run parameters
func runSettings(cfg config.SimulationConfig) services.RunSettings {
	return services.RunSettings{
		TickInterval: cfg.TickInterval,
		Termination: services.TerminationPolicy{
			StuckThreshold: cfg.StuckThreshold,
			MaxTicks:       cfg.MaxTicks,
		},
		Parse: models.ParseOptions{
			FloorMarkers: cfg.FloorMarkers,
			Strict:       cfg.StrictMaps,
		},
		Seed: cfg.Seed,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
