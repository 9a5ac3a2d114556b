package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	cfgpkg "github.com/KaramelBytes/winequality-cli/internal/config"
	"github.com/KaramelBytes/winequality-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "winequality",
	Short: "Explore the red wine quality table and classify wines as bad or good",
	Long: `winequality loads the red wine physicochemical table, prints descriptive
statistics, renders exploratory plots, bins quality into bad/good and compares
a random forest with a linear SGD classifier on a seeded 80/20 split.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.winequality/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c
	slog.Debug("config loaded", "file", cfgFile, "seed", cfg.Seed, "trees", cfg.Trees, "scale_mode", cfg.ScaleMode)
}

// currentConfig returns the loaded configuration or the defaults.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

// baseSettings maps the loaded configuration onto pipeline settings.
func baseSettings() pipeline.Settings {
	return pipeline.FromConfig(currentConfig())
}
