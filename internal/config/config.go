package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Scaling modes for the train/test partitions.
const (
	// ScaleIndependent fits a separate standardizer on each partition.
	ScaleIndependent = "independent"
	// ScaleShared fits on the training partition and applies it to both.
	ScaleShared = "shared"
)

// Policies for quality scores that fall outside every bin.
const (
	OutOfRangeFail = "fail"
	OutOfRangeDrop = "drop"
)

// Global configuration structure.
type Global struct {
	Seed     int64   `mapstructure:"seed" yaml:"seed"`
	TestSize float64 `mapstructure:"test_size" yaml:"test_size"`

	// Ensemble-tree classifier
	Trees       int `mapstructure:"trees" yaml:"trees"`
	MaxDepth    int `mapstructure:"max_depth" yaml:"max_depth"`
	MaxFeatures int `mapstructure:"max_features" yaml:"max_features"`
	Workers     int `mapstructure:"workers" yaml:"workers"`

	// Linear SGD classifier
	SGDAlpha         float64 `mapstructure:"sgd_alpha" yaml:"sgd_alpha"`
	SGDMaxIter       int     `mapstructure:"sgd_max_iter" yaml:"sgd_max_iter"`
	SGDTol           float64 `mapstructure:"sgd_tol" yaml:"sgd_tol"`
	SGDNIterNoChange int     `mapstructure:"sgd_n_iter_no_change" yaml:"sgd_n_iter_no_change"`

	// Preprocessing
	ScaleMode  string    `mapstructure:"scale_mode" yaml:"scale_mode"`
	OutOfRange string    `mapstructure:"out_of_range" yaml:"out_of_range"`
	BinEdges   []float64 `mapstructure:"bin_edges" yaml:"bin_edges"`
	BinLabels  []string  `mapstructure:"bin_labels" yaml:"bin_labels"`

	// Output
	PlotsDir  string `mapstructure:"plots_dir" yaml:"plots_dir"`
	HistBins  int    `mapstructure:"hist_bins" yaml:"hist_bins"`
	RunsDir   string `mapstructure:"runs_dir" yaml:"runs_dir"`
	SampleRow int    `mapstructure:"sample_rows" yaml:"sample_rows"`
}

// Validate reports settings that the pipeline cannot run with.
func (c *Global) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0, 1), got %v", c.TestSize)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	switch c.ScaleMode {
	case ScaleIndependent, ScaleShared:
	default:
		return fmt.Errorf("invalid scale_mode: %s (use %s or %s)", c.ScaleMode, ScaleIndependent, ScaleShared)
	}
	switch c.OutOfRange {
	case OutOfRangeFail, OutOfRangeDrop:
	default:
		return fmt.Errorf("invalid out_of_range: %s (use %s or %s)", c.OutOfRange, OutOfRangeFail, OutOfRangeDrop)
	}
	if len(c.BinEdges) < 2 || len(c.BinLabels) != len(c.BinEdges)-1 {
		return fmt.Errorf("bin_labels must have one entry per interval (%d edges, %d labels)", len(c.BinEdges), len(c.BinLabels))
	}
	return nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.winequality/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns the built-in configuration without reading file or env.
func Default() *Global {
	return &Global{
		Seed:             42,
		TestSize:         0.2,
		Trees:            200,
		SGDAlpha:         0.0001,
		SGDMaxIter:       1000,
		SGDTol:           1e-3,
		SGDNIterNoChange: 5,
		ScaleMode:        ScaleIndependent,
		OutOfRange:       OutOfRangeFail,
		BinEdges:         []float64{2, 6.5, 8},
		BinLabels:        []string{"bad", "good"},
		PlotsDir:         "plots",
		HistBins:         20,
		SampleRow:        5,
	}
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("WINEQ")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("seed", d.Seed)
	v.SetDefault("test_size", d.TestSize)
	v.SetDefault("trees", d.Trees)
	v.SetDefault("max_depth", 0)
	v.SetDefault("max_features", 0)
	v.SetDefault("workers", 0)
	v.SetDefault("sgd_alpha", d.SGDAlpha)
	v.SetDefault("sgd_max_iter", d.SGDMaxIter)
	v.SetDefault("sgd_tol", d.SGDTol)
	v.SetDefault("sgd_n_iter_no_change", d.SGDNIterNoChange)
	v.SetDefault("scale_mode", d.ScaleMode)
	v.SetDefault("out_of_range", d.OutOfRange)
	v.SetDefault("bin_edges", d.BinEdges)
	v.SetDefault("bin_labels", d.BinLabels)
	v.SetDefault("plots_dir", d.PlotsDir)
	v.SetDefault("hist_bins", d.HistBins)
	v.SetDefault("sample_rows", d.SampleRow)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.RunsDir == "" {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".winequality"), nil
}
