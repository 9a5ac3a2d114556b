package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/winequality-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set winequality configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "test_size: %g\n", c.TestSize)
		fmt.Fprintf(out, "trees: %d\n", c.Trees)
		if c.MaxDepth > 0 {
			fmt.Fprintf(out, "max_depth: %d\n", c.MaxDepth)
		}
		if c.MaxFeatures > 0 {
			fmt.Fprintf(out, "max_features: %d\n", c.MaxFeatures)
		}
		if c.Workers > 0 {
			fmt.Fprintf(out, "workers: %d\n", c.Workers)
		}
		fmt.Fprintf(out, "sgd_alpha: %g\n", c.SGDAlpha)
		fmt.Fprintf(out, "sgd_max_iter: %d\n", c.SGDMaxIter)
		fmt.Fprintf(out, "sgd_tol: %g\n", c.SGDTol)
		fmt.Fprintf(out, "sgd_n_iter_no_change: %d\n", c.SGDNIterNoChange)
		fmt.Fprintf(out, "scale_mode: %s\n", c.ScaleMode)
		fmt.Fprintf(out, "out_of_range: %s\n", c.OutOfRange)
		fmt.Fprintf(out, "bin_edges: %s\n", joinFloats(c.BinEdges))
		fmt.Fprintf(out, "bin_labels: %s\n", strings.Join(c.BinLabels, ","))
		fmt.Fprintf(out, "plots_dir: %s\n", c.PlotsDir)
		fmt.Fprintf(out, "hist_bins: %d\n", c.HistBins)
		fmt.Fprintf(out, "sample_rows: %d\n", c.SampleRow)
		fmt.Fprintf(out, "runs_dir: %s\n", c.RunsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], strings.TrimSpace(args[1])
		c := currentConfig()
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", key)
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "seed":
		c.Seed, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %v", val)
		}
	case "test_size":
		c.TestSize, err = parseFloat()
	case "trees":
		c.Trees, err = atoi()
	case "max_depth":
		c.MaxDepth, err = atoi()
	case "max_features":
		c.MaxFeatures, err = atoi()
	case "workers":
		c.Workers, err = atoi()
	case "sgd_alpha":
		c.SGDAlpha, err = parseFloat()
		if err == nil && c.SGDAlpha <= 0 {
			err = fmt.Errorf("sgd_alpha must be positive")
		}
	case "sgd_max_iter":
		c.SGDMaxIter, err = atoi()
	case "sgd_tol":
		c.SGDTol, err = parseFloat()
	case "sgd_n_iter_no_change":
		c.SGDNIterNoChange, err = atoi()
	case "scale_mode":
		c.ScaleMode = strings.ToLower(val)
	case "out_of_range":
		c.OutOfRange = strings.ToLower(val)
	case "bin_edges":
		var edges []float64
		for _, part := range strings.Split(val, ",") {
			f, perr := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if perr != nil {
				return fmt.Errorf("invalid bin_edges: %v", val)
			}
			edges = append(edges, f)
		}
		c.BinEdges = edges
	case "bin_labels":
		var labels []string
		for _, part := range strings.Split(val, ",") {
			labels = append(labels, strings.TrimSpace(part))
		}
		c.BinLabels = labels
	case "plots_dir":
		c.PlotsDir = val
	case "hist_bins":
		c.HistBins, err = atoi()
	case "sample_rows":
		c.SampleRow, err = atoi()
	case "runs_dir":
		c.RunsDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
