package cmd

import (
	"fmt"
	"io"

	cfgpkg "github.com/KaramelBytes/winequality-cli/internal/config"
	"github.com/KaramelBytes/winequality-cli/internal/pipeline"
	"github.com/KaramelBytes/winequality-cli/internal/runs"
	"github.com/KaramelBytes/winequality-cli/internal/utils"
	"github.com/spf13/cobra"
)

// trainFlags are the modeling overrides shared by train and run.
type trainFlags struct {
	seed       int64
	testSize   float64
	trees      int
	maxDepth   int
	workers    int
	scaleMode  string
	outOfRange string
	save       bool
	asJSON     bool
}

func (f *trainFlags) register(c *cobra.Command) {
	d := cfgpkg.Default()
	c.Flags().Int64Var(&f.seed, "seed", d.Seed, "random seed for the split and both classifiers")
	c.Flags().Float64Var(&f.testSize, "test-size", d.TestSize, "fraction of rows held out for testing")
	c.Flags().IntVar(&f.trees, "trees", d.Trees, "number of trees in the random forest")
	c.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum tree depth (0 = unlimited)")
	c.Flags().IntVar(&f.workers, "workers", 0, "parallel tree builders (0 = GOMAXPROCS)")
	c.Flags().StringVar(&f.scaleMode, "scale", d.ScaleMode, "test set scaling: independent|shared")
	c.Flags().StringVar(&f.outOfRange, "out-of-range", d.OutOfRange, "quality outside the bins: fail|drop")
	c.Flags().BoolVar(&f.save, "save", false, "save a run record to the runs directory")
	c.Flags().BoolVar(&f.asJSON, "json", false, "print the run record as JSON")
}

// apply overrides s with every flag the user set explicitly.
func (f *trainFlags) apply(c *cobra.Command, s *pipeline.Settings) error {
	fl := c.Flags()
	if fl.Changed("seed") {
		s.Seed = f.seed
	}
	if fl.Changed("test-size") {
		s.TestSize = f.testSize
	}
	if fl.Changed("trees") {
		s.Trees = f.trees
	}
	if fl.Changed("max-depth") {
		s.MaxDepth = f.maxDepth
	}
	if fl.Changed("workers") {
		s.Workers = f.workers
	}
	if fl.Changed("scale") {
		s.ScaleMode = f.scaleMode
	}
	if fl.Changed("out-of-range") {
		s.OutOfRange = f.outOfRange
	}
	check := cfgpkg.Global{
		TestSize:   s.TestSize,
		Trees:      s.Trees,
		ScaleMode:  s.ScaleMode,
		OutOfRange: s.OutOfRange,
		BinEdges:   s.BinEdges,
		BinLabels:  s.BinLabels,
	}
	return check.Validate()
}

// report prints the run as text or JSON and saves it when asked.
func (f *trainFlags) report(w io.Writer, res *pipeline.Result) error {
	rec := runs.NewRecord(res)
	if f.asJSON {
		b, err := utils.PrettyJSON(rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	} else {
		fmt.Fprint(w, res.Text())
	}
	if f.save {
		path, err := rec.Save(currentConfig().RunsDir)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Fprintf(w, "✓ Saved run %s to %s\n", rec.ID, path)
	}
	return nil
}

var trainOpts trainFlags

var trainCmd = &cobra.Command{
	Use:   "train <csv>",
	Short: "Bin quality, split, standardize and compare both classifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := baseSettings()
		s.PlotsDir = ""
		if err := trainOpts.apply(cmd, &s); err != nil {
			return err
		}
		res, err := pipeline.Run(cmd.Context(), s, args[0])
		if err != nil {
			return err
		}
		return trainOpts.report(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainOpts.register(trainCmd)
}
