package cmd

import (
	"fmt"

	"github.com/KaramelBytes/winequality-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runOpts     trainFlags
	runPlotsDir string
	runNoPlots  bool
	runQuiet    bool
)

var runCmd = &cobra.Command{
	Use:   "run <csv>",
	Short: "Run the whole pipeline: describe, plot and train",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := baseSettings()
		if err := runOpts.apply(cmd, &s); err != nil {
			return err
		}
		if cmd.Flags().Changed("dir") {
			s.PlotsDir = runPlotsDir
		}
		if runNoPlots {
			s.PlotsDir = ""
		}
		res, err := pipeline.Run(cmd.Context(), s, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !runQuiet && !runOpts.asJSON {
			fmt.Fprintln(out, res.Summary.Markdown())
		}
		for _, p := range res.Plots {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", p)
		}
		return runOpts.report(out, res)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOpts.register(runCmd)
	runCmd.Flags().StringVar(&runPlotsDir, "dir", "plots", "directory for PNG plots (overrides config)")
	runCmd.Flags().BoolVar(&runNoPlots, "no-plots", false, "skip the plot stage")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "omit the descriptive summary")
}
