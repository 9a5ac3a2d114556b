package cmd

import (
	"fmt"

	"github.com/KaramelBytes/winequality-cli/internal/analysis"
	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutputPath string
	descSampleRows int
	descCorr       bool
	descGroups     bool
	descOutliers   bool
	descOutlierThr float64
)

var describeCmd = &cobra.Command{
	Use:   "describe <csv>",
	Short: "Summarize the wine table: statistics, null check, correlations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := analysis.DefaultOptions()
		if n := currentConfig().SampleRow; n > 0 {
			opt.SampleRows = n
		}
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = descSampleRows
		}
		opt.Correlations = descCorr
		opt.Groups = descGroups
		opt.Outliers = descOutliers
		if descOutlierThr > 0 {
			opt.OutlierThreshold = descOutlierThr
		}

		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		rep, err := analysis.Describe(ds, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()

		if descOutputPath != "" {
			if err := utils.WriteOutput(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), md)
		}
		if !rep.NullCheck() {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Missing values found; see [NOTES]")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include")
	describeCmd.Flags().BoolVar(&descCorr, "correlations", true, "include the Pearson correlation section")
	describeCmd.Flags().BoolVar(&descGroups, "groups", true, "include per-quality group summaries")
	describeCmd.Flags().BoolVar(&descOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
