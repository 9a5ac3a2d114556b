package cmd

import (
	"fmt"

	"github.com/KaramelBytes/winequality-cli/internal/analysis"
	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/plot"
	"github.com/spf13/cobra"
)

var (
	plotDir  string
	plotBins int
)

var plotCmd = &cobra.Command{
	Use:   "plot <csv>",
	Short: "Render histograms, a correlation heatmap and boxplots as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		dir := c.PlotsDir
		if cmd.Flags().Changed("dir") {
			dir = plotDir
		}
		opt := plot.Options{Bins: c.HistBins}
		if cmd.Flags().Changed("bins") {
			opt.Bins = plotBins
		}

		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		o := analysis.DefaultOptions()
		o.Groups = false
		o.Outliers = false
		o.Standardized = false
		rep, err := analysis.Describe(ds, o)
		if err != nil {
			return err
		}
		paths, err := plot.RenderAll(ds, rep, dir, opt)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVar(&plotDir, "dir", "plots", "output directory for PNG files")
	plotCmd.Flags().IntVar(&plotBins, "bins", 20, "histogram bins per column")
}
