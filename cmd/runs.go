package cmd

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/winequality-cli/internal/runs"
	"github.com/KaramelBytes/winequality-cli/internal/utils"
	"github.com/spf13/cobra"
)

var runsShowJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or inspect saved run records",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := runs.List(currentConfig().RunsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range list {
			fmt.Fprintf(out, "- %s  %s  %s (n=%d)", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Dataset, r.Rows)
			for _, m := range r.Models {
				if m.Report != nil {
					fmt.Fprintf(out, "  %s=%.3f", m.Name, m.Report.Accuracy)
				}
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved run (id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := runs.Load(currentConfig().RunsDir, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsShowJSON {
			b, err := utils.PrettyJSON(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "Run: %s\n", r.ID)
		fmt.Fprintf(out, "Dataset: %s (%d rows)\n", r.Dataset, r.Rows)
		fmt.Fprintf(out, "Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Seed: %d, test size: %g, trees: %d, scale: %s\n",
			r.Settings.Seed, r.Settings.TestSize, r.Settings.Trees, r.Settings.ScaleMode)
		names := make([]string, 0, len(r.ClassCounts))
		for k := range r.ClassCounts {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(out, "  %s: %d\n", k, r.ClassCounts[k])
		}
		for _, m := range r.Models {
			fmt.Fprintf(out, "\n== %s ==\n", m.Name)
			if m.Report != nil {
				fmt.Fprint(out, m.Report.String())
			}
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "⚠ %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "print the raw JSON record")
}
