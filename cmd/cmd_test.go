package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/winequality-cli/internal/runs"
	"github.com/KaramelBytes/winequality-cli/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag in the tree so values do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// mustRunCmd is a helper to execute the root command with args and capture stdout.
func mustRunCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCLI_Describe(t *testing.T) {
	home := isolateHome(t)
	csv := testutil.WriteCSV(t, "winequality-red.csv", testutil.WineCSV(40, 2))

	out := mustRunCmd(t, "describe", csv)
	for _, want := range []string{"[DATASET SUMMARY]", "Rows: 40", "[CORRELATIONS]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("describe output missing %q:\n%s", want, out)
		}
	}

	dst := filepath.Join(home, "out", "summary.md")
	out = mustRunCmd(t, "describe", csv, "-o", dst, "--correlations=false")
	if !strings.Contains(out, "✓ Wrote summary") {
		t.Fatalf("unexpected output: %s", out)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if strings.Contains(string(b), "[CORRELATIONS]") {
		t.Fatalf("correlations section should be disabled")
	}
}

func TestCLI_TrainSaveAndShow(t *testing.T) {
	isolateHome(t)
	csv := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(120, 4))

	out := mustRunCmd(t, "train", csv, "--trees", "10", "--save")
	for _, want := range []string{"== RandomForestClassifier ==", "== SGDClassifier ==", "✓ Saved run"} {
		if !strings.Contains(out, want) {
			t.Fatalf("train output missing %q:\n%s", want, out)
		}
	}

	list, err := runs.List(currentConfig().RunsDir)
	if err != nil || len(list) != 1 {
		t.Fatalf("runs = %v, err = %v", list, err)
	}
	id := list[0].ID
	if list[0].Settings.Trees != 10 {
		t.Fatalf("saved trees = %d", list[0].Settings.Trees)
	}

	out = mustRunCmd(t, "runs", "list")
	if !strings.Contains(out, id) {
		t.Fatalf("runs list missing %s:\n%s", id, out)
	}
	out = mustRunCmd(t, "runs", "show", id[:8])
	if !strings.Contains(out, "Dataset: wine.csv (120 rows)") || !strings.Contains(out, "precision") {
		t.Fatalf("runs show output:\n%s", out)
	}
}

func TestCLI_TrainJSON(t *testing.T) {
	isolateHome(t)
	csv := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(80, 8))
	out := mustRunCmd(t, "train", csv, "--trees", "5", "--json", "--scale", "shared")
	var rec runs.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if rec.Settings.ScaleMode != "shared" || len(rec.Models) != 2 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestCLI_TrainRejectsBadFlags(t *testing.T) {
	isolateHome(t)
	csv := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(30, 1))
	if _, err := execCmd("train", csv, "--scale", "global"); err == nil {
		t.Fatalf("expected error for unknown scale mode")
	}
	if _, err := execCmd("train", csv, "--test-size", "1.5"); err == nil {
		t.Fatalf("expected error for test size")
	}
	if _, err := execCmd("train", filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCLI_RunWritesPlots(t *testing.T) {
	home := isolateHome(t)
	csv := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(60, 5))
	dir := filepath.Join(home, "figs")
	out := mustRunCmd(t, "run", csv, "--trees", "5", "--dir", dir, "-q")
	if strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("quiet run printed the summary")
	}
	for _, name := range []string{"histograms.png", "correlation_heatmap.png", "boxplots.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)
	mustRunCmd(t, "config", "set", "trees", "50")
	mustRunCmd(t, "config", "set", "scale_mode", "shared")
	if _, err := os.Stat(filepath.Join(home, ".winequality", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	out := mustRunCmd(t, "config", "show")
	if !strings.Contains(out, "trees: 50") || !strings.Contains(out, "scale_mode: shared") {
		t.Fatalf("config show:\n%s", out)
	}
	if _, err := execCmd("config", "set", "scale_mode", "global"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := execCmd("config", "set", "colour", "red"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
