package runs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/winequality-cli/internal/pipeline"
	"github.com/KaramelBytes/winequality-cli/internal/runs"
	"github.com/KaramelBytes/winequality-cli/internal/testutil"
)

func TestSaveLoadList(t *testing.T) {
	s := pipeline.DefaultSettings()
	s.Trees = 5
	s.PlotsDir = ""
	res, err := pipeline.Run(context.Background(), s, testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(60, 3)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "runs")

	first := runs.NewRecord(res)
	first.CreatedAt = time.Now().Add(-time.Hour)
	path, err := first.Save(dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("record file: %v", err)
	}
	second := runs.NewRecord(res)
	if _, err := second.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := runs.Load(dir, first.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Dataset != "wine.csv" || got.Rows != 60 || got.Settings.Trees != 5 {
		t.Fatalf("record = %+v", got)
	}
	if len(got.Models) != 2 || got.Models[0].Report == nil || len(got.Models[0].Confusion) != 2 {
		t.Fatalf("models = %+v", got.Models)
	}
	if got.Models[0].Report.Accuracy != res.Models[0].Report.Accuracy {
		t.Fatalf("accuracy not round-tripped")
	}

	list, err := runs.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("list order = %v", []string{list[0].ID, list[1].ID})
	}

	// prefix lookup
	if _, err := runs.Load(dir, first.ID[:8]); err != nil && !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("Load prefix: %v", err)
	}
	if _, err := runs.Load(dir, "nope"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestListMissingDir(t *testing.T) {
	list, err := runs.List(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v, err = %v", list, err)
	}
}
