// Package runs persists summaries of pipeline runs as JSON records.
// Only settings and scores are stored, never fitted models.
package runs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/winequality-cli/internal/metrics"
	"github.com/KaramelBytes/winequality-cli/internal/pipeline"
	"github.com/KaramelBytes/winequality-cli/internal/utils"
	"github.com/google/uuid"
)

const recordExt = ".json"

// Record is one saved run.
type Record struct {
	ID          string            `json:"id"`
	Dataset     string            `json:"dataset"`
	Rows        int               `json:"rows"`
	CreatedAt   time.Time         `json:"created_at"`
	Settings    pipeline.Settings `json:"settings"`
	ClassCounts map[string]int    `json:"class_counts"`
	Models      []ModelSummary    `json:"models"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// ModelSummary keeps the test-set scores of one classifier.
type ModelSummary struct {
	Name      string                        `json:"name"`
	Report    *metrics.ClassificationReport `json:"report"`
	Confusion [][]float64                   `json:"confusion"`
	NIter     int                           `json:"n_iter,omitempty"`
}

// NewRecord builds a record from a finished run.
func NewRecord(res *pipeline.Result) *Record {
	r := &Record{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Settings:    res.Settings,
		ClassCounts: res.ClassCounts,
		Warnings:    res.Warnings,
	}
	if res.Raw != nil {
		r.Dataset = res.Raw.Name
		r.Rows = res.Raw.Rows()
	}
	for _, m := range res.Models {
		ms := ModelSummary{Name: m.Name, Report: m.Report, NIter: m.NIter}
		if m.Confusion != nil {
			n, _ := m.Confusion.Dims()
			for i := 0; i < n; i++ {
				ms.Confusion = append(ms.Confusion, append([]float64(nil), m.Confusion.RawRowView(i)...))
			}
		}
		r.Models = append(r.Models, ms)
	}
	return r
}

// Save writes the record to dir/<id>.json using atomic write.
func (r *Record) Save(dir string) (string, error) {
	if r.ID == "" {
		return "", errors.New("record id not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, r.ID+recordExt)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a record by id. A unique id prefix is accepted.
func Load(dir, id string) (*Record, error) {
	id = strings.TrimSuffix(strings.TrimSpace(id), recordExt)
	if id == "" {
		return nil, errors.New("run id is required")
	}
	path := filepath.Join(dir, id+recordExt)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		resolved, rerr := resolvePrefix(dir, id)
		if rerr != nil {
			return nil, rerr
		}
		path = resolved
	}
	return read(path)
}

// List returns every record in dir, newest first. A missing dir is empty.
func List(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != recordExt {
			continue
		}
		r, err := read(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func read(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}

func resolvePrefix(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("run %s not found: %w", prefix, err)
	}
	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && filepath.Ext(e.Name()) == recordExt {
			matches = append(matches, e.Name())
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("run %s not found in %s", prefix, dir)
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		return "", fmt.Errorf("run id %s is ambiguous (%d matches)", prefix, len(matches))
	}
}
