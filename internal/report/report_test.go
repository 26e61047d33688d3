package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleReport() *Report {
	r := New(Options{OutputSpec: "tuning-spec.mlir", NumCandidates: 5000, Devices: "hip://0"})
	r.Configs = append(r.Configs,
		Configuration{
			Index: 1,
			Args:  []string{"convbfp16", "-n", "6"},
			Benchmarks: []Benchmark{
				{Path: "b0", OutputSpec: "tuning-spec.mlir", Status: StatusSucceeded, Duration: time.Second},
				{Path: "b1", StarterSpec: "tuning-spec.mlir", OutputSpec: "tuning-spec.mlir", Status: StatusFailed, Error: "exit status 1"},
			},
		},
		Configuration{
			Index:      2,
			Args:       []string{"conv"},
			Retained:   true,
			Benchmarks: []Benchmark{{Path: "b2", Status: StatusSucceeded}},
		},
	)
	return r
}

func TestNew(t *testing.T) {
	a, b := New(Options{}), New(Options{})
	if _, err := uuid.Parse(a.RunID); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", a.RunID, err)
	}
	if a.RunID == b.RunID {
		t.Fatal("expected distinct run ids")
	}
	if a.StartedAt.IsZero() {
		t.Fatal("expected start time")
	}
}

func TestCounts(t *testing.T) {
	r := sampleReport()
	if r.Tuned() != 2 || r.Failed() != 1 {
		t.Fatalf("unexpected counts: tuned=%d failed=%d", r.Tuned(), r.Failed())
	}
}

func TestFinish(t *testing.T) {
	r := New(Options{})
	r.Finish(errors.New("boo cache: no operation directory"))
	if r.FinishedAt.IsZero() || r.Error == "" {
		t.Fatalf("expected finish time and error, got %+v", r)
	}
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	r := sampleReport()
	r.Finish(nil)

	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{`"run_id"`, `"num_candidates": 5000`, `"status": "failed"`, `"retained": true`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %s in report:\n%s", want, data)
		}
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.RunID != r.RunID || len(got.Configs) != 2 || got.Configs[0].Benchmarks[1].Error != "exit status 1" {
		t.Fatalf("report did not survive a write: %+v", got)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(ents))
	}
}
