// Package report records what a tuning run did, for later inspection.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Options    Options         `json:"options"`
	Configs    []Configuration `json:"configurations"`
	Error      string          `json:"error,omitempty"`
}

type Options struct {
	OutputSpec         string `json:"output_td_spec"`
	StarterSpec        string `json:"starter_td_spec,omitempty"`
	NumCandidates      int64  `json:"num_candidates"`
	Devices            string `json:"devices"`
	TmpDir             string `json:"tmp_dir,omitempty"`
	CheckCompileStatus bool   `json:"check_compile_status"`
}

type Configuration struct {
	Index      int         `json:"index"`
	Args       []string    `json:"args"`
	Signature  string      `json:"signature,omitempty"`
	Workspace  string      `json:"workspace,omitempty"`
	Retained   bool        `json:"retained"`
	DumpStatus int         `json:"dump_exit_status"`
	Benchmarks []Benchmark `json:"benchmarks"`
}

type Benchmark struct {
	Path        string        `json:"path"`
	StarterSpec string        `json:"starter_td_spec,omitempty"`
	OutputSpec  string        `json:"output_td_spec"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// New starts a report with a fresh run id.
func New(opts Options) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Options:   opts,
		Configs:   []Configuration{},
	}
}

// Finish stamps the end time and the fatal error, if any.
func (r *Report) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Failed counts failed tuning invocations across the run.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Configs {
		for _, b := range c.Benchmarks {
			if b.Status == StatusFailed {
				n++
			}
		}
	}
	return n
}

// Tuned counts successful tuning invocations across the run.
func (r *Report) Tuned() int {
	n := 0
	for _, c := range r.Configs {
		for _, b := range c.Benchmarks {
			if b.Status == StatusSucceeded {
				n++
			}
		}
	}
	return n
}

// WriteFile writes the report as indented JSON, replacing path atomically.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("report: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}
