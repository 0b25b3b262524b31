// Package results loads experiment result files: per-task accuracy records and
// per-method aggregated statistics.
//
// File layout:
//
//	{
//	  "per_task_results": [{"task": "dyck_languages", "ZSL_accuracy": 12.0, ...}, ...],
//	  "aggregated_statistics": {"ZSL_accuracy": {"average": 40.9, ...}, ...}
//	}
//
// Score fields are looked up by the method identifier exactly as written in the
// file. Lookups of absent keys return a *MissingFieldError.
package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMissingField is matched by every *MissingFieldError.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a key that was expected in a record but absent.
type MissingFieldError struct {
	Record string // task name, "aggregated_statistics", or the file itself
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Record, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// TaskResult is one benchmark task with a score per method key.
type TaskResult struct {
	Task   string
	Scores map[string]float64
}

// UnmarshalJSON keeps the "task" name and every numeric field; other fields are ignored.
func (t *TaskResult) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	name, ok := raw["task"]
	if !ok {
		return &MissingFieldError{Record: "per_task_results", Field: "task"}
	}
	if err := json.Unmarshal(name, &t.Task); err != nil {
		return fmt.Errorf("task name: %w", err)
	}
	t.Scores = numericFields(raw, "task")
	return nil
}

// Score returns the method's accuracy for this task.
func (t TaskResult) Score(key string) (float64, error) {
	v, ok := t.Scores[key]
	if !ok {
		return 0, &MissingFieldError{Record: t.Task, Field: key}
	}
	return v, nil
}

// MethodStats is the aggregated record for one method across all tasks.
type MethodStats struct {
	Average float64
	// Fields holds every numeric field of the record, average included.
	Fields map[string]float64
}

// UnmarshalJSON requires an "average" field.
func (m *MethodStats) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Fields = numericFields(raw)
	avg, ok := m.Fields["average"]
	if !ok {
		return &MissingFieldError{Record: "aggregated_statistics", Field: "average"}
	}
	m.Average = avg
	return nil
}

// File is a parsed results document.
type File struct {
	PerTask    []TaskResult           `json:"per_task_results"`
	Aggregated map[string]MethodStats `json:"aggregated_statistics"`
}

// Load reads and parses a results file. Paths ending in ".gz" are decompressed.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip results %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", path, err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse decodes a results document held in memory.
func Parse(data []byte) (*File, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &top); err != nil {
		return nil, fmt.Errorf("parse results JSON: %w", err)
	}
	for _, k := range []string{"per_task_results", "aggregated_statistics"} {
		if _, ok := top[k]; !ok {
			return nil, &MissingFieldError{Record: "results", Field: k}
		}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse results JSON: %w", err)
	}
	return &f, nil
}

// Average returns the aggregated average for a method key.
func (f *File) Average(key string) (float64, error) {
	st, ok := f.Aggregated[key]
	if !ok {
		return 0, &MissingFieldError{Record: "aggregated_statistics", Field: key}
	}
	return st.Average, nil
}

// Task returns the record for a task name.
func (f *File) Task(name string) (TaskResult, error) {
	for _, t := range f.PerTask {
		if t.Task == name {
			return t, nil
		}
	}
	return TaskResult{}, &MissingFieldError{Record: "per_task_results", Field: name}
}

// Select returns the named tasks in the order given. Unknown names are an error.
func (f *File) Select(names []string) ([]TaskResult, error) {
	out := make([]TaskResult, 0, len(names))
	for _, n := range names {
		t, err := f.Task(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SortedByName returns a copy of the per-task records ordered by task name.
func (f *File) SortedByName() []TaskResult {
	out := append([]TaskResult(nil), f.PerTask...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Task < out[j].Task })
	return out
}

func numericFields(raw map[string]json.RawMessage, skip ...string) map[string]float64 {
	out := make(map[string]float64, len(raw))
outer:
	for k, v := range raw {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		var n float64
		if err := json.Unmarshal(v, &n); err == nil {
			out[k] = n
		}
	}
	return out
}
