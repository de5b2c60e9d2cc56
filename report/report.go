// Package report formats benchmark run results into summary tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/weiihann/latbench/bench"
	"github.com/weiihann/latbench/chart"
)

// Entry summarizes the latency samples of one benchmark run.
type Entry struct {
	Title    string  `json:"title"`
	Samples  int     `json:"samples"`
	MinNs    float64 `json:"min_ns"`
	MedianNs float64 `json:"median_ns"`
	P99Ns    float64 `json:"p99_ns"`
	MaxNs    float64 `json:"max_ns"`
	WallMs   int64   `json:"wall_ms"`
	LogPath  string  `json:"log_path"`
}

// Build reads the latency log of each result and computes its summary
// statistics.
func Build(results []bench.Result) ([]Entry, error) {
	entries := make([]Entry, 0, len(results))

	for _, r := range results {
		samples, err := chart.ReadSamples(r.LogPath)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", r.Title, err)
		}

		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)

		entries = append(entries, Entry{
			Title:    r.Title,
			Samples:  len(samples),
			MinNs:    sorted[0],
			MedianNs: quantile(sorted, 0.5),
			P99Ns:    quantile(sorted, 0.99),
			MaxNs:    sorted[len(sorted)-1],
			WallMs:   r.Elapsed.Milliseconds(),
			LogPath:  r.LogPath,
		})
	}

	return entries, nil
}

// Generate writes a summary table for the given entries.
func Generate(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no results to report")
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"Title", "Samples", "Min", "Median", "P99", "Max", "Wall", "Log",
	})

	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Title,
			e.Samples,
			formatNs(e.MinNs),
			formatNs(e.MedianNs),
			formatNs(e.P99Ns),
			formatNs(e.MaxNs),
			formatMs(e.WallMs),
			e.LogPath,
		})
	}

	t.Render()

	return nil
}

// GenerateJSON writes entries as indented JSON to w.
func GenerateJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(entries)
}

// quantile returns the nearest-rank q-quantile of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}

	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}

	return sorted[rank]
}

func formatNs(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.2fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.2fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}
