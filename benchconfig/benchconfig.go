// Package benchconfig loads named benchmark-run configurations from a
// TOML or YAML source file. Each top-level table whose name starts with
// "bench_" describes one run: the "testdir" key is the benchmark test
// directory, "numa_node" optionally pins the run to a NUMA node, and
// every other key is forwarded verbatim to the benchmark binary as a
// key=value argument.
package benchconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix marks a source entry as a benchmark configuration. The run
// title is the entry name with the prefix stripped.
const Prefix = "bench_"

// DefaultLatencySamples is the latency_samples value injected when a
// configuration does not supply one.
const DefaultLatencySamples = 101

// Param is a single pass-through argument forwarded to the benchmark
// binary as key=value.
type Param struct {
	Key   string
	Value string
}

// RunConfig describes one benchmark run.
type RunConfig struct {
	Title       string
	TestDir     string
	NUMANode    int // valid only when HasNUMANode
	HasNUMANode bool

	// Params holds the pass-through arguments in source order,
	// including latency_samples when the source supplies it.
	Params []Param
}

// Samples reports the latency_samples value this run will use: the
// configured one when present, DefaultLatencySamples otherwise.
func (c RunConfig) Samples() int {
	for _, p := range c.Params {
		if p.Key == "latency_samples" {
			if n, err := strconv.Atoi(p.Value); err == nil {
				return n
			}
		}
	}

	return DefaultLatencySamples
}

// Titles returns the titles of the given configurations in order.
func Titles(cfgs []RunConfig) []string {
	titles := make([]string, len(cfgs))
	for i, c := range cfgs {
		titles[i] = c.Title
	}

	return titles
}

// Filter restricts cfgs to the configurations whose title appears in
// names, preserving source order. Any name without a matching
// configuration fails with a ConfigurationError listing every
// available title.
func Filter(cfgs []RunConfig, names []string) ([]RunConfig, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	selected := make([]RunConfig, 0, len(names))

	for _, c := range cfgs {
		if want[c.Title] {
			selected = append(selected, c)
			delete(want, c.Title)
		}
	}

	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for _, n := range names {
			if want[n] {
				unknown = append(unknown, n)
			}
		}

		return nil, &ConfigurationError{
			Msg:       fmt.Sprintf("unknown configuration %s", strings.Join(unknown, ", ")),
			Available: Titles(cfgs),
		}
	}

	return selected, nil
}

// SourceLoadError reports a configuration source that could not be
// read or decoded.
type SourceLoadError struct {
	Path string
	Err  error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("load configuration source %s: %v", e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }

// ConfigurationError reports a selection problem: no qualifying
// configurations in the source, a duplicate title, or a requested
// title with no match. Available, when set, lists the valid titles.
type ConfigurationError struct {
	Msg       string
	Available []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Available) == 0 {
		return e.Msg
	}

	return fmt.Sprintf("%s; configurations defined in the source:\n%s",
		e.Msg, strings.Join(e.Available, "\n"))
}

// MissingKeyError reports a configuration lacking one of the required
// keys (title, testdir).
type MissingKeyError struct {
	Config string
	Key    string
}

func (e *MissingKeyError) Error() string {
	if e.Config == "" {
		return fmt.Sprintf("missing required key %q in configuration", e.Key)
	}

	return fmt.Sprintf("configuration %s: missing required key %q", e.Config, e.Key)
}
