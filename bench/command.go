// Package bench builds and executes latency benchmark commands, one
// child process per configuration, strictly in sequence.
package bench

import (
	"strconv"
	"strings"

	"github.com/weiihann/latbench/benchconfig"
)

// Command is a fully assembled benchmark invocation. Argv is executed
// directly, so argument values survive intact even when they contain
// spaces; the joined form exists only for display and error messages.
type Command struct {
	Argv    []string
	Title   string
	LogPath string
}

func (c *Command) String() string {
	return strings.Join(c.Argv, " ")
}

// BuildCommand assembles the command line for one configuration:
//
//	[numactl -N <node>] <bin> <testdir> key1=val1 ... latency_file=<title>.log [latency_samples=101]
//
// The latency_file argument names the log the benchmark binary writes
// its samples to, and the latency_samples default is appended only
// when the configuration does not supply one. A configuration without
// a title or testdir fails with a MissingKeyError naming the key.
func BuildCommand(binPath string, cfg benchconfig.RunConfig) (*Command, error) {
	if cfg.Title == "" {
		return nil, &benchconfig.MissingKeyError{Key: "title"}
	}

	if cfg.TestDir == "" {
		return nil, &benchconfig.MissingKeyError{Config: cfg.Title, Key: "testdir"}
	}

	logPath := cfg.Title + ".log"

	argv := make([]string, 0, len(cfg.Params)+7)

	if cfg.HasNUMANode {
		argv = append(argv, "numactl", "-N", strconv.Itoa(cfg.NUMANode))
	}

	argv = append(argv, binPath, cfg.TestDir)

	hasSamples := false

	for _, p := range cfg.Params {
		if p.Key == "latency_samples" {
			hasSamples = true
		}

		argv = append(argv, p.Key+"="+p.Value)
	}

	argv = append(argv, "latency_file="+logPath)

	if !hasSamples {
		argv = append(argv,
			"latency_samples="+strconv.Itoa(benchconfig.DefaultLatencySamples))
	}

	return &Command{Argv: argv, Title: cfg.Title, LogPath: logPath}, nil
}
