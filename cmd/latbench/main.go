// Package main provides the CLI entry point for latbench, a tool for
// running latency benchmarks and plotting the collected samples.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/weiihann/latbench/bench"
	"github.com/weiihann/latbench/benchconfig"
	"github.com/weiihann/latbench/chart"
	"github.com/weiihann/latbench/report"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "latbench:", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "latbench",
		Short: "Run latency benchmarks and plot the results",
		Long: `Latbench drives a latency benchmark binary across the named
configurations of a benchconfig file, collects the per-run latency logs,
and renders them as a single chart.

Configurations are tables named "bench_<title>". The "testdir" key is the
benchmark test directory, "numa_node" optionally pins the run to a NUMA
node via numactl, and every other key is passed to the binary verbatim as
a key=value argument.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newListCmd())

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		bin        string
		source     string
		configs    []string
		yscale     string
		output     string
		verbose    bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run benchmark configurations and render the latency chart",
		Long: `Run every configuration of the source file (or only the ones
named via --config) through the benchmark binary, strictly in sequence,
and render the collected latency logs as a chart. The first failing run
aborts the whole batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmarks(cmd.Context(), logger, runOptions{
				bin:        bin,
				source:     source,
				configs:    configs,
				yscale:     yscale,
				output:     output,
				verbose:    verbose,
				outputJSON: outputJSON,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&bin, "bin", "b", "",
		"Path to the benchmark binary")
	flags.StringVarP(&source, "source", "s", "benchconfig.toml",
		"Configuration source file (TOML or YAML)")
	flags.StringSliceVarP(&configs, "config", "c", nil,
		"Run only the named configurations (title without the bench_ prefix)")
	flags.StringVarP(&yscale, "yscale", "y", "linear",
		"Y-axis scale: linear or log")
	flags.StringVarP(&output, "output", "o", "latency.png",
		"Rendered chart path")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Print benchmark commands and their output")
	flags.BoolVar(&outputJSON, "json", false,
		"Output the run summary as JSON instead of a table")

	_ = cmd.MarkFlagRequired("bin")

	return cmd
}

type runOptions struct {
	bin        string
	source     string
	configs    []string
	yscale     string
	output     string
	verbose    bool
	outputJSON bool
}

func runBenchmarks(
	ctx context.Context,
	logger *slog.Logger,
	opts runOptions,
) error {
	if err := chart.CheckScale(opts.yscale); err != nil {
		return err
	}

	cfgs, err := benchconfig.Collect(opts.source)
	if err != nil {
		return err
	}

	if len(opts.configs) > 0 {
		cfgs, err = benchconfig.Filter(cfgs, opts.configs)
		if err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "starting benchmarks",
		slog.String("bin", opts.bin),
		slog.String("source", opts.source),
		slog.Any("configurations", benchconfig.Titles(cfgs)),
	)

	ch := chart.New()
	runner := bench.NewRunner(logger, opts.verbose, os.Stdout)

	results, err := runner.RunAll(ctx, opts.bin, cfgs, ch)
	if err != nil {
		return err
	}

	if err := ch.Draw(opts.yscale, opts.output); err != nil {
		return err
	}

	logger.InfoContext(ctx, "chart rendered",
		slog.String("path", opts.output),
		slog.Int("series", ch.Len()),
	)

	entries, err := report.Build(results)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	if opts.outputJSON {
		return report.GenerateJSON(os.Stdout, entries)
	}

	return report.Generate(os.Stdout, entries)
}

func newListCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the benchmark configurations in the source file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listConfigs(cmd.OutOrStdout(), source)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "benchconfig.toml",
		"Configuration source file (TOML or YAML)")

	return cmd
}

func listConfigs(w io.Writer, source string) error {
	cfgs, err := benchconfig.Collect(source)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Title", "Test Dir", "NUMA", "Samples", "Args"})

	for _, c := range cfgs {
		numa := "-"
		if c.HasNUMANode {
			numa = strconv.Itoa(c.NUMANode)
		}

		args := make([]string, 0, len(c.Params))
		for _, p := range c.Params {
			args = append(args, p.Key+"="+p.Value)
		}

		t.AppendRow(table.Row{
			c.Title,
			c.TestDir,
			numa,
			c.Samples(),
			strings.Join(args, " "),
		})
	}

	t.Render()

	return nil
}
