package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/weiihann/latbench/benchconfig"
)

// Result holds the outcome of one successful benchmark run.
type Result struct {
	Title   string
	Command string
	Output  string
	LogPath string
	Elapsed time.Duration
}

// ExecutionError reports a benchmark process that could not be started
// or exited non-zero. It embeds the full command line and the combined
// stdout/stderr the process produced.
type ExecutionError struct {
	Command string
	Output  string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("benchmark failed: %s\n%s", e.Command, e.Output)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PlotSink receives the log file produced by each successful run so it
// can later be included in the rendered chart.
type PlotSink interface {
	AddData(logPath, title string) error
}

// Runner executes benchmark commands one at a time. In verbose mode it
// echoes each command line before execution and the combined process
// output after it, to Out.
type Runner struct {
	Logger  *slog.Logger
	Verbose bool
	Out     io.Writer
}

// NewRunner creates a Runner that logs through logger and writes
// verbose output to out.
func NewRunner(logger *slog.Logger, verbose bool, out io.Writer) *Runner {
	return &Runner{Logger: logger, Verbose: verbose, Out: out}
}

// Run executes cmd as a child process, blocking until it exits, and
// captures its combined stdout and stderr as text. A spawn failure or
// non-zero exit fails with an ExecutionError.
func (r *Runner) Run(ctx context.Context, cmd *Command) (*Result, error) {
	if r.Verbose {
		fmt.Fprintln(r.Out, cmd.String())
	}

	r.Logger.InfoContext(ctx, "starting benchmark",
		slog.String("title", cmd.Title),
		slog.String("log_file", cmd.LogPath),
	)

	proc := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)

	var buf bytes.Buffer
	proc.Stdout = &buf
	proc.Stderr = &buf

	start := time.Now()
	err := proc.Run()
	elapsed := time.Since(start)

	output := buf.String()

	if err != nil {
		return nil, &ExecutionError{
			Command: cmd.String(),
			Output:  output,
			Err:     err,
		}
	}

	r.Logger.InfoContext(ctx, "benchmark finished",
		slog.String("title", cmd.Title),
		slog.Duration("wall_time", elapsed),
	)

	if r.Verbose {
		fmt.Fprintf(r.Out, "%s\n%s", cmd.String(), output)
	}

	return &Result{
		Title:   cmd.Title,
		Command: cmd.String(),
		Output:  output,
		LogPath: cmd.LogPath,
		Elapsed: elapsed,
	}, nil
}

// RunAll builds and executes the command for each configuration in
// order, registering each produced log with sink. The first failure
// aborts the batch: later configurations never start. It returns the
// results of the runs that completed.
func (r *Runner) RunAll(
	ctx context.Context,
	binPath string,
	cfgs []benchconfig.RunConfig,
	sink PlotSink,
) ([]Result, error) {
	results := make([]Result, 0, len(cfgs))

	for _, cfg := range cfgs {
		cmd, err := BuildCommand(binPath, cfg)
		if err != nil {
			return results, err
		}

		result, err := r.Run(ctx, cmd)
		if err != nil {
			return results, err
		}

		if err := sink.AddData(result.LogPath, result.Title); err != nil {
			return results, fmt.Errorf("register %s output: %w", result.Title, err)
		}

		results = append(results, *result)
	}

	return results, nil
}
