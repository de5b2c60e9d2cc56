package bench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weiihann/latbench/benchconfig"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	r := NewRunner(testLogger(), false, io.Discard)

	cmd := &Command{
		Argv:  []string{"sh", "-c", "echo out; echo err 1>&2"},
		Title: "combined",
	}

	result, err := r.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Output, "out") {
		t.Errorf("output = %q, want stdout captured", result.Output)
	}
	if !strings.Contains(result.Output, "err") {
		t.Errorf("output = %q, want stderr captured", result.Output)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewRunner(testLogger(), false, io.Discard)

	cmd := &Command{
		Argv:  []string{"sh", "-c", "echo boom; exit 3"},
		Title: "failing",
	}

	_, err := r.Run(context.Background(), cmd)

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want ExecutionError", err)
	}
	if !strings.Contains(execErr.Output, "boom") {
		t.Errorf("output = %q, want captured output in error", execErr.Output)
	}
	if execErr.Command != cmd.String() {
		t.Errorf("command = %q, want %q", execErr.Command, cmd.String())
	}
}

func TestRunVerboseEchoesCommand(t *testing.T) {
	var out bytes.Buffer

	r := NewRunner(testLogger(), true, &out)

	cmd := &Command{
		Argv:  []string{"sh", "-c", "echo hello"},
		Title: "verbose",
	}

	if _, err := r.Run(context.Background(), cmd); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	echoed := out.String()
	if !strings.Contains(echoed, cmd.String()) {
		t.Errorf("verbose output = %q, want command echoed", echoed)
	}
	if !strings.Contains(echoed, "hello") {
		t.Errorf("verbose output = %q, want process output echoed", echoed)
	}
}

type fakeSink struct {
	titles []string
	err    error
}

func (s *fakeSink) AddData(_, title string) error {
	if s.err != nil {
		return s.err
	}

	s.titles = append(s.titles, title)

	return nil
}

// writeRunScript writes a shell script that exits non-zero when its
// first argument (the testdir) is "fail".
func writeRunScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fakebench.sh")
	script := "#!/bin/sh\nif [ \"$1\" = \"fail\" ]; then exit 1; fi\n"

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return path
}

func TestRunAllStopsOnFirstFailure(t *testing.T) {
	bin := writeRunScript(t)

	cfgs := []benchconfig.RunConfig{
		{Title: "a", TestDir: "ok"},
		{Title: "b", TestDir: "fail"},
		{Title: "c", TestDir: "ok"},
	}

	sink := &fakeSink{}
	r := NewRunner(testLogger(), false, io.Discard)

	results, err := r.RunAll(context.Background(), bin, cfgs, sink)

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want ExecutionError", err)
	}

	if len(results) != 1 || results[0].Title != "a" {
		t.Errorf("results = %v, want only run a to complete", results)
	}
	if len(sink.titles) != 1 || sink.titles[0] != "a" {
		t.Errorf("registered = %v, want only a", sink.titles)
	}
}

func TestRunAllRegistersEveryRun(t *testing.T) {
	bin := writeRunScript(t)

	cfgs := []benchconfig.RunConfig{
		{Title: "a", TestDir: "ok"},
		{Title: "b", TestDir: "ok"},
	}

	sink := &fakeSink{}
	r := NewRunner(testLogger(), false, io.Discard)

	results, err := r.RunAll(context.Background(), bin, cfgs, sink)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if len(sink.titles) != 2 || sink.titles[0] != "a" || sink.titles[1] != "b" {
		t.Errorf("registered = %v, want [a b]", sink.titles)
	}
}

func TestRunAllSinkErrorAborts(t *testing.T) {
	bin := writeRunScript(t)

	cfgs := []benchconfig.RunConfig{
		{Title: "a", TestDir: "ok"},
		{Title: "b", TestDir: "ok"},
	}

	sink := &fakeSink{err: errors.New("bad log")}
	r := NewRunner(testLogger(), false, io.Discard)

	_, err := r.RunAll(context.Background(), bin, cfgs, sink)
	if err == nil || !strings.Contains(err.Error(), "bad log") {
		t.Fatalf("err = %v, want sink error propagated", err)
	}
}
