package engine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"threephase/internal/services"
	"threephase/internal/services/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingExecutor struct {
	calls []engine.Invocation
	err   error
}

func (r *recordingExecutor) Run(_ context.Context, inv engine.Invocation, onLine func(string)) error {
	r.calls = append(r.calls, inv)
	if onLine != nil {
		onLine("processing")
	}
	return r.err
}

func TestRunToolResolvesBinDir(t *testing.T) {
	exec := &recordingExecutor{}
	runner := engine.NewRunner(engine.WithExecutor(exec), engine.WithBinDir("/opt/radiance/bin"))

	var out bytes.Buffer
	if err := runner.RunTool(context.Background(), "/work", "gendaymtx", []string{"-m", "1", "sky.wea"}, &out); err != nil {
		t.Fatalf("RunTool: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(exec.calls))
	}
	call := exec.calls[0]
	if call.Binary != "/opt/radiance/bin/gendaymtx" {
		t.Fatalf("unexpected binary %q", call.Binary)
	}
	if call.Dir != "/work" {
		t.Fatalf("unexpected dir %q", call.Dir)
	}
	if call.Stdout != &out {
		t.Fatal("expected stdout writer to be forwarded")
	}
	if got := call.String(); got != "/opt/radiance/bin/gendaymtx -m 1 sky.wea" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestRunToolRequiresBinary(t *testing.T) {
	runner := engine.NewRunner(engine.WithExecutor(&recordingExecutor{}))
	err := runner.RunTool(context.Background(), "", "  ", nil, nil)
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
}

func TestRunScriptUsesScriptDirectory(t *testing.T) {
	exec := &recordingExecutor{}
	runner := engine.NewRunner(engine.WithExecutor(exec))
	if err := runner.RunScript(context.Background(), "", "/tmp/office/threephase/office.sh"); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	call := exec.calls[0]
	if call.Binary != "sh" {
		t.Fatalf("expected default shell, got %q", call.Binary)
	}
	if call.Dir != "/tmp/office/threephase" {
		t.Fatalf("unexpected dir %q", call.Dir)
	}
}

func TestCommandExecutorReportsExitCode(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	if err := os.WriteFile(script, []byte("echo partial\necho oops 1>&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	runner := engine.NewRunner()
	err := runner.RunScript(context.Background(), "sh", script)
	var exitErr *engine.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.Code)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestCommandExecutorRedirectsStdout(t *testing.T) {
	var out bytes.Buffer
	runner := engine.NewRunner()
	if err := runner.RunTool(context.Background(), t.TempDir(), "sh", []string{"-c", "echo 1 2 3"}, &out); err != nil {
		t.Fatalf("RunTool: %v", err)
	}
	if strings.TrimSpace(out.String()) != "1 2 3" {
		t.Fatalf("unexpected stdout %q", out.String())
	}
}

func TestCommandExecutorStartFailure(t *testing.T) {
	runner := engine.NewRunner()
	err := runner.RunTool(context.Background(), t.TempDir(), "threephase-missing-binary", nil, nil)
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
	var exitErr *engine.ExitError
	if errors.As(err, &exitErr) {
		t.Fatal("start failure must not be reported as an exit status")
	}
}

func TestRunScriptForwardsStdin(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pause.sh")
	if err := os.WriteFile(script, []byte("read -r answer\n[ \"$answer\" = go ] || exit 4\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	runner := engine.NewRunner(engine.WithStdin(strings.NewReader("go\n")))
	if err := runner.RunScript(context.Background(), "sh", script); err != nil {
		t.Fatalf("RunScript with stdin: %v", err)
	}
}
