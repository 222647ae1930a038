package turbospec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// runResult carries the captured output of one tool invocation.
type runResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// runTool executes an external binary as a blocking subprocess: working
// directory dir, optional stdin, stdout and stderr captured and appended to
// the log file at logPath. The tools have no cancellation protocol of
// their own, so ctx cancellation kills the process outright. A non-zero
// exit is reported through the result, not as an error; err is reserved
// for failures to execute at all.
func runTool(ctx context.Context, dir, logPath string, stdin io.Reader, name string, args ...string) (runResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := runResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if logErr := appendLog(logPath, name, res); logErr != nil && runErr == nil {
		runErr = logErr
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("executing %s: %w", name, runErr)
	}
	return res, nil
}

// appendLog persists a tool's captured output for post-hoc diagnosis. Logs
// are append-mode so the interpolator and both solver stages of one job
// share a single file.
func appendLog(logPath, tool string, res runResult) error {
	if logPath == "" {
		return nil
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening job log: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "==== %s ====\n", tool)
	if res.Stdout != "" {
		fmt.Fprintf(f, "--- stdout ---\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(f, "--- stderr ---\n%s\n", res.Stderr)
	}
	return nil
}
