package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Output limits for run_command. Output longer than maxCommandOutput keeps
// the first commandHead and last commandTail characters.
const (
	maxCommandOutput = 8000
	commandHead      = 4000
	commandTail      = 2000
	// maxCommandTimeout caps the per-call timeout a model may request.
	maxCommandTimeout = 24 * time.Hour
	truncationMarker = "\n\n... (truncated) ...\n\n"
)

func (e *Executor) runCommand(ctx context.Context, args Args) (Result, error) {
	command, err := args.Require("command")
	if err != nil {
		return Result{}, err
	}
	timeout := e.commandTimeout
	if secs, ok := args.Int("timeout"); ok && secs > 0 {
		timeout = maxCommandTimeout
		if secs < int(maxCommandTimeout/time.Second) {
			timeout = time.Duration(secs) * time.Second
		}
	}

	e.logger.Debug("running command",
		zap.String("command", command),
		zap.Duration("timeout", timeout),
	)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := buildCommand(command, e.root)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		killProcessGroup(cmd)
		<-done
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("%w after %s", ErrCommandTimeout, formatSeconds(timeout))
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, fmt.Errorf("running command: %w", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += stderr.String()
	}
	output = truncateHeadTail(output, maxCommandOutput, commandHead, commandTail)

	status := "[OK]"
	if exitCode != 0 {
		status = fmt.Sprintf("[FAILED (exit code %d)]", exitCode)
	}
	if output == "" {
		return Continue(status), nil
	}
	return Continue(status + "\n" + output), nil
}

// buildCommand wraps command in the platform shell, running in dir.
func buildCommand(command, dir string) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	cmd.Dir = dir
	// Do not hang on pipes held open by background children.
	cmd.WaitDelay = 2 * time.Second
	setupProcessGroup(cmd)
	return cmd
}

// truncateHeadTail keeps the first head and last tail characters of s when
// it is longer than limit characters.
func truncateHeadTail(s string, limit, head, tail int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:head]) + truncationMarker + string(r[len(r)-tail:])
}

// formatSeconds renders d as whole seconds, e.g. "60s".
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}
