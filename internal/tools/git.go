package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	gitAddTimeout    = 10 * time.Second
	gitCommitTimeout = 15 * time.Second
)

// gitCommit stages everything under the root and commits it. A commit that
// git refuses (nothing to commit, no repository) is reported as text, not
// as an error.
func (e *Executor) gitCommit(ctx context.Context, args Args) (Result, error) {
	message, err := args.Require("message")
	if err != nil {
		return Result{}, err
	}

	if _, _, err := e.git(ctx, gitAddTimeout, "add", "-A"); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, err
		}
	}

	stdout, stderr, err := e.git(ctx, gitCommitTimeout, "commit", "-m", message)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, err
		}
		return Continue(fmt.Sprintf("Git commit output: %s\n%s", stdout, stderr)), nil
	}
	return Continue("OK: Committed: " + message), nil
}

func (e *Executor) git(ctx context.Context, timeout time.Duration, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), stderr.String(), fmt.Errorf("git %s: %w after %s", args[0], ErrCommandTimeout, formatSeconds(timeout))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), err
		}
		return stdout.String(), stderr.String(), fmt.Errorf("running git %s: %w", args[0], err)
	}
	return stdout.String(), stderr.String(), nil
}
