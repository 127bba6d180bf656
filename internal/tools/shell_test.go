package tools

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell tests assume a POSIX shell")
	}
}

func TestRunCommand(t *testing.T) {
	skipOnWindows(t)
	e := newTestExecutor(t)

	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"stdout", "echo hello", "[OK]\nhello\n"},
		{"no output", "true", "[OK]"},
		{"exit code", "exit 3", "[FAILED (exit code 3)]"},
		{"stderr after stdout", "echo out; echo err 1>&2", "[OK]\nout\n\nerr\n"},
		{"failure with output", "echo boom 1>&2; exit 1", "[FAILED (exit code 1)]\nboom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Call(context.Background(), RunCommand, Args{"command": tt.command})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Text)
			}
		})
	}
}

func TestRunCommandWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	e := newTestExecutor(t)
	writeTestFile(t, e.Root(), "marker.txt", "x")

	res := e.Execute(context.Background(), RunCommand, Args{"command": "ls"})
	if !strings.Contains(res.Text, "marker.txt") {
		t.Errorf("expected command to run in the root, got %q", res.Text)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	skipOnWindows(t)
	e := newTestExecutor(t)

	start := time.Now()
	_, err := e.Call(context.Background(), RunCommand, Args{"command": "sleep 5", "timeout": float64(1)})
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("expected ErrCommandTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("expected the command to be stopped near its timeout, took %v", elapsed)
	}

	res := e.Execute(context.Background(), RunCommand, Args{"command": "sleep 5", "timeout": float64(1)})
	if res.Text != "Error: command timed out after 1s" {
		t.Errorf("unexpected result: %q", res.Text)
	}
}

func TestRunCommandLargeTimeout(t *testing.T) {
	skipOnWindows(t)
	e := newTestExecutor(t)

	// Timeouts beyond the cap are clamped instead of overflowing.
	for _, secs := range []interface{}{float64(1e10), float64(9e18), "99999999999"} {
		res := e.Execute(context.Background(), RunCommand, Args{"command": "echo hi", "timeout": secs})
		if res.Text != "[OK]\nhi\n" {
			t.Errorf("timeout %v: expected the command to run, got %q", secs, res.Text)
		}
	}
}

func TestRunCommandDefaultTimeoutOption(t *testing.T) {
	skipOnWindows(t)
	e := newTestExecutor(t, WithCommandTimeout(500*time.Millisecond))

	_, err := e.Call(context.Background(), RunCommand, Args{"command": "sleep 5"})
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("expected ErrCommandTimeout, got %v", err)
	}
}

func TestTruncateHeadTail(t *testing.T) {
	short := strings.Repeat("x", maxCommandOutput)
	if got := truncateHeadTail(short, maxCommandOutput, commandHead, commandTail); got != short {
		t.Errorf("expected output at the limit to be kept intact")
	}

	long := strings.Repeat("a", 5000) + strings.Repeat("b", 5000)
	got := truncateHeadTail(long, maxCommandOutput, commandHead, commandTail)
	want := strings.Repeat("a", commandHead) + truncationMarker + strings.Repeat("b", commandTail)
	if got != want {
		t.Errorf("unexpected truncation: len %d, want len %d", len(got), len(want))
	}

	// Multi-byte characters count once.
	wide := strings.Repeat("é", maxCommandOutput)
	if got := truncateHeadTail(wide, maxCommandOutput, commandHead, commandTail); got != wide {
		t.Errorf("expected %d multi-byte characters to be kept intact", maxCommandOutput)
	}
}
