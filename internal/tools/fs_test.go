package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestWriteThenRead(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	res, err := e.Call(ctx, WriteFile, Args{"path": "notes/a.txt", "content": "hello\nworld\n"})
	if err != nil {
		t.Fatalf("unexpected error on write: %v", err)
	}
	if res.Text != "OK: Wrote 2 lines to notes/a.txt" {
		t.Errorf("unexpected write result: %q", res.Text)
	}

	res, err = e.Call(ctx, ReadFile, Args{"path": "notes/a.txt"})
	if err != nil {
		t.Fatalf("unexpected error on read: %v", err)
	}
	want := "File: notes/a.txt (2 lines total)\n   1 | hello\n   2 | world"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
}

func TestWriteLineCount(t *testing.T) {
	e := newTestExecutor(t)

	tests := []struct {
		content string
		want    string
	}{
		{"", "OK: Wrote 0 lines to f.txt"},
		{"one", "OK: Wrote 1 lines to f.txt"},
		{"a\nb", "OK: Wrote 2 lines to f.txt"},
		{"a\nb\n", "OK: Wrote 2 lines to f.txt"},
		{"\n\n\n", "OK: Wrote 3 lines to f.txt"},
	}
	for _, tt := range tests {
		res, err := e.Call(context.Background(), WriteFile, Args{"path": "f.txt", "content": tt.content})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Text != tt.want {
			t.Errorf("content %q: expected %q, got %q", tt.content, tt.want, res.Text)
		}
		if got := readTestFile(t, e.Root(), "f.txt"); got != tt.content {
			t.Errorf("expected file content %q, got %q", tt.content, got)
		}
	}
}

func TestReadLineRange(t *testing.T) {
	e := newTestExecutor(t)
	writeTestFile(t, e.Root(), "five.txt", "l1\nl2\nl3\nl4\nl5\n")

	tests := []struct {
		name string
		args Args
		want string
	}{
		{"middle", Args{"path": "five.txt", "start_line": float64(2), "end_line": float64(3)}, "File: five.txt (5 lines total)\n   2 | l2\n   3 | l3"},
		{"from start", Args{"path": "five.txt", "end_line": float64(1)}, "File: five.txt (5 lines total)\n   1 | l1"},
		{"to end", Args{"path": "five.txt", "start_line": "4"}, "File: five.txt (5 lines total)\n   4 | l4\n   5 | l5"},
		{"past end", Args{"path": "five.txt", "start_line": float64(9)}, "File: five.txt (5 lines total)\n"},
		{"end clamped", Args{"path": "five.txt", "start_line": float64(5), "end_line": float64(50)}, "File: five.txt (5 lines total)\n   5 | l5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Call(context.Background(), ReadFile, tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Text)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	e := newTestExecutor(t)
	if err := os.Mkdir(filepath.Join(e.Root(), "dir"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Call(context.Background(), ReadFile, Args{"path": "missing.txt"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.Call(context.Background(), ReadFile, Args{"path": "dir"}); !errors.Is(err, ErrWrongEntryType) {
		t.Errorf("expected ErrWrongEntryType, got %v", err)
	}
	if _, err := e.Call(context.Background(), ReadFile, Args{}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestEditOccurrences(t *testing.T) {
	const original = "foo\nbar\nfoo\n"

	tests := []struct {
		name    string
		old     string
		wantErr error
		want    string
	}{
		{"missing", "qux", ErrEditTargetMissing, original},
		{"ambiguous", "foo", ErrAmbiguousEdit, original},
		{"unique", "bar", nil, "foo\nbaz\nfoo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t)
			writeTestFile(t, e.Root(), "f.txt", original)

			res, err := e.Call(context.Background(), EditFile, Args{"path": "f.txt", "old_string": tt.old, "new_string": "baz"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.HasPrefix(res.Text, "OK: Replaced 1 occurrence in f.txt") {
					t.Errorf("unexpected result: %q", res.Text)
				}
				if !strings.Contains(res.Text, "-2 bar") || !strings.Contains(res.Text, "+2 baz") {
					t.Errorf("expected line diff in result, got %q", res.Text)
				}
			}
			if got := readTestFile(t, e.Root(), "f.txt"); got != tt.want {
				t.Errorf("expected file %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEditErrorText(t *testing.T) {
	e := newTestExecutor(t)
	writeTestFile(t, e.Root(), "f.txt", "x x x")

	res := e.Execute(context.Background(), EditFile, Args{"path": "f.txt", "old_string": "x", "new_string": "y"})
	if !strings.HasPrefix(res.Text, "Error: ") || !strings.Contains(res.Text, "found 3 times in f.txt") {
		t.Errorf("unexpected result: %q", res.Text)
	}

	res = e.Execute(context.Background(), EditFile, Args{"path": "f.txt", "old_string": "z", "new_string": "y"})
	if res.Text != "Error: old_string not found in f.txt" {
		t.Errorf("unexpected result: %q", res.Text)
	}
}

func TestListDir(t *testing.T) {
	e := newTestExecutor(t)
	for _, dir := range []string{"src", "Beta", ".git", "node_modules", "__pycache__", "venv"} {
		if err := os.MkdirAll(filepath.Join(e.Root(), dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestFile(t, e.Root(), "b.txt", "abc")
	writeTestFile(t, e.Root(), "A.txt", "z")

	res, err := e.Call(context.Background(), ListDir, Args{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Directory: .\n  Beta/\n  src/\n  A.txt  (1 bytes)\n  b.txt  (3 bytes)"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
}

func TestListDirHidesGitFile(t *testing.T) {
	e := newTestExecutor(t)
	// Worktrees and submodules carry .git as a file.
	writeTestFile(t, e.Root(), ".git", "gitdir: /repo/.git/worktrees/x\n")
	writeTestFile(t, e.Root(), "a.txt", "a")

	res, err := e.Call(context.Background(), ListDir, Args{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Directory: .\n  a.txt  (1 bytes)"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
}

func TestListSubdirPaths(t *testing.T) {
	e := newTestExecutor(t)
	writeTestFile(t, e.Root(), "pkg/x.go", "package x\n")
	if err := os.MkdirAll(filepath.Join(e.Root(), "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	res, err := e.Call(context.Background(), ListDir, Args{"path": "pkg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Directory: pkg\n  pkg/x.go  (10 bytes)" {
		t.Errorf("unexpected listing: %q", res.Text)
	}

	res, err = e.Call(context.Background(), ListDir, Args{"path": "empty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Directory: empty (empty)" {
		t.Errorf("unexpected listing: %q", res.Text)
	}

	if _, err := e.Call(context.Background(), ListDir, Args{"path": "pkg/x.go"}); !errors.Is(err, ErrWrongEntryType) {
		t.Errorf("expected ErrWrongEntryType, got %v", err)
	}
	if _, err := e.Call(context.Background(), ListDir, Args{"path": "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemToolsRejectEscape(t *testing.T) {
	e := newTestExecutor(t)
	outside := filepath.Join(filepath.Dir(e.Root()), "escaped.txt")

	calls := []struct {
		tool string
		args Args
	}{
		{ReadFile, Args{"path": "../escaped.txt"}},
		{WriteFile, Args{"path": "../escaped.txt", "content": "x"}},
		{EditFile, Args{"path": "../escaped.txt", "old_string": "a", "new_string": "b"}},
		{ListDir, Args{"path": ".."}},
		{SearchCode, Args{"pattern": "x", "path": ".."}},
		{WriteFile, Args{"path": outside, "content": "x"}},
	}
	for _, c := range calls {
		_, err := e.Call(context.Background(), c.tool, c.args)
		if !errors.Is(err, ErrPathEscape) {
			t.Errorf("%s %v: expected ErrPathEscape, got %v", c.tool, c.args, err)
		}
	}
	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist, stat returned %v", outside, err)
	}
}
