package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ---------- read_file ----------

func (e *Executor) readFile(_ context.Context, args Args) (Result, error) {
	path, err := args.Require("path")
	if err != nil {
		return Result{}, err
	}
	abs, err := e.resolve(path)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("file %w: %s", ErrNotFound, path)
		}
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory, not a file", ErrWrongEntryType, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	lines := splitLines(strings.ToValidUTF8(string(data), "\uFFFD"))

	start := 1
	if n, ok := args.Int("start_line"); ok && n > 1 {
		start = n
	}
	end := len(lines)
	if n, ok := args.Int("end_line"); ok && n > 0 && n < end {
		end = n
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s (%d lines total)\n", path, len(lines))
	for i := start; i <= end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d | %s", i, lines[i-1])
	}
	return Continue(b.String()), nil
}

// splitLines splits text into lines without their terminators. A trailing
// newline does not start an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// countLines counts newline characters, plus one for an unterminated last
// line.
func countLines(content string) int {
	n := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// ---------- write_file ----------

func (e *Executor) writeFile(_ context.Context, args Args) (Result, error) {
	path, err := args.Require("path")
	if err != nil {
		return Result{}, err
	}
	content, err := args.Require("content")
	if err != nil {
		return Result{}, err
	}
	abs, err := e.resolve(path)
	if err != nil {
		return Result{}, err
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory, not a file", ErrWrongEntryType, path)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return Result{}, fmt.Errorf("creating parent directories for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", path, err)
	}

	return Continue(fmt.Sprintf("OK: Wrote %d lines to %s", countLines(content), path)), nil
}

// ---------- edit_file ----------

func (e *Executor) editFile(_ context.Context, args Args) (Result, error) {
	path, err := args.Require("path")
	if err != nil {
		return Result{}, err
	}
	oldString, err := args.Require("old_string")
	if err != nil {
		return Result{}, err
	}
	if oldString == "" {
		return Result{}, fmt.Errorf("%w %q: must not be empty", ErrMissingArgument, "old_string")
	}
	newString, err := args.Require("new_string")
	if err != nil {
		return Result{}, err
	}
	abs, err := e.resolve(path)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("file %w: %s", ErrNotFound, path)
		}
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory, not a file", ErrWrongEntryType, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	switch count := strings.Count(text, oldString); {
	case count == 0:
		return Result{}, fmt.Errorf("%w in %s", ErrEditTargetMissing, path)
	case count > 1:
		return Result{}, fmt.Errorf("%w: found %d times in %s. Provide more context", ErrAmbiguousEdit, count, path)
	}

	updated := strings.Replace(text, oldString, newString, 1)
	if err := os.WriteFile(abs, []byte(updated), info.Mode().Perm()); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", path, err)
	}

	out := fmt.Sprintf("OK: Replaced 1 occurrence in %s", path)
	if diff := lineDiff(text, updated); diff != "" {
		out += "\n\n" + strings.TrimSuffix(diff, "\n")
	}
	return Continue(out), nil
}

// lineDiff renders the changed lines between two texts as "-N old" and
// "+N new" rows.
func lineDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				fmt.Fprintf(&out, "-%d %s\n", oldLine, l)
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				fmt.Fprintf(&out, "+%d %s\n", newLine, l)
				newLine++
			}
		}
	}
	return out.String()
}

// ---------- list_dir ----------

func (e *Executor) listDir(_ context.Context, args Args) (Result, error) {
	path, ok := args.String("path")
	if !ok || strings.TrimSpace(path) == "" {
		path = "."
	}
	abs, err := e.resolve(path)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("directory %w: %s", ErrNotFound, path)
		}
		return Result{}, err
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a file, not a directory", ErrWrongEntryType, path)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return Result{}, fmt.Errorf("reading directory %s: %w", path, err)
	}

	type item struct {
		name  string
		isDir bool
		size  int64
	}
	items := make([]item, 0, len(entries))
	for _, entry := range entries {
		it := item{name: entry.Name()}
		// Stat follows symlinks so a link to a directory is listed as one.
		if fi, err := os.Stat(filepath.Join(abs, entry.Name())); err == nil {
			it.isDir = fi.IsDir()
			it.size = fi.Size()
		} else {
			it.isDir = entry.IsDir()
		}
		// Hidden by name: .git is a file in worktrees and submodules.
		if isIgnoredDir(it.name) {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].isDir != items[j].isDir {
			return items[i].isDir
		}
		return strings.ToLower(items[i].name) < strings.ToLower(items[j].name)
	})

	if len(items) == 0 {
		return Continue(fmt.Sprintf("Directory: %s (empty)", path)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s", path)
	for _, it := range items {
		rel := e.rel(filepath.Join(abs, it.name))
		if it.isDir {
			fmt.Fprintf(&b, "\n  %s/", rel)
		} else {
			fmt.Fprintf(&b, "\n  %s  (%d bytes)", rel, it.size)
		}
	}
	return Continue(b.String()), nil
}
