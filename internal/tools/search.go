package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
)

// maxSearchFileSize skips large files in the built-in search.
const maxSearchFileSize = 4 << 20

// errSearchUnavailable means an external utility could not answer and the
// next strategy should be tried.
var errSearchUnavailable = errors.New("search utility unavailable")

type searchRequest struct {
	pattern string
	include string
	target  string // absolute path of the file or directory to search
}

func (e *Executor) searchCode(ctx context.Context, args Args) (Result, error) {
	pattern, err := args.Require("pattern")
	if err != nil {
		return Result{}, err
	}
	if pattern == "" {
		return Result{}, fmt.Errorf("%w %q: must not be empty", ErrMissingArgument, "pattern")
	}
	path, ok := args.String("path")
	if !ok || strings.TrimSpace(path) == "" {
		path = "."
	}
	include, _ := args.String("include")

	abs, err := e.resolve(path)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("path %w: %s", ErrNotFound, path)
		}
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()

	req := searchRequest{pattern: pattern, include: include, target: abs}

	matches, err := e.searchExternal(ctx, req)
	if errors.Is(err, errSearchUnavailable) {
		matches, err = e.searchBuiltin(ctx, req)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("search %w after %s", ErrCommandTimeout, e.searchTimeout)
		}
		return Result{}, err
	}

	if len(matches) == 0 {
		return Continue(fmt.Sprintf("No matches found for '%s'", pattern)), nil
	}
	return Continue(strings.Join(matches, "\n")), nil
}

// ---------- external utilities ----------

// searchExternal tries each configured utility in order. It returns
// errSearchUnavailable when none of them produced a usable answer.
func (e *Executor) searchExternal(ctx context.Context, req searchRequest) ([]string, error) {
	for _, name := range e.searchUtilities {
		bin, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		argv, ok := e.searchArgs(name, req)
		if !ok {
			continue
		}

		cmd := exec.CommandContext(ctx, bin, argv...)
		cmd.Dir = e.root
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err = cmd.Run()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
				// No matches.
				return nil, nil
			}
			// Exit code 2 usually means the pattern is not valid for this
			// engine; let the next strategy try.
			e.logger.Debug("search utility failed",
				zap.String("utility", name),
				zap.String("stderr", strings.TrimSpace(stderr.String())),
				zap.Error(err),
			)
			continue
		}
		return e.collectLines(&stdout), nil
	}
	return nil, errSearchUnavailable
}

// searchArgs builds the argument vector for a known utility. Paths are
// passed relative to the root so results come back root-relative.
func (e *Executor) searchArgs(name string, req searchRequest) ([]string, bool) {
	target := e.rel(req.target)
	switch name {
	case "rg":
		argv := []string{"--line-number", "--no-heading", "--with-filename", "--color", "never"}
		if req.include != "" {
			argv = append(argv, "--glob", req.include)
		}
		for dir := range ignoredDirs {
			argv = append(argv, "--glob", "!"+dir)
		}
		return append(argv, "-e", req.pattern, "--", target), true
	case "grep":
		// Perl syntax matches rg and the built-in search; a grep without
		// -P exits 2 and the built-in search takes over.
		argv := []string{"-rnHI", "-P", "--color=never"}
		if req.include != "" {
			argv = append(argv, "--include="+req.include)
		}
		for dir := range ignoredDirs {
			argv = append(argv, "--exclude-dir="+dir, "--exclude="+dir)
		}
		return append(argv, "-e", req.pattern, "--", target), true
	}
	return nil, false
}

// collectLines reads at most MaxSearchResults lines and strips a leading
// "./" from each.
func (e *Executor) collectLines(r io.Reader) []string {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() && len(out) < MaxSearchResults {
		line := strings.TrimPrefix(sc.Text(), "./")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// ---------- built-in search ----------

// compilePattern compiles pattern as a regular expression, falling back to
// a literal match when it does not compile.
func compilePattern(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return regexp.MustCompile(regexp.QuoteMeta(pattern))
	}
	return re
}

// searchBuiltin walks the target, skipping artifact directories, symlinks,
// binary files and anything matched by the root .gitignore.
func (e *Executor) searchBuiltin(ctx context.Context, req searchRequest) ([]string, error) {
	re := compilePattern(req.pattern)
	matcher := gitignore.NewMatcher(loadGitignore(e.root))

	var out []string
	err := filepath.WalkDir(req.target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel := e.rel(path)
		parts := strings.Split(rel, "/")

		if d.IsDir() {
			if path == req.target {
				return nil
			}
			if isIgnoredDir(d.Name()) || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() || isIgnoredDir(d.Name()) {
			return nil
		}
		if matcher.Match(parts, false) {
			return nil
		}
		if req.include != "" && !matchInclude(req.include, rel) {
			return nil
		}

		found, err := grepFile(path, rel, re, MaxSearchResults-len(out))
		if err != nil {
			return nil
		}
		out = append(out, found...)
		if len(out) >= MaxSearchResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchInclude matches the glob against the base name, or against the whole
// root-relative path when the glob contains a slash.
func matchInclude(glob, rel string) bool {
	subject := filepath.Base(filepath.FromSlash(rel))
	if strings.Contains(glob, "/") {
		subject = rel
	}
	ok, err := doublestar.Match(glob, subject)
	return err == nil && ok
}

// grepFile returns up to limit "rel:line:text" matches from one file.
func grepFile(path, rel string, re *regexp.Regexp, limit int) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSearchFileSize {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, nil
	}

	var out []string
	for i, line := range splitLines(string(data)) {
		if re.MatchString(line) {
			out = append(out, fmt.Sprintf("%s:%d:%s", rel, i+1, line))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// loadGitignore reads the patterns of the root .gitignore, if any.
func loadGitignore(root string) []gitignore.Pattern {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}
