package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultCommandTimeout = 60 * time.Second
	DefaultSearchTimeout  = 15 * time.Second
	// MaxSearchResults caps the number of lines search_code returns.
	MaxSearchResults = 50
)

// handler executes one tool against validated arguments.
type handler func(ctx context.Context, args Args) (Result, error)

// Executor runs tool calls inside one sandbox root. An Executor holds no
// locks; callers must not run two invocations against the same root at the
// same time.
type Executor struct {
	root   string
	logger *zap.Logger

	commandTimeout time.Duration
	searchTimeout  time.Duration
	// searchUtilities are tried in order before the built-in search.
	searchUtilities []string

	handlers map[string]handler
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for tool tracing.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCommandTimeout changes the default run_command timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.commandTimeout = d
		}
	}
}

// WithSearchUtilities sets the external search programs tried before the
// built-in search. Passing none forces the built-in search.
func WithSearchUtilities(names ...string) Option {
	return func(e *Executor) {
		e.searchUtilities = names
	}
}

// NewExecutor creates an Executor rooted at root. The root is made absolute
// and symlink-free; it must exist and be a directory.
func NewExecutor(root string, opts ...Option) (*Executor, error) {
	canonical, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		root:            canonical,
		logger:          zap.NewNop(),
		commandTimeout:  DefaultCommandTimeout,
		searchTimeout:   DefaultSearchTimeout,
		searchUtilities: []string{"rg", "grep"},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[string]handler{
		ReadFile:   e.readFile,
		WriteFile:  e.writeFile,
		EditFile:   e.editFile,
		ListDir:    e.listDir,
		SearchCode: e.searchCode,
		RunCommand: e.runCommand,
		GitCommit:  e.gitCommit,
		TaskDone:   e.taskDone,
	}
	if err := checkRegistry(e.handlers, catalog); err != nil {
		return nil, err
	}

	return e, nil
}

// checkRegistry verifies that the handler table and the catalog name the
// same set of tools.
func checkRegistry(handlers map[string]handler, defs []Definition) error {
	var problems []string
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		seen[d.Name] = true
		if _, ok := handlers[d.Name]; !ok {
			problems = append(problems, "no handler for "+d.Name)
		}
	}
	for name := range handlers {
		if !seen[name] {
			problems = append(problems, "no definition for "+name)
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrRegistryMismatch, strings.Join(problems, ", "))
	}
	return nil
}

// Root returns the canonical sandbox root.
func (e *Executor) Root() string {
	return e.root
}

// Call runs the named tool and returns its result or a typed error.
func (e *Executor) Call(ctx context.Context, name string, args Args) (Result, error) {
	h, ok := e.handlers[name]
	if !ok {
		return Result{}, fmt.Errorf("%w '%s'", ErrUnknownTool, name)
	}
	if args == nil {
		args = Args{}
	}
	return h(ctx, args)
}

// Execute runs the named tool and always returns a result. Failures are
// rendered as "Error: ..." text so the model can react to them.
func (e *Executor) Execute(ctx context.Context, name string, args Args) Result {
	start := time.Now()
	res, err := e.Call(ctx, name, args)
	if err != nil {
		level := e.logger.Debug
		if !isExpected(err) {
			level = e.logger.Warn
		}
		level("tool call failed",
			zap.String("tool", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return errorResult(err)
	}
	e.logger.Debug("tool call finished",
		zap.String("tool", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("resultLen", len(res.Text)),
	)
	return res
}

// isExpected reports whether err is one of the failures the model is
// expected to cause and recover from.
func isExpected(err error) bool {
	for _, target := range []error{
		ErrPathEscape, ErrNotFound, ErrWrongEntryType, ErrEditTargetMissing,
		ErrAmbiguousEdit, ErrCommandTimeout, ErrMissingArgument, ErrUnknownTool,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e *Executor) taskDone(_ context.Context, args Args) (Result, error) {
	summary, _ := args.String("summary")
	return Completed(summary), nil
}
