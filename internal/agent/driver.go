// Package agent drives a language model through the tool catalog until a
// task is done, and runs persisted tasks on top of that loop.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/klubi/claw/internal/provider"
	"github.com/klubi/claw/internal/tools"
)

// DefaultMaxIterations bounds the number of provider calls per run.
const DefaultMaxIterations = 30

const (
	noResponseText = "(no response)"
	exhaustedText  = "Agent reached maximum iterations without completing the task."

	// maxCallPreview truncates the argument JSON shown in tool_call events.
	maxCallPreview = 200
	// maxCommitSubject truncates the summary used as auto-commit message.
	maxCommitSubject = 72
)

// Outcome is the terminal state of one run.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "failed"
)

// EventKind classifies progress events emitted during a run.
type EventKind string

const (
	EventAssistant  EventKind = "assistant"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventError      EventKind = "error"
)

// EventFunc receives progress events. It is called synchronously from the
// goroutine running the loop.
type EventFunc func(kind EventKind, content string)

// RunResult is the terminal value of one run.
type RunResult struct {
	Outcome Outcome
	// Text is the single user-visible result: the final assistant text, the
	// completion summary or an error description.
	Text string
	// Iterations is the number of provider calls made.
	Iterations int
}

// Options configures a Driver.
type Options struct {
	Model         string
	MaxIterations int // default 30
	MaxTokens     int
	Temperature   float64
	// AutoCommit commits the sandbox after a completed task.
	AutoCommit   bool
	SystemPrompt string // default SystemPrompt
}

// ToolRunner executes one tool call and never fails.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args tools.Args) tools.Result
}

// Driver runs the conversation loop: it asks the provider for the next
// turn, executes the requested tools and feeds their results back until the
// model finishes, signals completion or the iteration budget runs out.
type Driver struct {
	provider provider.Provider
	tools    ToolRunner
	catalog  []tools.Definition
	opts     Options
	logger   *zap.Logger
}

// NewDriver creates a Driver. A nil logger disables logging.
func NewDriver(p provider.Provider, runner ToolRunner, opts Options, logger *zap.Logger) *Driver {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = SystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		provider: p,
		tools:    runner,
		catalog:  tools.Catalog(),
		opts:     opts,
		logger:   logger,
	}
}

// Run executes task to completion. onEvent may be nil.
func (d *Driver) Run(ctx context.Context, task string, onEvent EventFunc) RunResult {
	emit := func(kind EventKind, content string) {
		if onEvent != nil {
			onEvent(kind, content)
		}
	}

	history := []provider.Message{
		{Role: provider.RoleSystem, Content: d.opts.SystemPrompt},
		{Role: provider.RoleUser, Content: task},
	}

	start := time.Now()
	d.logger.Info("agent run started",
		zap.String("model", d.opts.Model),
		zap.Int("maxIterations", d.opts.MaxIterations),
	)

	for iteration := 1; iteration <= d.opts.MaxIterations; iteration++ {
		reply, err := d.provider.Complete(ctx, provider.Request{
			Model:       d.opts.Model,
			Messages:    history,
			Tools:       d.catalog,
			MaxTokens:   d.opts.MaxTokens,
			Temperature: d.opts.Temperature,
		})
		if err == nil && reply == nil {
			err = provider.ErrMalformedResponse
		}
		if err != nil {
			text := fmt.Sprintf("LLM API error: %v", err)
			emit(EventError, text)
			d.logger.Warn("agent run failed",
				zap.Int("iteration", iteration),
				zap.Error(err),
			)
			return RunResult{Outcome: OutcomeFailed, Text: text, Iterations: iteration}
		}

		reply.Role = provider.RoleAssistant
		history = append(history, *reply)

		if reply.Content != "" {
			emit(EventAssistant, reply.Content)
		}

		if len(reply.ToolCalls) == 0 {
			text := reply.Content
			if text == "" {
				text = noResponseText
			}
			d.logger.Info("agent run finished",
				zap.Int("iterations", iteration),
				zap.Duration("elapsed", time.Since(start)),
			)
			return RunResult{Outcome: OutcomeDone, Text: text, Iterations: iteration}
		}

		var (
			completed bool
			summary   string
		)
		for _, call := range reply.ToolCalls {
			args, err := tools.ParseArgs(call.Arguments)
			if err != nil {
				d.logger.Debug("malformed tool arguments",
					zap.String("tool", call.Name),
					zap.String("callID", call.ID),
					zap.Error(err),
				)
			}

			emit(EventToolCall, formatCall(call.Name, args))

			res := d.tools.Execute(ctx, call.Name, args)
			emit(EventToolResult, res.String())

			if res.Done() {
				completed = true
				summary = res.Text
			}

			history = append(history, provider.Message{
				Role:       provider.RoleTool,
				ToolCallID: call.ID,
				Content:    res.String(),
			})
		}

		if completed {
			if d.opts.AutoCommit {
				d.autoCommit(ctx, summary, emit)
			}
			d.logger.Info("agent run completed",
				zap.Int("iterations", iteration),
				zap.Duration("elapsed", time.Since(start)),
			)
			return RunResult{Outcome: OutcomeDone, Text: summary, Iterations: iteration}
		}
	}

	d.logger.Warn("agent run exhausted its iteration budget",
		zap.Int("maxIterations", d.opts.MaxIterations),
		zap.Duration("elapsed", time.Since(start)),
	)
	return RunResult{Outcome: OutcomeExhausted, Text: exhaustedText, Iterations: d.opts.MaxIterations}
}

// autoCommit records the finished work in git. It is best-effort: the
// outcome is reported as an event and never changes the run result.
func (d *Driver) autoCommit(ctx context.Context, summary string, emit func(EventKind, string)) {
	msg := "feat: " + truncateRunes(summary, maxCommitSubject)
	res := d.tools.Execute(ctx, tools.GitCommit, tools.Args{"message": msg})
	emit(EventToolResult, res.String())
	d.logger.Debug("auto-commit", zap.String("result", res.Text))
}

// formatCall renders a tool call as name(args-json) for progress output.
func formatCall(name string, args tools.Args) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		buf.Reset()
		buf.WriteString("{}")
	}
	raw := strings.TrimSuffix(buf.String(), "\n")
	return fmt.Sprintf("%s(%s)", name, truncateRunes(raw, maxCallPreview))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
