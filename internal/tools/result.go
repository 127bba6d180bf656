package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CompletionPrefix marks a completion result in conversation history.
const CompletionPrefix = "__TASK_DONE__:"

// Sentinel errors returned (wrapped) by Call. Execute renders them as
// "Error: ..." text.
var (
	ErrPathEscape        = errors.New("path escapes project root")
	ErrNotFound          = errors.New("not found")
	ErrWrongEntryType    = errors.New("wrong entry type")
	ErrEditTargetMissing = errors.New("old_string not found")
	ErrAmbiguousEdit     = errors.New("old_string is not unique")
	ErrCommandTimeout    = errors.New("command timed out")
	ErrMissingArgument   = errors.New("missing required argument")
	ErrUnknownTool       = errors.New("Unknown tool")
	ErrRegistryMismatch  = errors.New("tool registry does not match catalog")
)

// Kind tags a Result.
type Kind int

const (
	// KindContinue is an ordinary result; the conversation goes on.
	KindContinue Kind = iota
	// KindCompleted signals that the task is finished.
	KindCompleted
)

// Result is the outcome of one tool call.
type Result struct {
	Kind Kind
	// Text is the result text, or the summary for a completed result.
	Text string
}

// Continue wraps ordinary tool output.
func Continue(text string) Result {
	return Result{Kind: KindContinue, Text: text}
}

// Completed wraps the summary passed to task_done.
func Completed(summary string) Result {
	return Result{Kind: KindCompleted, Text: summary}
}

// Done reports whether the result signals task completion.
func (r Result) Done() bool {
	return r.Kind == KindCompleted
}

// String renders the result as it is shown to the model.
func (r Result) String() string {
	if r.Done() {
		return CompletionPrefix + r.Text
	}
	return r.Text
}

// errorResult turns a tool failure into text the model can react to.
func errorResult(err error) Result {
	return Continue("Error: " + err.Error())
}

// Args is the decoded argument object of a tool call.
type Args map[string]any

// ParseArgs decodes a raw JSON argument string. Anything that is not a JSON
// object yields an error and an empty, usable Args.
func ParseArgs(raw string) (Args, error) {
	args := Args{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Args{}, fmt.Errorf("decoding tool arguments: %w", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// String returns the named argument as a string. Numbers and booleans are
// formatted; a missing or null argument reports false.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Require returns the named string argument or ErrMissingArgument.
func (a Args) Require(key string) (string, error) {
	s, ok := a.String(key)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingArgument, key)
	}
	return s, nil
}

// Int returns the named argument as an int. JSON numbers and numeric
// strings are accepted.
func (a Args) Int(key string) (int, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || t >= float64(math.MaxInt) || t <= float64(math.MinInt) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
