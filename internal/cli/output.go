package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// outputFormat is set by the root command's -o flag.
// Supported values: "table" (default), "json", "yaml".
var outputFormat string

// printTable writes tabular data to stdout using aligned columns.
func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// printJSON writes the value as pretty-printed JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML writes the value as YAML to stdout.
func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// printTasks renders tasks as a table, JSON or YAML depending on outputFormat.
// v is what the structured formats encode: a single task or the list.
func printTasks(v interface{}, tasks []*v1alpha1.Task) error {
	switch outputFormat {
	case "json":
		return printJSON(v)
	case "yaml":
		return printYAML(v)
	case "table", "":
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, taskRow(t))
		}
		printTable(taskHeaders, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected table, json or yaml)", outputFormat)
	}
}

var taskHeaders = []string{"NAME", "PROJECT", "PHASE", "ITERATIONS", "AGE"}

func taskRow(t *v1alpha1.Task) []string {
	return []string{
		t.Metadata.Name,
		t.Metadata.Project,
		phaseString(t.Status.Phase),
		fmt.Sprintf("%d", t.Status.Iterations),
		formatAge(t.Metadata.CreatedAt),
	}
}

// phaseString colors a task phase for terminal output.
func phaseString(p v1alpha1.TaskPhase) string {
	switch p {
	case v1alpha1.TaskSucceeded:
		return color.GreenString(string(p))
	case v1alpha1.TaskRunning, v1alpha1.TaskExhausted:
		return color.YellowString(string(p))
	case v1alpha1.TaskFailed:
		return color.RedString(string(p))
	default:
		return string(p)
	}
}

// printEvent writes one transcript entry, colored by kind.
func printEvent(evt v1alpha1.Event) {
	ts := evt.Timestamp.Format("15:04:05")
	switch evt.Kind {
	case v1alpha1.EventAssistant:
		fmt.Printf("%s %s %s\n", ts, color.CyanString("assistant"), evt.Content)
	case v1alpha1.EventToolCall:
		fmt.Printf("%s %s %s\n", ts, color.YellowString("call     "), evt.Content)
	case v1alpha1.EventToolResult:
		fmt.Printf("%s %s %s\n", ts, color.New(color.Faint).Sprint("result   "), indentLines(evt.Content, "                   "))
	case v1alpha1.EventError:
		fmt.Printf("%s %s %s\n", ts, color.RedString("error    "), evt.Content)
	default:
		fmt.Printf("%s %-9s %s\n", ts, evt.Kind, evt.Content)
	}
}

// indentLines prefixes every line after the first.
func indentLines(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+prefix)
}

// formatAge returns a human-readable duration string relative to the given
// time, such as "5s", "3m", "2h", "4d". Returns "<unknown>" for zero times.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
