// Package tools implements the sandboxed tool set the agent drives: file
// reads and edits, directory listing, code search, shell commands, git
// commits and the completion signal.
//
// Every filesystem path a tool receives is resolved against a single
// sandbox root and rejected if it would land outside of it.
package tools

// Tool names as advertised to the model.
const (
	ReadFile   = "read_file"
	WriteFile  = "write_file"
	EditFile   = "edit_file"
	ListDir    = "list_dir"
	SearchCode = "search_code"
	RunCommand = "run_command"
	GitCommit  = "git_commit"
	TaskDone   = "task_done"
)

// Parameter describes one named argument of a tool.
type Parameter struct {
	Name        string
	Type        string // JSON schema type: "string" or "integer"
	Description string
	Required    bool
}

// Definition is the schema of a tool as presented to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Schema renders the parameters as a JSON-schema object.
func (d Definition) Schema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var catalog = []Definition{
	{
		Name:        ReadFile,
		Description: "Read the contents of a file. Returns the file content with line numbers.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to project root", Required: true},
			{Name: "start_line", Type: "integer", Description: "First line to return (1-indexed, optional)"},
			{Name: "end_line", Type: "integer", Description: "Last line to return (1-indexed, inclusive, optional)"},
		},
	},
	{
		Name:        WriteFile,
		Description: "Create or overwrite a file with the given content. Parent directories are created automatically.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to project root", Required: true},
			{Name: "content", Type: "string", Description: "Full file content to write", Required: true},
		},
	},
	{
		Name:        EditFile,
		Description: "Replace one exact occurrence of a string in a file. old_string must match exactly, including whitespace, and must be unique in the file.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to project root", Required: true},
			{Name: "old_string", Type: "string", Description: "Exact text to find", Required: true},
			{Name: "new_string", Type: "string", Description: "Replacement text", Required: true},
		},
	},
	{
		Name:        ListDir,
		Description: "List files and directories at the given path. Directories end with '/', files show their size.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Directory path relative to project root. Use '.' for the root."},
		},
	},
	{
		Name:        SearchCode,
		Description: "Search project files for a regular expression. Returns matching lines as path:line:text.",
		Parameters: []Parameter{
			{Name: "pattern", Type: "string", Description: "Search pattern (regular expression)", Required: true},
			{Name: "path", Type: "string", Description: "Directory or file to search in (default: '.')"},
			{Name: "include", Type: "string", Description: "File glob to include, e.g. '*.go'"},
		},
	},
	{
		Name:        RunCommand,
		Description: "Execute a shell command in the project directory. Use for running tests, builds, installs and similar.",
		Parameters: []Parameter{
			{Name: "command", Type: "string", Description: "Shell command to execute", Required: true},
			{Name: "timeout", Type: "integer", Description: "Timeout in seconds (default: 60)"},
		},
	},
	{
		Name:        GitCommit,
		Description: "Stage all changes and create a git commit with the given message.",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Commit message", Required: true},
		},
	},
	{
		Name:        TaskDone,
		Description: "Call this when the task is fully complete. Provide a summary of what was done.",
		Parameters: []Parameter{
			{Name: "summary", Type: "string", Description: "Summary of what was accomplished", Required: true},
		},
	},
}

// Catalog returns the tool definitions in presentation order. The returned
// slice is a copy; the catalog itself never changes.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	for i, d := range catalog {
		d.Parameters = append([]Parameter(nil), d.Parameters...)
		out[i] = d
	}
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
