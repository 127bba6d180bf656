// Package v1alpha1 defines the claw resource types shared by the API
// server, the store and the CLI.
package v1alpha1

import "time"

const (
	APIVersion = "claw.dev/v1alpha1"
)

// Resource kinds
const (
	KindTask = "Task"
)

// DefaultProject is used when a task does not name a project.
const DefaultProject = "default"

// TypeMeta describes the API version and kind of a resource.
type TypeMeta struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
}

// ObjectMeta holds metadata common to all resources.
type ObjectMeta struct {
	Name      string            `json:"name" yaml:"name"`
	Project   string            `json:"project,omitempty" yaml:"project,omitempty"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	UID       string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	CreatedAt time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// -------------------------------------------------------
// Task
// -------------------------------------------------------

// TaskPhase represents the lifecycle phase of a Task.
type TaskPhase string

const (
	TaskPending   TaskPhase = "Pending"
	TaskRunning   TaskPhase = "Running"
	TaskSucceeded TaskPhase = "Succeeded"
	TaskExhausted TaskPhase = "Exhausted"
	TaskFailed    TaskPhase = "Failed"
)

// Terminal reports whether the phase is final.
func (p TaskPhase) Terminal() bool {
	switch p {
	case TaskSucceeded, TaskExhausted, TaskFailed:
		return true
	}
	return false
}

// Task is one natural-language request run by the agent against a
// project directory.
type Task struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`
	Spec     TaskSpec   `json:"spec" yaml:"spec"`
	Status   TaskStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

type TaskSpec struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	// Root is the sandbox directory. Empty means the configured project root.
	Root          string `json:"root,omitempty" yaml:"root,omitempty"`
	Model         string `json:"model,omitempty" yaml:"model,omitempty"`
	MaxIterations int    `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	// AutoCommit overrides the configured default when set.
	AutoCommit *bool `json:"autoCommit,omitempty" yaml:"autoCommit,omitempty"`
}

type TaskStatus struct {
	Phase      TaskPhase `json:"phase" yaml:"phase"`
	Result     string    `json:"result,omitempty" yaml:"result,omitempty"`
	Iterations int       `json:"iterations" yaml:"iterations"`
	StartedAt  time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// -------------------------------------------------------
// Transcript events
// -------------------------------------------------------

// EventKind classifies a transcript event.
type EventKind string

const (
	EventAssistant  EventKind = "assistant"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventError      EventKind = "error"
)

// Event is one entry of a task transcript.
type Event struct {
	Seq       int       `json:"seq" yaml:"seq"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Kind      EventKind `json:"kind" yaml:"kind"`
	Content   string    `json:"content" yaml:"content"`
}
