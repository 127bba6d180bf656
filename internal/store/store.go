// Package store persists tasks and their transcripts.
//
// Task keys follow the convention "/{kind}/{project}/{name}". Transcript
// events are kept per task and numbered from 1 in append order.
package store

import (
	"errors"
	"fmt"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// Store is the persistence interface for tasks and transcripts. All
// implementations are safe for concurrent use.
type Store interface {
	// CreateTask stores a new task.
	// Returns ErrAlreadyExists if a task with the same project and name exists.
	CreateTask(task *v1alpha1.Task) error

	// GetTask returns the task or ErrNotFound.
	GetTask(project, name string) (*v1alpha1.Task, error)

	// UpdateTask replaces an existing task.
	// Returns ErrNotFound if the task does not exist.
	UpdateTask(task *v1alpha1.Task) error

	// DeleteTask removes the task together with its transcript.
	// Returns ErrNotFound if the task does not exist.
	DeleteTask(project, name string) error

	// ListTasks returns the tasks of project ordered by name, or of every
	// project when project is empty.
	ListTasks(project string) ([]*v1alpha1.Task, error)

	// AppendEvent adds evt to the transcript of a task and returns it with
	// its sequence number set.
	// Returns ErrNotFound if the task does not exist.
	AppendEvent(project, name string, evt v1alpha1.Event) (v1alpha1.Event, error)

	// Events returns the transcript entries with a sequence number greater
	// than since, in order.
	Events(project, name string, since int) ([]v1alpha1.Event, error)

	// Close releases any resources held by the store (e.g. BoltDB file handle).
	Close() error
}

// Common sentinel errors.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// ResourceKey builds a canonical store key for a resource.
//
//	ResourceKey("Task", "my-project", "fix-login")
//	=> "/Task/my-project/fix-login"
func ResourceKey(kind, project, name string) string {
	return fmt.Sprintf("/%s/%s/%s", kind, project, name)
}

// taskKey returns the key of a task, defaulting the project.
func taskKey(project, name string) string {
	return ResourceKey(v1alpha1.KindTask, projectOrDefault(project), name)
}

// taskPrefix returns the key prefix of all tasks in project, or of all tasks
// when project is empty.
func taskPrefix(project string) string {
	if project == "" {
		return "/" + v1alpha1.KindTask + "/"
	}
	return "/" + v1alpha1.KindTask + "/" + project + "/"
}

func projectOrDefault(project string) string {
	if project == "" {
		return v1alpha1.DefaultProject
	}
	return project
}

func validateTask(task *v1alpha1.Task) error {
	if task == nil || task.Metadata.Name == "" {
		return fmt.Errorf("task name must not be empty")
	}
	return nil
}
