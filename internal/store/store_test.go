package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// newTestTask creates a Task for testing with the given name and project.
func newTestTask(name, project, prompt string) *v1alpha1.Task {
	return &v1alpha1.Task{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindTask,
		},
		Metadata: v1alpha1.ObjectMeta{
			Name:    name,
			Project: project,
		},
		Spec: v1alpha1.TaskSpec{
			Prompt: prompt,
		},
	}
}

// backends returns every Store implementation so each test runs against both.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	bs, err := NewBoltStore(filepath.Join(t.TempDir(), "claw.db"))
	if err != nil {
		t.Fatalf("unexpected error opening bolt store: %v", err)
	}
	t.Cleanup(func() { bs.Close() })

	ms := NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	return map[string]Store{"bolt": bs, "memory": ms}
}

func TestResourceKey(t *testing.T) {
	got := ResourceKey("Task", "web", "fix-login")
	if got != "/Task/web/fix-login" {
		t.Errorf("expected /Task/web/fix-login, got %s", got)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			task := newTestTask("fix-login", "web", "fix the login form")
			if err := s.CreateTask(task); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}

			got, err := s.GetTask("web", "fix-login")
			if err != nil {
				t.Fatalf("unexpected error on GetTask: %v", err)
			}
			if got.Metadata.Name != "fix-login" {
				t.Errorf("expected name fix-login, got %s", got.Metadata.Name)
			}
			if got.Spec.Prompt != "fix the login form" {
				t.Errorf("expected prompt %q, got %q", "fix the login form", got.Spec.Prompt)
			}
		})
	}
}

func TestCreateTaskDuplicate(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			task := newTestTask("dup", "default", "x")
			if err := s.CreateTask(task); err != nil {
				t.Fatalf("unexpected error on first CreateTask: %v", err)
			}
			if err := s.CreateTask(task); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
		})
	}
}

func TestCreateTaskRequiresName(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateTask(newTestTask("", "default", "x")); err == nil {
				t.Fatal("expected error for empty name, got nil")
			}
		})
	}
}

func TestEmptyProjectDefaults(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateTask(newTestTask("t1", "", "x")); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}
			if _, err := s.GetTask(v1alpha1.DefaultProject, "t1"); err != nil {
				t.Fatalf("expected task in default project, got %v", err)
			}
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetTask("default", "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestUpdateTask(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			task := newTestTask("upd", "default", "x")
			if err := s.CreateTask(task); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}

			now := time.Now().UTC().Truncate(time.Second)
			task.Status.Phase = v1alpha1.TaskSucceeded
			task.Status.Result = "added login"
			task.Status.FinishedAt = now
			if err := s.UpdateTask(task); err != nil {
				t.Fatalf("unexpected error on UpdateTask: %v", err)
			}

			got, err := s.GetTask("default", "upd")
			if err != nil {
				t.Fatalf("unexpected error on GetTask: %v", err)
			}
			if got.Status.Phase != v1alpha1.TaskSucceeded {
				t.Errorf("expected phase %s, got %s", v1alpha1.TaskSucceeded, got.Status.Phase)
			}
			if !got.Status.FinishedAt.Equal(now) {
				t.Errorf("expected finishedAt %v, got %v", now, got.Status.FinishedAt)
			}
		})
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.UpdateTask(newTestTask("ghost", "default", "x")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestListTasks(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, tc := range []struct{ name, project string }{
				{"b", "web"},
				{"a", "web"},
				{"c", "cli"},
			} {
				if err := s.CreateTask(newTestTask(tc.name, tc.project, "x")); err != nil {
					t.Fatalf("unexpected error on CreateTask: %v", err)
				}
			}

			web, err := s.ListTasks("web")
			if err != nil {
				t.Fatalf("unexpected error on ListTasks: %v", err)
			}
			if len(web) != 2 {
				t.Fatalf("expected 2 tasks in web, got %d", len(web))
			}
			if web[0].Metadata.Name != "a" || web[1].Metadata.Name != "b" {
				t.Errorf("expected tasks ordered a, b, got %s, %s", web[0].Metadata.Name, web[1].Metadata.Name)
			}

			all, err := s.ListTasks("")
			if err != nil {
				t.Fatalf("unexpected error on ListTasks: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("expected 3 tasks overall, got %d", len(all))
			}

			none, err := s.ListTasks("missing")
			if err != nil {
				t.Fatalf("unexpected error on ListTasks: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("expected 0 tasks, got %d", len(none))
			}
		})
	}
}

func TestListTasksProjectPrefix(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// "web" must not match tasks of "webapp".
			if err := s.CreateTask(newTestTask("x", "webapp", "x")); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}
			got, err := s.ListTasks("web")
			if err != nil {
				t.Fatalf("unexpected error on ListTasks: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected 0 tasks, got %d", len(got))
			}
		})
	}
}

func TestEvents(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateTask(newTestTask("ev", "default", "x")); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}

			contents := []string{"first", "second", "third"}
			for i, c := range contents {
				evt, err := s.AppendEvent("default", "ev", v1alpha1.Event{
					Kind:    v1alpha1.EventAssistant,
					Content: c,
				})
				if err != nil {
					t.Fatalf("unexpected error on AppendEvent: %v", err)
				}
				if evt.Seq != i+1 {
					t.Errorf("expected seq %d, got %d", i+1, evt.Seq)
				}
			}

			all, err := s.Events("default", "ev", 0)
			if err != nil {
				t.Fatalf("unexpected error on Events: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 events, got %d", len(all))
			}
			for i, evt := range all {
				if evt.Content != contents[i] {
					t.Errorf("expected event %d to be %q, got %q", i, contents[i], evt.Content)
				}
			}

			tail, err := s.Events("default", "ev", 2)
			if err != nil {
				t.Fatalf("unexpected error on Events: %v", err)
			}
			if len(tail) != 1 || tail[0].Content != "third" {
				t.Errorf("expected only the third event, got %+v", tail)
			}
		})
	}
}

func TestEventsUnknownTask(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.AppendEvent("default", "missing", v1alpha1.Event{}); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound from AppendEvent, got %v", err)
			}
			if _, err := s.Events("default", "missing", 0); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound from Events, got %v", err)
			}
		})
	}
}

func TestDeleteTaskRemovesEvents(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateTask(newTestTask("del", "default", "x")); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}
			if _, err := s.AppendEvent("default", "del", v1alpha1.Event{Content: "old"}); err != nil {
				t.Fatalf("unexpected error on AppendEvent: %v", err)
			}

			if err := s.DeleteTask("default", "del"); err != nil {
				t.Fatalf("unexpected error on DeleteTask: %v", err)
			}
			if _, err := s.GetTask("default", "del"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.DeleteTask("default", "del"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}

			// A task recreated under the same name starts a fresh transcript.
			if err := s.CreateTask(newTestTask("del", "default", "x")); err != nil {
				t.Fatalf("unexpected error on CreateTask: %v", err)
			}
			evt, err := s.AppendEvent("default", "del", v1alpha1.Event{Content: "new"})
			if err != nil {
				t.Fatalf("unexpected error on AppendEvent: %v", err)
			}
			if evt.Seq != 1 {
				t.Errorf("expected seq 1 after recreate, got %d", evt.Seq)
			}
		})
	}
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claw.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	if err := s.CreateTask(newTestTask("keep", "default", "x")); err != nil {
		t.Fatalf("unexpected error on CreateTask: %v", err)
	}
	if _, err := s.AppendEvent("default", "keep", v1alpha1.Event{Content: "hi"}); err != nil {
		t.Fatalf("unexpected error on AppendEvent: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on Close: %v", err)
	}

	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("unexpected error reopening store: %v", err)
	}
	defer s.Close()

	if _, err := s.GetTask("default", "keep"); err != nil {
		t.Fatalf("expected task to survive reopen, got %v", err)
	}
	events, err := s.Events("default", "keep", 0)
	if err != nil {
		t.Fatalf("unexpected error on Events: %v", err)
	}
	if len(events) != 1 || events[0].Content != "hi" {
		t.Errorf("expected one event %q, got %+v", "hi", events)
	}
}
