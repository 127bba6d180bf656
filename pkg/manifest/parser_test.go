package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klubi/claw/pkg/apis/v1alpha1"
)

func TestParseTask(t *testing.T) {
	yaml := []byte(`
apiVersion: claw.dev/v1alpha1
kind: Task
metadata:
  name: add-login
  project: web
  labels:
    team: auth
spec:
  prompt: "Add a login page with email and password."
  root: /srv/web
  model: deepseek-coder
  maxIterations: 12
  autoCommit: false
`)
	tasks, err := ParseBytes(yaml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.APIVersion != "claw.dev/v1alpha1" {
		t.Errorf("expected apiVersion claw.dev/v1alpha1, got %s", task.APIVersion)
	}
	if task.Kind != "Task" {
		t.Errorf("expected kind Task, got %s", task.Kind)
	}
	if task.Metadata.Name != "add-login" {
		t.Errorf("expected name add-login, got %s", task.Metadata.Name)
	}
	if task.Metadata.Project != "web" {
		t.Errorf("expected project web, got %s", task.Metadata.Project)
	}
	if task.Metadata.Labels["team"] != "auth" {
		t.Errorf("expected label team=auth, got %s", task.Metadata.Labels["team"])
	}
	if task.Spec.Prompt != "Add a login page with email and password." {
		t.Errorf("unexpected prompt %q", task.Spec.Prompt)
	}
	if task.Spec.Root != "/srv/web" {
		t.Errorf("expected root /srv/web, got %s", task.Spec.Root)
	}
	if task.Spec.Model != "deepseek-coder" {
		t.Errorf("expected model deepseek-coder, got %s", task.Spec.Model)
	}
	if task.Spec.MaxIterations != 12 {
		t.Errorf("expected maxIterations 12, got %d", task.Spec.MaxIterations)
	}
	if task.Spec.AutoCommit == nil || *task.Spec.AutoCommit {
		t.Errorf("expected autoCommit false, got %v", task.Spec.AutoCommit)
	}
}

func TestParseMultiDocument(t *testing.T) {
	yaml := []byte(`
kind: Task
metadata:
  name: first
spec:
  prompt: one
---
---
apiVersion: claw.dev/v1alpha1
kind: Task
metadata:
  name: second
spec:
  prompt: two
`)
	tasks, err := ParseBytes(yaml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Metadata.Name != "first" || tasks[1].Metadata.Name != "second" {
		t.Errorf("expected tasks in document order, got %s, %s", tasks[0].Metadata.Name, tasks[1].Metadata.Name)
	}
	// A missing apiVersion defaults.
	if tasks[0].APIVersion != v1alpha1.APIVersion {
		t.Errorf("expected default apiVersion, got %q", tasks[0].APIVersion)
	}
	if tasks[0].Spec.AutoCommit != nil {
		t.Errorf("expected autoCommit unset, got %v", *tasks[0].Spec.AutoCommit)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown kind",
			yaml:    "kind: AgentPod\nmetadata:\n  name: x\n",
			wantErr: "unknown resource kind",
		},
		{
			name:    "wrong api version",
			yaml:    "apiVersion: example.dev/v1\nkind: Task\nmetadata:\n  name: x\nspec:\n  prompt: y\n",
			wantErr: "unsupported apiVersion",
		},
		{
			name:    "missing name",
			yaml:    "kind: Task\nspec:\n  prompt: y\n",
			wantErr: "name must not be empty",
		},
		{
			name:    "missing prompt",
			yaml:    "kind: Task\nmetadata:\n  name: x\n",
			wantErr: "empty prompt",
		},
		{
			name:    "bad name",
			yaml:    "kind: Task\nmetadata:\n  name: Fix Login\nspec:\n  prompt: y\n",
			wantErr: "must consist of",
		},
		{
			name:    "malformed yaml",
			yaml:    "kind: Task\nmetadata: [\n",
			wantErr: "decoding yaml document",
		},
		{
			name:    "second document invalid",
			yaml:    "kind: Task\nmetadata:\n  name: ok\nspec:\n  prompt: y\n---\nkind: Task\nmetadata:\n  name: bad\n",
			wantErr: "document 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tasks, err := ParseBytes([]byte("\n---\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected 0 tasks, got %d", len(tasks))
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"fix-login", true},
		{"v1.2_task", true},
		{"a", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"Upper", false},
		{"with/slash", false},
		{strings.Repeat("a", 64), false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.valid && err != nil {
			t.Errorf("expected %q to be valid, got %v", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("expected %q to be invalid", tt.name)
		}
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := "kind: Task\nmetadata:\n  name: from-file\nspec:\n  prompt: hello\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	tasks, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Metadata.Name != "from-file" {
		t.Errorf("expected task from-file, got %+v", tasks)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
