package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

func TestTaskPath(t *testing.T) {
	tests := []struct {
		name, task, suffix, project string
		since                       int
		want                        string
	}{
		{"list all", "", "", "", 0, "/api/v1alpha1/tasks"},
		{"list project", "", "", "web", 0, "/api/v1alpha1/tasks?project=web"},
		{"get", "fix-login", "", "web", 0, "/api/v1alpha1/tasks/fix-login?project=web"},
		{"events since", "fix-login", "/events", "", 4, "/api/v1alpha1/tasks/fix-login/events?since=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extra map[string][]string
			if tt.since > 0 {
				extra = map[string][]string{"since": {"4"}}
			}
			if got := taskPath(tt.task, tt.suffix, tt.project, extra); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClientRoundTrips(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	var gotBody v1alpha1.Task

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/healthz":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&gotBody)
			gotBody.Status.Phase = v1alpha1.TaskPending
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(gotBody)
		case r.URL.Path == "/api/v1alpha1/tasks/t1/events":
			json.NewEncoder(w).Encode([]v1alpha1.Event{{Seq: 3, Content: "hi"}})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/v1alpha1/tasks":
			json.NewEncoder(w).Encode([]v1alpha1.Task{{Metadata: v1alpha1.ObjectMeta{Name: "t1"}}})
		default:
			json.NewEncoder(w).Encode(v1alpha1.Task{Metadata: v1alpha1.ObjectMeta{Name: "t1"}})
		}
	}))
	defer ts.Close()

	c := New(ts.URL + "/")

	if err := c.Healthz(); err != nil {
		t.Fatalf("Healthz: %v", err)
	}

	created, err := c.CreateTask(&v1alpha1.Task{
		Metadata: v1alpha1.ObjectMeta{Name: "t1", Project: "web"},
		Spec:     v1alpha1.TaskSpec{Prompt: "do it"},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if gotMethod != http.MethodPost || gotQuery != "project=web" {
		t.Errorf("expected POST with project=web, got %s ?%s", gotMethod, gotQuery)
	}
	if gotBody.Spec.Prompt != "do it" {
		t.Errorf("expected prompt to be sent, got %q", gotBody.Spec.Prompt)
	}
	if created.Status.Phase != v1alpha1.TaskPending {
		t.Errorf("expected Pending, got %s", created.Status.Phase)
	}

	task, err := c.GetTask("", "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Metadata.Name != "t1" || gotPath != "/api/v1alpha1/tasks/t1" || gotQuery != "" {
		t.Errorf("unexpected GetTask request %s?%s", gotPath, gotQuery)
	}

	tasks, err := c.ListTasks("")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}

	events, err := c.TaskEvents("", "t1", 2)
	if err != nil {
		t.Fatalf("TaskEvents: %v", err)
	}
	if len(events) != 1 || gotQuery != "since=2" {
		t.Errorf("expected one event with since=2, got %d ?%s", len(events), gotQuery)
	}

	if err := c.DeleteTask("web", "t1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", gotMethod)
	}
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "task not found"})
	}))
	defer ts.Close()

	_, err := New(ts.URL).GetTask("", "missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
	if err.Error() != "api error (status 404): task not found" {
		t.Errorf("unexpected error text %q", err.Error())
	}
}
