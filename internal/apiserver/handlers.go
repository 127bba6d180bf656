package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/claw/internal/store"
	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
	"github.com/klubi/claw/pkg/manifest"
)

// maxRequestBody bounds the size of a submitted task.
const maxRequestBody = 1 << 20

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// projectParam returns the ?project= query value, falling back to the
// default project.
func projectParam(r *http.Request) string {
	if p := r.URL.Query().Get("project"); p != "" {
		return p
	}
	return v1alpha1.DefaultProject
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// handleCreateTask persists the task in Pending phase and starts it in the
// background. The response is the accepted task; callers poll for status.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task v1alpha1.Task
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&task); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if task.Kind != "" && task.Kind != v1alpha1.KindTask {
		s.writeError(w, http.StatusBadRequest, "unsupported kind "+strconv.Quote(task.Kind))
		return
	}
	if task.Metadata.Name == "" {
		task.Metadata.Name = "task-" + uuid.New().String()[:8]
	}
	if task.Metadata.Project == "" {
		task.Metadata.Project = projectParam(r)
	}
	if err := manifest.Validate(&task); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task.APIVersion = v1alpha1.APIVersion
	task.Kind = v1alpha1.KindTask
	task.Metadata.UID = uuid.New().String()
	now := time.Now()
	task.Metadata.CreatedAt = now
	task.Metadata.UpdatedAt = now
	task.Status = v1alpha1.TaskStatus{Phase: v1alpha1.TaskPending}

	if err := s.store.CreateTask(&task); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			s.writeError(w, http.StatusConflict, "task already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("task accepted",
		zap.String("task", task.Metadata.Name),
		zap.String("project", task.Metadata.Project),
	)

	// The runner owns its copy; the response encodes ours.
	run := task
	s.runner.Start(&run)

	s.writeJSON(w, http.StatusAccepted, &task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	task, err := s.store.GetTask(projectParam(r), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

// handleListTasks lists the tasks of ?project=, or of every project when the
// parameter is absent.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.URL.Query().Get("project"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*v1alpha1.Task{}
	}

	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	project := projectParam(r)

	if s.runner.IsActive(project, name) {
		s.writeError(w, http.StatusConflict, "task is running")
		return
	}

	if err := s.store.DeleteTask(project, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Transcripts
// ---------------------------------------------------------------------------

// handleGetEvents returns the transcript of a task. ?since=N skips the
// events up to and including sequence number N.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}

	events, err := s.store.Events(projectParam(r), name, since)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []v1alpha1.Event{}
	}

	s.writeJSON(w, http.StatusOK, events)
}
