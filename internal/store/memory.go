package store

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// MemoryStore is a thread-safe, in-memory Store backed by simple maps.
// Useful for unit tests and short-lived processes.
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[string][]byte // key -> JSON bytes
	events map[string][]v1alpha1.Event
}

// NewMemoryStore creates a ready-to-use in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:  make(map[string][]byte),
		events: make(map[string][]v1alpha1.Event),
	}
}

// ---------- Tasks ----------

func (m *MemoryStore) CreateTask(task *v1alpha1.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	key := taskKey(task.Metadata.Project, task.Metadata.Name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[key]; exists {
		return ErrAlreadyExists
	}
	m.tasks[key] = raw
	return nil
}

func (m *MemoryStore) GetTask(project, name string) (*v1alpha1.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.tasks[taskKey(project, name)]
	if !ok {
		return nil, ErrNotFound
	}
	var task v1alpha1.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (m *MemoryStore) UpdateTask(task *v1alpha1.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	key := taskKey(task.Metadata.Project, task.Metadata.Name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[key]; !exists {
		return ErrNotFound
	}
	m.tasks[key] = raw
	return nil
}

func (m *MemoryStore) DeleteTask(project, name string) error {
	key := taskKey(project, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[key]; !exists {
		return ErrNotFound
	}
	delete(m.tasks, key)
	delete(m.events, key)
	return nil
}

func (m *MemoryStore) ListTasks(project string) ([]*v1alpha1.Task, error) {
	prefix := taskPrefix(project)

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.tasks))
	for k := range m.tasks {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	// Match the key order of the bolt cursor.
	sort.Strings(keys)

	results := make([]*v1alpha1.Task, 0, len(keys))
	for _, k := range keys {
		var task v1alpha1.Task
		if err := json.Unmarshal(m.tasks[k], &task); err != nil {
			return nil, err
		}
		results = append(results, &task)
	}
	return results, nil
}

// ---------- Events ----------

func (m *MemoryStore) AppendEvent(project, name string, evt v1alpha1.Event) (v1alpha1.Event, error) {
	key := taskKey(project, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[key]; !exists {
		return v1alpha1.Event{}, ErrNotFound
	}
	evt.Seq = len(m.events[key]) + 1
	m.events[key] = append(m.events[key], evt)
	return evt, nil
}

func (m *MemoryStore) Events(project, name string, since int) ([]v1alpha1.Event, error) {
	key := taskKey(project, name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.tasks[key]; !exists {
		return nil, ErrNotFound
	}
	var results []v1alpha1.Event
	for _, evt := range m.events[key] {
		if evt.Seq > since {
			results = append(results, evt)
		}
	}
	return results, nil
}

// ---------- Close ----------

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = make(map[string][]byte)
	m.events = make(map[string][]v1alpha1.Event)
	return nil
}
