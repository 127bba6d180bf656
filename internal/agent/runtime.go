package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klubi/claw/internal/config"
	"github.com/klubi/claw/internal/provider"
	"github.com/klubi/claw/internal/store"
	"github.com/klubi/claw/internal/tools"
	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// ProviderFactory builds the provider client for one invocation.
type ProviderFactory func(cfg provider.Config) (provider.Provider, error)

// Invocation describes one run of the Driver against a project directory.
type Invocation struct {
	Root          string // empty means the configured project root
	Prompt        string
	Model         string // empty means the configured model
	MaxIterations int    // zero means the configured budget
	AutoCommit    bool
}

// Runtime runs invocations and persisted tasks. Invocations against the
// same sandbox root are serialized; different roots run in parallel.
type Runtime struct {
	store       store.Store
	cfg         *config.Config
	newProvider ProviderFactory
	logger      *zap.Logger

	mu sync.Mutex
	// locks holds one mutex per canonical sandbox root.
	locks map[string]*sync.Mutex
	// active tracks running tasks by store key.
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime creates a Runtime. s may be nil when only Invoke is used. A nil
// factory builds OpenAI-compatible clients.
func NewRuntime(s store.Store, cfg *config.Config, newProvider ProviderFactory, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newProvider == nil {
		newProvider = func(pc provider.Config) (provider.Provider, error) {
			return provider.NewOpenAI(pc, logger), nil
		}
	}
	return &Runtime{
		store:       s,
		cfg:         cfg,
		newProvider: newProvider,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
		active:      make(map[string]context.CancelFunc),
	}
}

// Invoke runs one task text to completion. The returned error covers setup
// failures only (bad root, provider construction); the outcome of the run
// itself is in the RunResult.
func (r *Runtime) Invoke(ctx context.Context, inv Invocation, onEvent EventFunc) (RunResult, error) {
	root := inv.Root
	if root == "" {
		root = r.cfg.Project.Root
	}

	executor, err := tools.NewExecutor(root, tools.WithLogger(r.logger))
	if err != nil {
		return RunResult{}, fmt.Errorf("opening project root %s: %w", root, err)
	}

	p, err := r.newProvider(r.cfg.ProviderConfig())
	if err != nil {
		return RunResult{}, fmt.Errorf("creating provider %s: %w", r.cfg.LLM.Provider, err)
	}

	opts := Options{
		Model:         inv.Model,
		MaxIterations: inv.MaxIterations,
		MaxTokens:     r.cfg.LLM.MaxTokens,
		Temperature:   r.cfg.LLM.Temperature,
		AutoCommit:    inv.AutoCommit,
	}
	if opts.Model == "" {
		opts.Model = r.cfg.LLM.Model
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = r.cfg.Project.MaxIterations
	}

	lock := r.lockFor(executor.Root())
	lock.Lock()
	defer lock.Unlock()

	driver := NewDriver(p, executor, opts, r.logger.With(zap.String("root", executor.Root())))
	return driver.Run(ctx, inv.Prompt, onEvent), nil
}

// lockFor returns the mutex guarding root, creating it on first use.
func (r *Runtime) lockFor(root string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[root]
	if !ok {
		l = &sync.Mutex{}
		r.locks[root] = l
	}
	return l
}

// ExecuteTask runs a persisted Task, moving it through Running to a terminal
// phase and appending its transcript to the store. It returns an error only
// when the store cannot be updated.
func (r *Runtime) ExecuteTask(ctx context.Context, task *v1alpha1.Task) error {
	ctx, release := r.track(ctx, task)
	defer release()
	return r.execute(ctx, task)
}

// Start runs the task on a background goroutine tracked by Shutdown. The
// task counts as active from the moment Start returns.
func (r *Runtime) Start(task *v1alpha1.Task) {
	ctx, release := r.track(context.Background(), task)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()
		if err := r.execute(ctx, task); err != nil {
			r.logger.Error("task execution failed",
				zap.String("task", task.Metadata.Name),
				zap.Error(err),
			)
		}
	}()
}

// track registers the task as active and returns its cancellable context.
func (r *Runtime) track(ctx context.Context, task *v1alpha1.Task) (context.Context, func()) {
	key := store.ResourceKey(v1alpha1.KindTask, projectOrDefault(task.Metadata.Project), task.Metadata.Name)
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.active[key] = cancel
	r.mu.Unlock()

	return ctx, func() {
		cancel()
		r.mu.Lock()
		delete(r.active, key)
		r.mu.Unlock()
	}
}

func (r *Runtime) execute(ctx context.Context, task *v1alpha1.Task) error {
	if r.store == nil {
		return fmt.Errorf("runtime has no store")
	}
	project, name := task.Metadata.Project, task.Metadata.Name

	r.logger.Info("executing task",
		zap.String("task", name),
		zap.String("project", project),
	)

	// Mark task as Running
	now := time.Now()
	task.Status.Phase = v1alpha1.TaskRunning
	task.Status.StartedAt = now
	task.Metadata.UpdatedAt = now
	if err := r.store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to set task Running: %w", err)
	}

	onEvent := func(kind EventKind, content string) {
		evt := v1alpha1.Event{
			Timestamp: time.Now(),
			Kind:      v1alpha1.EventKind(kind),
			Content:   content,
		}
		if _, err := r.store.AppendEvent(project, name, evt); err != nil {
			r.logger.Warn("failed to record event",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}

	autoCommit := r.cfg.Project.AutoCommit
	if task.Spec.AutoCommit != nil {
		autoCommit = *task.Spec.AutoCommit
	}

	result, err := r.Invoke(ctx, Invocation{
		Root:          task.Spec.Root,
		Prompt:        task.Spec.Prompt,
		Model:         task.Spec.Model,
		MaxIterations: task.Spec.MaxIterations,
		AutoCommit:    autoCommit,
	}, onEvent)
	if err != nil {
		onEvent(EventError, err.Error())
		result = RunResult{Outcome: OutcomeFailed, Text: err.Error()}
	}

	finishedAt := time.Now()
	task.Status.Phase = PhaseFor(result.Outcome)
	task.Status.Result = result.Text
	task.Status.Iterations = result.Iterations
	task.Status.FinishedAt = finishedAt
	task.Metadata.UpdatedAt = finishedAt

	r.logger.Info("task finished",
		zap.String("task", name),
		zap.String("phase", string(task.Status.Phase)),
		zap.Int("iterations", result.Iterations),
		zap.Duration("elapsed", finishedAt.Sub(task.Status.StartedAt)),
	)

	if err := r.store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

// IsActive reports whether the task is currently running in this runtime.
func (r *Runtime) IsActive(project, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[store.ResourceKey(v1alpha1.KindTask, projectOrDefault(project), name)]
	return ok
}

// Shutdown cancels running tasks and waits for them to record their final
// status, or for ctx to expire.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PhaseFor maps a run outcome to the persisted task phase.
func PhaseFor(o Outcome) v1alpha1.TaskPhase {
	switch o {
	case OutcomeDone:
		return v1alpha1.TaskSucceeded
	case OutcomeExhausted:
		return v1alpha1.TaskExhausted
	default:
		return v1alpha1.TaskFailed
	}
}

func projectOrDefault(project string) string {
	if project == "" {
		return v1alpha1.DefaultProject
	}
	return project
}
