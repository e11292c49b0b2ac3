package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/revcache"
	"github.com/unkn0wn-root/revcache/tracing"
)

var ErrNoRunner = errors.New("tasks: no runner configured")

// RunParams describes one goal invocation for the Runner.
type RunParams struct {
	WorkingDir       string
	ProjectFile      string
	Goals            []string
	EnabledProfiles  []string
	DisabledProfiles []string
}

// Runner executes a batch of goals. Implementations own process execution.
type Runner interface {
	RunBatch(ctx context.Context, params []RunParams) (bool, error)
}

// Profiles are the explicitly enabled and disabled build profiles.
type Profiles struct {
	Enabled  []string
	Disabled []string
}

// Listener is notified after every change of the task set.
type Listener interface {
	TasksChanged()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func()

func (f ListenerFunc) TasksChanged() { f() }

type Config struct {
	Runner     Runner
	Profiles   func() Profiles        // nil => no explicit profiles
	FileExists func(path string) bool // nil => os.Stat
	Factory    *revcache.Factory      // nil => descriptions are not memoized
	Logger     revcache.Logger        // nil => NopLogger
	Tracing    *tracing.Config        // nil => description computations are not traced

	// ExtraLabels appends labels after the phase labels, e.g. "Before Run"
	// for run configurations that invoke the goal. nil => phase labels only.
	ExtraLabels func(ctx context.Context, t Task) []string
	// LabelsChanged moves whenever ExtraLabels would answer differently.
	// nil while ExtraLabels is set => descriptions are never cached.
	LabelsChanged revcache.Signal
}

// Manager owns the task set. Safe for concurrent use; listeners are called
// outside the lock.
type Manager struct {
	cfg Config
	log revcache.Logger

	mu     sync.Mutex
	phases [len(Phases)]taskSet

	rev         revcache.Counter
	initialized atomic.Bool

	lmu       sync.Mutex
	listeners []*listenerEntry

	descs *revcache.Parameterized[Task, string]
}

type listenerEntry struct{ l Listener }

func NewManager(cfg Config) (*Manager, error) {
	if cfg.FileExists == nil {
		cfg.FileExists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	m := &Manager{cfg: cfg, log: cfg.Logger}
	if m.log == nil {
		m.log = revcache.NopLogger{}
	}
	for i := range m.phases {
		m.phases[i] = taskSet{}
	}
	if cfg.Factory != nil {
		const name = "tasks.description"
		p := tracing.ParamProvider[Task, string](cfg.Tracing, name,
			revcache.ParamProviderFunc[Task, string](m.computeDescription))
		descs, err := revcache.NewParameterized(cfg.Factory, p, true, revcache.WithName(name))
		if err != nil {
			return nil, err
		}
		m.descs = descs
	}
	return m, nil
}

// Signal moves on every change of the task set.
func (m *Manager) Signal() revcache.Signal { return &m.rev }

// Initialize enables change notifications for LoadState. It reports whether
// this call did the initialization.
func (m *Manager) Initialize() bool {
	return !m.initialized.Swap(true)
}

// LoadState replaces the task set with a copy of st.
func (m *Manager) LoadState(st State) {
	m.mu.Lock()
	for i, p := range Phases {
		ts := taskSet{}
		for _, t := range st.Tasks(p) {
			ts[t] = struct{}{}
		}
		m.phases[i] = ts
	}
	m.rev.Inc()
	m.mu.Unlock()

	m.log.Debug("task state loaded", revcache.Fields{"tasks": countTasks(st)})
	if m.initialized.Load() {
		m.fireTasksChanged()
	}
}

// State returns an independent deep copy of the task set.
func (m *Manager) State() State {
	st, _ := m.snapshot()
	return st
}

// snapshot returns the state and the revision it was taken at.
func (m *Manager) snapshot() (State, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st State
	for i, p := range Phases {
		st.set(p, m.phases[i].sorted())
	}
	rev, _ := m.rev.Stamp(context.Background())
	return st, rev
}

func (m *Manager) IsTaskOfPhase(t Task, p Phase) bool {
	if !p.valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.phases[p][t]
	return ok
}

// AddTasks binds ts to p. An unknown phase is logged and ignored.
func (m *Manager) AddTasks(p Phase, ts ...Task) {
	if !p.valid() {
		m.log.Warn("ignoring tasks for unknown phase", revcache.Fields{"phase": p.String(), "count": len(ts)})
		return
	}
	m.mu.Lock()
	for _, t := range ts {
		m.phases[p][t] = struct{}{}
	}
	m.rev.Inc()
	m.mu.Unlock()
	m.fireTasksChanged()
}

func (m *Manager) RemoveTasks(p Phase, ts ...Task) {
	if !p.valid() {
		m.log.Warn("ignoring tasks for unknown phase", revcache.Fields{"phase": p.String(), "count": len(ts)})
		return
	}
	m.mu.Lock()
	for _, t := range ts {
		delete(m.phases[p], t)
	}
	m.rev.Inc()
	m.mu.Unlock()
	m.fireTasksChanged()
}

// Description lists the labels of the phases goal is bound to for the
// project, then any ExtraLabels, joined by ", ". Empty when there are none.
func (m *Manager) Description(ctx context.Context, projectPath, goal string) (string, error) {
	t := Task{ProjectPath: projectPath, Goal: goal}
	if m.descs == nil {
		r, err := m.computeDescription(ctx, t)
		return r.Value, err
	}
	return m.descs.Get(ctx, t)
}

func (m *Manager) computeDescription(ctx context.Context, t Task) (revcache.Result[string], error) {
	m.mu.Lock()
	// pinned under the lock: a change racing the capture must not look current
	rev, err := revcache.Pin(ctx, &m.rev)
	var labels []string
	for i, p := range Phases {
		if _, ok := m.phases[i][t]; ok {
			labels = append(labels, p.Label())
		}
	}
	m.mu.Unlock()
	if err != nil {
		return revcache.Result[string]{}, err
	}
	deps := []revcache.Signal{rev}

	if m.cfg.ExtraLabels != nil {
		changed := revcache.Always
		if m.cfg.LabelsChanged != nil {
			pinned, err := revcache.Pin(ctx, m.cfg.LabelsChanged)
			if err != nil {
				return revcache.Result[string]{}, err
			}
			changed = pinned
		}
		deps = append(deps, changed)
		labels = append(labels, m.cfg.ExtraLabels(ctx, t)...)
	}
	return revcache.NewResult(strings.Join(labels, ", "), deps...), nil
}

// AddListener registers l and returns a function that unregisters it.
func (m *Manager) AddListener(l Listener) (remove func()) {
	e := &listenerEntry{l: l}
	m.lmu.Lock()
	m.listeners = append(m.listeners, e)
	m.lmu.Unlock()
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		for i, x := range m.listeners {
			if x == e {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// fireTasksChanged calls listeners in registration order. Listeners added or
// removed during dispatch take effect from the next notification.
func (m *Manager) fireTasksChanged() {
	m.lmu.Lock()
	snap := append([]*listenerEntry(nil), m.listeners...)
	m.lmu.Unlock()
	for _, e := range snap {
		e.l.TasksChanged()
	}
}

// Execute runs the tasks of the compile phase. With rebuild, the matching
// rebuild tasks run as well. Tasks whose project file is gone are skipped.
func (m *Manager) Execute(ctx context.Context, before, rebuild bool) (bool, error) {
	if m.cfg.Runner == nil {
		return false, ErrNoRunner
	}
	params := m.runParams(before, rebuild)
	m.log.Info("running build tasks", revcache.Fields{"before": before, "rebuild": rebuild, "count": len(params)})
	return m.cfg.Runner.RunBatch(ctx, params)
}

func (m *Manager) runParams(before, rebuild bool) []RunParams {
	compile, rebuildPhase := AfterCompile, AfterRebuild
	if before {
		compile, rebuildPhase = BeforeCompile, BeforeRebuild
	}

	m.mu.Lock()
	union := taskSet{}
	for t := range m.phases[compile] {
		union[t] = struct{}{}
	}
	if rebuild {
		for t := range m.phases[rebuildPhase] {
			union[t] = struct{}{}
		}
	}
	m.mu.Unlock()

	var prof Profiles
	if m.cfg.Profiles != nil {
		prof = m.cfg.Profiles()
	}
	var out []RunParams
	for _, t := range union.sorted() {
		if !m.cfg.FileExists(t.ProjectPath) {
			m.log.Debug("skipping task with missing project file", revcache.Fields{"path": t.ProjectPath, "goal": t.Goal})
			continue
		}
		out = append(out, RunParams{
			WorkingDir:       filepath.Dir(t.ProjectPath),
			ProjectFile:      filepath.Base(t.ProjectPath),
			Goals:            []string{t.Goal},
			EnabledProfiles:  prof.Enabled,
			DisabledProfiles: prof.Disabled,
		})
	}
	return out
}

func countTasks(st State) int {
	n := 0
	for _, p := range Phases {
		n += len(st.Tasks(p))
	}
	return n
}
