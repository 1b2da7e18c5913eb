// Package alerting turns filter trees into standing alerts: each alert is
// re-evaluated on a fixed tick period and fires once its match count has held
// for the configured sustain time.
package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/listeverything/finder/internal/datastore/entities"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
)

// State of a standing alert.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateFiring  State = "firing"
)

// PausePolicy decides how paused host time counts toward sustain timers.
type PausePolicy string

const (
	// PauseFreeze skips evaluation while paused and excludes the paused span
	// from every sustain timer.
	PauseFreeze PausePolicy = "freeze"
	// PauseContinue evaluates as usual while paused.
	PauseContinue PausePolicy = "continue"
)

const (
	// DefaultPeriod is one evaluation per second of host time.
	DefaultPeriod int64 = 60
	// DefaultMaxCulprits caps the entities reported by a firing alert.
	DefaultMaxCulprits = 16

	persistTimeout = 3 * time.Second
)

// ContextProvider gives the scheduler access to live contexts. The first
// context returned by Contexts is the current one.
type ContextProvider interface {
	Context(key string) (filter.Context, bool)
	Contexts() []filter.Context
}

// ActionFunc is called when an alert starts or stops firing.
type ActionFunc func(r Report)

// AlertRecorder receives alert measurements.
type AlertRecorder interface {
	ObserveAlert(contextKey, name string, state State, count int)
	AlertFired(priority filter.Priority)
	ForgetAlert(contextKey, name string)
}

// Alert is a named filter tree watched by the scheduler. An empty ContextKey
// watches every context.
type Alert struct {
	Name       string
	ContextKey string
	// Reference holds portable references and is what gets persisted.
	Reference *filter.Tree
	// Bound is Reference resolved against boundTo.
	Bound        *filter.Tree
	RunningCount int
	SinceTick    int64
	State        State
	boundTo      string
}

// Status is a read-only view of an alert.
type Status struct {
	Name         string               `json:"name"`
	ContextKey   string               `json:"context,omitempty"`
	Base         filter.BaseKind      `json:"base"`
	Settings     filter.AlertSettings `json:"settings"`
	State        State                `json:"state"`
	RunningCount int                  `json:"running_count"`
	SinceTick    int64                `json:"since_tick"`
}

// Report is the outcome of one alert check.
type Report struct {
	ContextKey string
	Name       string
	Previous   State
	State      State
	Count      int
	Priority   filter.Priority
	Tick       int64
	// Culprits is set while firing, capped at the scheduler's culprit limit.
	Culprits []filter.Entity
}

// Fired reports whether the alert entered the firing state on this check.
func (r Report) Fired() bool { return r.State == StateFiring && r.Previous != StateFiring }

// Cleared reports whether a firing alert stopped firing on this check.
func (r Report) Cleared() bool { return r.Previous == StateFiring && r.State != StateFiring }

// Event converts a transition report to a bus event.
func (r Report) Event() *AlertEvent {
	name := EventAlertFiring
	if r.Cleared() {
		name = EventAlertCleared
	}
	return &AlertEvent{
		EventName:  name,
		ContextKey: r.ContextKey,
		AlertName:  r.Name,
		Priority:   r.Priority,
		Count:      r.Count,
		Culprits:   culpritLabels(r.Culprits),
		Tick:       r.Tick,
	}
}

func culpritLabels(es []filter.Entity) []string {
	if len(es) == 0 {
		return nil
	}
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Label()
	}
	return out
}

type alertKey struct {
	context string
	name    string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPeriod sets the evaluation period in ticks.
func WithPeriod(ticks int64) Option {
	return func(s *Scheduler) {
		if ticks > 0 {
			s.period = ticks
		}
	}
}

// WithPausePolicy sets how paused time is treated.
func WithPausePolicy(p PausePolicy) Option {
	return func(s *Scheduler) { s.pausePolicy = p }
}

// WithMaxCulprits caps reported culprits.
func WithMaxCulprits(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxCulprits = n
		}
	}
}

// WithAction sets the transition callback.
func WithAction(fn ActionFunc) Option {
	return func(s *Scheduler) { s.action = fn }
}

// WithRepository enables write-through persistence and firing history.
func WithRepository(repo repository.AlertRepository) Option {
	return func(s *Scheduler) { s.repo = repo }
}

// WithCatalog sets the catalog used to rebuild persisted trees.
func WithCatalog(c *filter.Catalog) Option {
	return func(s *Scheduler) { s.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the alert metrics recorder.
func WithMetrics(m AlertRecorder) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler owns the standing alerts. Tick is driven by the host clock.
type Scheduler struct {
	evaluator *filter.Evaluator
	contexts  ContextProvider
	catalog   *filter.Catalog
	repo      repository.AlertRepository
	action    ActionFunc
	metrics   AlertRecorder
	log       logger.Logger

	period      int64
	pausePolicy PausePolicy
	maxCulprits int

	mu        sync.Mutex
	alerts    map[alertKey]*Alert
	now       int64
	lastEval  int64
	evaluated bool
	paused    bool
	pausedAt  int64

	cleanupStop chan struct{}
}

// NewScheduler creates a scheduler evaluating through ev.
func NewScheduler(ev *filter.Evaluator, contexts ContextProvider, opts ...Option) *Scheduler {
	s := &Scheduler{
		evaluator:   ev,
		contexts:    contexts,
		log:         logger.NewNop(),
		period:      DefaultPeriod,
		pausePolicy: PauseFreeze,
		maxCulprits: DefaultMaxCulprits,
		alerts:      make(map[alertKey]*Alert),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = filter.Default()
	}
	return s
}

// Period returns the evaluation period in ticks.
func (s *Scheduler) Period() int64 { return s.period }

// Add stores tree as alert name in contextKey. The scheduler keeps its own
// portable copy; the caller's tree is not retained. An existing alert is
// replaced only with overwrite, and its count, timer and state start over.
func (s *Scheduler) Add(contextKey, name string, tree *filter.Tree, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("alert name must not be empty")
	}
	key := alertKey{contextKey, name}

	s.mu.Lock()
	if _, exists := s.alerts[key]; exists && !overwrite {
		s.mu.Unlock()
		return fmt.Errorf("alert %q: %w", name, ErrDuplicateName)
	}
	ref := filter.Clone(tree, nil, s.log)
	ref.Name = name
	ref.AllContexts = contextKey == ""
	normalizeSettings(&ref.Alert)

	a := &Alert{
		Name:       name,
		ContextKey: contextKey,
		Reference:  ref,
		SinceTick:  s.clock(),
		State:      StateIdle,
	}
	s.bind(a)
	s.alerts[key] = a
	row, err := s.toEntity(a)
	s.mu.Unlock()

	s.log.Info("alert saved",
		logger.String("alert", name),
		logger.String("context", contextKey),
		logger.Bool("overwrite", overwrite))

	if err != nil {
		s.log.Error("failed to encode alert", logger.String("alert", name), logger.Error(err))
		return nil
	}
	s.persist("save", func(ctx context.Context) error {
		return s.repo.SaveAlert(ctx, row, true)
	})
	return nil
}

// Rename moves an alert to a new name within its context.
func (s *Scheduler) Rename(contextKey, oldName, newName string, overwrite bool) error {
	if newName == "" {
		return fmt.Errorf("alert name must not be empty")
	}
	s.mu.Lock()
	from := alertKey{contextKey, oldName}
	a, ok := s.alerts[from]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("alert %q: %w", oldName, ErrNotFound)
	}
	if oldName == newName {
		s.mu.Unlock()
		return nil
	}
	to := alertKey{contextKey, newName}
	if _, exists := s.alerts[to]; exists && !overwrite {
		s.mu.Unlock()
		return fmt.Errorf("alert %q: %w", newName, ErrDuplicateName)
	}
	if s.metrics != nil {
		s.metrics.ForgetAlert(contextKey, oldName)
		if _, exists := s.alerts[to]; exists {
			s.metrics.ForgetAlert(contextKey, newName)
		}
	}
	delete(s.alerts, from)
	a.Name = newName
	a.Reference.Name = newName
	if a.Bound != nil {
		a.Bound.Name = newName
	}
	s.alerts[to] = a
	s.mu.Unlock()

	s.persist("rename", func(ctx context.Context) error {
		return s.repo.RenameAlert(ctx, contextKey, oldName, newName, true)
	})
	return nil
}

// Remove deletes an alert.
func (s *Scheduler) Remove(contextKey, name string) error {
	s.mu.Lock()
	key := alertKey{contextKey, name}
	if _, ok := s.alerts[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("alert %q: %w", name, ErrNotFound)
	}
	delete(s.alerts, key)
	if s.metrics != nil {
		s.metrics.ForgetAlert(contextKey, name)
	}
	s.mu.Unlock()

	s.persist("delete", func(ctx context.Context) error {
		return s.repo.DeleteAlert(ctx, contextKey, name)
	})
	return nil
}

// RemoveContext deletes every alert bound to a destroyed context and returns
// how many were removed. Alerts watching all contexts are kept.
func (s *Scheduler) RemoveContext(contextKey string) int {
	if contextKey == "" {
		return 0
	}
	s.mu.Lock()
	var removed int
	for key := range s.alerts {
		if key.context == contextKey {
			delete(s.alerts, key)
			if s.metrics != nil {
				s.metrics.ForgetAlert(key.context, key.name)
			}
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Info("removed alerts of destroyed context",
			logger.String("context", contextKey),
			logger.Int("count", removed))
		s.persist("delete_context", func(ctx context.Context) error {
			_, err := s.repo.DeleteContext(ctx, contextKey)
			return err
		})
	}
	return removed
}

// Get returns the status of one alert.
func (s *Scheduler) Get(contextKey, name string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertKey{contextKey, name}]
	if !ok {
		return Status{}, fmt.Errorf("alert %q: %w", name, ErrNotFound)
	}
	return statusOf(a), nil
}

// List returns the status of every alert, or of one context's alerts when
// contextKey is non-nil, ordered by context then name.
func (s *Scheduler) List(contextKey *string) []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.alerts))
	for _, a := range s.sorted() {
		if contextKey != nil && a.ContextKey != *contextKey {
			continue
		}
		out = append(out, statusOf(a))
	}
	return out
}

// Names returns the alert names of one context in order.
func (s *Scheduler) Names(contextKey string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for key := range s.alerts {
		if key.context == contextKey {
			names = append(names, key.name)
		}
	}
	slices.Sort(names)
	return names
}

// Load returns an editable copy of an alert's tree bound to its context.
func (s *Scheduler) Load(contextKey, name string) (*filter.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertKey{contextKey, name}]
	if !ok {
		return nil, fmt.Errorf("alert %q: %w", name, ErrNotFound)
	}
	ctxs := s.targetContexts(a)
	if len(ctxs) == 0 {
		return filter.Clone(a.Reference, nil, s.log), nil
	}
	return filter.Clone(a.Reference, ctxs[0], s.log), nil
}

// SetPriority changes how a firing alert is presented.
func (s *Scheduler) SetPriority(contextKey, name string, p filter.Priority) error {
	return s.update(contextKey, name, func(set *filter.AlertSettings) { set.Priority = p })
}

// SetSustain changes the time in ticks a condition must hold before firing.
func (s *Scheduler) SetSustain(contextKey, name string, ticks int64) error {
	if ticks < 0 {
		return fmt.Errorf("sustain must not be negative: %d", ticks)
	}
	return s.update(contextKey, name, func(set *filter.AlertSettings) { set.SustainTicks = ticks })
}

// SetThreshold changes the count the comparison tests against.
func (s *Scheduler) SetThreshold(contextKey, name string, n int) error {
	if n < 0 {
		return fmt.Errorf("threshold must not be negative: %d", n)
	}
	return s.update(contextKey, name, func(set *filter.AlertSettings) { set.Threshold = n })
}

// SetComparison changes how the count is tested.
func (s *Scheduler) SetComparison(contextKey, name string, c filter.Comparison) error {
	return s.update(contextKey, name, func(set *filter.AlertSettings) { set.Comparison = c })
}

func (s *Scheduler) update(contextKey, name string, fn func(*filter.AlertSettings)) error {
	s.mu.Lock()
	a, ok := s.alerts[alertKey{contextKey, name}]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("alert %q: %w", name, ErrNotFound)
	}
	fn(&a.Reference.Alert)
	normalizeSettings(&a.Reference.Alert)
	if a.Bound != nil {
		a.Bound.Alert = a.Reference.Alert
	}
	row, err := s.toEntity(a)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to encode alert %q: %w", name, err)
	}
	s.persist("update", func(ctx context.Context) error {
		return s.repo.SaveAlert(ctx, row, true)
	})
	return nil
}

// SetPaused records a host pause or resume at tick now. Under PauseFreeze the
// paused span is added to every alert's timer on resume.
func (s *Scheduler) SetPaused(now int64, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	switch {
	case paused && !s.paused:
		s.paused = true
		s.pausedAt = now
	case !paused && s.paused:
		s.paused = false
		if s.pausePolicy != PauseFreeze {
			return
		}
		span := now - s.pausedAt
		for _, a := range s.alerts {
			a.SinceTick += span
		}
		if s.evaluated {
			s.lastEval += span
		}
		s.log.Debug("alert timers shifted by paused span", logger.Int64("ticks", span))
	}
}

// clock returns the tick alert timers are measured against. A freeze holds it
// at the pause tick until resume. Callers hold s.mu.
func (s *Scheduler) clock() int64 {
	if s.paused && s.pausePolicy == PauseFreeze {
		return s.pausedAt
	}
	return s.now
}

// Paused reports whether the host is paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Tick checks every alert when a full period has passed since the last check,
// or on the first call. It returns the reports of that check, or nil when no
// check was due.
func (s *Scheduler) Tick(now int64) []Report {
	s.mu.Lock()
	s.now = now
	if s.paused && s.pausePolicy == PauseFreeze {
		s.mu.Unlock()
		return nil
	}
	if s.evaluated && now-s.lastEval < s.period {
		s.mu.Unlock()
		return nil
	}
	s.evaluated = true
	s.lastEval = now

	reports := make([]Report, 0, len(s.alerts))
	for _, a := range s.sorted() {
		if r, ok := s.check(a, now); ok {
			reports = append(reports, r)
		}
	}
	s.mu.Unlock()

	for _, r := range reports {
		if r.Fired() {
			s.log.Info("alert firing",
				logger.String("alert", r.Name),
				logger.String("context", r.ContextKey),
				logger.Int("count", r.Count),
				logger.String("priority", string(r.Priority)))
			if s.metrics != nil {
				s.metrics.AlertFired(r.Priority)
			}
			s.recordHistory(r)
		}
		if (r.Fired() || r.Cleared()) && s.action != nil {
			s.action(r)
		}
	}
	return reports
}

// check runs the hysteresis step for one alert. Alerts whose context is gone
// are skipped.
func (s *Scheduler) check(a *Alert, now int64) (Report, bool) {
	ctxs := s.targetContexts(a)
	if len(ctxs) == 0 {
		return Report{}, false
	}
	if a.Bound == nil || a.boundTo != ctxs[0].Key() {
		a.Bound = filter.Clone(a.Reference, ctxs[0], s.log)
		a.boundTo = ctxs[0].Key()
	}

	found := s.evaluator.EvaluateContexts(a.Bound, ctxs...)
	set := a.Reference.Alert
	prev := a.State
	a.RunningCount = len(found)

	switch {
	case !Compare(a.RunningCount, set.Comparison, set.Threshold):
		a.SinceTick = now
		a.State = StateIdle
	case now-a.SinceTick >= set.SustainTicks:
		a.State = StateFiring
	default:
		a.State = StatePending
	}

	if s.metrics != nil {
		s.metrics.ObserveAlert(a.ContextKey, a.Name, a.State, a.RunningCount)
	}

	r := Report{
		ContextKey: a.ContextKey,
		Name:       a.Name,
		Previous:   prev,
		State:      a.State,
		Count:      a.RunningCount,
		Priority:   set.Priority,
		Tick:       now,
	}
	if a.State == StateFiring {
		r.Culprits = found[:min(len(found), s.maxCulprits)]
	}
	return r, true
}

func (s *Scheduler) targetContexts(a *Alert) []filter.Context {
	if s.contexts == nil {
		return nil
	}
	if a.ContextKey == "" {
		return s.contexts.Contexts()
	}
	ctx, ok := s.contexts.Context(a.ContextKey)
	if !ok {
		return nil
	}
	return []filter.Context{ctx}
}

func (s *Scheduler) bind(a *Alert) {
	a.Bound, a.boundTo = nil, ""
	if ctxs := s.targetContexts(a); len(ctxs) > 0 {
		a.Bound = filter.Clone(a.Reference, ctxs[0], s.log)
		a.boundTo = ctxs[0].Key()
	}
}

func (s *Scheduler) sorted() []*Alert {
	out := make([]*Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y *Alert) int {
		if c := strings.Compare(x.ContextKey, y.ContextKey); c != 0 {
			return c
		}
		return strings.Compare(x.Name, y.Name)
	})
	return out
}

func statusOf(a *Alert) Status {
	return Status{
		Name:         a.Name,
		ContextKey:   a.ContextKey,
		Base:         a.Reference.Base,
		Settings:     a.Reference.Alert,
		State:        a.State,
		RunningCount: a.RunningCount,
		SinceTick:    a.SinceTick,
	}
}

func normalizeSettings(set *filter.AlertSettings) {
	if set.Priority == "" {
		set.Priority = filter.PriorityMedium
	}
	if set.Comparison == "" {
		set.Comparison = filter.CompareGreaterOrEqual
	}
}

func (s *Scheduler) persist(op string, fn func(ctx context.Context) error) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("failed to persist alert change",
			logger.String("operation", op),
			logger.Error(err))
	}
}

func (s *Scheduler) recordHistory(r Report) {
	if s.repo == nil {
		return
	}
	culprits, err := json.Marshal(culpritLabels(r.Culprits))
	if err != nil {
		s.log.Error("failed to marshal culprits", logger.Error(err))
		culprits = []byte("[]")
	}
	history := &entities.AlertHistory{
		ContextKey: r.ContextKey,
		AlertName:  r.Name,
		FiredAt:    time.Now(),
		FiredTick:  r.Tick,
		Count:      r.Count,
		Priority:   string(r.Priority),
		Culprits:   string(culprits),
	}
	s.persist("history", func(ctx context.Context) error {
		return s.repo.SaveHistory(ctx, history)
	})
}
