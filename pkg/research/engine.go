package research

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/mikeboe/research-flow/pkg/metrics"
)

// Engine drives the fixed stage sequence. It holds no per-run state, so one
// Engine can serve any number of independent runs.
type Engine struct {
	Config     Config
	Completion CompletionService
	Search     SearchService
	Reporter   ErrorReporter
	Logger     *slog.Logger
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

func WithReporter(r ErrorReporter) Option {
	return func(e *Engine) { e.Reporter = r }
}

func NewEngine(cfg Config, completion CompletionService, search SearchService, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, &ConfigurationError{Setting: "completion service", Reason: "is required"}
	}
	if search == nil {
		return nil, &ConfigurationError{Setting: "search service", Reason: "is required"}
	}

	e := &Engine{
		Config:     cfg,
		Completion: completion,
		Search:     search,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes a fresh run for question and returns its final state.
func (e *Engine) Run(ctx context.Context, question string, opts ...RunOption) ResearchState {
	return e.NewRun(question, opts...).Wait(ctx)
}

// Execute runs from an explicit initial state.
func (e *Engine) Execute(ctx context.Context, initial ResearchState, opts ...RunOption) ResearchState {
	return e.NewRunFrom(initial, opts...).Wait(ctx)
}

// Snapshot is the state observed right after Stage ran.
type Snapshot struct {
	Stage Step          `json:"stage"`
	State ResearchState `json:"state"`
}

// Run is a single logical execution. Its stages run at most once no matter
// how many times it is observed or waited on. A Run belongs to the caller that
// created it and must not be reused for another question.
type Run struct {
	engine   *Engine
	initial  ResearchState
	logger   *slog.Logger
	reporter ErrorReporter

	once sync.Once
	done chan struct{}

	mu       sync.Mutex
	history  []Snapshot
	updated  chan struct{} // closed and replaced on every new snapshot
	finished bool
	final    ResearchState
}

type RunOption func(*Run)

// WithRunLogger overrides the logger for one run.
func WithRunLogger(l *slog.Logger) RunOption {
	return func(r *Run) { r.logger = l }
}

// WithRunReporter overrides the error reporter for one run.
func WithRunReporter(rep ErrorReporter) RunOption {
	return func(r *Run) { r.reporter = rep }
}

func (e *Engine) NewRun(question string, opts ...RunOption) *Run {
	return e.NewRunFrom(NewState(question), opts...)
}

func (e *Engine) NewRunFrom(initial ResearchState, opts ...RunOption) *Run {
	r := &Run{
		engine:   e,
		initial:  initial.Clone(),
		logger:   e.Logger,
		reporter: e.Reporter,
		done:     make(chan struct{}),
		updated:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.reporter == nil {
		r.reporter = LogReporter{Logger: r.logger}
	}
	return r
}

// start launches the execution on the first call. ctx only matters to the
// call that triggers it.
func (r *Run) start(ctx context.Context) {
	r.once.Do(func() {
		go r.execute(ctx)
	})
}

// Wait starts the run if needed and blocks until it has finished.
func (r *Run) Wait(ctx context.Context) ResearchState {
	r.start(ctx)
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final.Clone()
}

// Progress yields a snapshot after every stage, starting the run if needed.
// Every call sees the full sequence from the first stage; snapshots already
// recorded are replayed. Breaking out early, or calling Wait from inside the
// loop, does not disturb the run. A cancelled ctx ends the iteration only.
func (r *Run) Progress(ctx context.Context) iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		r.start(ctx)
		for i := 0; ; i++ {
			snap, ok := r.snapshot(ctx, i)
			if !ok || !yield(snap) {
				return
			}
		}
	}
}

// snapshot blocks until the i-th snapshot exists or the run has finished.
func (r *Run) snapshot(ctx context.Context, i int) (Snapshot, bool) {
	for {
		if ctx.Err() != nil {
			return Snapshot{}, false
		}
		r.mu.Lock()
		if i < len(r.history) {
			s := r.history[i]
			r.mu.Unlock()
			return Snapshot{Stage: s.Stage, State: s.State.Clone()}, true
		}
		if r.finished {
			r.mu.Unlock()
			return Snapshot{}, false
		}
		updated := r.updated
		r.mu.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return Snapshot{}, false
		}
	}
}

func (r *Run) record(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, snap)
	close(r.updated)
	r.updated = make(chan struct{})
}

func (r *Run) finish(state ResearchState) {
	r.mu.Lock()
	r.final = state
	r.finished = true
	close(r.updated)
	r.mu.Unlock()
	close(r.done)
}

func (r *Run) stages() [numSteps]Stage {
	cfg := r.engine.Config
	return [numSteps]Stage{
		StepQueryAnalysis: &QueryAnalyser{
			Completion: r.engine.Completion,
			Count:      cfg.QueryCount,
			Logger:     r.logger,
		},
		StepSearchExecution: &SearchExecutor{
			Search:      r.engine.Search,
			Limit:       cfg.ResultsPerQuery,
			Concurrency: cfg.SearchConcurrency,
			Logger:      r.logger,
		},
		StepContentSynthesis: &ContentSynthesiser{
			Completion: r.engine.Completion,
			Logger:     r.logger,
		},
		StepFollowUpGeneration: &FollowUpGenerator{
			Completion: r.engine.Completion,
			Count:      cfg.FollowUpCount,
			Logger:     r.logger,
		},
		StepErrorHandler: &ErrorHandler{Reporter: r.reporter},
	}
}

func (r *Run) execute(ctx context.Context) {
	started := time.Now()
	metrics.RunsStarted.Inc()

	state := r.initial.Clone()
	r.logger.Info("Starting research workflow", "query", state.UserQuery, "step", state.CurrentStep)

	if !state.CurrentStep.Valid() {
		state.Errors = append(state.Errors, fmt.Sprintf("engine: unknown step %s", state.CurrentStep))
		state.CurrentStep = StepErrorHandler
	}

	stages := r.stages()
	for !state.CurrentStep.Terminal() {
		step := state.CurrentStep
		state = r.advance(ctx, stages[step], state)

		r.record(Snapshot{Stage: step, State: state.Clone()})
	}

	status := metrics.StatusSucceeded
	if len(state.Errors) > 0 {
		status = metrics.StatusFailed
	}
	metrics.RunsCompleted.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())
	metrics.SearchResults.Observe(float64(len(state.SearchResults)))

	r.logger.Info("Research workflow completed", "status", status, "errors", len(state.Errors),
		"duration", time.Since(started))
	r.finish(state)
}

// advance runs one stage and applies the transition table. Stages own only
// their output fields; the query, the error log and the tag belong to the
// engine.
func (r *Run) advance(ctx context.Context, stage Stage, state ResearchState) ResearchState {
	step := stage.Step()
	started := time.Now()
	next, err := runStage(ctx, stage, state)
	metrics.StageDuration.WithLabelValues(step.String()).Observe(time.Since(started).Seconds())

	if err != nil && step != StepErrorHandler {
		se := classify(step, err)
		metrics.StageOutcomes.WithLabelValues(step.String(), metrics.OutcomeFailure).Inc()
		r.logger.Error("Stage failed", "stage", step.String(), "kind", se.Kind.String(), "error", se.Err)

		failed := state.Clone()
		failed.Errors = append(failed.Errors, se.Entry())
		failed.CurrentStep = step.Next(true)
		return failed
	}
	if err != nil {
		// The error handler cannot fail the run; it still finishes at Complete.
		r.logger.Error("Error handler failed", "error", err)
		next = state
	}

	metrics.StageOutcomes.WithLabelValues(step.String(), metrics.OutcomeSuccess).Inc()
	out := next.Clone()
	out.UserQuery = state.UserQuery
	out.Errors = cloneOrEmpty(state.Errors)
	out.CurrentStep = step.Next(false)
	return out
}

func runStage(ctx context.Context, stage Stage, state ResearchState) (next ResearchState, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = transportError(stage.Step(), fmt.Errorf("panic: %v", p))
		}
	}()
	return stage.Run(ctx, state.Clone())
}

func classify(step Step, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return transportError(step, err)
}
