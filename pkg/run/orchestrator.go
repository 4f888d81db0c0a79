// Package run drives a coverage-guided sampling run from scope loading
// through path validation to its final status.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-netprobe/pkg/coverage"
	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/metrics"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/pathfind"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/sampling"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// Stop reasons reported in the run summary log.
const (
	StopTargetMet    = "target_met"
	StopExhausted    = "universe_exhausted"
	StopPlateau      = "plateau"
	StopAttemptLimit = "attempt_limit"
)

// Options configures one run.
type Options struct {
	Filter         network.ScopeFilter
	CoverageTarget float64
	Tag            string
	// MaxAttempts bounds the sampling loop; 0 means unbounded.
	MaxAttempts      int
	PlateauThreshold int
	ProgressEvery    int
	Verbose          bool

	Path     pathfind.Options
	Sampling sampling.Options
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// BuildTag labels a run as DATE_APPROACH_METHOD with an optional suffix.
func BuildTag(started time.Time, tag string) string {
	base := started.UTC().Format("20060102") + "_RANDOM_BFS"
	if tag == "" {
		return base
	}
	return base + "_" + tag
}

// Orchestrator executes runs against one store.
type Orchestrator struct {
	store    storage.Store
	logger   logging.Logger
	recorder Recorder
	now      func() time.Time
}

// New creates an orchestrator. A nil logger or recorder discards output.
func New(store storage.Store, logger logging.Logger, recorder Recorder) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Orchestrator{
		store:    store,
		logger:   logger.With(logging.Component("orchestrator")),
		recorder: recorder,
		now:      time.Now,
	}
}

// state is everything one run mutates. Only the run loop touches it.
type state struct {
	id      string
	tag     string
	opts    Options
	machine *stateMachine
	logger  logging.Logger

	tracker  *coverage.Tracker
	selector *sampling.Selector
	finder   *pathfind.Finder
	size     coverage.ScopeSize

	attempts    int
	pathsFound  int
	uniquePaths int
	errors      int
	reviewFlags int
	stopReason  string

	pathNodes  int
	pathLinks  int
	pathLength float64

	validated int
	failed    int
	findings  int
	critical  int

	started time.Time
	ended   time.Time
}

// Run executes a complete run. The returned summary is filled in as far as
// the run progressed, including on failure.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (storage.RunSummary, error) {
	st := o.newState(opts)
	st.logger.Info("run starting",
		logging.String("tag", st.tag),
		logging.String("filter", opts.Filter.Key()),
		logging.Float64("coverage_target", opts.CoverageTarget))

	if err := o.execute(ctx, st); err != nil {
		return o.fail(ctx, st, err), err
	}
	return o.summary(st), nil
}

func (o *Orchestrator) newState(opts Options) *state {
	id := NewRunID()
	started := o.now().UTC()
	logger := o.logger.With(logging.RunID(id))
	return &state{
		id:       id,
		tag:      BuildTag(started, opts.Tag),
		opts:     opts,
		machine:  newStateMachine(),
		logger:   logger,
		tracker:  coverage.NewTracker(o.store, logger),
		selector: sampling.NewSelector(o.store, opts.Sampling, logger),
		finder:   pathfind.NewFinder(o.store, opts.Path, logger),
		started:  started,
	}
}

func (o *Orchestrator) execute(ctx context.Context, st *state) error {
	if err := o.persistRun(ctx, st); err != nil {
		return err
	}
	o.recorder.RecordStatusTransition(string(st.machine.Status()))

	size, err := st.tracker.InitScope(ctx, st.opts.Filter)
	if err != nil {
		return err
	}
	st.size = size
	o.recorder.SetScope(size.TotalNodes, size.TotalLinks)

	universe, err := st.selector.FetchUniverse(ctx, st.opts.Filter)
	if err != nil {
		return err
	}
	if len(universe) == 0 {
		return fmt.Errorf("%w: no toolsets (filter %s)", coverage.ErrEmptyScope, st.opts.Filter.Key())
	}
	st.logger.Info("scope initialized",
		logging.Int("total_nodes", size.TotalNodes),
		logging.Int("total_links", size.TotalLinks),
		logging.Int("toolsets", len(universe)))

	if err := o.sample(ctx, st); err != nil {
		return err
	}

	if err := o.transition(st, storage.StatusSamplingCompleted); err != nil {
		return err
	}
	if err := o.persistRun(ctx, st); err != nil {
		return err
	}
	if err := st.tracker.PersistSummary(ctx, o.store, st.id); err != nil {
		return err
	}

	if err := o.validatePaths(ctx, st); err != nil {
		return err
	}

	final := storage.StatusCompleted
	if !st.tracker.MetTarget(st.opts.CoverageTarget) {
		final = storage.StatusPartial
	}
	if err := o.transition(st, final); err != nil {
		return err
	}
	st.ended = o.now().UTC()
	if err := o.persistRun(ctx, st); err != nil {
		return err
	}
	sum := o.summary(st)
	if err := o.store.AppendRunSummary(ctx, sum); err != nil {
		return fmt.Errorf("failed to store run summary: %w", err)
	}

	o.recorder.RecordRunDuration(sum.Duration())
	stats := st.selector.Stats()
	st.logger.Debug("sampling distribution",
		logging.Int("unique_equipment", stats.UniqueEquipment),
		logging.Int("unique_pocs", stats.UniquePocs),
		logging.Int("max_equipment_attempts", stats.MaxEquipment),
		logging.Int("removed_toolsets", len(stats.RemovedToolsets)))
	st.logger.Info("run finished",
		logging.Status(string(final)),
		logging.String("stop_reason", st.stopReason),
		logging.Coverage(sum.AchievedCoverage),
		logging.Int("attempts", st.attempts),
		logging.Int("unique_paths", st.uniquePaths),
		logging.Int("findings", st.findings),
		logging.Duration("duration", sum.Duration()))
	return nil
}

// sample is the coverage loop. It returns only unrecoverable errors.
func (o *Orchestrator) sample(ctx context.Context, st *state) error {
	for {
		if reason := o.stopReason(st); reason != "" {
			st.stopReason = reason
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		pair, err := st.selector.Next(ctx)
		if errors.Is(err, sampling.ErrExhausted) {
			st.stopReason = StopExhausted
			return nil
		}
		st.attempts++
		if err != nil {
			var rej *sampling.RejectionError
			switch {
			case errors.As(err, &rej):
				if errors.Is(err, sampling.ErrToolsetMismatch) {
					st.errors++
					st.logger.Warn("pair selection abandoned",
						logging.Toolset(rej.Toolset), logging.Error(err))
				}
				o.recorder.RecordAttempt(metrics.OutcomeRejected)
				if st.selector.RecordRejection(rej.Toolset) {
					o.recorder.RecordToolsetRemoved()
				}
				continue
			default:
				return err
			}
		}
		st.selector.RecordSuccess(pair.Start.Toolset)

		if err := o.attempt(ctx, st, pair); err != nil {
			return err
		}
		o.progress(st)
	}
}

func (o *Orchestrator) stopReason(st *state) string {
	switch {
	case st.tracker.MetTarget(st.opts.CoverageTarget):
		return StopTargetMet
	case st.opts.MaxAttempts > 0 && st.attempts >= st.opts.MaxAttempts:
		return StopAttemptLimit
	case st.tracker.Stalled(st.opts.PlateauThreshold):
		return StopPlateau
	}
	return ""
}

// attempt searches one pair and records the outcome.
func (o *Orchestrator) attempt(ctx context.Context, st *state, pair sampling.Pair) error {
	toolsets := []string{pair.Start.Toolset}
	if pair.End.Toolset != pair.Start.Toolset {
		toolsets = append(toolsets, pair.End.Toolset)
	}

	began := time.Now()
	rec, err := st.finder.FindPath(ctx, pair.Start.Poc.NodeID, pair.End.Poc.NodeID, nil, toolsets...)
	if errors.Is(err, pathfind.ErrPathNotFound) {
		o.recorder.RecordPathSearch(time.Since(began), false, 0)
		o.recorder.RecordAttempt(metrics.OutcomeNotFound)
		flagged, err := st.selector.HandleMissingPath(ctx, o.store, st.id, pair)
		if err != nil {
			return err
		}
		if flagged {
			st.reviewFlags++
			o.recorder.RecordReviewFlag()
		}
		return nil
	}
	if err != nil {
		return err
	}
	o.recorder.RecordPathSearch(time.Since(began), true, rec.HopCount())

	rec.Toolset = pair.Start.Toolset
	rec.StartPOCID = pair.Start.Poc.ID
	rec.EndPOCID = pair.End.Poc.ID
	rec.StartEquipmentID = pair.Start.Equipment.ID
	rec.EndEquipmentID = pair.End.Equipment.ID

	st.pathsFound++
	if err := rec.Validate(); err != nil {
		return o.rejectPath(ctx, st, rec, err)
	}
	if !st.tracker.MarkPath(rec) {
		o.recorder.RecordAttempt(metrics.OutcomeRedundant)
		return nil
	}

	if err := o.storeUnique(ctx, st, rec); err != nil {
		return err
	}
	o.recorder.RecordAttempt(metrics.OutcomeUnique)
	snap := st.tracker.Metrics()
	o.recorder.SetCoverage(snap.NodeCoverage, snap.LinkCoverage, snap.OverallCoverage)
	return nil
}

func (o *Orchestrator) storeUnique(ctx context.Context, st *state, rec *paths.Record) error {
	attrs, err := o.store.NodeAttributes(ctx, rec.Nodes)
	if err != nil {
		return fmt.Errorf("failed to load path node attributes: %w", err)
	}
	if _, err := pathfind.StorePathResult(ctx, o.store, st.id, rec, attrs); err != nil {
		return fmt.Errorf("failed to store path: %w", err)
	}

	st.uniquePaths++
	st.pathNodes += len(rec.Nodes)
	st.pathLinks += len(rec.Links)
	st.pathLength += rec.TotalLength
	st.logger.Debug("unique path stored",
		logging.Toolset(rec.Toolset),
		logging.PathHash(rec.Hash()),
		logging.Int("hops", rec.HopCount()),
		logging.Coverage(st.tracker.PercentCovered()))
	return nil
}

// rejectPath turns a malformed discovered path into a critical finding.
// The path marks no coverage and is not stored.
func (o *Orchestrator) rejectPath(ctx context.Context, st *state, rec *paths.Record, cause error) error {
	f := validation.MalformedPathFinding(st.id, rec, cause)
	if err := o.store.AppendValidationFinding(ctx, f); err != nil {
		return fmt.Errorf("failed to store validation finding: %w", err)
	}

	st.findings++
	st.critical++
	o.recorder.RecordAttempt(metrics.OutcomeInvalid)
	o.recorder.RecordFinding(string(f.Kind), string(f.Severity))
	st.logger.Warn("discovered path rejected",
		logging.Toolset(rec.Toolset),
		logging.PathHash(f.Context.PathHash),
		logging.Error(cause))
	return nil
}

func (o *Orchestrator) progress(st *state) {
	every := st.opts.ProgressEvery
	if st.opts.Verbose {
		every = 1
	}
	if every <= 0 || st.attempts%every != 0 {
		return
	}
	st.logger.Info("sampling progress",
		logging.Attempt(st.attempts),
		logging.Coverage(st.tracker.PercentCovered()),
		logging.Int("paths_found", st.pathsFound),
		logging.Int("unique_paths", st.uniquePaths),
		logging.Int("review_flags", st.reviewFlags))
}

func (o *Orchestrator) transition(st *state, to storage.RunStatus) error {
	if err := st.machine.Transition(to); err != nil {
		return err
	}
	o.recorder.RecordStatusTransition(string(to))
	st.logger.Info("run status changed", logging.Status(string(to)))
	return nil
}

func (o *Orchestrator) persistRun(ctx context.Context, st *state) error {
	err := o.store.AppendRunRecord(ctx, storage.RunRecord{
		RunID:            st.id,
		Filter:           st.opts.Filter,
		Tag:              st.tag,
		Status:           st.machine.Status(),
		CoverageTarget:   st.opts.CoverageTarget,
		AchievedCoverage: st.tracker.PercentCovered(),
		TotalNodes:       st.size.TotalNodes,
		TotalLinks:       st.size.TotalLinks,
		Attempts:         st.attempts,
		PathsFound:       st.pathsFound,
		UniquePaths:      st.uniquePaths,
		Errors:           st.errors,
		ReviewFlags:      st.reviewFlags,
		StartedAt:        st.started,
		EndedAt:          st.ended,
	})
	if err != nil {
		return fmt.Errorf("failed to store run record: %w", err)
	}
	return nil
}

// fail moves the run to FAILED and persists what it can. Persistence
// errors are logged, not returned.
func (o *Orchestrator) fail(ctx context.Context, st *state, cause error) storage.RunSummary {
	if !st.machine.Status().Terminal() {
		if err := o.transition(st, storage.StatusFailed); err != nil {
			st.logger.Error("failed to mark run failed", logging.Error(err))
		}
	}
	st.ended = o.now().UTC()
	st.errors++
	st.logger.Error("run failed", logging.Error(cause), logging.Attempt(st.attempts))

	// Persist even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := o.persistRun(ctx, st); err != nil {
		st.logger.Warn("best-effort run record failed", logging.Error(err))
	}
	sum := o.summary(st)
	if err := o.store.AppendRunSummary(ctx, sum); err != nil {
		st.logger.Warn("best-effort run summary failed", logging.Error(err))
	}
	o.recorder.RecordRunDuration(sum.Duration())
	return sum
}

func (o *Orchestrator) summary(st *state) storage.RunSummary {
	sum := storage.RunSummary{
		RunID:            st.id,
		Tag:              st.tag,
		Status:           st.machine.Status(),
		Attempts:         st.attempts,
		PathsFound:       st.pathsFound,
		UniquePaths:      st.uniquePaths,
		Errors:           st.errors,
		ReviewFlags:      st.reviewFlags,
		PathsValidated:   st.validated,
		PathsFailed:      st.failed,
		Findings:         st.findings,
		CriticalFindings: st.critical,
		TargetCoverage:   st.opts.CoverageTarget,
		AchievedCoverage: st.tracker.PercentCovered(),
		Efficiency:       st.tracker.Efficiency(st.opts.CoverageTarget),
		StartedAt:        st.started,
		EndedAt:          st.ended,
	}
	if st.attempts > 0 {
		sum.SuccessRate = float64(st.pathsFound) / float64(st.attempts) * 100
	}
	if st.uniquePaths > 0 {
		n := float64(st.uniquePaths)
		sum.AvgPathNodes = float64(st.pathNodes) / n
		sum.AvgPathLinks = float64(st.pathLinks) / n
		sum.AvgPathLength = st.pathLength / n
	}
	return sum
}
