package storage

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// OpRecorder receives one observation per store call.
// *metrics.Registry satisfies it.
type OpRecorder interface {
	RecordStorageOperation(operation, status string, duration time.Duration)
}

// Instrumented wraps a Store and reports every call to an OpRecorder.
// Failed calls are also logged.
type Instrumented struct {
	next   Store
	rec    OpRecorder
	logger logging.Logger
}

// NewInstrumented wraps next. A nil recorder returns next unchanged.
func NewInstrumented(next Store, rec OpRecorder, logger logging.Logger) Store {
	if rec == nil {
		return next
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Instrumented{next: next, rec: rec, logger: logger.With(logging.Component("store"))}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.Warn("store operation failed",
			logging.Operation(op),
			logging.Latency(elapsed),
			logging.Error(err))
	}
	s.rec.RecordStorageOperation(op, status, elapsed)
}

func (s *Instrumented) NodesInScope(ctx context.Context, filter network.ScopeFilter) (ids []int64, err error) {
	defer func(start time.Time) { s.observe("nodes_in_scope", start, err) }(time.Now())
	return s.next.NodesInScope(ctx, filter)
}

func (s *Instrumented) LinksBetween(ctx context.Context, nodeIDs []int64) (links []network.Link, err error) {
	defer func(start time.Time) { s.observe("links_between", start, err) }(time.Now())
	return s.next.LinksBetween(ctx, nodeIDs)
}

func (s *Instrumented) LinksFrom(ctx context.Context, nodeIDs []int64) (links []network.Link, err error) {
	defer func(start time.Time) { s.observe("links_from", start, err) }(time.Now())
	return s.next.LinksFrom(ctx, nodeIDs)
}

func (s *Instrumented) LinksInto(ctx context.Context, nodeIDs []int64) (links []network.Link, err error) {
	defer func(start time.Time) { s.observe("links_into", start, err) }(time.Now())
	return s.next.LinksInto(ctx, nodeIDs)
}

func (s *Instrumented) ToolsetsInScope(ctx context.Context, filter network.ScopeFilter) (codes []string, err error) {
	defer func(start time.Time) { s.observe("toolsets_in_scope", start, err) }(time.Now())
	return s.next.ToolsetsInScope(ctx, filter)
}

func (s *Instrumented) EquipmentForToolset(ctx context.Context, toolset string) (eqs []network.Equipment, err error) {
	defer func(start time.Time) { s.observe("equipment_for_toolset", start, err) }(time.Now())
	return s.next.EquipmentForToolset(ctx, toolset)
}

func (s *Instrumented) PocsForEquipment(ctx context.Context, equipmentID int64) (pocs []network.ConnectionPoint, err error) {
	defer func(start time.Time) { s.observe("pocs_for_equipment", start, err) }(time.Now())
	return s.next.PocsForEquipment(ctx, equipmentID)
}

func (s *Instrumented) NodeAttributes(ctx context.Context, nodeIDs []int64) (nodes []network.Node, err error) {
	defer func(start time.Time) { s.observe("node_attributes", start, err) }(time.Now())
	return s.next.NodeAttributes(ctx, nodeIDs)
}

func (s *Instrumented) LinkAttributes(ctx context.Context, linkIDs []int64) (links []network.Link, err error) {
	defer func(start time.Time) { s.observe("link_attributes", start, err) }(time.Now())
	return s.next.LinkAttributes(ctx, linkIDs)
}

func (s *Instrumented) AppendRunRecord(ctx context.Context, rec RunRecord) (err error) {
	defer func(start time.Time) { s.observe("append_run", start, err) }(time.Now())
	return s.next.AppendRunRecord(ctx, rec)
}

func (s *Instrumented) AppendPathDefinition(ctx context.Context, path *paths.Record, pathContext []byte) (id int64, err error) {
	defer func(start time.Time) { s.observe("append_path", start, err) }(time.Now())
	return s.next.AppendPathDefinition(ctx, path, pathContext)
}

func (s *Instrumented) AppendAttempt(ctx context.Context, a Attempt) (err error) {
	defer func(start time.Time) { s.observe("append_attempt", start, err) }(time.Now())
	return s.next.AppendAttempt(ctx, a)
}

func (s *Instrumented) AppendValidationFinding(ctx context.Context, f validation.Finding) (err error) {
	defer func(start time.Time) { s.observe("append_finding", start, err) }(time.Now())
	return s.next.AppendValidationFinding(ctx, f)
}

func (s *Instrumented) AppendReviewFlag(ctx context.Context, flag ReviewFlag) (err error) {
	defer func(start time.Time) { s.observe("append_review_flag", start, err) }(time.Now())
	return s.next.AppendReviewFlag(ctx, flag)
}

func (s *Instrumented) AppendCoverageSummary(ctx context.Context, sum CoverageSummary) (err error) {
	defer func(start time.Time) { s.observe("append_coverage_summary", start, err) }(time.Now())
	return s.next.AppendCoverageSummary(ctx, sum)
}

func (s *Instrumented) AppendRunSummary(ctx context.Context, sum RunSummary) (err error) {
	defer func(start time.Time) { s.observe("append_run_summary", start, err) }(time.Now())
	return s.next.AppendRunSummary(ctx, sum)
}

func (s *Instrumented) PathsForRun(ctx context.Context, runID string) (defs []PathDefinition, err error) {
	defer func(start time.Time) { s.observe("paths_for_run", start, err) }(time.Now())
	return s.next.PathsForRun(ctx, runID)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
