package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// AppendRunRecord implements Sink as an upsert on run_id.
func (s *PGStore) AppendRunRecord(ctx context.Context, rec RunRecord) error {
	filtersJSON, err := json.Marshal(rec.Filter)
	if err != nil {
		return NewError("AppendRunRecord").Run(rec.RunID).Field("filters").Cause(errors.Join(ErrMarshalFailed, err)).Err()
	}

	now := time.Now().UTC()
	started := rec.StartedAt
	if started.IsZero() {
		started = now
	}

	query := `
		INSERT INTO tb_runs (run_id, tag, filters, status, coverage_target, achieved_coverage,
			total_nodes, total_links, attempts, paths_found, unique_paths, errors, review_flags,
			started_at, updated_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (run_id) DO UPDATE SET
			tag = EXCLUDED.tag,
			status = EXCLUDED.status,
			achieved_coverage = EXCLUDED.achieved_coverage,
			total_nodes = EXCLUDED.total_nodes,
			total_links = EXCLUDED.total_links,
			attempts = EXCLUDED.attempts,
			paths_found = EXCLUDED.paths_found,
			unique_paths = EXCLUDED.unique_paths,
			errors = EXCLUDED.errors,
			review_flags = EXCLUDED.review_flags,
			updated_at = EXCLUDED.updated_at,
			ended_at = EXCLUDED.ended_at
	`

	_, err = s.pool.Exec(ctx, query,
		rec.RunID,
		rec.Tag,
		filtersJSON,
		string(rec.Status),
		rec.CoverageTarget,
		rec.AchievedCoverage,
		rec.TotalNodes,
		rec.TotalLinks,
		rec.Attempts,
		rec.PathsFound,
		rec.UniquePaths,
		rec.Errors,
		rec.ReviewFlags,
		started,
		now,
		nullTime(rec.EndedAt),
	)
	if err != nil {
		return UnavailableError("AppendRunRecord", err)
	}
	return nil
}

// AppendPathDefinition implements Sink. A conflicting hash returns the
// existing row's id.
func (s *PGStore) AppendPathDefinition(ctx context.Context, path *paths.Record, pathContext []byte) (int64, error) {
	if err := path.Validate(); err != nil {
		return 0, NewError("AppendPathDefinition").Path("").Cause(err).Err()
	}
	hash := path.Hash()

	query := `
		INSERT INTO tb_path_definitions (path_hash, toolset, nodes, links, start_poc_id, end_poc_id,
			start_equipment_id, end_equipment_id, total_cost, total_length, path_context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (path_hash) DO UPDATE SET path_hash = EXCLUDED.path_hash
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		hash,
		path.Toolset,
		path.Nodes,
		path.Links,
		path.StartPOCID,
		path.EndPOCID,
		path.StartEquipmentID,
		path.EndEquipmentID,
		path.TotalCost,
		path.TotalLength,
		pathContext,
	).Scan(&id)
	if err != nil {
		return 0, UnavailableError("AppendPathDefinition", err)
	}
	return id, nil
}

// AppendAttempt implements Sink.
func (s *PGStore) AppendAttempt(ctx context.Context, a Attempt) error {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tb_attempt_paths (run_id, path_definition_id, start_node_id, end_node_id, cost, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query, a.RunID, a.PathDefinitionID, a.StartNodeID, a.EndNodeID, a.Cost, a.AttemptedAt)
	if err != nil {
		return UnavailableError("AppendAttempt", err)
	}
	return nil
}

// AppendValidationFinding implements Sink.
func (s *PGStore) AppendValidationFinding(ctx context.Context, f validation.Finding) error {
	contextJSON, err := json.Marshal(f.Context)
	if err != nil {
		return NewError("AppendValidationFinding").Run(f.RunID).Field("context").Cause(errors.Join(ErrMarshalFailed, err)).Err()
	}

	query := `
		INSERT INTO tb_validation_errors (run_id, path_definition_id, code, severity, kind,
			object_type, object_id, message, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		f.RunID,
		f.PathID,
		f.Code,
		string(f.Severity),
		string(f.Kind),
		string(f.ObjectType),
		f.ObjectID,
		f.Message,
		contextJSON,
	)
	if err != nil {
		return UnavailableError("AppendValidationFinding", err)
	}
	return nil
}

// AppendReviewFlag implements Sink.
func (s *PGStore) AppendReviewFlag(ctx context.Context, flag ReviewFlag) error {
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tb_review_flags (run_id, reason, object_type, toolset, start_poc_id, end_poc_id,
			start_node_id, end_node_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		flag.RunID,
		flag.Reason,
		flag.ObjectType,
		flag.Toolset,
		flag.StartPOCID,
		flag.EndPOCID,
		flag.StartNodeID,
		flag.EndNodeID,
		flag.CreatedAt,
	)
	if err != nil {
		return UnavailableError("AppendReviewFlag", err)
	}
	return nil
}

// AppendCoverageSummary implements Sink.
func (s *PGStore) AppendCoverageSummary(ctx context.Context, sum CoverageSummary) error {
	filtersJSON, err := json.Marshal(sum.Filter)
	if err != nil {
		return NewError("AppendCoverageSummary").Run(sum.RunID).Field("filters").Cause(errors.Join(ErrMarshalFailed, err)).Err()
	}
	if sum.RecordedAt.IsZero() {
		sum.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tb_run_coverage_summary (run_id, filters, total_nodes, total_links, covered_nodes,
			covered_links, node_coverage, link_coverage, overall_coverage, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		sum.RunID,
		filtersJSON,
		sum.TotalNodes,
		sum.TotalLinks,
		sum.CoveredNodes,
		sum.CoveredLinks,
		sum.NodeCoverage,
		sum.LinkCoverage,
		sum.OverallCoverage,
		sum.RecordedAt,
	)
	if err != nil {
		return UnavailableError("AppendCoverageSummary", err)
	}
	return nil
}

// AppendRunSummary implements Sink. The summary is stored as a JSON
// document keyed by run.
func (s *PGStore) AppendRunSummary(ctx context.Context, sum RunSummary) error {
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return NewError("AppendRunSummary").Run(sum.RunID).Cause(errors.Join(ErrMarshalFailed, err)).Err()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tb_run_summaries (run_id, summary) VALUES ($1, $2)`,
		sum.RunID, summaryJSON)
	if err != nil {
		return UnavailableError("AppendRunSummary", err)
	}
	return nil
}

// PathsForRun implements PathReader.
func (s *PGStore) PathsForRun(ctx context.Context, runID string) ([]PathDefinition, error) {
	query := `
		SELECT d.id, d.path_hash, d.toolset, d.nodes, d.links, d.start_poc_id, d.end_poc_id,
			d.start_equipment_id, d.end_equipment_id, d.total_cost, d.total_length,
			d.path_context, d.created_at
		FROM tb_path_definitions d
		JOIN (
			SELECT path_definition_id, MIN(id) AS first_attempt
			FROM tb_attempt_paths
			WHERE run_id = $1
			GROUP BY path_definition_id
		) a ON a.path_definition_id = d.id
		ORDER BY a.first_attempt
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, UnavailableError("PathsForRun", err)
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PathDefinition, error) {
		var d PathDefinition
		p := &d.Path
		err := row.Scan(&d.ID, &d.Hash, &p.Toolset, &p.Nodes, &p.Links, &p.StartPOCID, &p.EndPOCID,
			&p.StartEquipmentID, &p.EndEquipmentID, &p.TotalCost, &p.TotalLength,
			&d.Context, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return nil, NewError("PathsForRun").Run(runID).Cause(err).Err()
	}
	return defs, nil
}
