package storage

import "context"

// migrate creates the graph and run tables if they are missing. The graph
// tables are normally owned by the facility model loader; creating them
// here lets an empty database accept fixtures.
func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS nw_nodes (
		id BIGINT PRIMARY KEY,
		fab_no INTEGER NOT NULL DEFAULT 0,
		model_no INTEGER NOT NULL DEFAULT 0,
		phase_no INTEGER NOT NULL DEFAULT 0,
		e2e_group_no INTEGER NOT NULL DEFAULT 0,
		data_code INTEGER NOT NULL DEFAULT 0,
		utility_no INTEGER,
		markers TEXT NOT NULL DEFAULT '',
		is_equipment_logical BOOLEAN NOT NULL DEFAULT FALSE,
		is_equipment_poc BOOLEAN NOT NULL DEFAULT FALSE,
		is_used BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS nw_links (
		id BIGINT PRIMARY KEY,
		start_node_id BIGINT NOT NULL,
		end_node_id BIGINT NOT NULL,
		length DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS equipment (
		id BIGINT PRIMARY KEY,
		toolset TEXT NOT NULL,
		node_id BIGINT NOT NULL,
		category_no INTEGER NOT NULL DEFAULT 0,
		phase_no INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS equipment_pocs (
		id BIGINT PRIMARY KEY,
		equipment_id BIGINT NOT NULL,
		node_id BIGINT NOT NULL,
		utility_no INTEGER,
		markers TEXT NOT NULL DEFAULT '',
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		is_loopback BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_nw_links_start ON nw_links(start_node_id);
	CREATE INDEX IF NOT EXISTS idx_nw_links_end ON nw_links(end_node_id);
	CREATE INDEX IF NOT EXISTS idx_equipment_toolset ON equipment(toolset);
	CREATE INDEX IF NOT EXISTS idx_equipment_pocs_equipment ON equipment_pocs(equipment_id);

	CREATE TABLE IF NOT EXISTS tb_runs (
		run_id TEXT PRIMARY KEY,
		tag TEXT NOT NULL DEFAULT '',
		filters JSONB NOT NULL,
		status TEXT NOT NULL,
		coverage_target DOUBLE PRECISION NOT NULL,
		achieved_coverage DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_nodes INTEGER NOT NULL DEFAULT 0,
		total_links INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		paths_found INTEGER NOT NULL DEFAULT 0,
		unique_paths INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		review_flags INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS tb_path_definitions (
		id BIGSERIAL PRIMARY KEY,
		path_hash TEXT UNIQUE NOT NULL,
		toolset TEXT NOT NULL DEFAULT '',
		nodes BIGINT[] NOT NULL,
		links BIGINT[] NOT NULL,
		start_poc_id BIGINT NOT NULL DEFAULT 0,
		end_poc_id BIGINT NOT NULL DEFAULT 0,
		start_equipment_id BIGINT NOT NULL DEFAULT 0,
		end_equipment_id BIGINT NOT NULL DEFAULT 0,
		total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_length DOUBLE PRECISION NOT NULL DEFAULT 0,
		path_context BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tb_attempt_paths (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		path_definition_id BIGINT NOT NULL REFERENCES tb_path_definitions(id),
		start_node_id BIGINT NOT NULL,
		end_node_id BIGINT NOT NULL,
		cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		attempted_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tb_validation_errors (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		path_definition_id BIGINT,
		code TEXT NOT NULL,
		severity TEXT NOT NULL,
		kind TEXT NOT NULL,
		object_type TEXT NOT NULL,
		object_id BIGINT NOT NULL,
		message TEXT NOT NULL,
		context JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tb_review_flags (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		object_type TEXT NOT NULL,
		toolset TEXT NOT NULL DEFAULT '',
		start_poc_id BIGINT NOT NULL DEFAULT 0,
		end_poc_id BIGINT NOT NULL DEFAULT 0,
		start_node_id BIGINT NOT NULL DEFAULT 0,
		end_node_id BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tb_run_coverage_summary (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		filters JSONB NOT NULL,
		total_nodes INTEGER NOT NULL,
		total_links INTEGER NOT NULL,
		covered_nodes INTEGER NOT NULL,
		covered_links INTEGER NOT NULL,
		node_coverage DOUBLE PRECISION NOT NULL,
		link_coverage DOUBLE PRECISION NOT NULL,
		overall_coverage DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tb_run_summaries (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		summary JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_attempt_paths_run ON tb_attempt_paths(run_id, id);
	CREATE INDEX IF NOT EXISTS idx_validation_errors_run ON tb_validation_errors(run_id);
	CREATE INDEX IF NOT EXISTS idx_review_flags_run ON tb_review_flags(run_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
