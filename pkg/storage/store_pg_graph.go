package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

const nodeColumns = `id, fab_no, model_no, phase_no, e2e_group_no, data_code, utility_no, markers,
	is_equipment_logical, is_equipment_poc, is_used`

// scopeWhere renders the node-level constraints of f as SQL conditions on
// the given table alias. Placeholders start at $1.
func scopeWhere(f network.ScopeFilter, alias string) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, alias, len(args)))
	}

	if f.FabNo != nil {
		add("%s.fab_no = $%d", *f.FabNo)
	}
	if f.ModelNo != nil {
		add("%s.model_no = $%d", *f.ModelNo)
	}
	if f.PhaseNo != nil {
		add("%s.phase_no = $%d", *f.PhaseNo)
	}
	if len(f.E2EGroupNos) > 0 {
		add("%s.e2e_group_no = ANY($%d)", f.E2EGroupNos)
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// NodesInScope implements GraphStore.
func (s *PGStore) NodesInScope(ctx context.Context, filter network.ScopeFilter) ([]int64, error) {
	where, args := scopeWhere(filter, "n")
	query := `SELECT n.id FROM nw_nodes n WHERE ` + where + ` ORDER BY n.id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, UnavailableError("NodesInScope", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, NewError("NodesInScope").Entity("node", 0).Cause(err).Err()
	}
	return ids, nil
}

func (s *PGStore) queryLinks(ctx context.Context, op, where string, args ...any) ([]network.Link, error) {
	query := `SELECT id, start_node_id, end_node_id, COALESCE(length, 0), COALESCE(cost, 0)
		FROM nw_links WHERE ` + where + ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, UnavailableError(op, err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (network.Link, error) {
		var l network.Link
		err := row.Scan(&l.ID, &l.StartNodeID, &l.EndNodeID, &l.Length, &l.Cost)
		return l, err
	})
	if err != nil {
		return nil, NewError(op).Entity("link", 0).Cause(err).Err()
	}
	return links, nil
}

// LinksBetween implements GraphStore.
func (s *PGStore) LinksBetween(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	return s.queryLinks(ctx, "LinksBetween", `start_node_id = ANY($1) AND end_node_id = ANY($1)`, nodeIDs)
}

// LinksFrom implements GraphStore.
func (s *PGStore) LinksFrom(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	return s.queryLinks(ctx, "LinksFrom", `start_node_id = ANY($1)`, nodeIDs)
}

// LinksInto implements GraphStore.
func (s *PGStore) LinksInto(ctx context.Context, nodeIDs []int64) ([]network.Link, error) {
	return s.queryLinks(ctx, "LinksInto", `end_node_id = ANY($1)`, nodeIDs)
}

// LinkAttributes implements GraphStore.
func (s *PGStore) LinkAttributes(ctx context.Context, linkIDs []int64) ([]network.Link, error) {
	return s.queryLinks(ctx, "LinkAttributes", `id = ANY($1)`, linkIDs)
}

// ToolsetsInScope implements GraphStore.
func (s *PGStore) ToolsetsInScope(ctx context.Context, filter network.ScopeFilter) ([]string, error) {
	where, args := scopeWhere(filter, "n")
	if filter.Toolset != "" {
		args = append(args, filter.Toolset)
		where += fmt.Sprintf(" AND e.toolset = $%d", len(args))
	}
	query := `SELECT DISTINCT e.toolset
		FROM equipment e
		JOIN nw_nodes n ON n.id = e.node_id
		WHERE e.is_active AND e.toolset <> '' AND ` + where + `
		ORDER BY e.toolset`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, UnavailableError("ToolsetsInScope", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, NewError("ToolsetsInScope").Entity("equipment", 0).Cause(err).Err()
	}
	return codes, nil
}

// EquipmentForToolset implements GraphStore.
func (s *PGStore) EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error) {
	query := `SELECT id, toolset, node_id, category_no, phase_no, is_active
		FROM equipment
		WHERE toolset = $1 AND is_active
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, toolset)
	if err != nil {
		return nil, UnavailableError("EquipmentForToolset", err)
	}
	eqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (network.Equipment, error) {
		var e network.Equipment
		err := row.Scan(&e.ID, &e.Toolset, &e.NodeID, &e.CategoryNo, &e.PhaseNo, &e.IsActive)
		return e, err
	})
	if err != nil {
		return nil, NewError("EquipmentForToolset").Entity("equipment", 0).Context(toolset).Cause(err).Err()
	}
	return eqs, nil
}

// PocsForEquipment implements GraphStore.
func (s *PGStore) PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error) {
	query := `SELECT p.id, p.equipment_id, p.node_id, p.utility_no, p.markers, p.is_used, p.is_loopback
		FROM equipment_pocs p
		JOIN equipment e ON e.id = p.equipment_id
		WHERE p.equipment_id = $1 AND e.is_active
		ORDER BY p.id`

	rows, err := s.pool.Query(ctx, query, equipmentID)
	if err != nil {
		return nil, UnavailableError("PocsForEquipment", err)
	}
	pocs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (network.ConnectionPoint, error) {
		var p network.ConnectionPoint
		err := row.Scan(&p.ID, &p.EquipmentID, &p.NodeID, &p.UtilityNo, &p.Markers, &p.IsUsed, &p.IsLoopback)
		return p, err
	})
	if err != nil {
		return nil, NewError("PocsForEquipment").Entity("equipment", equipmentID).Cause(err).Err()
	}
	return pocs, nil
}

// NodeAttributes implements GraphStore. Rows come back in the order of
// nodeIDs.
func (s *PGStore) NodeAttributes(ctx context.Context, nodeIDs []int64) ([]network.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nw_nodes WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, nodeIDs)
	if err != nil {
		return nil, UnavailableError("NodeAttributes", err)
	}
	nodes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (network.Node, error) {
		var n network.Node
		err := row.Scan(&n.ID, &n.FabNo, &n.ModelNo, &n.PhaseNo, &n.E2EGroupNo, &n.DataCode,
			&n.UtilityNo, &n.Markers, &n.IsEquipmentLogical, &n.IsEquipmentPOC, &n.IsUsed)
		return n, err
	})
	if err != nil {
		return nil, NewError("NodeAttributes").Entity("node", 0).Cause(err).Err()
	}

	byID := make(map[int64]network.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	out := make([]network.Node, 0, len(nodes))
	for _, id := range nodeIDs {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}
