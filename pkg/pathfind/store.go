package pathfind

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

// PathSink persists discovered paths.
type PathSink interface {
	AppendPathDefinition(ctx context.Context, path *paths.Record, pathContext []byte) (int64, error)
	AppendAttempt(ctx context.Context, a storage.Attempt) error
}

// StorePathResult stores the path definition (once per hash) and records
// the run's attempt against it. attrs supplies node attributes for the
// encoded context and may be empty.
func StorePathResult(ctx context.Context, sink PathSink, runID string, rec *paths.Record, attrs []network.Node) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	blob, err := paths.EncodeContext(paths.NewContext(rec, attrs))
	if err != nil {
		return 0, fmt.Errorf("failed to encode path context: %w", err)
	}

	id, err := sink.AppendPathDefinition(ctx, rec, blob)
	if err != nil {
		return 0, err
	}

	err = sink.AppendAttempt(ctx, storage.Attempt{
		RunID:            runID,
		PathDefinitionID: id,
		StartNodeID:      rec.StartNode(),
		EndNodeID:        rec.EndNode(),
		Cost:             rec.TotalCost,
		AttemptedAt:      time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
