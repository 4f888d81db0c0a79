package sampling

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

// ReasonNoPath is the review reason for used connection points that no
// path connects.
const ReasonNoPath = "no traversable path between used connection points"

// FlagSink receives review flags.
type FlagSink interface {
	AppendReviewFlag(ctx context.Context, flag storage.ReviewFlag) error
}

// HandleMissingPath raises a review flag when both connection points of
// pair are used. An unreachable pair with an unused endpoint is expected
// and produces nothing. It reports whether a flag was written.
func (s *Selector) HandleMissingPath(ctx context.Context, sink FlagSink, runID string, pair Pair) (bool, error) {
	if !pair.BothUsed() {
		s.logger.Debug("no path between unused connection points",
			logging.PocID(pair.Start.Poc.ID), logging.Int64("end_poc_id", pair.End.Poc.ID))
		return false, nil
	}

	flag := storage.ReviewFlag{
		RunID:       runID,
		Reason:      ReasonNoPath,
		ObjectType:  "POC_PAIR",
		Toolset:     pair.Start.Toolset,
		StartPOCID:  pair.Start.Poc.ID,
		EndPOCID:    pair.End.Poc.ID,
		StartNodeID: pair.Start.Poc.NodeID,
		EndNodeID:   pair.End.Poc.NodeID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := sink.AppendReviewFlag(ctx, flag); err != nil {
		return false, fmt.Errorf("failed to store review flag: %w", err)
	}

	s.logger.Info("review flag raised",
		logging.RunID(runID),
		logging.Toolset(pair.Start.Toolset),
		logging.EquipmentID(pair.Start.Equipment.ID),
		logging.PocID(pair.Start.Poc.ID),
		logging.NodeID(pair.Start.Poc.NodeID),
		logging.Int64("end_poc_id", pair.End.Poc.ID),
		logging.Int64("end_node_id", pair.End.Poc.NodeID))
	return true, nil
}
