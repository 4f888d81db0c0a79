package run

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// validatePaths checks every path stored for the run and persists the
// findings. A path that cannot be read back yields a single integrity
// finding and the pass moves on.
func (o *Orchestrator) validatePaths(ctx context.Context, st *state) error {
	defs, err := o.store.PathsForRun(ctx, st.id)
	if err != nil {
		return fmt.Errorf("failed to load run paths: %w", err)
	}

	timer := logging.StartTimer(st.logger, "path validation", logging.Count(len(defs)))
	v := validation.NewValidator(st.logger)

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			timer.EndError(err)
			return err
		}

		res, err := o.validateDefinition(ctx, st, v, def)
		if err != nil {
			timer.EndError(err)
			return err
		}

		for _, f := range res.Findings {
			if err := o.store.AppendValidationFinding(ctx, f); err != nil {
				timer.EndError(err)
				return fmt.Errorf("failed to store validation finding: %w", err)
			}
			o.recorder.RecordFinding(string(f.Kind), string(f.Severity))
		}

		st.findings += len(res.Findings)
		st.critical += res.Critical
		if res.Passed() {
			st.validated++
		} else {
			st.failed++
		}
		o.recorder.RecordPathValidated(res.Passed())
	}

	timer.AddFields(
		logging.Int("passed", st.validated),
		logging.Int("failed", st.failed),
		logging.Int("findings", st.findings))
	if st.failed > 0 {
		timer.EndWithLevel(logging.WarnLevel, "path validation found failing paths")
		return nil
	}
	timer.End()
	return nil
}

func (o *Orchestrator) validateDefinition(ctx context.Context, st *state, v *validation.Validator, def storage.PathDefinition) (validation.Result, error) {
	rec := def.Path
	if len(def.Context) > 0 {
		pc, err := paths.DecodeContext(def.Context)
		if err != nil {
			f := validation.IntegrityFinding(st.id, def.ID, def.Hash, err)
			return validation.Result{PathID: def.ID, Findings: []validation.Finding{f}, Critical: 1}, nil
		}
		rec = pc.Record()
	}

	nodes, err := o.store.NodeAttributes(ctx, rec.Nodes)
	if err != nil {
		return validation.Result{}, fmt.Errorf("failed to load node attributes for path %d: %w", def.ID, err)
	}
	links, err := o.store.LinkAttributes(ctx, rec.Links)
	if err != nil {
		return validation.Result{}, fmt.Errorf("failed to load link attributes for path %d: %w", def.ID, err)
	}

	res := v.Validate(validation.Annotate(st.id, def.ID, rec, nodes, links))
	for i := range res.Findings {
		res.Findings[i].Context.PathHash = def.Hash
	}
	return res, nil
}
