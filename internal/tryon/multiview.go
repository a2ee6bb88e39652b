package tryon

import (
	"context"
	"fmt"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/session"
)

// Views is the fixed multiview order. Batch execution and video
// reference assembly both follow it.
var Views = []string{"front", "side", "back"}

// GenerateViews builds a front/side/back view set from one source
// reference. The front view is the source itself; side and back are
// generated rotations, each waiting out the shared cooldown. A failed
// view leaves its slot empty rather than aborting the set.
func (e *Executor) GenerateViews(ctx context.Context, sourceRef string) (*session.Multiview, error) {
	source, err := e.resolve(sourceRef, "person")
	if err != nil {
		return nil, err
	}

	set := &session.Multiview{Source: sourceRef}

	// The front slot keeps the source bytes, so the committed filename
	// carries the source's extension rather than a fixed one.
	front := e.Session.Ledger().Commit("view_front", artifact.ExtForMIME(source.MIME))
	if err := e.Session.Artifacts().Save(front.Filename, source.Data, source.MIME); err != nil {
		return nil, &PersistError{Filename: front.Filename, Err: err}
	}
	if err := e.Session.RecordResult(ctx, front); err != nil {
		return nil, &PersistError{Filename: front.Filename, Err: err}
	}
	set.Front = front.Filename

	var failures []error
	for _, view := range []string{"side", "back"} {
		v, err := e.generate(ctx, []artifact.Artifact{source}, oracle.ViewPrompt(view), "view_"+view, true)
		if err != nil {
			if ctx.Err() != nil {
				return set, ctx.Err()
			}
			failures = append(failures, fmt.Errorf("%s view: %w", view, err))
			continue
		}
		switch view {
		case "side":
			set.Side = v.Filename
		case "back":
			set.Back = v.Filename
		}
	}

	e.Session.State().Multiview = set

	if set.Count() == 1 && len(failures) > 0 {
		return set, fmt.Errorf("all generated views failed: %v", failures)
	}
	return set, nil
}
