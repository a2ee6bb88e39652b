package tryon

import (
	"context"
	"fmt"
	"strings"

	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/session"
)

// BatchReport is the outcome of a multiview batch try-on: per-view
// results or failure messages, with counts so partial success is
// visible at a glance.
type BatchReport struct {
	Garment   string
	Attempted int
	Succeeded int
	Results   map[string]ledger.Version
	Failures  map[string]string
}

func (r *BatchReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch try-on (%s): %d/%d views succeeded\n", r.Garment, r.Succeeded, r.Attempted)
	for _, view := range Views {
		if v, ok := r.Results[view]; ok {
			fmt.Fprintf(&b, "  %-5s -> %s\n", view, v.Filename)
		} else if msg, ok := r.Failures[view]; ok {
			fmt.Fprintf(&b, "  %-5s -> FAILED: %s\n", view, msg)
		}
	}
	return b.String()
}

// ExecuteBatch applies one garment to every filled slot of a
// multiview set, front then side then back. Views run serially since
// every call shares the cooldown gate. A failed view is recorded and
// the batch moves on; the latest-batch pointer is set only when at
// least one view succeeded.
func (e *Executor) ExecuteBatch(ctx context.Context, garmentRef string, set *session.Multiview, opts Options) (*BatchReport, error) {
	if set == nil || set.Count() == 0 {
		return nil, fmt.Errorf("no multiview set available: generate views first")
	}

	report := &BatchReport{
		Garment:  garmentRef,
		Results:  make(map[string]ledger.Version),
		Failures: make(map[string]string),
	}

	opts.Wait = true
	for _, view := range Views {
		personRef := set.View(view)
		if personRef == "" {
			continue
		}
		report.Attempted++

		instructions := opts.Instructions
		if hint := viewInstruction(view); hint != "" {
			if instructions != "" {
				instructions += " "
			}
			instructions += hint
		}

		v, err := e.Execute(ctx, personRef, garmentRef, "tryon_"+view, Options{
			Garment:      opts.Garment,
			Instructions: instructions,
			Wait:         true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures[view] = err.Error()
			continue
		}
		report.Succeeded++
		report.Results[view] = v
	}

	if report.Succeeded > 0 {
		e.Session.State().LatestBatch = &session.BatchResult{
			Garment: garmentRef,
			Views:   report.Results,
		}
	}
	return report, nil
}

// viewInstruction tells the model which angle the person image shows
// so the garment is rendered consistently across the set.
func viewInstruction(view string) string {
	switch view {
	case "side":
		return "This is the side view of the person. Render the garment from the same side angle."
	case "back":
		return "This is the back view of the person. Render the garment from behind."
	}
	return ""
}
