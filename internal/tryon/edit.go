package tryon

import (
	"context"
	"fmt"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/oracle"
)

// LatestReference selects the newest uploaded reference image when
// passed as EditRequest.Reference.
const LatestReference = "latest"

// EditRequest describes a prompt-driven revision of a generated
// artifact.
type EditRequest struct {
	// Asset whose latest version is edited. Empty selects the asset
	// most recently generated in the session.
	Asset string
	// Instructions describe the change to apply.
	Instructions string
	// Reference optionally names an extra image to guide the edit.
	// LatestReference picks the newest upload.
	Reference string
	// Wait blocks on the shared cooldown instead of failing fast.
	Wait bool
}

// Edit revises the latest version of an asset per the instructions and
// commits the result as that asset's next version, through the same
// gate→generate→commit path as a fresh try-on. A reference image that
// cannot be resolved is reported as a warning and the edit proceeds
// without it.
func (e *Executor) Edit(ctx context.Context, req EditRequest) (ledger.Version, error) {
	asset := req.Asset
	if asset == "" {
		asset = e.Session.State().CurrentAsset
	}
	if asset == "" {
		asset = DefaultAsset
	}

	current, ok := e.Session.Ledger().Current(asset)
	if !ok {
		return ledger.Version{}, &MissingInputError{Role: "edit target", Ref: asset}
	}
	target, err := e.Session.Artifacts().Load(current.Filename)
	if err != nil {
		return ledger.Version{}, &MissingInputError{Role: "edit target", Ref: current.Filename}
	}

	inputs := []artifact.Artifact{target}
	if req.Reference != "" {
		ref := req.Reference
		if ref == LatestReference {
			ref = e.Session.State().LatestReference
		}
		if art, refErr := e.resolve(ref, "reference"); refErr != nil {
			fmt.Fprintf(e.warn(), "Warning: reference image %q not found, editing without it\n", req.Reference)
		} else {
			inputs = append(inputs, art)
		}
	}

	return e.generate(ctx, inputs, oracle.EditPrompt(req.Instructions), asset, req.Wait)
}
