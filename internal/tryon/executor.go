package tryon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/ratelimit"
	"github.com/manash/tryon/internal/session"
)

// DefaultAsset is the asset name single try-on results are versioned
// under.
const DefaultAsset = "tryon_result"

// Options tune one try-on execution.
type Options struct {
	Garment      oracle.GarmentType
	Instructions string
	// Wait blocks on the shared cooldown instead of failing fast.
	// Batch and multiview runs use it; interactive calls do not.
	Wait bool
}

// Executor runs one try-on: resolve inputs, pass the rate gate, call
// the generator, commit a version, persist the artifact.
type Executor struct {
	Resolver  *artifact.Resolver
	Limiter   *ratelimit.Limiter
	Generator oracle.Generator
	Session   *session.Manager
	// Warn receives advisory notices about generated output, such as
	// an aspect ratio off the requested 9:16. Nil discards them.
	Warn io.Writer
}

func (e *Executor) warn() io.Writer {
	if e.Warn == nil {
		return io.Discard
	}
	return e.Warn
}

// Execute generates a try-on composite of the garment on the person
// and records it as the next version of asset. The checks run in a
// fixed order: inputs are resolved before the rate gate, the gate is
// passed before any version number is consumed, and the version is
// committed only after the model returns image bytes.
func (e *Executor) Execute(ctx context.Context, personRef, garmentRef, asset string, opts Options) (ledger.Version, error) {
	person, err := e.resolve(personRef, "person")
	if err != nil {
		return ledger.Version{}, err
	}
	garment, err := e.resolve(garmentRef, "garment")
	if err != nil {
		return ledger.Version{}, err
	}

	prompt := oracle.TryOnPrompt(opts.Garment, opts.Instructions)
	return e.generate(ctx, []artifact.Artifact{person, garment}, prompt, asset, opts.Wait)
}

func (e *Executor) resolve(ref, role string) (artifact.Artifact, error) {
	art, err := e.Resolver.Resolve(ref)
	if err != nil {
		return artifact.Artifact{}, &MissingInputError{Role: role, Ref: ref}
	}
	return art, nil
}

// generate is the shared gate→call→commit→persist path used by
// Execute and the view generator.
func (e *Executor) generate(ctx context.Context, inputs []artifact.Artifact, prompt, asset string, wait bool) (ledger.Version, error) {
	if wait {
		if err := e.Limiter.AcquireWait(ctx); err != nil {
			return ledger.Version{}, err
		}
	} else if ok, remaining := e.Limiter.TryAcquire(); !ok {
		return ledger.Version{}, &RateLimitError{Remaining: remaining}
	}

	images := make([]oracle.Image, len(inputs))
	for i, in := range inputs {
		images[i] = oracle.Image{Data: in.Data, MIME: in.MIME}
	}

	data, err := e.Generator.Generate(ctx, &oracle.GenerateRequest{Images: images, Prompt: prompt})
	if err != nil {
		return ledger.Version{}, fmt.Errorf("generation failed: %w", err)
	}
	if msg := aspectNotice(data); msg != "" {
		fmt.Fprintln(e.warn(), msg)
	}

	v := e.Session.Ledger().Commit(asset, "png")
	if err := e.Session.Artifacts().Save(v.Filename, data, "image/png"); err != nil {
		return v, &PersistError{Filename: v.Filename, Err: err}
	}
	if err := e.Session.RecordResult(ctx, v); err != nil {
		return v, &PersistError{Filename: v.Filename, Err: err}
	}
	return v, nil
}

// Prompts ask for 9:16 portrait output; deviations beyond the
// tolerance are reported but the result is still committed.
const (
	targetAspect    = 9.0 / 16.0
	aspectTolerance = 0.10
)

// aspectNotice decodes the output dimensions and flags an aspect ratio
// off the requested portrait format. Undecodable bytes pass silently;
// the check is advisory only.
func aspectNotice(data []byte) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Height == 0 {
		return ""
	}
	ratio := float64(cfg.Width) / float64(cfg.Height)
	if math.Abs(ratio-targetAspect)/targetAspect <= aspectTolerance {
		return ""
	}
	return fmt.Sprintf("Warning: output is %dx%d (aspect %.2f), expected 9:16 portrait", cfg.Width, cfg.Height, ratio)
}
