package showcase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/session"
)

var (
	ErrNoBatch        = errors.New("no batch try-on results: run a batch first")
	ErrBadDuration    = errors.New("duration must be 4, 6 or 8 seconds")
	ErrBadAspectRatio = errors.New(`aspect ratio must be "9:16" or "16:9"`)
)

// Options configure one showcase video.
type Options struct {
	Style       string
	Duration    int
	AspectRatio string
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = "smooth_rotation"
	}
	if o.Duration == 0 {
		o.Duration = 8
	}
	if o.AspectRatio == "" {
		o.AspectRatio = "9:16"
	}
	return o
}

func (o Options) validate() error {
	switch o.Duration {
	case 4, 6, 8:
	default:
		return fmt.Errorf("%w: got %d", ErrBadDuration, o.Duration)
	}
	switch o.AspectRatio {
	case "9:16", "16:9":
	default:
		return fmt.Errorf("%w: got %q", ErrBadAspectRatio, o.AspectRatio)
	}
	return nil
}

// Producer turns the latest batch try-on into a rotating showcase
// video.
type Producer struct {
	Resolver *artifact.Resolver
	Video    oracle.VideoOracle
	Session  *session.Manager
	Wait     oracle.WaitOptions
	Out      io.Writer
}

// Produce starts a video generation from the latest batch results and
// waits for it within the bounded poll. Options are validated before
// any image is loaded or any remote call is made. A timeout is
// returned as-is: the remote operation may still complete, and the
// operation handle stays in session state so it can be checked later.
func (p *Producer) Produce(ctx context.Context, opts Options) (*session.VideoInfo, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	refs, err := p.loadReferences()
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(p.Out, "Starting %s showcase video (%ds, %s) from %d view(s)...\n",
		opts.Style, opts.Duration, opts.AspectRatio, len(refs))

	handle, err := p.Video.Start(ctx, &oracle.VideoRequest{
		References:  refs,
		Style:       opts.Style,
		Duration:    opts.Duration,
		AspectRatio: opts.AspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	info := &session.VideoInfo{
		Operation:   handle,
		Duration:    opts.Duration,
		AspectRatio: opts.AspectRatio,
		Style:       opts.Style,
	}
	p.Session.State().LatestVideo = info

	status, err := oracle.WaitVideo(ctx, p.Video, handle, p.Wait)
	if err != nil {
		return info, err
	}

	info.URI = status.VideoURI
	fmt.Fprintf(p.Out, "Video ready: %s\n", info.URI)
	return info, nil
}

// loadReferences gathers the batch result images in view order.
// Missing slots are skipped; the batch pointer guarantees at least
// one view succeeded.
func (p *Producer) loadReferences() ([]oracle.Image, error) {
	batch := p.Session.State().LatestBatch
	if batch == nil || len(batch.Views) == 0 {
		return nil, ErrNoBatch
	}

	var refs []oracle.Image
	for _, view := range []string{"front", "side", "back"} {
		v, ok := batch.Views[view]
		if !ok {
			continue
		}
		art, err := p.Resolver.Resolve(v.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s view %s: %w", view, v.Filename, err)
		}
		refs = append(refs, oracle.Image{Data: art.Data, MIME: art.MIME})
	}
	if len(refs) == 0 {
		return nil, ErrNoBatch
	}
	return refs, nil
}
