package oracle

import (
	"context"
	"fmt"
	"time"
)

// WaitOptions bounds a video poll loop.
type WaitOptions struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 15 * time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Minute
	}
	return o
}

// WaitVideo polls the operation until it completes, fails, or the
// bounded wait elapses. Exceeding the bound returns ErrVideoTimeout
// without cancelling the remote operation: the work may still finish,
// so a timeout is distinct from a failure.
func WaitVideo(ctx context.Context, v VideoOracle, handle string, opts WaitOptions) (*VideoStatus, error) {
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.MaxWait)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := v.Poll(ctx, handle)
			if err != nil {
				return nil, err
			}
			if status.Err != "" {
				return status, fmt.Errorf("%w: %s", ErrVideoFailed, status.Err)
			}
			if status.Done {
				return status, nil
			}
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w after %s (operation %s may still complete)",
					ErrVideoTimeout, opts.MaxWait, handle)
			}
		}
	}
}
