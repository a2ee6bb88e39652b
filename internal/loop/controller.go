package loop

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/session"
	"github.com/manash/tryon/internal/tryon"
)

// Reason explains why a refinement run stopped.
type Reason string

const (
	// ReasonApproved means the decider judged the result good enough.
	ReasonApproved Reason = "approved"
	// ReasonIterationCap means the bound was reached. The cap wins
	// over everything, including a decider vote to continue.
	ReasonIterationCap Reason = "iteration cap reached"
)

// Request describes what the refinement loop should produce.
type Request struct {
	Person  string
	Garment string
	Asset   string
	// Intent is the user's description of what they asked for. It is
	// captured once and stays stable across iterations so the reviewer
	// always judges against the original request.
	Intent  string
	Options tryon.Options
}

// Outcome summarizes a finished run.
type Outcome struct {
	Iterations int
	Final      *ledger.Version
	Review     *oracle.Review
	Decision   *oracle.Decision
	Reason     Reason
	// DecisionMissing marks that at least one iteration proceeded on
	// the permissive default because the decider produced nothing
	// usable.
	DecisionMissing bool
}

// Controller drives the bounded generate -> review -> decide loop.
type Controller struct {
	Executor *tryon.Executor
	Reviewer oracle.Reviewer
	Decider  oracle.Decider

	// MaxIterations bounds the loop; zero means the default of 1.
	MaxIterations int
	Out           io.Writer
}

const defaultMaxIterations = 1

// Run executes refinement iterations until the decider approves the
// result or the iteration cap is hit. Loop state is reset on every
// exit path so a later run never inherits stale feedback.
func (c *Controller) Run(ctx context.Context, req *Request) (*Outcome, error) {
	state := c.Executor.Session.State()
	defer state.ResetLoop()

	max := c.MaxIterations
	if max <= 0 {
		max = defaultMaxIterations
	}
	asset := req.Asset
	if asset == "" {
		asset = tryon.DefaultAsset
	}

	if !state.Loop.DeepThinkMode {
		state.Loop = session.LoopState{DeepThinkMode: true, OriginalPrompt: req.Intent}
	}

	outcome := &Outcome{}
	for {
		state.Loop.Iteration++
		iter := state.Loop.Iteration
		outcome.Iterations = iter
		fmt.Fprintf(c.Out, "Iteration %d/%d\n", iter, max)

		genErr := c.iterate(ctx, req, asset, outcome)
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		if genErr != nil {
			fmt.Fprintf(c.Out, "  generation failed: %v\n", genErr)
		}

		decision := c.decide(ctx, outcome)
		state.Loop.Decision = decision
		outcome.Decision = decision

		stop := !decision.ShouldContinue
		if stop && genErr != nil && iter == 1 {
			// A stop vote with nothing produced on the first pass is
			// meaningless; give the generator one more chance if the
			// cap allows it.
			stop = false
		}
		if stop {
			outcome.Reason = ReasonApproved
			break
		}
		if iter >= max {
			outcome.Reason = ReasonIterationCap
			break
		}
		fmt.Fprintf(c.Out, "  continuing: %s\n", decision.Reason)
	}

	c.summarize(outcome)
	return outcome, nil
}

// iterate runs the generate and review steps of one pass, updating
// the loop state's feedback for the next pass.
func (c *Controller) iterate(ctx context.Context, req *Request, asset string, outcome *Outcome) error {
	state := c.Executor.Session.State()

	opts := req.Options
	opts.Wait = true
	if state.Loop.PreviousFeedback != "" {
		opts.Instructions = joinInstructions(opts.Instructions,
			"Address this feedback from the previous attempt: "+state.Loop.PreviousFeedback)
	}

	v, err := c.Executor.Execute(ctx, req.Person, req.Garment, asset, opts)
	if err != nil {
		return err
	}
	outcome.Final = &v
	fmt.Fprintf(c.Out, "  generated %s\n", v.Filename)

	art, err := c.Executor.Session.Artifacts().Load(v.Filename)
	if err != nil {
		return fmt.Errorf("failed to load generated artifact for review: %w", err)
	}

	review, err := c.Reviewer.Review(ctx, &oracle.ReviewRequest{
		Artifact:        oracle.Image{Data: art.Data, MIME: art.MIME},
		OriginalRequest: state.Loop.OriginalPrompt,
		PriorFeedback:   state.Loop.PreviousFeedback,
	})
	if err != nil {
		fmt.Fprintf(c.Out, "  review failed: %v\n", err)
		return nil
	}

	state.Loop.Review = review
	outcome.Review = review
	state.Loop.PreviousFeedback = feedbackFrom(review)
	return nil
}

// decide asks the decider for a continue/stop verdict. A missing or
// failed decision falls back to continuing, tagged on the outcome so
// the permissive default is visible.
func (c *Controller) decide(ctx context.Context, outcome *Outcome) *oracle.Decision {
	state := c.Executor.Session.State()

	if state.Loop.Review != nil {
		decision, err := c.Decider.Decide(ctx, state.Loop.Review, state.Loop.Iteration)
		if err == nil && decision != nil {
			return decision
		}
		if err != nil {
			fmt.Fprintf(c.Out, "  decision failed: %v\n", err)
		}
	}

	outcome.DecisionMissing = true
	return &oracle.Decision{ShouldContinue: true, Reason: "continue, no decision found"}
}

func (c *Controller) summarize(outcome *Outcome) {
	fmt.Fprintf(c.Out, "Refinement finished after %d iteration(s): %s\n", outcome.Iterations, outcome.Reason)
	if outcome.Final != nil {
		fmt.Fprintf(c.Out, "  final result: %s (v%d)\n", outcome.Final.Filename, outcome.Final.Number)
	} else {
		fmt.Fprintln(c.Out, "  no result was produced")
	}
	if outcome.Decision != nil && outcome.Decision.Reason != "" {
		fmt.Fprintf(c.Out, "  decider: %s\n", outcome.Decision.Reason)
	}
}

func feedbackFrom(review *oracle.Review) string {
	parts := append([]string{}, review.Issues...)
	parts = append(parts, review.Suggestions...)
	return strings.Join(parts, "; ")
}

func joinInstructions(base, extra string) string {
	if base == "" {
		return extra
	}
	return base + " " + extra
}
