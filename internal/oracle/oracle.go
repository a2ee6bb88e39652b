package oracle

import (
	"context"
	"errors"
)

var (
	ErrNoOutput     = errors.New("model produced no image output")
	ErrVideoFailed  = errors.New("video generation failed")
	ErrVideoTimeout = errors.New("video generation timed out")
)

// Image is an input or output image with its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// GenerateRequest is one image-to-image generation call: input images
// plus the assembled prompt.
type GenerateRequest struct {
	Images []Image
	Prompt string
}

// Generator produces a composite image from reference images and a
// prompt. Implementations may stream internally; callers see a single
// result or ErrNoOutput after all fallback attempts.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) ([]byte, error)
}

// Review is the structured judgment of a generated try-on result.
type Review struct {
	AdheresToRequest  bool     `json:"adheres_to_request"`
	VisualAppeal      bool     `json:"visual_appeal"`
	GarmentFit        bool     `json:"garment_fit"`
	RealisticLighting bool     `json:"realistic_lighting"`
	FeedbackAddressed bool     `json:"feedback_addressed"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
}

// ReviewRequest carries the artifact under review plus the context
// the reviewer needs to judge adherence.
type ReviewRequest struct {
	Artifact        Image
	OriginalRequest string
	PriorFeedback   string
}

type Reviewer interface {
	Review(ctx context.Context, req *ReviewRequest) (*Review, error)
}

// Decision is the continue/stop judgment for one refinement
// iteration. Immutable once produced.
type Decision struct {
	ShouldContinue bool   `json:"should_continue"`
	Reason         string `json:"reason"`
}

type Decider interface {
	Decide(ctx context.Context, review *Review, iteration int) (*Decision, error)
}

// VideoRequest describes a rotating-showcase video built from
// reference images.
type VideoRequest struct {
	References  []Image
	Style       string
	Duration    int
	AspectRatio string
}

// VideoStatus is one poll of a long-running video operation.
type VideoStatus struct {
	Done     bool
	VideoURI string
	Err      string
}

// VideoOracle starts a long-running video generation operation and
// polls it by handle. It never cancels the remote work; callers that
// give up on waiting must treat the operation as possibly still
// completing.
type VideoOracle interface {
	Start(ctx context.Context, req *VideoRequest) (string, error)
	Poll(ctx context.Context, handle string) (*VideoStatus, error)
}
