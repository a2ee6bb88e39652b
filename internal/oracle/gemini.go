package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultImageModel  = "gemini-2.5-flash-image-preview"
	defaultReviewModel = "gemini-2.5-flash"
)

// Config for the Gemini-backed oracles.
type Config struct {
	APIKey      string
	ImageModel  string
	ReviewModel string
}

// Gemini implements Generator, Reviewer and Decider on top of the
// Gemini API.
type Gemini struct {
	client      *genai.Client
	imageModel  string
	reviewModel string
}

func NewGemini(ctx context.Context, cfg *Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	reviewModel := cfg.ReviewModel
	if reviewModel == "" {
		reviewModel = defaultReviewModel
	}

	return &Gemini{client: client, imageModel: imageModel, reviewModel: reviewModel}, nil
}

func contentsFor(req *GenerateRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIME))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// Generate runs the image model in streaming mode first; if no inline
// image arrives it makes a single non-streaming attempt before giving
// up with ErrNoOutput.
func (g *Gemini) Generate(ctx context.Context, req *GenerateRequest) ([]byte, error) {
	contents := contentsFor(req)
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		Temperature:        genai.Ptr[float32](0.4),
	}

	// Streaming failures fall through to the single-shot attempt.
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.imageModel, contents, config) {
		if err != nil {
			break
		}
		if data := inlineImage(resp); data != nil {
			return data, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if data := inlineImage(resp); data != nil {
		return data, nil
	}
	return nil, ErrNoOutput
}

func inlineImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

var reviewSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"adheres_to_request": {Type: genai.TypeBoolean},
		"visual_appeal":      {Type: genai.TypeBoolean},
		"garment_fit":        {Type: genai.TypeBoolean},
		"realistic_lighting": {Type: genai.TypeBoolean},
		"feedback_addressed": {Type: genai.TypeBoolean},
		"issues":             {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"suggestions":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"adheres_to_request", "visual_appeal", "garment_fit", "realistic_lighting"},
}

// Review asks the review model for a structured judgment of the
// generated artifact.
func (g *Gemini) Review(ctx context.Context, req *ReviewRequest) (*Review, error) {
	prompt := fmt.Sprintf("%s\n\nOriginal request: %s", reviewInstruction, req.OriginalRequest)
	if req.PriorFeedback != "" {
		prompt += "\n\nPrior feedback: " + req.PriorFeedback
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(req.Artifact.Data, req.Artifact.MIME),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.reviewModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reviewSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("review failed: %w", err)
	}

	var review Review
	if err := json.Unmarshal([]byte(resp.Text()), &review); err != nil {
		return nil, fmt.Errorf("failed to parse review: %w", err)
	}
	return &review, nil
}

var decisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"should_continue": {Type: genai.TypeBoolean},
		"reason":          {Type: genai.TypeString},
	},
	Required: []string{"should_continue", "reason"},
}

// Decide converts a review into a continue/stop decision.
func (g *Gemini) Decide(ctx context.Context, review *Review, iteration int) (*Decision, error) {
	reviewJSON, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review: %w", err)
	}

	prompt := fmt.Sprintf("%s\n\nIteration: %d\nReview: %s", decideInstruction, iteration, reviewJSON)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.reviewModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   decisionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("decision failed: %w", err)
	}

	var decision Decision
	if err := json.Unmarshal([]byte(resp.Text()), &decision); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	return &decision, nil
}
