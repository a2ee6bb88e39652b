package oracle

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const defaultVideoModel = "veo-3.1-generate-preview"

// Veo implements VideoOracle on top of the Veo long-running video
// API. Operations are tracked by name so callers only ever hold an
// opaque handle.
type Veo struct {
	client *genai.Client
	model  string

	mu  sync.Mutex
	ops map[string]*genai.GenerateVideosOperation
}

func NewVeo(ctx context.Context, apiKey, model string) (*Veo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Veo API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Veo client: %w", err)
	}
	if model == "" {
		model = defaultVideoModel
	}
	return &Veo{client: client, model: model, ops: make(map[string]*genai.GenerateVideosOperation)}, nil
}

// Start submits the showcase video request and returns the operation
// handle. The remote operation keeps running whether or not anyone
// polls it.
func (v *Veo) Start(ctx context.Context, req *VideoRequest) (string, error) {
	refs := make([]*genai.VideoGenerationReferenceImage, 0, len(req.References))
	for _, img := range req.References {
		refs = append(refs, &genai.VideoGenerationReferenceImage{
			Image:         &genai.Image{ImageBytes: img.Data, MIMEType: img.MIME},
			ReferenceType: "asset",
		})
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:     req.AspectRatio,
		DurationSeconds: genai.Ptr[int32](int32(req.Duration)),
		ReferenceImages: refs,
	}

	op, err := v.client.Models.GenerateVideos(ctx, v.model, VideoPrompt(req.Style), nil, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVideoFailed, err)
	}

	v.mu.Lock()
	v.ops[op.Name] = op
	v.mu.Unlock()
	return op.Name, nil
}

// Poll refreshes the operation and reports its current status.
func (v *Veo) Poll(ctx context.Context, handle string) (*VideoStatus, error) {
	v.mu.Lock()
	op, ok := v.ops[handle]
	v.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown video operation: %s", handle)
	}

	op, err := v.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to poll video operation: %w", err)
	}

	v.mu.Lock()
	v.ops[handle] = op
	v.mu.Unlock()

	status := &VideoStatus{Done: op.Done}
	if len(op.Error) > 0 {
		status.Err = fmt.Sprintf("%v", op.Error)
		return status, nil
	}
	if op.Done && op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if video := op.Response.GeneratedVideos[0].Video; video != nil {
			status.VideoURI = video.URI
		}
	}
	return status, nil
}
