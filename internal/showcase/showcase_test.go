package showcase

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/session"
)

type fakeVideo struct {
	started  *oracle.VideoRequest
	startErr error
	statuses []*oracle.VideoStatus
	polls    int
}

func (f *fakeVideo) Start(_ context.Context, req *oracle.VideoRequest) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = req
	return "op-1", nil
}

func (f *fakeVideo) Poll(context.Context, string) (*oracle.VideoStatus, error) {
	status := f.statuses[f.polls]
	if f.polls < len(f.statuses)-1 {
		f.polls++
	}
	return status, nil
}

func testProducer(t *testing.T, video *fakeVideo) *Producer {
	t.Helper()
	tmpDir := t.TempDir()

	store, err := session.NewStoreWithPath(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := session.NewManager(store, filepath.Join(tmpDir, "artifacts"))
	if _, err := mgr.StartNew(context.Background(), ""); err != nil {
		t.Fatalf("StartNew() error = %v", err)
	}

	return &Producer{
		Resolver: artifact.NewResolver(mgr.Artifacts(), filepath.Join(tmpDir, "catalog")),
		Video:    video,
		Session:  mgr,
		Wait:     oracle.WaitOptions{PollInterval: time.Millisecond, MaxWait: time.Second},
		Out:      &bytes.Buffer{},
	}
}

// seedBatch stores fake batch results so the producer has views to
// reference.
func seedBatch(t *testing.T, p *Producer, views ...string) {
	t.Helper()
	batch := &session.BatchResult{Garment: "catalog/1.jpg", Views: make(map[string]ledger.Version)}
	for _, view := range views {
		v := p.Session.Ledger().Commit("tryon_"+view, "png")
		if err := p.Session.Artifacts().Save(v.Filename, []byte(view+"-bytes"), "image/png"); err != nil {
			t.Fatalf("Save(%s) error = %v", v.Filename, err)
		}
		batch.Views[view] = v
	}
	p.Session.State().LatestBatch = batch
}

func TestProducer_Produce(t *testing.T) {
	video := &fakeVideo{statuses: []*oracle.VideoStatus{
		{Done: false},
		{Done: true, VideoURI: "https://example.com/showcase.mp4"},
	}}
	p := testProducer(t, video)
	seedBatch(t, p, "front", "side", "back")

	info, err := p.Produce(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if info.URI != "https://example.com/showcase.mp4" {
		t.Errorf("URI = %s, want the completed video URI", info.URI)
	}
	if info.Duration != 8 || info.AspectRatio != "9:16" || info.Style != "smooth_rotation" {
		t.Errorf("info = %+v, want defaults 8s/9:16/smooth_rotation", info)
	}
	if len(video.started.References) != 3 {
		t.Errorf("Start() got %d references, want 3", len(video.started.References))
	}
	if p.Session.State().LatestVideo != info {
		t.Error("Produce() did not store the video in session state")
	}
}

func TestProducer_Produce_PartialBatch(t *testing.T) {
	video := &fakeVideo{statuses: []*oracle.VideoStatus{{Done: true, VideoURI: "u"}}}
	p := testProducer(t, video)
	seedBatch(t, p, "front", "back")

	if _, err := p.Produce(context.Background(), Options{}); err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if len(video.started.References) != 2 {
		t.Errorf("Start() got %d references, want 2 (partial set tolerated)", len(video.started.References))
	}
}

func TestProducer_Produce_ValidatesBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"bad duration", Options{Duration: 5}, ErrBadDuration},
		{"bad aspect", Options{AspectRatio: "4:3"}, ErrBadAspectRatio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := &fakeVideo{}
			p := testProducer(t, video)
			seedBatch(t, p, "front")

			_, err := p.Produce(context.Background(), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Produce() error = %v, want %v", err, tt.want)
			}
			if video.started != nil {
				t.Error("Start() was called despite invalid options")
			}
		})
	}
}

func TestProducer_Produce_NoBatch(t *testing.T) {
	p := testProducer(t, &fakeVideo{})

	if _, err := p.Produce(context.Background(), Options{}); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Produce() error = %v, want ErrNoBatch", err)
	}
}

func TestProducer_Produce_TimeoutKeepsHandle(t *testing.T) {
	video := &fakeVideo{statuses: []*oracle.VideoStatus{{Done: false}}}
	p := testProducer(t, video)
	p.Wait = oracle.WaitOptions{PollInterval: time.Millisecond, MaxWait: 5 * time.Millisecond}
	seedBatch(t, p, "front")

	info, err := p.Produce(context.Background(), Options{})
	if !errors.Is(err, oracle.ErrVideoTimeout) {
		t.Fatalf("Produce() error = %v, want ErrVideoTimeout", err)
	}
	if info == nil || info.Operation != "op-1" {
		t.Errorf("info = %+v, want operation handle preserved on timeout", info)
	}
	if p.Session.State().LatestVideo == nil {
		t.Error("timed-out Produce() dropped the video descriptor")
	}
}
