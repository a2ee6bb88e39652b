package tryon

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/ratelimit"
	"github.com/manash/tryon/internal/session"
)

type fakeGenerator struct {
	calls       int
	prompts     []string
	imageCounts []int
	data        []byte
	errOn       map[int]error // 1-based call number -> error
}

func (f *fakeGenerator) Generate(ctx context.Context, req *oracle.GenerateRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	f.imageCounts = append(f.imageCounts, len(req.Images))
	if err, ok := f.errOn[f.calls]; ok {
		return nil, err
	}
	if f.data != nil {
		return f.data, nil
	}
	return []byte("generated-image"), nil
}

func testExecutor(t *testing.T, gen *fakeGenerator, limiter *ratelimit.Limiter) (*Executor, string) {
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

	catalogDir := filepath.Join(tmpDir, "catalog")
	if err := os.MkdirAll(catalogDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(catalogDir, "1.jpg"), []byte("garment-bytes"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if limiter == nil {
		limiter = ratelimit.New(0)
	}
	exec := &Executor{
		Resolver:  artifact.NewResolver(mgr.Artifacts(), catalogDir),
		Limiter:   limiter,
		Generator: gen,
		Session:   mgr,
	}
	return exec, catalogDir
}

func uploadReference(t *testing.T, exec *Executor) string {
	t.Helper()
	ref, err := exec.Session.RegisterReference(context.Background(), []byte("person-bytes"), "image/png")
	if err != nil {
		t.Fatalf("RegisterReference() error = %v", err)
	}
	return ref.Filename
}

func TestExecutor_Execute(t *testing.T) {
	gen := &fakeGenerator{}
	exec, _ := testExecutor(t, gen, nil)
	person := uploadReference(t, exec)

	v, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if v.Filename != "tryon_result_v1.png" {
		t.Errorf("Execute() filename = %s, want tryon_result_v1.png", v.Filename)
	}

	art, err := exec.Session.Artifacts().Load(v.Filename)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", v.Filename, err)
	}
	if string(art.Data) != "generated-image" {
		t.Errorf("saved artifact = %q, want generated-image", art.Data)
	}

	if exec.Session.State().LastGenerated == nil {
		t.Error("Execute() did not update the latest-result pointer")
	}
	if got := exec.Limiter.Stats().TotalCalls; got != 1 {
		t.Errorf("limiter TotalCalls = %d, want 1", got)
	}
}

func TestExecutor_Execute_VersionsAdvance(t *testing.T) {
	gen := &fakeGenerator{}
	exec, _ := testExecutor(t, gen, nil)
	person := uploadReference(t, exec)

	for i := 1; i <= 3; i++ {
		v, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{})
		if err != nil {
			t.Fatalf("Execute() #%d error = %v", i, err)
		}
		if v.Number != i {
			t.Errorf("Execute() #%d version = %d, want %d", i, v.Number, i)
		}
	}
}

func TestExecutor_Execute_MissingPerson(t *testing.T) {
	exec, _ := testExecutor(t, &fakeGenerator{}, nil)

	_, err := exec.Execute(context.Background(), "nope.png", "catalog/1.jpg", DefaultAsset, Options{})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("Execute() error = %v, want MissingInputError", err)
	}
	if missing.Role != "person" || missing.Ref != "nope.png" {
		t.Errorf("MissingInputError = %+v, want person/nope.png", missing)
	}
}

func TestExecutor_Execute_MissingGarment(t *testing.T) {
	gen := &fakeGenerator{}
	exec, _ := testExecutor(t, gen, nil)
	person := uploadReference(t, exec)

	_, err := exec.Execute(context.Background(), person, "catalog/99.jpg", DefaultAsset, Options{})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("Execute() error = %v, want MissingInputError", err)
	}
	if missing.Role != "garment" {
		t.Errorf("MissingInputError.Role = %s, want garment", missing.Role)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times with missing input, want 0", gen.calls)
	}
}

func TestExecutor_Execute_RateLimited(t *testing.T) {
	gen := &fakeGenerator{}
	limiter := ratelimit.New(time.Hour)
	limiter.RecordCall()
	exec, _ := testExecutor(t, gen, limiter)
	person := uploadReference(t, exec)

	_, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Execute() error = %v, want RateLimitError", err)
	}
	if rateErr.Remaining <= 0 {
		t.Errorf("RateLimitError.Remaining = %v, want > 0", rateErr.Remaining)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times while rate limited, want 0", gen.calls)
	}
	if got := exec.Session.Ledger().NextVersion(DefaultAsset); got != 1 {
		t.Errorf("NextVersion = %d after rate-limited call, want 1 (no version consumed)", got)
	}
}

func TestExecutor_Execute_GenerationFailureConsumesNoVersion(t *testing.T) {
	gen := &fakeGenerator{errOn: map[int]error{1: oracle.ErrNoOutput}}
	exec, _ := testExecutor(t, gen, nil)
	person := uploadReference(t, exec)

	_, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{})
	if !errors.Is(err, oracle.ErrNoOutput) {
		t.Fatalf("Execute() error = %v, want ErrNoOutput", err)
	}
	if got := exec.Session.Ledger().NextVersion(DefaultAsset); got != 1 {
		t.Errorf("NextVersion = %d after failed generation, want 1", got)
	}
}

// encodePNG renders a blank image of the given dimensions so aspect
// checks see real decodable bytes.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestExecutor_Execute_OffAspectWarns(t *testing.T) {
	gen := &fakeGenerator{data: encodePNG(t, 100, 100)}
	exec, _ := testExecutor(t, gen, nil)
	var warnings bytes.Buffer
	exec.Warn = &warnings
	person := uploadReference(t, exec)

	v, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(warnings.String(), "expected 9:16") {
		t.Errorf("warning output = %q, want aspect notice", warnings.String())
	}
	if !strings.Contains(warnings.String(), "100x100") {
		t.Errorf("warning output = %q, want dimensions", warnings.String())
	}
	// The check is advisory: the result is still committed and saved.
	if _, err := exec.Session.Artifacts().Load(v.Filename); err != nil {
		t.Errorf("Load(%s) error = %v, want saved artifact", v.Filename, err)
	}
}

func TestExecutor_Execute_PortraitAspectSilent(t *testing.T) {
	gen := &fakeGenerator{data: encodePNG(t, 90, 160)}
	exec, _ := testExecutor(t, gen, nil)
	var warnings bytes.Buffer
	exec.Warn = &warnings
	person := uploadReference(t, exec)

	if _, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if warnings.Len() != 0 {
		t.Errorf("warning output = %q, want none for 9:16 output", warnings.String())
	}
}

func TestExecutor_Execute_UndecodableOutputSilent(t *testing.T) {
	gen := &fakeGenerator{} // returns non-image bytes
	exec, _ := testExecutor(t, gen, nil)
	var warnings bytes.Buffer
	exec.Warn = &warnings
	person := uploadReference(t, exec)

	if _, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if warnings.Len() != 0 {
		t.Errorf("warning output = %q, want none for undecodable bytes", warnings.String())
	}
}

func TestExecutor_Execute_GarmentHintInPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	exec, _ := testExecutor(t, gen, nil)
	person := uploadReference(t, exec)

	_, err := exec.Execute(context.Background(), person, "catalog/1.jpg", DefaultAsset, Options{
		Garment: oracle.GarmentShortSleeve,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(gen.prompts[0], "SHORT-SLEEVE") {
		t.Errorf("prompt missing garment hint: %q", gen.prompts[0])
	}
}
