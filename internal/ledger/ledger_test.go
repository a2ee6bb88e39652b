package ledger

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		asset   string
		version int
		ext     string
		want    string
	}{
		{"tryon_result", 3, "png", "tryon_result_v3.png"},
		{"tryon_result", 1, "", "tryon_result_v1.png"},
		{"reference_image", 2, "jpg", "reference_image_v2.jpg"},
	}

	for _, tt := range tests {
		if got := Filename(tt.asset, tt.version, tt.ext); got != tt.want {
			t.Errorf("Filename(%q, %d, %q) = %q, want %q", tt.asset, tt.version, tt.ext, got, tt.want)
		}
	}
}

func TestLedger_NextVersion_PureRead(t *testing.T) {
	l := New()

	if got := l.NextVersion("tryon_result"); got != 1 {
		t.Errorf("NextVersion() on unknown asset = %d, want 1", got)
	}
	if got := l.NextVersion("tryon_result"); got != 1 {
		t.Errorf("NextVersion() second peek = %d, want 1 (no mutation)", got)
	}

	l.Commit("tryon_result", "png")
	if got := l.NextVersion("tryon_result"); got != 2 {
		t.Errorf("NextVersion() after commit = %d, want 2", got)
	}
}

func TestLedger_Commit_Monotonic(t *testing.T) {
	l := New()

	const n = 5
	for i := 1; i <= n; i++ {
		v := l.Commit("tryon_result", "png")
		if v.Number != i {
			t.Errorf("Commit() #%d Number = %d, want %d", i, v.Number, i)
		}
		want := fmt.Sprintf("tryon_result_v%d.png", i)
		if v.Filename != want {
			t.Errorf("Commit() #%d Filename = %q, want %q", i, v.Filename, want)
		}
	}

	history := l.History("tryon_result")
	if len(history) != n {
		t.Fatalf("History() length = %d, want %d", len(history), n)
	}
	for i, v := range history {
		if v.Number != i+1 {
			t.Errorf("History()[%d].Number = %d, want %d", i, v.Number, i+1)
		}
	}

	current, ok := l.Current("tryon_result")
	if !ok {
		t.Fatal("Current() ok = false, want true")
	}
	if current.Number != n {
		t.Errorf("Current().Number = %d, want %d", current.Number, n)
	}
}

func TestLedger_Commit_IndependentAssets(t *testing.T) {
	l := New()

	l.Commit("tryon_result", "png")
	l.Commit("tryon_result", "png")
	v := l.Commit("multiview_person", "png")

	if v.Number != 1 {
		t.Errorf("Commit() on second asset Number = %d, want 1", v.Number)
	}
}

func TestLedger_Commit_Concurrent(t *testing.T) {
	l := New()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Commit("tryon_result", "png")
			}
		}()
	}
	wg.Wait()

	history := l.History("tryon_result")
	if len(history) != workers*perWorker {
		t.Fatalf("History() length = %d, want %d", len(history), workers*perWorker)
	}

	seen := make(map[int]bool)
	for _, v := range history {
		if seen[v.Number] {
			t.Fatalf("duplicate version number %d", v.Number)
		}
		seen[v.Number] = true
	}
}

func TestLedger_History_Unknown(t *testing.T) {
	l := New()
	if history := l.History("nope"); len(history) != 0 {
		t.Errorf("History() on unknown asset = %v, want empty", history)
	}
	if _, ok := l.Current("nope"); ok {
		t.Error("Current() on unknown asset ok = true, want false")
	}
}

func TestLedger_Record_Restore(t *testing.T) {
	l := New()

	l.Record(Version{Asset: "tryon_result", Number: 1, Filename: "tryon_result_v1.png"})
	l.Record(Version{Asset: "tryon_result", Number: 2, Filename: "tryon_result_v2.png"})

	if got := l.NextVersion("tryon_result"); got != 3 {
		t.Errorf("NextVersion() after restore = %d, want 3", got)
	}
}

func TestLedger_Summary(t *testing.T) {
	l := New()

	if got := l.Summary(); !strings.Contains(got, "No results") {
		t.Errorf("Summary() empty ledger = %q, want no-results message", got)
	}

	l.Commit("tryon_result", "png")
	l.Commit("tryon_result", "png")

	got := l.Summary()
	if !strings.Contains(got, "tryon_result: 2 version(s)") {
		t.Errorf("Summary() = %q, want version count for tryon_result", got)
	}
	if !strings.Contains(got, "tryon_result_v2.png") {
		t.Errorf("Summary() = %q, want latest filename", got)
	}
}

func TestLedger_Assets(t *testing.T) {
	l := New()
	l.Commit("b_asset", "png")
	l.Commit("a_asset", "png")

	assets := l.Assets()
	if len(assets) != 2 || assets[0] != "a_asset" || assets[1] != "b_asset" {
		t.Errorf("Assets() = %v, want [a_asset b_asset]", assets)
	}
}
