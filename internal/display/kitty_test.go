package display

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestKittyEncoder_Encode_SmallImage(t *testing.T) {
	var buf bytes.Buffer
	enc := NewKittyEncoder(&buf)

	data := []byte("small test data")
	if err := enc.Encode(data); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\x1b_G") || !strings.HasSuffix(out, "\x1b\\") {
		t.Errorf("Encode() output not wrapped in escape sequence: %q", out)
	}
	for _, param := range []string{"a=T", "f=100", "q=2"} {
		if !strings.Contains(out, param) {
			t.Errorf("Encode() output missing %s parameter", param)
		}
	}
	if !strings.Contains(out, base64.StdEncoding.EncodeToString(data)) {
		t.Error("Encode() output missing base64 payload")
	}
}

func TestKittyEncoder_Encode_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewKittyEncoder(&buf).Encode(nil); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Encode(nil) wrote %q, want nothing", buf.String())
	}
}

func TestKittyEncoder_Encode_ChunksLargeImage(t *testing.T) {
	var buf bytes.Buffer
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i % 256)
	}

	if err := NewKittyEncoder(&buf).Encode(data); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, "\x1b_G"); n < 2 {
		t.Errorf("Encode() wrote %d chunks, want multiple", n)
	}
	if !strings.Contains(out, "m=1") || !strings.Contains(out, "m=0") {
		t.Error("Encode() chunked output missing continuation flags")
	}
}

func TestChunkPayload(t *testing.T) {
	tests := []struct {
		input string
		size  int
		want  []string
	}{
		{"", 10, nil},
		{"hello", 10, []string{"hello"}},
		{"hello", 5, []string{"hello"}},
		{"hello world", 5, []string{"hello", " worl", "d"}},
	}

	for _, tt := range tests {
		got := chunkPayload(tt.input, tt.size)
		if len(got) != len(tt.want) {
			t.Fatalf("chunkPayload(%q, %d) = %d chunks, want %d", tt.input, tt.size, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
			}
		}
	}
}

type errorWriter struct{ err error }

func (w *errorWriter) Write([]byte) (int, error) { return 0, w.err }

func TestKittyEncoder_WriteError(t *testing.T) {
	enc := NewKittyEncoder(&errorWriter{err: bytes.ErrTooLarge})
	if err := enc.Encode([]byte("test")); err == nil {
		t.Error("Encode() with failing writer should return error")
	}
}
