package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Kitty graphics protocol framing: each escape carries control params,
// a semicolon, then up to payloadChunk bytes of base64 payload. The
// m flag marks whether more chunks follow.
const (
	kittyPrefix  = "\x1b_G"
	kittySuffix  = "\x1b\\"
	payloadChunk = 4096
)

// KittyEncoder writes image bytes to a terminal as kitty graphics
// escape sequences (a=T transmit-and-display, f=100 PNG payload).
type KittyEncoder struct {
	out io.Writer
}

func NewKittyEncoder(out io.Writer) *KittyEncoder {
	return &KittyEncoder{out: out}
}

// Encode emits the image as one escape sequence, or a chunked series
// when the base64 payload exceeds the protocol's chunk limit. Empty
// input writes nothing.
func (e *KittyEncoder) Encode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	chunks := chunkPayload(base64.StdEncoding.EncodeToString(data), payloadChunk)
	for i, chunk := range chunks {
		var params string
		switch {
		case len(chunks) == 1:
			params = "a=T,f=100,q=2"
		case i == 0:
			params = "a=T,f=100,q=2,m=1"
		case i == len(chunks)-1:
			params = "m=0"
		default:
			params = "m=1"
		}
		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", kittyPrefix, params, chunk, kittySuffix); err != nil {
			return err
		}
	}
	return nil
}

func chunkPayload(s string, size int) []string {
	var chunks []string
	for ; len(s) > size; s = s[size:] {
		chunks = append(chunks, s[:size])
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
