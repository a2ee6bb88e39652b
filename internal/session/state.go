package session

import (
	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/oracle"
)

// ReferenceImage is one user-supplied input image registered under a
// session-scoped versioned name.
type ReferenceImage struct {
	Filename string
	Version  int
}

// LoopState is the refinement-loop-scoped block of session state. It
// is reset as a unit when a loop exits so a fresh run never inherits
// stale review or decision values.
type LoopState struct {
	DeepThinkMode    bool
	Iteration        int
	OriginalPrompt   string
	PreviousFeedback string
	Review           *oracle.Review
	Decision         *oracle.Decision
}

// Multiview is the fixed front/side/back view set derived from one
// reference image. Partial sets (empty slots) are valid.
type Multiview struct {
	Source string
	Front  string
	Side   string
	Back   string
}

// View returns the filename for a canonical view name, empty if the
// slot is unfilled.
func (m *Multiview) View(name string) string {
	switch name {
	case "front":
		return m.Front
	case "side":
		return m.Side
	case "back":
		return m.Back
	}
	return ""
}

// Count reports how many of the three slots are filled.
func (m *Multiview) Count() int {
	n := 0
	for _, v := range []string{m.Front, m.Side, m.Back} {
		if v != "" {
			n++
		}
	}
	return n
}

// BatchResult records the most recent multiview batch try-on: which
// garment was used and the versioned result per view.
type BatchResult struct {
	Garment string
	Views   map[string]ledger.Version
}

// VideoInfo describes the most recent showcase video.
type VideoInfo struct {
	URI         string
	Operation   string
	Duration    int
	AspectRatio string
	Style       string
}

// State is the per-conversation mutable store every workflow
// component reads and writes. One logical actor mutates it at a time;
// cross-session throttling goes through the shared rate limiter, not
// through here.
type State struct {
	References      map[string]ReferenceImage
	LatestReference string

	Loop LoopState

	LastGenerated *ledger.Version
	CurrentAsset  string
	Multiview     *Multiview
	LatestBatch   *BatchResult
	LatestVideo   *VideoInfo
}

func NewState() *State {
	return &State{References: make(map[string]ReferenceImage)}
}

// ResetLoop clears the loop-scoped block. Generated artifacts and
// their version history are untouched.
func (s *State) ResetLoop() {
	s.Loop = LoopState{}
}

// SetResult updates the latest-generated pointers after a successful
// try-on.
func (s *State) SetResult(v ledger.Version) {
	copied := v
	s.LastGenerated = &copied
	s.CurrentAsset = v.Asset
}
