package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Version identifies one immutable artifact in an asset's lineage.
// The asset name and number are carried alongside the filename so
// nothing downstream ever has to parse them back out of the string.
type Version struct {
	Asset    string
	Number   int
	Filename string
}

type entry struct {
	current int
	history []Version
}

// Ledger maps logical asset names to monotonically increasing version
// numbers and keeps the full append-only history per asset. Entries
// are created implicitly on first commit.
type Ledger struct {
	mu     sync.Mutex
	assets map[string]*entry
}

func New() *Ledger {
	return &Ledger{assets: make(map[string]*entry)}
}

// Filename formats the canonical versioned filename for an asset,
// e.g. Filename("tryon_result", 3, "png") == "tryon_result_v3.png".
func Filename(asset string, version int, ext string) string {
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("%s_v%d.%s", asset, version, ext)
}

// NextVersion returns the version the next commit would receive. It
// is a pure read: calling it twice without an intervening commit
// returns the same value both times.
func (l *Ledger) NextVersion(asset string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.assets[asset]; ok {
		return e.current + 1
	}
	return 1
}

// Commit allocates the next version number for the asset and appends
// it to the history in a single critical section, so concurrent
// commits for the same asset can never collide on a version number.
func (l *Ledger) Commit(asset, ext string) Version {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.assets[asset]
	if !ok {
		e = &entry{}
		l.assets[asset] = e
	}

	v := Version{
		Asset:    asset,
		Number:   e.current + 1,
		Filename: Filename(asset, e.current+1, ext),
	}
	e.current = v.Number
	e.history = append(e.history, v)
	return v
}

// Record appends an externally assigned version, creating the asset
// entry if needed. Used when restoring a ledger from persisted state;
// new artifacts should go through Commit instead.
func (l *Ledger) Record(v Version) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.assets[v.Asset]
	if !ok {
		e = &entry{}
		l.assets[v.Asset] = e
	}
	if v.Number > e.current {
		e.current = v.Number
	}
	e.history = append(e.history, v)
}

// Current returns the latest version for the asset, if any.
func (l *Ledger) Current(asset string) (Version, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.assets[asset]
	if !ok || len(e.history) == 0 {
		return Version{}, false
	}
	return e.history[len(e.history)-1], true
}

// History returns the asset's versions in commit order, empty if the
// asset is unknown.
func (l *Ledger) History(asset string) []Version {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.assets[asset]
	if !ok {
		return nil
	}
	out := make([]Version, len(e.history))
	copy(out, e.history)
	return out
}

// Assets returns the known asset names, sorted.
func (l *Ledger) Assets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.assets))
	for name := range l.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary renders a human-readable report of every asset, its version
// count and latest filename.
func (l *Ledger) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.assets) == 0 {
		return "No results have been created yet."
	}

	names := make([]string, 0, len(l.assets))
	for name := range l.assets {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Results:\n")
	for _, name := range names {
		e := l.assets[name]
		latest := e.history[len(e.history)-1]
		fmt.Fprintf(&b, "  %s: %d version(s), latest is v%d (%s)\n",
			name, len(e.history), e.current, latest.Filename)
	}
	return strings.TrimRight(b.String(), "\n")
}
