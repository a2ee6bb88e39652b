package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrEmpty    = errors.New("no garments found in catalog")
	ErrNotFound = errors.New("garment not found in catalog")
)

// Entry is one garment image in the static catalog. Ref is the value
// to pass as a try-on garment input ("catalog/<name>").
type Entry struct {
	Index int
	Name  string
	Ref   string
	Size  int64
}

func (e Entry) String() string {
	return fmt.Sprintf("%d. %s (%s)", e.Index, e.Name, humanize.Bytes(uint64(e.Size)))
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// List returns the catalog's garment images sorted by filename, with
// 1-based indexes for selection.
func List(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name: f.Name(),
			Ref:  "catalog/" + f.Name(),
			Size: info.Size(),
		})
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for i := range entries {
		entries[i].Index = i + 1
	}
	return entries, nil
}

// Select finds a garment by 1-based index ("2") or filename ("2.jpg",
// case-insensitive).
func Select(dir, identifier string) (Entry, error) {
	entries, err := List(dir)
	if err != nil {
		return Entry{}, err
	}

	if n, err := strconv.Atoi(identifier); err == nil {
		if n < 1 || n > len(entries) {
			return Entry{}, fmt.Errorf("%w: index %d out of range 1..%d", ErrNotFound, n, len(entries))
		}
		return entries[n-1], nil
	}

	for _, e := range entries {
		if strings.EqualFold(e.Name, identifier) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
}
