package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound      = errors.New("artifact not found")
	ErrPathTraversal = errors.New("path traversal detected")
)

// Artifact is stored image bytes plus their MIME type.
type Artifact struct {
	Data []byte
	MIME string
}

// Store is the narrow persistence contract the workflow depends on:
// save bytes under a name, load bytes by name.
type Store interface {
	Save(name string, data []byte, mime string) error
	Load(name string) (Artifact, error)
}

// DirStore keeps artifacts as flat files in a single directory. It is
// the session artifact namespace: uploads and generated results both
// land here under their versioned filenames.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Save(name string, data []byte, mime string) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return nil
}

func (s *DirStore) Load(name string) (Artifact, error) {
	if err := validateName(name); err != nil {
		return Artifact{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Artifact{}, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return Artifact{Data: data, MIME: MIMEForName(name)}, nil
}

// Path returns the on-disk location of a stored artifact.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return nil
}

// MIMEForName guesses an image MIME type from the file extension,
// defaulting to image/png.
func MIMEForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// ExtForMIME is the inverse mapping: the filename extension for an
// image MIME type, defaulting to png. Keeping the two in sync means a
// stored artifact round-trips to the same MIME it was saved with.
func ExtForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
