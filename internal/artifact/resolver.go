package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CatalogPrefix marks a reference into the static garment catalog,
// e.g. "catalog/2.jpg".
const CatalogPrefix = "catalog/"

// Resolver resolves an image reference against the session store
// first, then the read-only catalog directory. This mirrors how the
// workflow names its inputs: uploads and generated results live in
// the session namespace, garments are addressed as catalog/<file>.
type Resolver struct {
	session Store
	catalog string
}

func NewResolver(session Store, catalogDir string) *Resolver {
	return &Resolver{session: session, catalog: catalogDir}
}

// Resolve loads image bytes for a reference. Session artifacts take
// precedence; a catalog/ prefixed reference (or a bare filename that
// does not exist in the session) is looked up under the catalog dir.
func (r *Resolver) Resolve(ref string) (Artifact, error) {
	art, err := r.session.Load(ref)
	if err == nil {
		return art, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Artifact{}, err
	}

	name := strings.TrimPrefix(ref, CatalogPrefix)
	if err := validateName(name); err != nil {
		return Artifact{}, err
	}

	path := filepath.Join(r.catalog, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return Artifact{}, fmt.Errorf("failed to read catalog image %s: %w", name, err)
	}
	return Artifact{Data: data, MIME: MIMEForName(name)}, nil
}
