package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/ledger"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConfirmed    = errors.New("deletion not confirmed")
)

// Manager ties one active session's in-memory state to its sqlite
// persistence and its artifact directory. Uploads, version commits
// and loop state all flow through here.
type Manager struct {
	store   *Store
	baseDir string

	current   *Session
	state     *State
	ledger    *ledger.Ledger
	artifacts *artifact.DirStore
}

func NewManager(store *Store, baseDir string) *Manager {
	return &Manager{store: store, baseDir: baseDir}
}

// DefaultArtifactDir returns the root directory under which each
// session gets its own artifact subdirectory.
func DefaultArtifactDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".tryon", "artifacts"), nil
}

func (m *Manager) Current() *Session {
	return m.current
}

func (m *Manager) HasSession() bool {
	return m.current != nil
}

// State returns the active session's mutable state. Nil without a
// session.
func (m *Manager) State() *State {
	return m.state
}

func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

func (m *Manager) Artifacts() *artifact.DirStore {
	return m.artifacts
}

func (m *Manager) StartNew(ctx context.Context, name string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := m.attach(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load restores a persisted session: its reference registry and its
// asset version history are replayed into fresh in-memory state.
func (m *Manager) Load(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	if err := m.attach(sess); err != nil {
		return err
	}

	refs, err := m.store.ListReferences(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load reference images: %w", err)
	}
	for _, ref := range refs {
		m.state.References[ref.Filename] = ref
		m.state.LatestReference = ref.Filename
	}

	versions, err := m.store.ListAssetVersions(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load asset versions: %w", err)
	}
	for _, v := range versions {
		m.ledger.Record(v)
		m.state.SetResult(v)
	}

	return nil
}

func (m *Manager) attach(sess *Session) error {
	store, err := artifact.NewDirStore(filepath.Join(m.baseDir, sess.ID))
	if err != nil {
		return fmt.Errorf("failed to create session artifact directory: %w", err)
	}

	m.current = sess
	m.state = NewState()
	m.ledger = ledger.New()
	m.artifacts = store
	return nil
}

func (m *Manager) EnsureSession(ctx context.Context) error {
	if m.current == nil {
		_, err := m.StartNew(ctx, "")
		return err
	}
	return nil
}

func (m *Manager) touch(ctx context.Context) error {
	m.current.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, m.current)
}

// RegisterReference stores an uploaded person image under the next
// insertion-order name (reference_image_v1.png, v2...) and records it
// in the registry. Filenames are immutable once assigned.
func (m *Manager) RegisterReference(ctx context.Context, data []byte, mime string) (ReferenceImage, error) {
	if err := m.EnsureSession(ctx); err != nil {
		return ReferenceImage{}, err
	}

	version := len(m.state.References) + 1
	ref := ReferenceImage{
		Filename: ledger.Filename("reference_image", version, artifact.ExtForMIME(mime)),
		Version:  version,
	}

	if err := m.artifacts.Save(ref.Filename, data, mime); err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to save reference image: %w", err)
	}
	if err := m.store.InsertReference(ctx, m.current.ID, ref); err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to record reference image: %w", err)
	}

	m.state.References[ref.Filename] = ref
	m.state.LatestReference = ref.Filename

	if err := m.touch(ctx); err != nil {
		return ReferenceImage{}, err
	}
	return ref, nil
}

// ListReferences returns the registered uploads in version order.
func (m *Manager) ListReferences() []ReferenceImage {
	if m.state == nil {
		return nil
	}
	refs := make([]ReferenceImage, 0, len(m.state.References))
	for _, ref := range m.state.References {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Version < refs[j].Version })
	return refs
}

// ClearReferences empties the reference registry. Requires an
// explicit confirm; generated result history is never cleared.
func (m *Manager) ClearReferences(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, ErrNotConfirmed
	}
	if m.current == nil {
		return 0, ErrNoSession
	}

	n, err := m.store.DeleteReferences(ctx, m.current.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear reference images: %w", err)
	}

	m.state.References = make(map[string]ReferenceImage)
	m.state.LatestReference = ""
	return int(n), nil
}

// RecordResult persists a committed asset version and updates the
// latest-result pointers.
func (m *Manager) RecordResult(ctx context.Context, v ledger.Version) error {
	if m.current == nil {
		return ErrNoSession
	}
	if err := m.store.InsertAssetVersion(ctx, m.current.ID, v); err != nil {
		return fmt.Errorf("failed to record asset version: %w", err)
	}
	m.state.SetResult(v)
	return m.touch(ctx)
}

func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.store.ListSessions(ctx)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if m.current != nil && m.current.ID == id {
		m.current = nil
		m.state = nil
		m.ledger = nil
		m.artifacts = nil
	}
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) RenameSession(ctx context.Context, name string) error {
	if m.current == nil {
		return ErrNoSession
	}
	m.current.Name = name
	return m.touch(ctx)
}
