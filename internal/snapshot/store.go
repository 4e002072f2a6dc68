// Package snapshot keeps rendered hover previews on disk: one image file
// plus a JSON sidecar per preview, keyed by a UUID.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no preview has the requested id.
	ErrNotFound = errors.New("preview not found")
	// ErrInvalidID is returned for ids that are not canonical UUIDs.
	ErrInvalidID = errors.New("invalid preview id")
)

// Pointer is the position a preview was rendered for.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PreviewMeta describes a stored preview.
type PreviewMeta struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
	Pointer   *Pointer  `json:"pointer,omitempty"`
	State     string    `json:"state"`
	Active    string    `json:"active,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// NewID returns a fresh preview id.
func NewID() string { return uuid.NewString() }

// Store manages preview files on disk.
type Store struct {
	dir  string
	keep int
	mu   sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithRetention keeps at most n previews; Save removes the oldest beyond
// that. n <= 0 keeps everything.
func WithRetention(n int) Option {
	return func(s *Store) { s.keep = n }
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

func (s *Store) validateID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Save writes the image and then its sidecar, so a listed preview always
// has its image. Older previews past the retention limit are removed.
func (s *Store) Save(meta PreviewMeta, imageData []byte) error {
	if err := s.validateID(meta.ID); err != nil {
		return err
	}
	if meta.Format == "" {
		return fmt.Errorf("snapshot store: missing format for %s", meta.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := filepath.Join(s.dir, meta.ID+"."+meta.Format)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := writeFileAtomic(imgPath, imageData); err != nil {
		return fmt.Errorf("snapshot store: write image: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return fmt.Errorf("snapshot store: marshal meta: %w", err)
	}

	if err := writeFileAtomic(jsonPath, data); err != nil {
		_ = os.Remove(imgPath)
		return fmt.Errorf("snapshot store: write meta: %w", err)
	}

	slog.Debug("preview saved", "id", meta.ID, "bytes", len(imageData))
	s.pruneLocked()
	return nil
}

func (s *Store) pruneLocked() {
	if s.keep <= 0 {
		return
	}
	metas := s.listLocked()
	for _, meta := range metas[min(s.keep, len(metas)):] {
		if err := s.removeLocked(meta); err != nil {
			slog.Warn("preview prune failed", "id", meta.ID, "error", err)
			continue
		}
		slog.Debug("preview pruned", "id", meta.ID)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Get reads preview metadata by ID.
func (s *Store) Get(id string) (PreviewMeta, error) {
	if err := s.validateID(id); err != nil {
		return PreviewMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(filepath.Join(s.dir, id+".json"), id)
}

func (s *Store) readMeta(path, id string) (PreviewMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PreviewMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return PreviewMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}

	var meta PreviewMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return PreviewMeta{}, fmt.Errorf("snapshot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all previews sorted by creation time (newest first).
// Unreadable sidecars and files not named by a preview id are skipped.
func (s *Store) List() ([]PreviewMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

func (s *Store) listLocked() []PreviewMeta {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*.json"))
	metas := make([]PreviewMeta, 0, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		if s.validateID(id) != nil {
			continue
		}
		meta, err := s.readMeta(path, id)
		if err != nil {
			slog.Debug("preview sidecar skipped", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas
}

// ReadImage reads the raw image bytes and returns the format.
func (s *Store) ReadImage(id string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	imgPath := filepath.Join(s.dir, id+"."+meta.Format)
	data, err := os.ReadFile(imgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: image for %s", ErrNotFound, id)
		}
		return nil, "", fmt.Errorf("snapshot store: read image: %w", err)
	}
	return data, meta.Format, nil
}

// Delete removes both the image and metadata files.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(meta)
}

// removeLocked drops the sidecar first so a half-removed preview is no
// longer listed.
func (s *Store) removeLocked(meta PreviewMeta) error {
	if err := os.Remove(filepath.Join(s.dir, meta.ID+".json")); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, meta.ID)
		}
		return fmt.Errorf("snapshot store: remove meta: %w", err)
	}
	if err := os.Remove(filepath.Join(s.dir, meta.ID+"."+meta.Format)); err != nil {
		slog.Debug("snapshot image cleanup failed", "id", meta.ID, "error", err)
	}
	return nil
}
