package artifacts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies why an artifact was written.
type Kind string

const (
	KindFailure Kind = "failure"
	KindFinal   Kind = "final"
	KindStep    Kind = "step"
)

// Meta describes a stored artifact. It is written next to the image as
// <name>.json.
type Meta struct {
	Scenario  string    `json:"scenario"`
	Slug      string    `json:"slug"`
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	SizeBytes int       `json:"size_bytes"`
	Step      int       `json:"step"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages per-scenario artifact directories under a root directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a scenario title into a stable directory name. The readable
// part is suffixed with a hash of the exact title so distinct titles never
// share a directory.
func Slug(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "scenario"
	}
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return fmt.Sprintf("%s-%08x", slug, uint32(xxhash.Sum64String(title)))
}

// Clear removes the artifacts of a previous run of the scenario.
func (s *Store) Clear(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(s.dir, Slug(title))); err != nil {
		return fmt.Errorf("artifact store: clear %s: %w", Slug(title), err)
	}
	return nil
}

// Save writes a PNG as <dir>/<slug>/<kind>.png plus its sidecar and returns
// the image path.
func (s *Store) Save(meta Meta, data []byte) (string, error) {
	meta.Slug = Slug(meta.Scenario)
	if meta.Format == "" {
		meta.Format = "png"
	}
	dir := filepath.Join(s.dir, meta.Slug)
	imgPath := filepath.Join(dir, string(meta.Kind)+"."+meta.Format)
	jsonPath := filepath.Join(dir, string(meta.Kind)+".json")
	meta.Path = imgPath
	meta.SizeBytes = len(data)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(imgPath, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact store: write image: %w", err)
	}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: marshal meta: %w", err)
	}
	if err := os.WriteFile(jsonPath, b, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("artifact store: write meta: %w", err)
	}
	slog.Debug("artifact saved", "path", imgPath, "kind", string(meta.Kind), "size_bytes", meta.SizeBytes)
	return imgPath, nil
}

// List returns all artifacts, newest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("artifact store: glob: %w", err)
	}

	metas := make([]Meta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// WriteFile writes data to path, creating parent directories. Step
// screenshots use it for paths chosen by the scenario author.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("artifact: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return nil
}
