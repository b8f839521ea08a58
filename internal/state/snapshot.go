// internal/state/snapshot.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/dbbuddy/internal/types"
)

// Snapshot is the serialized form of a live session.
type Snapshot struct {
	ID          types.SessionID  `json:"id"`
	Format      string           `json:"format"`
	Scope       []types.Database `json:"scope,omitempty"`
	SearchTerms []string         `json:"search_terms,omitempty"`
	Records     []SnapshotRecord `json:"records"`
	Failures    []types.Failure  `json:"failures,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SnapshotRecord is a record plus the partition it was in.
type SnapshotRecord struct {
	*types.Record
	Recycled bool `json:"recycled,omitempty"`
}

// Index is the listing entry kept for each stored snapshot.
type Index struct {
	ID          types.SessionID `json:"id"`
	Format      string          `json:"format"`
	Records     int             `json:"records"`
	Recycled    int             `json:"recycled"`
	SearchTerms int             `json:"search_terms"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ErrNotFound is returned when no snapshot exists for an id.
var ErrNotFound = errors.New("session not found")

// Store is a JSON-file-backed snapshot store. It keeps an index in
// sessions/sessions.json and one sessions/<id>.json file per snapshot.
type Store struct {
	root string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a snapshot store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

func (s *Store) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.sessionsDir(), "sessions.json")
}

func (s *Store) snapshotPath(id types.SessionID) (string, error) {
	name := string(id)
	if name == "" || name == "sessions" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.sessionsDir(), name+".json"), nil
}

func (s *Store) loadIndex() (map[types.SessionID]*Index, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[types.SessionID]*Index), nil
		}
		return nil, fmt.Errorf("read session index: %w", err)
	}

	var entries []*Index
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal session index: %w", err)
	}
	index := make(map[types.SessionID]*Index, len(entries))
	for _, e := range entries {
		index[e.ID] = e
	}
	return index, nil
}

func (s *Store) saveIndex(index map[types.SessionID]*Index) error {
	entries := make([]*Index, 0, len(index))
	for _, e := range index {
		entries = append(entries, e)
	}
	sortIndex(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session index: %w", err)
	}
	return writeAtomic(s.indexPath(), data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// newest first
func sortIndex(entries []*Index) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
}

// Save writes snap and updates the index. CreatedAt is kept from an earlier
// save of the same id; UpdatedAt is set to now.
func (s *Store) Save(_ context.Context, snap *Snapshot) error {
	path, err := s.snapshotPath(snap.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	now := s.now()
	if prev, ok := index[snap.ID]; ok {
		snap.CreatedAt = prev.CreatedAt
	} else if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	snap.UpdatedAt = now

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}

	entry := &Index{
		ID:          snap.ID,
		Format:      snap.Format,
		SearchTerms: len(snap.SearchTerms),
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	for _, r := range snap.Records {
		if r.Recycled {
			entry.Recycled++
		} else {
			entry.Records++
		}
	}
	index[snap.ID] = entry
	return s.saveIndex(index)
}

// Load reads the snapshot stored under id.
func (s *Store) Load(_ context.Context, id types.SessionID) (*Snapshot, error) {
	path, err := s.snapshotPath(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// List returns every stored snapshot, newest first.
func (s *Store) List(_ context.Context) ([]*Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]*Index, 0, len(index))
	for _, e := range index {
		entries = append(entries, e)
	}
	sortIndex(entries)
	return entries, nil
}

// Delete removes the snapshot stored under id.
func (s *Store) Delete(_ context.Context, id types.SessionID) error {
	path, err := s.snapshotPath(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	delete(index, id)
	return s.saveIndex(index)
}

// Clear removes every stored snapshot.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.sessionsDir()); err != nil {
		return fmt.Errorf("remove sessions directory: %w", err)
	}
	return nil
}
