package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"rekrutacje/internal/core"
	"rekrutacje/internal/records"
)

var _ records.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Record
}

func New(seed []core.Record) *Store {
	s := &Store{items: make(map[int64]core.Record)}
	for _, r := range seed {
		if _, err := s.CreateRecord(context.Background(), r); err != nil {
			slog.Warn("Skipping seed record", "reference_id", r.ReferenceID, "error", err)
		}
	}
	return s
}

type seedFile struct {
	Records []core.Record `yaml:"records"`
}

// NewFromFile seeds the store from a YAML file with a top-level "records"
// list. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(seed.Records), nil
}

// ListRecords returns all records ordered by ID.
func (s *Store) ListRecords(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetRecord(_ context.Context, id int64) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.Record{}, records.ErrNotFound
	}
	return r, nil
}

func (s *Store) FindByReference(_ context.Context, referenceID string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.findByReference(referenceID); ok {
		return r, nil
	}
	return core.Record{}, records.ErrNotFound
}

func (s *Store) CreateRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findByReference(r.ReferenceID); ok {
		return core.Record{}, records.ErrDuplicateReference
	}
	s.nextID++
	r.ID = s.nextID
	s.items[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[r.ID]; !ok {
		return core.Record{}, records.ErrNotFound
	}
	if other, ok := s.findByReference(r.ReferenceID); ok && other.ID != r.ID {
		return core.Record{}, records.ErrDuplicateReference
	}
	s.items[r.ID] = r
	return r, nil
}

func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return records.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// findByReference expects s.mu to be held.
func (s *Store) findByReference(ref string) (core.Record, bool) {
	for _, r := range s.items {
		if r.ReferenceID == ref {
			return r, true
		}
	}
	return core.Record{}, false
}
