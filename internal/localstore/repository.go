package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"rekrutacje/internal/core"
	"rekrutacje/internal/records"
)

// RecordsKey is the single key holding the record collection.
const RecordsKey = "rekrutacje_data"

var _ records.Store = (*Repository)(nil)

// Repository implements records.Store over a KV. Every write rewrites the
// whole collection under the exclusive lock.
type Repository struct {
	kv *KV
}

func NewRepository(kv *KV) *Repository {
	return &Repository{kv: kv}
}

// Open is a shortcut for OpenKV followed by NewRepository.
func Open(path string) (*Repository, error) {
	kv, err := OpenKV(path)
	if err != nil {
		return nil, err
	}
	return NewRepository(kv), nil
}

// ReadLocalRecords decodes the collection stored under RecordsKey.
// A missing key is an empty collection.
func ReadLocalRecords(ctx context.Context, kv *KV) ([]core.Record, error) {
	raw, ok, err := kv.Get(ctx, RecordsKey)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw, ok)
}

func decodeRecords(raw string, found bool) ([]core.Record, error) {
	if !found || raw == "" {
		return []core.Record{}, nil
	}
	var out []core.Record
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RecordsKey, err)
	}
	return out, nil
}

// mutate loads the collection, applies fn and stores the result atomically.
func (r *Repository) mutate(ctx context.Context, fn func([]core.Record) ([]core.Record, error)) error {
	return r.kv.Update(ctx, RecordsKey, func(current string, found bool) (string, error) {
		all, err := decodeRecords(current, found)
		if err != nil {
			return "", err
		}
		next, err := fn(all)
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", RecordsKey, err)
		}
		return string(raw), nil
	})
}

func (r *Repository) ListRecords(ctx context.Context) ([]core.Record, error) {
	return ReadLocalRecords(ctx, r.kv)
}

func (r *Repository) GetRecord(ctx context.Context, id int64) (core.Record, error) {
	all, err := r.ListRecords(ctx)
	if err != nil {
		return core.Record{}, err
	}
	for _, rec := range all {
		if rec.ID == id {
			return rec, nil
		}
	}
	return core.Record{}, records.ErrNotFound
}

func (r *Repository) FindByReference(ctx context.Context, referenceID string) (core.Record, error) {
	all, err := r.ListRecords(ctx)
	if err != nil {
		return core.Record{}, err
	}
	for _, rec := range all {
		if rec.ReferenceID == referenceID {
			return rec, nil
		}
	}
	return core.Record{}, records.ErrNotFound
}

func (r *Repository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	err := r.mutate(ctx, func(all []core.Record) ([]core.Record, error) {
		var maxID int64
		for _, existing := range all {
			if existing.ReferenceID == rec.ReferenceID {
				return nil, records.ErrDuplicateReference
			}
			maxID = max(maxID, existing.ID)
		}
		rec.ID = maxID + 1
		return append(all, rec), nil
	})
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *Repository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	err := r.mutate(ctx, func(all []core.Record) ([]core.Record, error) {
		idx := -1
		for i, existing := range all {
			if existing.ID == rec.ID {
				idx = i
			} else if existing.ReferenceID == rec.ReferenceID {
				return nil, records.ErrDuplicateReference
			}
		}
		if idx < 0 {
			return nil, records.ErrNotFound
		}
		all[idx] = rec
		return all, nil
	})
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	return r.mutate(ctx, func(all []core.Record) ([]core.Record, error) {
		kept := all[:0]
		found := false
		for _, rec := range all {
			if rec.ID == id {
				found = true
				continue
			}
			kept = append(kept, rec)
		}
		if !found {
			return nil, records.ErrNotFound
		}
		return kept, nil
	})
}

// Clear removes the whole collection and reports how many records it held.
// A collection that no longer decodes is still removed.
func (r *Repository) Clear(ctx context.Context) (int, error) {
	raw, found, err := r.kv.Remove(ctx, RecordsKey)
	if err != nil {
		return 0, err
	}
	all, err := decodeRecords(raw, found)
	if err != nil {
		return 0, nil
	}
	return len(all), nil
}
