// Package localstore keeps recruitment records in a local key-value file,
// the offline counterpart of the REST backend. All records live as one JSON
// array under a single key.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// KV is a string key-value store persisted as a JSON object. An advisory
// file lock serialises access between processes; mu serialises goroutines.
type KV struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// OpenKV prepares a store at path. The file is created on first write.
func OpenKV(path string) (*KV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &KV{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file path.
func (kv *KV) Path() string {
	return kv.path
}

// Get returns the value stored under key and whether it exists.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := kv.withLock(ctx, false, func() error {
		data, err := kv.load()
		if err != nil {
			return err
		}
		value, found = data[key]
		return nil
	})
	return value, found, err
}

// Update replaces the value under key with fn's result while holding the
// exclusive lock. fn receives the current value and whether it exists.
func (kv *KV) Update(ctx context.Context, key string, fn func(current string, found bool) (string, error)) error {
	return kv.withLock(ctx, true, func() error {
		data, err := kv.load()
		if err != nil {
			return err
		}
		current, found := data[key]
		next, err := fn(current, found)
		if err != nil {
			return err
		}
		data[key] = next
		return kv.save(data)
	})
}

// Remove deletes key and returns the value it held. Removing a missing key
// is not an error and reports found=false.
func (kv *KV) Remove(ctx context.Context, key string) (previous string, found bool, err error) {
	err = kv.withLock(ctx, true, func() error {
		data, err := kv.load()
		if err != nil {
			return err
		}
		if previous, found = data[key]; !found {
			return nil
		}
		delete(data, key)
		return kv.save(data)
	})
	return previous, found, err
}

func (kv *KV) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = kv.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = kv.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", kv.path, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", kv.path)
	}
	defer kv.lock.Unlock()

	return fn()
}

func (kv *KV) load() (map[string]string, error) {
	data := map[string]string{}
	raw, err := os.ReadFile(kv.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kv.path, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kv.path, err)
	}
	return data, nil
}

// save writes through a temporary file so readers never see a partial file.
func (kv *KV) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(kv.path), filepath.Base(kv.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), kv.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", kv.path, err)
	}
	return nil
}
