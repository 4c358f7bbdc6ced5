// Package records defines the storage ports for recruitment records and the
// errors shared by every backend.
package records

import (
	"context"
	"errors"

	"rekrutacje/internal/core"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateReference = errors.New("reference id already exists")
)

// Ports implemented by the storage backends.
type (
	// Source yields the full record collection fed to the aggregator.
	Source interface {
		ListRecords(ctx context.Context) ([]core.Record, error)
	}

	Store interface {
		Source
		GetRecord(ctx context.Context, id int64) (core.Record, error)
		// FindByReference returns ErrNotFound when no record has the reference id.
		FindByReference(ctx context.Context, referenceID string) (core.Record, error)
		// CreateRecord assigns the ID and returns the stored record.
		// It returns ErrDuplicateReference when the reference id is taken.
		CreateRecord(ctx context.Context, r core.Record) (core.Record, error)
		// UpdateRecord replaces the stored record with the same ID.
		UpdateRecord(ctx context.Context, r core.Record) (core.Record, error)
		DeleteRecord(ctx context.Context, id int64) error
	}

	// Pinger is implemented by backends with an external dependency worth
	// checking from the readiness probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Page returns records[offset:offset+limit] clamped to the slice bounds.
// A non-positive limit returns everything after offset.
func Page(all []core.Record, offset, limit int) []core.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []core.Record{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
