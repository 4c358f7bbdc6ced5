// Package backend opens the record store selected by DATA_BACKEND together
// with the optional AMQP publisher that the record service notifies.
package backend

import (
	"rekrutacje/internal/config"
	"rekrutacje/internal/records"
	"rekrutacje/internal/services"
)

// BackendType names a record store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = config.BackendSQLite
	LocalBackend  BackendType = config.BackendLocal
	MemoryBackend BackendType = config.BackendMemory
)

// IsValid reports whether bt names a known store.
func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == LocalBackend || bt == MemoryBackend
}

// Config carries the settings each store needs. Only the fields of the
// selected Type are read; the AMQP fields apply to every store.
type Config struct {
	Type BackendType

	SQLiteDBPath   string
	LocalStorePath string
	SeedFile       string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendResult is what CreateBackend opened. Pinger and Publisher may be
// nil; Close releases everything else.
type BackendResult struct {
	Store     records.Store
	Pinger    records.Pinger
	Publisher services.EventPublisher
	Cleanup   func() error
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
