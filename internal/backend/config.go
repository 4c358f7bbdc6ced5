package backend

import (
	"errors"
	"fmt"

	"rekrutacje/internal/config"
)

// FromAppConfig copies the store and broker settings out of the process
// configuration.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	cfg := Config{
		Type:           BackendType(app.DataBackend),
		SQLiteDBPath:   app.SQLiteDBPath,
		LocalStorePath: app.LocalStorePath,
		SeedFile:       app.SeedFile,
		AMQPURL:        app.AMQPURL,
		AMQPExchange:   app.AMQPExchange,
		AMQPQueue:      app.AMQPQueue,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("backend: unknown data backend %q", app.DataBackend)
	}
	return cfg, nil
}

// Validate checks that the path required by the selected store is set. A
// memory store without a seed file starts empty.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("backend: sqlite requires a database path")
		}
	case LocalBackend:
		if c.LocalStorePath == "" {
			return errors.New("backend: local requires a store file path")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("backend: unknown type %q", c.Type)
	}
	return nil
}
