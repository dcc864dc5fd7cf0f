// Package backend selects and constructs the configured data store.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"classfund/internal/store"
	"classfund/internal/store/memory"
	"classfund/internal/store/postgres"
)

// Type names a selectable data backend.
type Type string

const (
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

func (t Type) IsValid() bool {
	switch t {
	case Postgres, Memory:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Types returns all valid backend types.
func Types() []Type {
	return []Type{Postgres, Memory}
}

// Config carries everything needed to construct a backend.
type Config struct {
	Type Type

	// Postgres configuration
	DatabaseURL string

	// Memory backend reads seed JSON files from this directory.
	DataDirectory string
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == Postgres && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for postgres backend")
	}
	return nil
}

// New constructs the configured store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case Postgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		logger.Info("Initialized postgres backend")
		return s, nil

	case Memory:
		dataDir := cfg.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		s, err := memory.NewFromFiles(dataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize memory backend: %w", err)
		}
		logger.Info("Initialized memory backend", "data_directory", dataDir)
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
