// Package storage opens the configured store adapters.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/vectordb"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// SettingPath is the store setting naming the database file.
const SettingPath = "path"

// Open creates the adapter for one configured store.
// Relative paths resolve against dataDir; the default file is "<name>.db".
func Open(ctx context.Context, name string, cfg domain.StoreConfig, dataDir string, dims int) (driven.StoreAdapter, error) {
	switch cfg.Type {
	case domain.StoreTypeMemory:
		return memory.New(name), nil
	case domain.StoreTypeSQLite:
		s, err := sqlite.New(name, ResolvePath(name, cfg, dataDir))
		if err != nil {
			return nil, err
		}
		return s, nil
	case domain.StoreTypeSqvect:
		s, err := vectordb.New(ctx, name, ResolvePath(name, cfg, dataDir), dims)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: store %q has unknown type %q", domain.ErrConfiguration, name, cfg.Type)
	}
}

// ResolvePath returns the database file of a store.
func ResolvePath(name string, cfg domain.StoreConfig, dataDir string) string {
	path := cfg.Settings[SettingPath]
	if path == "" {
		path = name + ".db"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, path)
	}
	return path
}

// CloseAll closes every store and joins the errors.
func CloseAll(stores []driven.StoreAdapter) error {
	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
