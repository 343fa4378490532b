// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/streambridge/core/internal/log"
)

// SchemaVersion is the schema this build reads and writes.
const SchemaVersion = 1

// ErrSchemaTooNew is returned when the persisted schema was written by a
// newer build. Downgrading is not supported.
var ErrSchemaTooNew = fmt.Errorf("storage schema is newer than this build supports")

// migrations maps a source version to the step that lifts it one version up.
// Steps run in order until the store reaches SchemaVersion.
var migrations = map[int]func(context.Context, Store) error{}

// MigrateSchema brings the store's schema to the current version. A fresh
// store is stamped with the current version; an already-current store is a
// no-op; a newer-than-supported store is an error.
func MigrateSchema(ctx context.Context, store Store) error {
	logger := log.WithComponent("storage")

	version, err := schemaVersionOf(ctx, store)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: found %d, supported %d", ErrSchemaTooNew, version, SchemaVersion)
	}
	if version == SchemaVersion {
		return nil
	}

	for v := version; v < SchemaVersion; v++ {
		if step, ok := migrations[v]; ok {
			if err := step(ctx, store); err != nil {
				return fmt.Errorf("migrate schema %d -> %d: %w", v, v+1, err)
			}
		}
		logger.Info().
			Int(log.FieldSchemaFrom, v).
			Int(log.FieldSchemaTo, v+1).
			Msg("storage schema migrated")
	}

	return store.Put(ctx, schemaVersionKey, []byte(strconv.Itoa(SchemaVersion)))
}

// schemaVersionOf reads the persisted schema version; a store with no
// version stamp is version 0 (fresh or pre-versioning).
func schemaVersionOf(ctx context.Context, store Store) (int, error) {
	raw, ok, err := store.Get(ctx, schemaVersionKey)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if !ok {
		return 0, nil
	}
	version, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return version, nil
}
