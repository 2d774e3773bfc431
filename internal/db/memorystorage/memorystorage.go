// Package memorystorage provides a purely in-memory table store. It reuses
// the jsondb cache without a backing file and is the default backend when no
// persistent storage is configured.
package memorystorage

import (
	"context"

	"github.com/prepdeck/prepdeck/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Tables: jsondb.Tables{},
			},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
